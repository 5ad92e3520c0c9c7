package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Generates a random session signing key for local development.
//
// Usage:
//
//	go run scripts/generate_signing_key/generate_signing_key.go
//	export SESSION_SIGNING_KEY=<output>
func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate signing key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hex.EncodeToString(key))
}
