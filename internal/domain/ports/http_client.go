package ports

import "net/http"

// HTTPClient defines the interface for making HTTP requests
// This allows us to mock HTTP calls in tests and swap implementations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
