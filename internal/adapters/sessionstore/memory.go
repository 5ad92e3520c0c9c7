package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// MemoryStore is an in-process SessionStore used for local development
// and tests. Documents round-trip through JSON so serialization
// behavior matches the Postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, id string, out any) error {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return domain.NewDomainError(domain.ErrorCodeSessionNotFound,
			fmt.Sprintf("no session stored under id %s", id))
	}
	return json.Unmarshal(doc, out)
}

func (s *MemoryStore) Create(_ context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; exists {
		return domain.NewDomainError(domain.ErrorCodeSessionConflict,
			fmt.Sprintf("session %s already exists", id))
	}
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; !exists {
		return domain.NewDomainError(domain.ErrorCodeSessionNotFound,
			fmt.Sprintf("no session stored under id %s", id))
	}
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "session serialization failed", err)
	}
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()
	return nil
}
