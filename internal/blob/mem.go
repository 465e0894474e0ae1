package blob

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	meta    map[string]map[string]string

	// PutErr, when set, is returned by the next Put call.
	PutErr error
	// GetErr, when set, is returned by every Get call.
	GetErr error
}

// NewMem creates an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{
		objects: map[string][]byte{},
		meta:    map[string]map[string]string{},
	}
}

func (s *MemStore) Put(_ context.Context, key string, data []byte, _ string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		err := s.PutErr
		s.PutErr = nil
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	if metadata != nil {
		s.meta[key] = metadata
	}
	return nil
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Keys returns all stored keys.
func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// Metadata returns metadata recorded for a key.
func (s *MemStore) Metadata(key string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[key]
}
