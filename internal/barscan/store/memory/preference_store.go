package memory

import (
	"context"
	"sync"
)

type PreferenceStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{data: make(map[string]string)}
}

func (s *PreferenceStore) GetString(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *PreferenceStore) SetString(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
