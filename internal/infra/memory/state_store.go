package memory

import (
	"context"
	"sync"

	"trivia-quiz/internal/domain"
)

// StateStore is an in-memory implementation of app.StateRepository.
type StateStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	saves   int
}

func NewStateStore() *StateStore {
	return &StateStore{
		records: make(map[string][]byte),
	}
}

func (s *StateStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *StateStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	s.saves++
	return nil
}

func (s *StateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Saves reports how many writes were made (useful for write-through tests).
func (s *StateStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
