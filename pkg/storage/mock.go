package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/jwebster45206/page-engine/pkg/session"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[string]session.Session
	worlds    []WorldSummary
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[string]session.Session),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// AddWorld registers a world returned by ListWorlds
func (m *MockStorage) AddWorld(w WorldSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds = append(m.worlds, w)
}

// Saves returns how many times SaveSession was called
func (m *MockStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session snapshot
func (m *MockStorage) SaveSession(ctx context.Context, s session.Session) error {
	if s.ID == "" {
		return errors.New("session id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveError != nil {
		return m.saveError
	}
	if cur, ok := m.sessions[s.ID]; ok && cur.CreatedAt.Equal(s.CreatedAt) && cur.Version >= s.Version {
		return nil // keep the newer snapshot
	}
	m.sessions[s.ID] = s
	return nil
}

// LoadSession mocks loading a session snapshot
func (m *MockStorage) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return &s, nil
}

// DeleteSession mocks deleting a session snapshot
func (m *MockStorage) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListWorlds mocks listing worlds
func (m *MockStorage) ListWorlds(ctx context.Context) ([]WorldSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.worlds), nil
}
