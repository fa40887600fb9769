package storage

import (
	"context"
	"sync"
	"time"

	"agentgw/costgate/pkg/limits/budget"
)

// MemoryBackend keeps account snapshots in process memory. Snapshots are
// lost on restart; use it for tests or when budget durability is not
// required.
type MemoryBackend struct {
	mu       sync.RWMutex
	accounts map[string]budget.AccountState
	updated  map[string]time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		accounts: make(map[string]budget.AccountState),
		updated:  make(map[string]time.Time),
	}
}

// SaveAccounts upserts the given account states.
func (m *MemoryBackend) SaveAccounts(_ context.Context, states []budget.AccountState) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range states {
		m.accounts[s.UserID] = s
		m.updated[s.UserID] = now
	}
	return nil
}

// LoadAccounts returns all stored account states.
func (m *MemoryBackend) LoadAccounts(_ context.Context) ([]budget.AccountState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]budget.AccountState, 0, len(m.accounts))
	for _, s := range m.accounts {
		states = append(states, s)
	}
	return states, nil
}

// Cleanup removes accounts not updated since olderThan.
func (m *MemoryBackend) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for userID, at := range m.updated {
		if at.Before(olderThan) {
			delete(m.accounts, userID)
			delete(m.updated, userID)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
