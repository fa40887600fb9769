package storage

import (
	"context"
	"sort"
	"sync"

	"agentgw/costgate/pkg/usage"
)

// MemoryStorage implements usage.Storage in process memory.
// Records are lost on restart; use it for tests and ephemeral deployments.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*usage.Record
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends one usage record.
func (m *MemoryStorage) Store(_ context.Context, record *usage.Record) error {
	copied := *record

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, &copied)
	return nil
}

// Query retrieves records matching the filters, newest first.
func (m *MemoryStorage) Query(_ context.Context, query *usage.Query) ([]*usage.Record, error) {
	m.mu.RLock()
	matched := make([]*usage.Record, 0)
	for _, r := range m.records {
		if matches(r, query) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []*usage.Record{}, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}

	return matched, nil
}

// Count returns the number of records matching the filters.
func (m *MemoryStorage) Count(_ context.Context, query *usage.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, r := range m.records {
		if matches(r, query) {
			count++
		}
	}
	return count, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}

// matches applies the conjunctive query filters to one record.
func matches(r *usage.Record, q *usage.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.UserID != "" && r.Identity.UserID != q.UserID {
		return false
	}
	if q.TeamID != "" && r.Identity.TeamID != q.TeamID {
		return false
	}
	if q.Provider != "" && r.Provider != q.Provider {
		return false
	}
	if q.Model != "" && r.Model != q.Model {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}
