package assessment

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps submissions in process. It backs the service when
// no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []*Submission
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, s *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ID == s.ID {
			return nil
		}
	}
	cp := *s
	m.items = append(m.items, &cp)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, limit, offset int) ([]*Submission, int, error) {
	m.mu.RLock()
	sorted := make([]*Submission, len(m.items))
	copy(sorted, m.items)
	m.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	total := len(sorted)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return sorted[offset:end], total, nil
}
