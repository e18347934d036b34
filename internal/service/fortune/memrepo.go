package fortune

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo is the in-memory reading log used when DATABASE_URL is empty.
type memrepo struct {
	mu sync.RWMutex

	nextID   int64
	byUUID   map[string]*Reading
	byPlayer map[string][]*Reading
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byUUID:   make(map[string]*Reading),
		byPlayer: make(map[string][]*Reading),
	}
}

func (m *memrepo) InsertReading(_ context.Context, rd *Reading) (int64, error) {
	if rd == nil {
		return 0, ErrDuplicateReading
	}
	key := strings.TrimSpace(rd.ReadingUUID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byUUID[key]; exists {
		return 0, ErrDuplicateReading
	}
	m.nextID++
	cp := *rd
	cp.ID = m.nextID
	cp.Draws = append([]ReadingDraw(nil), rd.Draws...)
	m.byUUID[key] = &cp
	m.byPlayer[rd.PlayerHash] = append(m.byPlayer[rd.PlayerHash], &cp)
	return cp.ID, nil
}

func (m *memrepo) RecentReadings(_ context.Context, playerHash string, limit int) ([]*Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byPlayer[playerHash]
	items := make([]*Reading, 0, len(list))
	for _, rd := range list {
		cp := *rd
		cp.Draws = append([]ReadingDraw(nil), rd.Draws...)
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CompletedAt.Equal(items[j].CompletedAt) {
			return items[i].CompletedAt.After(items[j].CompletedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
