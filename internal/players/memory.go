package players

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-process player store
type Memory struct {
	mu      sync.Mutex
	players map[int64]Player
}

// NewMemory creates a store holding players
func NewMemory(players ...Player) *Memory {
	m := &Memory{players: make(map[int64]Player, len(players))}
	for _, p := range players {
		m.players[p.ID] = p
	}
	return m
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, id int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return &p, nil
}

func (m *Memory) Update(_ context.Context, id int64, u Update) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if u.MarketValue != nil {
		p.MarketValue = sql.NullInt64{Int64: *u.MarketValue, Valid: true}
	}
	if u.ScoutingReport != nil {
		p.ScoutingReport = sql.NullString{String: *u.ScoutingReport, Valid: true}
	}
	m.players[id] = p
	return &p, nil
}

func (m *Memory) ListIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
