package storage

import (
	"context"
	"sync"

	"tickrouter/internal/feed/model"
)

// MemorySink is an in-memory Sink for tests and local runs.
type MemorySink struct {
	mu    sync.Mutex
	ticks []model.RoutedTick
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		ticks: make([]model.RoutedTick, 0),
	}
}

func (m *MemorySink) SaveTick(_ context.Context, tick model.RoutedTick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, tick)
	return nil
}

func (m *MemorySink) GetTicks() []model.RoutedTick {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid race
	out := make([]model.RoutedTick, len(m.ticks))
	copy(out, m.ticks)
	return out
}
