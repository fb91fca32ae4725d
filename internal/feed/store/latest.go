package store

import (
	"sync"

	"tickrouter/internal/feed/model"
)

// LatestStore keeps the most recent routed tick per symbol. The snapshot
// saver and the monitoring API read from it; the dispatcher side writes.
type LatestStore struct {
	mu   sync.RWMutex
	data map[string]model.RoutedTick
}

func NewLatestStore() *LatestStore {
	return &LatestStore{
		data: make(map[string]model.RoutedTick),
	}
}

func (s *LatestStore) Set(tick model.RoutedTick) {
	s.mu.Lock()
	s.data[tick.Symbol] = tick
	s.mu.Unlock()
}

func (s *LatestStore) Get(symbol string) (model.RoutedTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tick, ok := s.data[symbol]
	return tick, ok
}

// All returns a copy of the latest tick for every symbol.
func (s *LatestStore) All() map[string]model.RoutedTick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.RoutedTick, len(s.data))
	for symbol, tick := range s.data {
		out[symbol] = tick
	}
	return out
}

// Count returns the number of symbols with at least one routed tick.
func (s *LatestStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
