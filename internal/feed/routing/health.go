package routing

import (
	"sync"
	"sync/atomic"
	"time"

	"tickrouter/internal/feed/model"
)

// SourceHealth is a lock-free connectivity flag for one adapter. Adapters flip
// it on connect/disconnect; many symbol workers read it concurrently.
type SourceHealth struct {
	sourceID   string
	kind       model.SourceKind
	connected  atomic.Bool
	lastChange atomic.Int64 // unix nanos of the last transition
}

// SetConnected records a connectivity transition. Repeated calls with the same
// value do not update the transition timestamp.
func (h *SourceHealth) SetConnected(up bool) {
	if h.connected.Swap(up) != up {
		h.lastChange.Store(time.Now().UTC().UnixNano())
	}
}

func (h *SourceHealth) Connected() bool {
	return h.connected.Load()
}

// SourceHealthSnapshot is a read-only view for monitoring.
type SourceHealthSnapshot struct {
	SourceID   string           `json:"sourceId"`
	Kind       model.SourceKind `json:"kind"`
	Connected  bool             `json:"connected"`
	LastChange time.Time        `json:"lastChange"`
}

// HealthRegistry tracks SourceHealth per adapter.
type HealthRegistry struct {
	mu      sync.RWMutex
	sources map[string]*SourceHealth
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{
		sources: make(map[string]*SourceHealth),
	}
}

// Register creates (or returns) the health flag for a source. Sources start
// disconnected until the adapter reports otherwise.
func (r *HealthRegistry) Register(sourceID string, kind model.SourceKind) *SourceHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.sources[sourceID]; ok {
		return h
	}
	h := &SourceHealth{sourceID: sourceID, kind: kind}
	r.sources[sourceID] = h
	return h
}

// Connected reports whether the given source is currently connected.
// Unknown sources are treated as disconnected.
func (r *HealthRegistry) Connected(sourceID string) bool {
	r.mu.RLock()
	h, ok := r.sources[sourceID]
	r.mu.RUnlock()
	return ok && h.Connected()
}

// Snapshot returns a copy of all source states for monitoring.
func (r *HealthRegistry) Snapshot() []SourceHealthSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SourceHealthSnapshot, 0, len(r.sources))
	for _, h := range r.sources {
		out = append(out, SourceHealthSnapshot{
			SourceID:   h.sourceID,
			Kind:       h.kind,
			Connected:  h.connected.Load(),
			LastChange: time.Unix(0, h.lastChange.Load()).UTC(),
		})
	}
	return out
}
