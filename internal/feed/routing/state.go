package routing

import (
	"time"

	"tickrouter/internal/feed/model"
)

// HealthView is the read side of the health registry the machine consults.
type HealthView interface {
	Connected(sourceID string) bool
}

// StateSnapshot is a read-only copy of one symbol's routing state.
type StateSnapshot struct {
	Symbol              string              `json:"symbol"`
	AssetClass          model.AssetClass    `json:"assetClass"`
	ActiveSourceID      string              `json:"activeSourceId"`
	Status              model.RoutingStatus `json:"status"`
	LastTickTime        time.Time           `json:"lastTickTime"`
	LastSwitchTime      time.Time           `json:"lastSwitchTime"`
	ConsecutiveFailures map[string]int      `json:"consecutiveFailures"`
}

// Transition records one status change for logging and alerting.
type Transition struct {
	Symbol         string              `json:"symbol"`
	From           model.RoutingStatus `json:"from"`
	To             model.RoutingStatus `json:"to"`
	ActiveSourceID string              `json:"activeSourceId"`
	At             time.Time           `json:"at"`
}

// Machine is the routing state machine for a single symbol. It is not safe
// for concurrent use: exactly one worker goroutine owns it and applies ticks;
// readers get copies via Snapshot published by that worker.
//
// Staleness is measured on tick timestamps rather than wall clock, so
// replaying the same tick sequence yields the same states and routed ticks.
type Machine struct {
	symbol     string
	class      model.AssetClass
	primaryID  string
	fallbackID string // empty for single-source symbols
	staleness  time.Duration
	health     HealthView

	status     model.RoutingStatus
	activeID   string
	firstSeen  time.Time // first observed tick, baseline for primary silence
	lastTick   time.Time // last routed tick from the authoritative source
	lastSwitch time.Time
	lastSeen   map[string]time.Time // last accepted tick per source, any source
	failures   map[string]int
}

// NewMachine creates a machine in STARTUP for the given symbol. fallbackID may
// be empty, in which case the machine never leaves PRIMARY_ACTIVE once it gets
// there (the CRYPTO case).
func NewMachine(symbol string, class model.AssetClass, primaryID, fallbackID string,
	staleness time.Duration, health HealthView) *Machine {
	return &Machine{
		symbol:     symbol,
		class:      class,
		primaryID:  primaryID,
		fallbackID: fallbackID,
		staleness:  staleness,
		health:     health,
		status:     model.StatusStartup,
		lastSeen:   make(map[string]time.Time),
		failures:   make(map[string]int),
	}
}

// Apply feeds one accepted, scored tick into the machine. It returns the
// routed tick when the tick came from the authoritative source, and a
// Transition when the status changed. Non-authoritative ticks are observed
// (for recovery detection) but not routed.
func (m *Machine) Apply(st model.ScoredTick) (model.RoutedTick, bool, *Transition) {
	now := st.Timestamp
	if m.firstSeen.IsZero() {
		m.firstSeen = now
	}
	m.lastSeen[st.SourceID] = now

	var tr *Transition
	switch st.SourceID {
	case m.primaryID:
		m.failures[m.primaryID] = 0
		if m.status != model.StatusPrimaryActive {
			// First accepted tick in STARTUP, or immediate failback: no
			// debounce, stale fallback data must not linger.
			tr = m.switchTo(model.StatusPrimaryActive, m.primaryID, now)
		}
	case m.fallbackID:
		if m.status != model.StatusFallbackActive {
			if !m.primaryUnavailable(now) {
				return model.RoutedTick{}, false, nil
			}
			m.failures[m.primaryID]++
			tr = m.switchTo(model.StatusFallbackActive, m.fallbackID, now)
		}
	default:
		// Tick from a source not wired for this symbol.
		return model.RoutedTick{}, false, nil
	}

	m.lastTick = now
	rt := model.RoutedTick{
		MarketTick:    st.MarketTick,
		QualityScore:  st.QualityScore,
		IsRealtime:    m.status == model.StatusPrimaryActive,
		RoutingStatus: m.status,
	}
	return rt, true, tr
}

// primaryUnavailable reports whether the primary source is disconnected or has
// been silent past the staleness window as of the given instant. A primary
// that never produced an accepted tick is measured from the machine's first
// observed tick, so a connected-but-silent primary cannot hold a symbol in
// STARTUP forever.
func (m *Machine) primaryUnavailable(now time.Time) bool {
	if m.fallbackID == "" {
		return false
	}
	if !m.health.Connected(m.primaryID) {
		return true
	}
	last, ok := m.lastSeen[m.primaryID]
	if !ok {
		last = m.firstSeen
	}
	return now.Sub(last) > m.staleness
}

func (m *Machine) switchTo(status model.RoutingStatus, sourceID string, now time.Time) *Transition {
	tr := &Transition{
		Symbol:         m.symbol,
		From:           m.status,
		To:             status,
		ActiveSourceID: sourceID,
		At:             now,
	}
	m.status = status
	m.activeID = sourceID
	m.lastSwitch = now
	return tr
}

// Snapshot returns a copy of the current state. Only the owning worker may
// call it; the copy is then safe to hand to any reader.
func (m *Machine) Snapshot() StateSnapshot {
	failures := make(map[string]int, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}
	return StateSnapshot{
		Symbol:              m.symbol,
		AssetClass:          m.class,
		ActiveSourceID:      m.activeID,
		Status:              m.status,
		LastTickTime:        m.lastTick,
		LastSwitchTime:      m.lastSwitch,
		ConsecutiveFailures: failures,
	}
}
