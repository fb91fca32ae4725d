package routing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickrouter/internal/feed/model"
)

const (
	primaryID  = "primary-stream"
	fallbackID = "fallback-poll"
)

// stubHealth is a fixed connectivity view for machine tests.
type stubHealth map[string]bool

func (s stubHealth) Connected(sourceID string) bool { return s[sourceID] }

func scored(symbol, source string, kind model.SourceKind, price float64, score int, ts time.Time) model.ScoredTick {
	return model.ScoredTick{
		MarketTick: model.MarketTick{
			Symbol:     symbol,
			AssetClass: model.AssetEquity,
			Price:      decimal.NewFromFloat(price),
			Volume:     decimal.NewFromInt(10),
			Timestamp:  ts,
			SourceID:   source,
		},
		SourceKind:   kind,
		QualityScore: score,
		Accepted:     true,
	}
}

func primaryTick(price float64, ts time.Time) model.ScoredTick {
	return scored("AAPL", primaryID, model.SourcePush, price, 100, ts)
}

func fallbackTick(price float64, ts time.Time) model.ScoredTick {
	return scored("AAPL", fallbackID, model.SourcePoll, price, 80, ts)
}

func newTestMachine(health HealthView) *Machine {
	return NewMachine("AAPL", model.AssetEquity, primaryID, fallbackID, 10*time.Second, health)
}

func TestMachine_StartupToPrimary(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	rt, routed, tr := m.Apply(primaryTick(150.0, t0))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusStartup, tr.From)
	assert.Equal(t, model.StatusPrimaryActive, tr.To)
	assert.True(t, rt.IsRealtime)
	assert.Equal(t, model.StatusPrimaryActive, rt.RoutingStatus)
	assert.Equal(t, 100, rt.QualityScore)
}

func TestMachine_FreshPrimarySuppressesFallback(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	m.Apply(primaryTick(150.00, t0))
	_, routed, tr := m.Apply(fallbackTick(150.05, t0.Add(time.Second)))
	assert.False(t, routed)
	assert.Nil(t, tr)
	assert.Equal(t, model.StatusPrimaryActive, m.Snapshot().Status)
}

func TestMachine_FailoverOnStaleness(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	m.Apply(primaryTick(150.00, t0))

	// Primary silent past the 10s window: the next fallback tick wins.
	rt, routed, tr := m.Apply(fallbackTick(151.00, t0.Add(12*time.Second)))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusFallbackActive, tr.To)
	assert.False(t, rt.IsRealtime)
	assert.Equal(t, 80, rt.QualityScore)

	snap := m.Snapshot()
	assert.Equal(t, model.StatusFallbackActive, snap.Status)
	assert.Equal(t, fallbackID, snap.ActiveSourceID)
	assert.Equal(t, 1, snap.ConsecutiveFailures[primaryID])
}

func TestMachine_FailoverOnDisconnect(t *testing.T) {
	health := stubHealth{primaryID: true}
	m := newTestMachine(health)
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	m.Apply(primaryTick(150.00, t0))

	// Disconnect reported: fallback takes over even inside the staleness window.
	health[primaryID] = false
	_, routed, tr := m.Apply(fallbackTick(150.10, t0.Add(2*time.Second)))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusFallbackActive, tr.To)
}

func TestMachine_ImmediateFailback(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	m.Apply(primaryTick(150.00, t0))
	m.Apply(fallbackTick(151.00, t0.Add(12*time.Second)))
	require.Equal(t, model.StatusFallbackActive, m.Snapshot().Status)

	// First accepted primary tick switches back with no debounce.
	rt, routed, tr := m.Apply(primaryTick(151.10, t0.Add(15*time.Second)))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusFallbackActive, tr.From)
	assert.Equal(t, model.StatusPrimaryActive, tr.To)
	assert.True(t, rt.IsRealtime)
	assert.Equal(t, 0, m.Snapshot().ConsecutiveFailures[primaryID])
}

func TestMachine_StartupWithDeadPrimary(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: false})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	// Primary never connected: the first fallback tick must not leave the
	// symbol dark.
	rt, routed, tr := m.Apply(fallbackTick(150.00, t0))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusStartup, tr.From)
	assert.Equal(t, model.StatusFallbackActive, tr.To)
	assert.False(t, rt.IsRealtime)
}

func TestMachine_SilentConnectedPrimaryDoesNotBlockStartup(t *testing.T) {
	// Primary reports connected but never delivers an accepted tick for this
	// symbol. Silence is measured from the first observed tick, so the
	// fallback takes over once the staleness window elapses.
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	// Inside the window the fallback is still suppressed.
	_, routed, tr := m.Apply(fallbackTick(150.00, t0))
	assert.False(t, routed)
	assert.Nil(t, tr)
	assert.Equal(t, model.StatusStartup, m.Snapshot().Status)

	// Past the window the symbol must not stay dark.
	rt, routed, tr := m.Apply(fallbackTick(150.20, t0.Add(60*time.Second)))
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusStartup, tr.From)
	assert.Equal(t, model.StatusFallbackActive, tr.To)
	assert.False(t, rt.IsRealtime)
	assert.Equal(t, fallbackID, m.Snapshot().ActiveSourceID)
}

func TestMachine_CryptoNeverFailsOver(t *testing.T) {
	// Single-source machine: no fallback wired.
	m := NewMachine("BTC", model.AssetCrypto, primaryID, "", 10*time.Second, stubHealth{})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	tick := scored("BTC", primaryID, model.SourcePush, 64000.0, 100, t0)
	tick.AssetClass = model.AssetCrypto
	_, routed, tr := m.Apply(tick)
	require.True(t, routed)
	require.NotNil(t, tr)
	assert.Equal(t, model.StatusPrimaryActive, tr.To)

	// A long silence later the status is unchanged: no transition possible.
	late := scored("BTC", primaryID, model.SourcePush, 64100.0, 100, t0.Add(time.Hour))
	late.AssetClass = model.AssetCrypto
	_, routed, tr = m.Apply(late)
	assert.True(t, routed)
	assert.Nil(t, tr)
	assert.Equal(t, model.StatusPrimaryActive, m.Snapshot().Status)
}

func TestMachine_UnknownSourceIgnored(t *testing.T) {
	m := newTestMachine(stubHealth{primaryID: true})
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	_, routed, tr := m.Apply(scored("AAPL", "rogue-source", model.SourcePush, 150.0, 100, t0))
	assert.False(t, routed)
	assert.Nil(t, tr)
	assert.Equal(t, model.StatusStartup, m.Snapshot().Status)
}

// Replaying the same tick sequence must yield the same states and the same
// routed ticks.
func TestMachine_DeterministicReplay(t *testing.T) {
	t0 := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	sequence := []model.ScoredTick{
		primaryTick(150.00, t0),
		fallbackTick(150.05, t0.Add(1*time.Second)),
		fallbackTick(151.00, t0.Add(12*time.Second)),
		fallbackTick(151.20, t0.Add(13*time.Second)),
		primaryTick(151.10, t0.Add(15*time.Second)),
	}

	run := func() ([]model.RoutedTick, StateSnapshot) {
		m := newTestMachine(stubHealth{primaryID: true})
		var routedTicks []model.RoutedTick
		for _, st := range sequence {
			if rt, routed, _ := m.Apply(st); routed {
				routedTicks = append(routedTicks, rt)
			}
		}
		return routedTicks, m.Snapshot()
	}

	first, firstSnap := run()
	second, secondSnap := run()
	assert.Equal(t, first, second)
	assert.Equal(t, firstSnap, secondSnap)

	// The sequence routes primary t0, fallback t12, fallback t13, primary t15.
	require.Len(t, first, 4)
	assert.Equal(t, model.StatusPrimaryActive, first[0].RoutingStatus)
	assert.Equal(t, model.StatusFallbackActive, first[1].RoutingStatus)
	assert.Equal(t, model.StatusFallbackActive, first[2].RoutingStatus)
	assert.Equal(t, model.StatusPrimaryActive, first[3].RoutingStatus)
}
