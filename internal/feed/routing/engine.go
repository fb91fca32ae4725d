package routing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
)

// Options configures the routing engine.
type Options struct {
	PrimarySourceID  string
	FallbackSourceID string
	// Staleness overrides the primary-silence window per asset class. Classes
	// not present fall back to the asset class default.
	Staleness map[model.AssetClass]time.Duration
	// WorkerBuffer is the per-symbol inbound channel size.
	WorkerBuffer int
	// EventBuffer sizes the transition event channel; full buffers drop.
	EventBuffer int
}

// Engine shards routing by symbol: one worker goroutine per symbol owns that
// symbol's Machine exclusively, so no cross-symbol locking is needed. The
// global map is guarded only for worker creation and snapshot reads.
type Engine struct {
	opts   Options
	health *HealthRegistry
	emit   func(model.RoutedTick)
	logger *zap.Logger

	globalMu sync.RWMutex
	workers  map[string]*symbolWorker

	events chan Transition

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type symbolWorker struct {
	in      chan model.ScoredTick
	machine *Machine
	snap    atomic.Pointer[StateSnapshot]
}

func NewEngine(opts Options, health *HealthRegistry, emit func(model.RoutedTick), logger *zap.Logger) *Engine {
	if opts.WorkerBuffer <= 0 {
		opts.WorkerBuffer = 64
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 128
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:    opts,
		health:  health,
		emit:    emit,
		logger:  logger,
		workers: make(map[string]*symbolWorker),
		events:  make(chan Transition, opts.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit hands an accepted, scored tick to the symbol's worker, creating the
// worker on the first tick for that symbol. The per-symbol channel preserves
// arrival order; cross-symbol ordering is not guaranteed.
func (e *Engine) Submit(st model.ScoredTick) {
	// Fast path: worker already exists.
	e.globalMu.RLock()
	w, ok := e.workers[st.Symbol]
	e.globalMu.RUnlock()

	if !ok {
		e.globalMu.Lock()
		if w, ok = e.workers[st.Symbol]; !ok {
			w = e.spawnWorker(st.Symbol, st.AssetClass)
			e.workers[st.Symbol] = w
		}
		e.globalMu.Unlock()
	}

	select {
	case w.in <- st:
	case <-e.ctx.Done():
	}
}

func (e *Engine) spawnWorker(symbol string, class model.AssetClass) *symbolWorker {
	staleness, ok := e.opts.Staleness[class]
	if !ok {
		staleness = class.Meta().Staleness
	}

	fallbackID := e.opts.FallbackSourceID
	if !class.Meta().HasFallback {
		// Single-source symbols never fail over; the machine stays in
		// PRIMARY_ACTIVE once the first tick lands.
		fallbackID = ""
	}

	w := &symbolWorker{
		in:      make(chan model.ScoredTick, e.opts.WorkerBuffer),
		machine: NewMachine(symbol, class, e.opts.PrimarySourceID, fallbackID, staleness, e.health),
	}
	snap := w.machine.Snapshot()
	w.snap.Store(&snap)

	e.wg.Add(1)
	go e.runWorker(w)
	return w
}

func (e *Engine) runWorker(w *symbolWorker) {
	defer e.wg.Done()
	for {
		select {
		case st := <-w.in:
			rt, routed, tr := w.machine.Apply(st)
			snap := w.machine.Snapshot()
			w.snap.Store(&snap)

			if tr != nil {
				e.onTransition(*tr)
			}
			if routed {
				// Synchronous emission preserves per-symbol ordering.
				e.emit(rt)
			}
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) onTransition(tr Transition) {
	level := e.logger.Info
	if tr.To == model.StatusFallbackActive {
		// Source outage: elevated severity, recovered automatically on failback.
		level = e.logger.Warn
	}
	level("routing status changed",
		zap.String("symbol", tr.Symbol),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("active_source", tr.ActiveSourceID),
		zap.Time("at", tr.At),
	)

	select {
	case e.events <- tr:
	default:
		// Event consumers are best-effort; never block routing.
	}
}

// Events exposes routing transitions for alerting. Best-effort delivery.
func (e *Engine) Events() <-chan Transition {
	return e.events
}

// Snapshots returns a read-only copy of every symbol's routing state.
func (e *Engine) Snapshots() []StateSnapshot {
	e.globalMu.RLock()
	defer e.globalMu.RUnlock()

	out := make([]StateSnapshot, 0, len(e.workers))
	for _, w := range e.workers {
		out = append(out, *w.snap.Load())
	}
	return out
}

// Snapshot returns the routing state for one symbol, if it exists yet.
func (e *Engine) Snapshot(symbol string) (StateSnapshot, bool) {
	e.globalMu.RLock()
	w, ok := e.workers[symbol]
	e.globalMu.RUnlock()
	if !ok {
		return StateSnapshot{}, false
	}
	return *w.snap.Load(), true
}

// Stop cancels all workers and waits for them to exit. RoutingState is
// read-only once Stop begins.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
}
