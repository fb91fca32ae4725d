// Package pipeline wires the ingestion path: adapters produce ticks, the
// validator filters them, the scorer labels them, the routing engine decides
// the authoritative source per symbol, and the dispatcher fans the result out.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tickrouter/config"
	"tickrouter/internal/adapter"
	"tickrouter/internal/feed/dispatch"
	"tickrouter/internal/feed/model"
	"tickrouter/internal/feed/quality"
	"tickrouter/internal/feed/routing"
	"tickrouter/internal/feed/store"
	"tickrouter/internal/feed/validate"
	"tickrouter/internal/metrics"
	"tickrouter/pkg/storage"
)

// AlertPublisher receives routing transitions for external alerting.
type AlertPublisher interface {
	PublishTransition(ctx context.Context, tr routing.Transition)
}

// Options tunes the pipeline's timing-sensitive contracts.
type Options struct {
	Rules            validate.Rules
	Staleness        map[model.AssetClass]time.Duration
	SnapshotInterval time.Duration
}

// Pipeline owns the full tick path from adapters to dispatcher.
type Pipeline struct {
	primary  adapter.SourceAdapter
	fallback adapter.SourceAdapter // nil when no poll source is configured

	opts       Options
	health     *routing.HealthRegistry
	engine     *routing.Engine
	dispatcher *dispatch.Dispatcher
	latest     *store.LatestStore
	sink       storage.Sink   // nil disables persistence
	alerts     AlertPublisher // nil disables alerting
	logger     *zap.Logger

	classes map[string]model.AssetClass
}

// BuildSymbolTable validates the configured symbols. An empty or invalid
// symbol list is a fatal configuration error: the process must not run with
// zero data flow.
func BuildSymbolTable(symbols []config.SymbolConfig) (map[string]model.AssetClass, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}
	table := make(map[string]model.AssetClass, len(symbols))
	for _, s := range symbols {
		class, err := model.ParseAssetClass(s.AssetClass)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", s.Symbol, err)
		}
		if s.Symbol == "" {
			return nil, fmt.Errorf("empty symbol name")
		}
		table[s.Symbol] = class
	}
	return table, nil
}

func New(primary, fallback adapter.SourceAdapter, dispatcher *dispatch.Dispatcher,
	health *routing.HealthRegistry, sink storage.Sink, alerts AlertPublisher,
	classes map[string]model.AssetClass, opts Options, logger *zap.Logger) *Pipeline {
	if opts.SnapshotInterval <= 0 {
		opts.SnapshotInterval = 5 * time.Minute
	}

	p := &Pipeline{
		primary:    primary,
		fallback:   fallback,
		opts:       opts,
		health:     health,
		dispatcher: dispatcher,
		latest:     store.NewLatestStore(),
		sink:       sink,
		alerts:     alerts,
		logger:     logger,
		classes:    classes,
	}

	fallbackID := ""
	if fallback != nil {
		fallbackID = fallback.SourceID()
	}
	p.engine = routing.NewEngine(routing.Options{
		PrimarySourceID:  primary.SourceID(),
		FallbackSourceID: fallbackID,
		Staleness:        opts.Staleness,
	}, health, p.onRouted, logger)

	return p
}

// Engine exposes routing snapshots for the monitoring endpoint.
func (p *Pipeline) Engine() *routing.Engine {
	return p.engine
}

// Latest exposes the latest routed tick per symbol.
func (p *Pipeline) Latest() *store.LatestStore {
	return p.latest
}

// Run starts the pipeline and blocks until the context is canceled. Startup
// failures (no symbols, primary cannot connect) are returned immediately.
func (p *Pipeline) Run(ctx context.Context) error {
	if len(p.classes) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	all := make([]string, 0, len(p.classes))
	withFallback := make([]string, 0, len(p.classes))
	for symbol, class := range p.classes {
		all = append(all, symbol)
		if class.Meta().HasFallback {
			withFallback = append(withFallback, symbol)
		}
	}

	if err := p.primary.Start(ctx, all); err != nil {
		return fmt.Errorf("start primary source: %w", err)
	}
	if p.fallback != nil && len(withFallback) > 0 {
		if err := p.fallback.Start(ctx, withFallback); err != nil {
			p.primary.Stop()
			return fmt.Errorf("start fallback source: %w", err)
		}
	}

	go p.alertLoop(ctx)
	go p.snapshotLoop(ctx)
	p.intake(ctx)

	// Shutdown: adapters first, then drain the engine and dispatcher.
	p.primary.Stop()
	if p.fallback != nil {
		p.fallback.Stop()
	}
	p.engine.Stop()
	p.dispatcher.Close()
	return nil
}

// intake merges both adapters' emissions into the validate/score stage. One
// goroutine keeps the prior-tick bookkeeping race-free and per-source order
// intact.
func (p *Pipeline) intake(ctx context.Context) {
	var fallbackTicks <-chan model.MarketTick
	if p.fallback != nil {
		fallbackTicks = p.fallback.Ticks()
	}

	lastAccepted := make(map[string]model.MarketTick)
	for {
		select {
		case tick := <-p.primary.Ticks():
			p.process(tick, p.primary.Kind(), lastAccepted)
		case tick := <-fallbackTicks:
			p.process(tick, p.fallback.Kind(), lastAccepted)
		case <-ctx.Done():
			return
		}
	}
}

// process validates and scores one tick. Rejected ticks are logged and
// dropped here; they never reach the routing engine.
func (p *Pipeline) process(tick model.MarketTick, kind model.SourceKind,
	lastAccepted map[string]model.MarketTick) {
	metrics.TicksReceived.WithLabelValues(tick.SourceID).Inc()

	var prior *model.MarketTick
	if last, ok := lastAccepted[tick.Symbol]; ok {
		prior = &last
	}

	res := p.opts.Rules.Validate(tick, prior)
	if !res.Accepted {
		metrics.TicksRejected.WithLabelValues(res.Reason).Inc()
		p.logger.Warn("tick rejected",
			zap.String("symbol", tick.Symbol),
			zap.String("source", tick.SourceID),
			zap.String("reason", res.Reason),
			zap.String("price", tick.Price.String()),
		)
		return
	}

	lastAccepted[tick.Symbol] = tick
	p.engine.Submit(model.ScoredTick{
		MarketTick:   tick,
		SourceKind:   kind,
		QualityScore: quality.Score(true, kind, res.DeltaWarning),
		Accepted:     true,
		DeltaWarning: res.DeltaWarning,
	})
}

// onRouted is called synchronously by the symbol worker for every
// authoritative tick.
func (p *Pipeline) onRouted(tick model.RoutedTick) {
	metrics.TicksRouted.WithLabelValues(string(tick.RoutingStatus)).Inc()
	p.latest.Set(tick)
	p.dispatcher.Publish(tick)
}

// alertLoop forwards routing transitions to the alert publisher.
func (p *Pipeline) alertLoop(ctx context.Context) {
	for {
		select {
		case tr := <-p.engine.Events():
			switch {
			case tr.To == model.StatusFallbackActive:
				metrics.Failovers.Inc()
			case tr.To == model.StatusPrimaryActive && tr.From == model.StatusFallbackActive:
				metrics.Failbacks.Inc()
			}
			if p.alerts != nil {
				p.alerts.PublishTransition(ctx, tr)
			}
		case <-ctx.Done():
			return
		}
	}
}

// snapshotLoop periodically saves the latest routed tick per symbol to the
// persistence sink. Save failures are logged and dropped; they never block
// routing.
func (p *Pipeline) snapshotLoop(ctx context.Context) {
	if p.sink == nil {
		return
	}

	ticker := time.NewTicker(p.opts.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			saved := 0
			for _, tick := range p.latest.All() {
				saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := p.sink.SaveTick(saveCtx, tick)
				cancel()
				if err != nil {
					metrics.SnapshotSaveFailures.Inc()
					p.logger.Warn("snapshot save failed",
						zap.String("symbol", tick.Symbol), zap.Error(err))
					continue
				}
				saved++
			}
			p.logger.Info("tick snapshots saved",
				zap.Int("saved", saved), zap.Int("symbols", p.latest.Count()))
		case <-ctx.Done():
			return
		}
	}
}
