package adapter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
	"tickrouter/pkg/quote"
)

// PollAdapter fetches quotes for all tracked symbols on a fixed interval.
// A cycle that errors or times out is logged and skipped; it never stops the
// schedule.
type PollAdapter struct {
	id       string
	client   *quote.Client
	interval time.Duration
	timeout  time.Duration
	health   HealthReporter
	classOf  ClassResolver
	ticks    chan model.MarketTick
	logger   *zap.Logger
	cancel   context.CancelFunc
}

func NewPollAdapter(id string, client *quote.Client, interval, timeout time.Duration,
	health HealthReporter, classOf ClassResolver, logger *zap.Logger) *PollAdapter {
	return &PollAdapter{
		id:       id,
		client:   client,
		interval: interval,
		timeout:  timeout,
		health:   health,
		classOf:  classOf,
		ticks:    make(chan model.MarketTick, 256),
		logger:   logger,
	}
}

func (a *PollAdapter) SourceID() string       { return a.id }
func (a *PollAdapter) Kind() model.SourceKind { return model.SourcePoll }

func (a *PollAdapter) Ticks() <-chan model.MarketTick { return a.ticks }

// Start launches the polling schedule: one immediate cycle, then one per
// interval. The poll source is considered connected as long as the schedule
// runs; bad cycles are transient, not outages.
func (a *PollAdapter) Start(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("poll adapter %s: no symbols configured", a.id)
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.health.SetConnected(true)

	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		a.runCycle(ctx, symbols)
		for {
			select {
			case <-ticker.C:
				a.runCycle(ctx, symbols)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// runCycle issues one batched fetch and emits a tick per returned quote.
func (a *PollAdapter) runCycle(ctx context.Context, symbols []string) {
	cycleCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	quotes, err := a.client.GetQuotes(cycleCtx, symbols)
	if err != nil {
		a.logger.Warn("poll cycle failed, skipping",
			zap.String("source", a.id), zap.Error(err))
		return
	}

	for _, q := range quotes {
		class, ok := a.classOf(q.Symbol)
		if !ok {
			continue // not a tracked symbol
		}
		wt := wireTick{
			symbol:    q.Symbol,
			price:     q.Price,
			volume:    q.Volume,
			open:      q.Open,
			high:      q.High,
			low:       q.Low,
			prevClose: q.PrevClose,
			timestamp: q.Timestamp,
		}
		tick, err := wt.toMarketTick(a.id, class)
		if err != nil {
			a.logger.Warn("failed to parse quote",
				zap.String("symbol", q.Symbol), zap.Error(err))
			continue
		}

		select {
		case a.ticks <- tick:
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the schedule.
func (a *PollAdapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.health.SetConnected(false)
}
