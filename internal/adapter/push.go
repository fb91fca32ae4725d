package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
	"tickrouter/pkg/stream"
)

// PushAdapter wraps the streaming client of the real-time provider. One
// inbound message becomes one MarketTick per payload entry.
type PushAdapter struct {
	id      string
	client  *stream.Client
	health  HealthReporter
	classOf ClassResolver
	ticks   chan model.MarketTick
	logger  *zap.Logger
	cancel  context.CancelFunc
}

func NewPushAdapter(id string, client *stream.Client, health HealthReporter,
	classOf ClassResolver, logger *zap.Logger) *PushAdapter {
	return &PushAdapter{
		id:      id,
		client:  client,
		health:  health,
		classOf: classOf,
		ticks:   make(chan model.MarketTick, 256),
		logger:  logger,
	}
}

func (a *PushAdapter) SourceID() string       { return a.id }
func (a *PushAdapter) Kind() model.SourceKind { return model.SourcePush }

func (a *PushAdapter) Ticks() <-chan model.MarketTick { return a.ticks }

// Start connects, subscribes to one topic per symbol, and launches the
// listener. Connectivity transitions flow to the health reporter, not into
// routing state.
func (a *PushAdapter) Start(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("push adapter %s: no symbols configured", a.id)
	}

	ctx, a.cancel = context.WithCancel(ctx)

	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		topics = append(topics, stream.TickTopic(symbol))
	}

	a.client.SetStateHandler(a.health.SetConnected)
	a.client.SetMessageHandler(a.makeMessageHandler(ctx))

	if err := a.client.Connect(topics); err != nil {
		return fmt.Errorf("push adapter %s: %w", a.id, err)
	}
	go a.client.Listen(ctx)
	return nil
}

// makeMessageHandler returns the function that parses inbound frames and
// emits canonical ticks.
func (a *PushAdapter) makeMessageHandler(ctx context.Context) func(msg []byte) {
	return func(msg []byte) {
		// Extract the topic string for early filtering.
		var meta struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			a.logger.Warn("failed to extract topic", zap.Error(err))
			return
		}
		if !stream.IsTickTopic(meta.Topic) {
			return // ignore subscription and auth responses
		}

		var parsed stream.Envelope
		if err := json.Unmarshal(msg, &parsed); err != nil {
			a.logger.Warn("failed to parse tick payload", zap.Error(err))
			return
		}
		symbol := stream.SymbolFromTopic(parsed.Topic)
		class, ok := a.classOf(symbol)
		if !ok {
			return // not a tracked symbol
		}

		for _, d := range parsed.Data {
			wt := wireTick{
				symbol:    symbol,
				price:     d.Price,
				volume:    d.Volume,
				open:      d.Open,
				high:      d.High,
				low:       d.Low,
				prevClose: d.PrevClose,
				timestamp: d.Timestamp,
			}
			tick, err := wt.toMarketTick(a.id, class)
			if err != nil {
				a.logger.Warn("failed to parse stream tick",
					zap.String("symbol", symbol), zap.Error(err))
				continue
			}

			select {
			case a.ticks <- tick:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop cancels the listener and closes the connection.
func (a *PushAdapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.client.Close()
	a.health.SetConnected(false)
}
