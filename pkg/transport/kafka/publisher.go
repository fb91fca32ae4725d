// Package kafka is the external delivery transport: routed ticks go out on
// one topic keyed by symbol, routing transitions on an alert topic. The core
// treats both as fire-and-forget.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
	"tickrouter/internal/feed/routing"
)

// Publisher wraps the Kafka writers for ticks and alerts.
type Publisher struct {
	ticks  *kafka.Writer
	alerts *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Publisher. Tick messages are keyed by symbol so one
// symbol always lands on one partition, preserving per-symbol order.
func NewPublisher(brokers []string, tickTopic, alertTopic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		ticks: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    tickTopic,
			Balancer: &kafka.Hash{},
		},
		alerts: &kafka.Writer{
			Addr:  kafka.TCP(brokers...),
			Topic: alertTopic,
		},
		logger: logger,
	}
}

// tickPayload is the wire shape of a routed tick.
type tickPayload struct {
	Symbol        string    `json:"symbol"`
	AssetClass    string    `json:"assetClass"`
	Price         string    `json:"price"`
	Volume        string    `json:"volume"`
	QualityScore  int       `json:"qualityScore"`
	IsRealtime    bool      `json:"isRealtime"`
	RoutingStatus string    `json:"routingStatus"`
	SourceID      string    `json:"sourceId"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publish sends one routed tick. Implements the dispatcher's Transport.
func (p *Publisher) Publish(ctx context.Context, groupKey string, tick model.RoutedTick) error {
	payload := tickPayload{
		Symbol:        tick.Symbol,
		AssetClass:    string(tick.AssetClass),
		Price:         tick.Price.String(),
		Volume:        tick.Volume.String(),
		QualityScore:  tick.QualityScore,
		IsRealtime:    tick.IsRealtime,
		RoutingStatus: string(tick.RoutingStatus),
		SourceID:      tick.SourceID,
		Timestamp:     tick.Timestamp,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.ticks.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tick.Symbol),
		Value: b,
		Headers: []kafka.Header{
			{Key: "group", Value: []byte(groupKey)},
		},
	})
}

// PublishTransition sends a routing transition to the alert topic.
func (p *Publisher) PublishTransition(ctx context.Context, tr routing.Transition) {
	b, err := json.Marshal(tr)
	if err != nil {
		p.logger.Warn("marshal routing alert failed", zap.Error(err))
		return
	}
	if err := p.alerts.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tr.Symbol),
		Value: b,
	}); err != nil {
		p.logger.Warn("kafka alert publish failed",
			zap.String("symbol", tr.Symbol), zap.Error(err))
	}
}

// Close shuts down both writers.
func (p *Publisher) Close() error {
	if err := p.ticks.Close(); err != nil {
		return err
	}
	return p.alerts.Close()
}
