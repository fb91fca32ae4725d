// Package adapter normalizes provider-specific messages into canonical market
// ticks. No validation logic lives here: adapters parse, reconnect, and emit.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tickrouter/internal/feed/model"
)

// SourceAdapter is the capability set both adapter variants implement.
type SourceAdapter interface {
	SourceID() string
	Kind() model.SourceKind
	// Start connects to the provider and begins emitting ticks for the given
	// symbols. A failure here is fatal: the process must not silently run
	// with zero data flow.
	Start(ctx context.Context, symbols []string) error
	// Ticks is the adapter's emission channel. It is never closed; consumers
	// exit via context.
	Ticks() <-chan model.MarketTick
	// Stop releases the adapter's resources.
	Stop()
}

// HealthReporter receives adapter connectivity transitions. Adapters report
// health through it instead of mutating routing state directly.
type HealthReporter interface {
	SetConnected(up bool)
}

// ClassResolver maps a symbol to its asset class. Unknown symbols are skipped
// by the adapters.
type ClassResolver func(symbol string) (model.AssetClass, bool)

// wireTick is the provider-independent shape both parsers reduce to.
type wireTick struct {
	symbol    string
	price     string
	volume    string
	open      string
	high      string
	low       string
	prevClose string
	timestamp int64 // ms since epoch
}

func (w wireTick) toMarketTick(sourceID string, class model.AssetClass) (model.MarketTick, error) {
	price, err := decimal.NewFromString(w.price)
	if err != nil {
		return model.MarketTick{}, fmt.Errorf("parse price %q: %w", w.price, err)
	}
	volume, err := decimal.NewFromString(w.volume)
	if err != nil {
		return model.MarketTick{}, fmt.Errorf("parse volume %q: %w", w.volume, err)
	}

	tick := model.MarketTick{
		Symbol:     w.symbol,
		AssetClass: class,
		Price:      price,
		Volume:     volume,
		Timestamp:  time.UnixMilli(w.timestamp).UTC(),
		SourceID:   sourceID,
	}
	if tick.Open, err = optionalDecimal(w.open); err != nil {
		return model.MarketTick{}, fmt.Errorf("parse open %q: %w", w.open, err)
	}
	if tick.High, err = optionalDecimal(w.high); err != nil {
		return model.MarketTick{}, fmt.Errorf("parse high %q: %w", w.high, err)
	}
	if tick.Low, err = optionalDecimal(w.low); err != nil {
		return model.MarketTick{}, fmt.Errorf("parse low %q: %w", w.low, err)
	}
	if tick.PreviousClose, err = optionalDecimal(w.prevClose); err != nil {
		return model.MarketTick{}, fmt.Errorf("parse prevClose %q: %w", w.prevClose, err)
	}
	return tick, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
