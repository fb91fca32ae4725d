package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tickrouter/internal/feed/model"
)

// go test -v --run TestSaveAndRetrieveTick
func TestSaveAndRetrieveTick(t *testing.T) {
	sink := NewMemorySink()

	err := sink.SaveTick(context.Background(), model.RoutedTick{
		MarketTick: model.MarketTick{
			Symbol:     "AAPL",
			AssetClass: model.AssetEquity,
			Price:      decimal.NewFromFloat(150.25),
			Volume:     decimal.NewFromInt(1200),
			Timestamp:  time.Now().UTC(),
			SourceID:   "primary-stream",
		},
		QualityScore:  100,
		IsRealtime:    true,
		RoutingStatus: model.StatusPrimaryActive,
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	ticks := sink.GetTicks()
	t.Log("Stored ticks: ", ticks)

	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	if ticks[0].Symbol != "AAPL" {
		t.Errorf("unexpected symbol: %s", ticks[0].Symbol)
	}
}
