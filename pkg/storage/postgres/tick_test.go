package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tickrouter/config"
	"tickrouter/pkg/storage/postgres"
)

// go test -v --run TestTickCRUD
func TestTickCRUD(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   "tickrouter",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	client, err := postgres.NewClient(cfg.DSN("dev"))
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	if err := client.AutoMigrateTickRecord(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	// Create
	now := time.Now().UTC().Truncate(time.Second)
	record := &postgres.TickRecord{
		Symbol:        "AAPL",
		SourceID:      "primary-stream",
		Timestamp:     now,
		AssetClass:    "EQUITY",
		Price:         decimal.NewFromFloat(150.25),
		Volume:        decimal.NewFromInt(1200),
		QualityScore:  100,
		IsRealtime:    true,
		RoutingStatus: "PRIMARY_ACTIVE",
	}

	if err := client.InsertTick(ctx, record); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Duplicate (symbol, source, timestamp) must be a silent no-op
	dup := *record
	dup.ID = 0
	if err := client.InsertTick(ctx, &dup); err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}

	// Read latest
	got, err := client.GetLatestTick(ctx, "AAPL")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if got.Symbol != "AAPL" || !got.Price.Equal(decimal.NewFromFloat(150.25)) {
		t.Errorf("unexpected tick values: %+v", got)
	}

	// Range query
	records, err := client.GetTicks(ctx, "AAPL", now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("range query failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record after duplicate insert, got %d", len(records))
	}

	// Delete
	if err := client.DeleteOldTicks(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Errorf("delete failed: %v", err)
	}

	// Check deletion
	_, err = client.GetLatestTick(ctx, "AAPL")
	if err == nil {
		t.Error("expected error after delete, got nil")
	}
}
