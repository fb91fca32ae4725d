package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind distinguishes the two adapter variants.
type SourceKind string

const (
	SourcePush SourceKind = "push" // persistent streaming connection, primary
	SourcePoll SourceKind = "poll" // interval-based fetch, fallback
)

// MarketTick is one normalized price observation from one source.
// It is immutable after the adapter creates it.
type MarketTick struct {
	Symbol        string
	AssetClass    AssetClass
	Price         decimal.Decimal
	PreviousClose *decimal.Decimal
	Open          *decimal.Decimal
	High          *decimal.Decimal
	Low           *decimal.Decimal
	Volume        decimal.Decimal
	Timestamp     time.Time // UTC
	SourceID      string
}

// ScoredTick is a MarketTick after validation and quality scoring.
type ScoredTick struct {
	MarketTick
	SourceKind   SourceKind
	QualityScore int
	Accepted     bool
	Reason       string // rejection reason, empty when accepted
	DeltaWarning bool   // cross-source delta between 5% and 20%
}

// RoutedTick is the routing engine output handed to the dispatcher.
// Delivery is fire-and-forget; the tick is not retained after dispatch.
type RoutedTick struct {
	MarketTick
	QualityScore  int
	IsRealtime    bool
	RoutingStatus RoutingStatus
}

// RoutingStatus is the per-symbol routing state machine status.
type RoutingStatus string

const (
	StatusStartup        RoutingStatus = "STARTUP"
	StatusPrimaryActive  RoutingStatus = "PRIMARY_ACTIVE"
	StatusFallbackActive RoutingStatus = "FALLBACK_ACTIVE"
)
