package validate

import (
	"time"

	"github.com/shopspring/decimal"

	"tickrouter/internal/feed/model"
)

// Rejection reasons, stable strings used in logs and metrics labels.
const (
	ReasonNonPositivePrice = "non_positive_price"
	ReasonNegativeVolume   = "negative_volume"
	ReasonFutureTimestamp  = "future_timestamp"
	ReasonOHLCInconsistent = "ohlc_inconsistent"
	ReasonCircuitBreaker   = "circuit_breaker_exceeded"
)

// Rules holds the validation thresholds. All fields must be set; use
// DefaultRules for the standard configuration.
type Rules struct {
	MaxFutureSkew     time.Duration   // how far in the future a timestamp may be
	CompareWindow     time.Duration   // max age of the prior tick for cross-source comparison
	CircuitBreakerPct decimal.Decimal // relative delta above which the tick is rejected
	WarnPct           decimal.Decimal // relative delta above which the tick is flagged
}

// DefaultRules returns the standard thresholds: 5 minute future skew,
// 60 second comparison window, 20% circuit breaker, 5% warning.
func DefaultRules() Rules {
	return Rules{
		MaxFutureSkew:     5 * time.Minute,
		CompareWindow:     60 * time.Second,
		CircuitBreakerPct: decimal.NewFromFloat(0.20),
		WarnPct:           decimal.NewFromFloat(0.05),
	}
}

// Result is the outcome of validating one tick.
type Result struct {
	Accepted     bool
	Reason       string
	DeltaWarning bool
}

// Validate applies the sanity and circuit-breaker rules to a tick, in order,
// first failure wins. prior is the last accepted tick for the same symbol from
// a different source, or nil if none exists. Validate mutates nothing and
// performs no I/O; its only ambient input is the clock for the skew check.
func (r Rules) Validate(tick model.MarketTick, prior *model.MarketTick) Result {
	if !tick.Price.IsPositive() {
		return Result{Reason: ReasonNonPositivePrice}
	}
	if tick.Volume.IsNegative() {
		return Result{Reason: ReasonNegativeVolume}
	}
	if tick.Timestamp.After(time.Now().UTC().Add(r.MaxFutureSkew)) {
		return Result{Reason: ReasonFutureTimestamp}
	}
	if tick.High != nil && tick.Low != nil && tick.High.LessThan(*tick.Low) {
		return Result{Reason: ReasonOHLCInconsistent}
	}

	// Cross-source comparison: only against a recent accepted tick from a
	// different source for the same symbol.
	if prior != nil && prior.SourceID != tick.SourceID &&
		tick.Timestamp.Sub(prior.Timestamp) <= r.CompareWindow {
		delta := tick.Price.Sub(prior.Price).Abs().Div(prior.Price)
		if delta.GreaterThan(r.CircuitBreakerPct) {
			return Result{Reason: ReasonCircuitBreaker}
		}
		if delta.GreaterThan(r.WarnPct) {
			return Result{Accepted: true, DeltaWarning: true}
		}
	}

	return Result{Accepted: true}
}
