// Package quality assigns a trust score to validated ticks. The score rides on
// every routed tick so consumers can show a confidence indicator.
package quality

import "tickrouter/internal/feed/model"

const (
	ScoreRejected        = 0
	ScoreFallbackWarning = 60
	ScoreFallback        = 80
	ScorePrimary         = 100
)

// Score maps a validation outcome and source kind to a quality score.
// Rejected ticks score 0 and are never forwarded; the value exists only for
// observability. A delta warning downgrades fallback ticks, not primary ones.
func Score(accepted bool, kind model.SourceKind, deltaWarning bool) int {
	switch {
	case !accepted:
		return ScoreRejected
	case kind == model.SourcePush:
		return ScorePrimary
	case deltaWarning:
		return ScoreFallbackWarning
	default:
		return ScoreFallback
	}
}
