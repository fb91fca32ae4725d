package storage

import (
	"context"

	"tickrouter/internal/feed/model"
)

// Sink is the persistence collaborator the pipeline snapshots routed ticks
// into. The pipeline never depends on its availability: failed saves are
// logged and dropped.
type Sink interface {
	SaveTick(ctx context.Context, tick model.RoutedTick) error
}
