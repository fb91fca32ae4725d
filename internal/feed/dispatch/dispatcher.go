// Package dispatch fans the authoritative tick stream out to subscriber
// groups. Delivery is at-most-once and best-effort: a slow consumer loses
// ticks, it never blocks the routing pipeline.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
	"tickrouter/internal/metrics"
)

// GroupKey addresses a subscriber group: "EQUITY:AAPL" for one symbol,
// "EQUITY:*" for every symbol in the class.
type GroupKey string

const wildcard = "*"

func KeyFor(class model.AssetClass, symbol string) GroupKey {
	return GroupKey(string(class) + ":" + symbol)
}

func WildcardKey(class model.AssetClass) GroupKey {
	return GroupKey(string(class) + ":" + wildcard)
}

// Subscriber receives routed ticks on a bounded channel. When the buffer is
// full the oldest tick is dropped to make room for the newest.
type Subscriber struct {
	key     GroupKey
	ch      chan model.RoutedTick
	dropped atomic.Uint64
}

// C is the subscriber's receive channel. Closed on Unsubscribe or dispatcher
// shutdown.
func (s *Subscriber) C() <-chan model.RoutedTick {
	return s.ch
}

// Dropped returns how many ticks were discarded because the buffer was full.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Transport is the external pub/sub hub the dispatcher forwards to.
// Fire-and-forget: errors are logged, never retried.
type Transport interface {
	Publish(ctx context.Context, groupKey string, tick model.RoutedTick) error
}

// Dispatcher maintains subscriber groups keyed by (assetClass, symbol) or
// assetClass wildcard and forwards each routed tick to every matching group.
type Dispatcher struct {
	mu     sync.RWMutex
	groups map[GroupKey]map[*Subscriber]struct{}
	closed bool

	transport Transport
	outbound  chan model.RoutedTick
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher. transport may be nil when no external hub is
// wired (tests, local runs).
func New(transport Transport, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		groups:    make(map[GroupKey]map[*Subscriber]struct{}),
		transport: transport,
		outbound:  make(chan model.RoutedTick, 256),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	if transport != nil {
		d.wg.Add(1)
		go d.forward()
	}
	return d
}

// Subscribe registers a subscriber for the given group with the given buffer
// size.
func (d *Dispatcher) Subscribe(key GroupKey, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{key: key, ch: make(chan model.RoutedTick, buffer)}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		close(sub.ch)
		return sub
	}
	group, ok := d.groups[key]
	if !ok {
		group = make(map[*Subscriber]struct{})
		d.groups[key] = group
	}
	group[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (d *Dispatcher) Unsubscribe(sub *Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	group, ok := d.groups[sub.key]
	if !ok {
		return
	}
	if _, member := group[sub]; !member {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(d.groups, sub.key)
	}
	close(sub.ch)
}

// Publish delivers the tick to every group matching its symbol and asset
// class. Sends never block: full subscriber buffers drop the oldest tick,
// a full transport buffer drops the tick for the transport only.
func (d *Dispatcher) Publish(tick model.RoutedTick) {
	exact := KeyFor(tick.AssetClass, tick.Symbol)
	wild := WildcardKey(tick.AssetClass)

	d.mu.RLock()
	for sub := range d.groups[exact] {
		deliver(sub, tick)
	}
	for sub := range d.groups[wild] {
		deliver(sub, tick)
	}
	d.mu.RUnlock()

	if d.transport != nil {
		select {
		case d.outbound <- tick:
		default:
			d.logger.Debug("transport buffer full, tick dropped",
				zap.String("symbol", tick.Symbol))
		}
	}
}

// deliver performs a bounded, non-blocking send with a drop-oldest policy.
func deliver(sub *Subscriber, tick model.RoutedTick) {
	select {
	case sub.ch <- tick:
		return
	default:
	}

	// Buffer full: evict the oldest entry, then try once more. The second
	// send can still lose the race against a concurrent fill; drop the new
	// tick in that case rather than block.
	select {
	case <-sub.ch:
		sub.dropped.Add(1)
		metrics.DroppedDeliveries.Inc()
	default:
	}
	select {
	case sub.ch <- tick:
	default:
		sub.dropped.Add(1)
		metrics.DroppedDeliveries.Inc()
	}
}

// forward pushes ticks to the external transport off the publish path.
func (d *Dispatcher) forward() {
	defer d.wg.Done()
	for {
		select {
		case tick := <-d.outbound:
			key := string(KeyFor(tick.AssetClass, tick.Symbol))
			if err := d.transport.Publish(d.ctx, key, tick); err != nil {
				d.logger.Warn("transport publish failed",
					zap.String("group", key), zap.Error(err))
			}
		case <-d.ctx.Done():
			return
		}
	}
}

// Close stops the transport forwarder and closes all subscriber channels.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for key, group := range d.groups {
		for sub := range group {
			close(sub.ch)
		}
		delete(d.groups, key)
	}
}
