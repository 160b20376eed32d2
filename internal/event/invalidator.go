package event

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/utafrali/inventory-es/internal/cache"
	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/eventbus"
)

// Invalidator evicts cached read-model answers when inventory events fire, so
// readers see command effects without waiting out the TTL.
type Invalidator struct {
	cache  cache.Cache
	logger *slog.Logger
	subs   []*eventbus.Subscription
}

// NewInvalidator creates an invalidator over the given cache.
func NewInvalidator(c cache.Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// Attach subscribes the invalidator to every inventory event kind.
func (i *Invalidator) Attach(bus *eventbus.Bus) {
	for _, kind := range domain.EventKinds() {
		i.subs = append(i.subs, bus.Subscribe(kind, i.handle))
	}
}

// Detach removes the subscriptions added by Attach.
func (i *Invalidator) Detach(bus *eventbus.Bus) {
	for _, sub := range i.subs {
		bus.Unsubscribe(sub)
	}
	i.subs = nil
}

// handle drops the pair's stock entry and the product's inventory listing.
// The aggregate id is "<product>:<store>", so the stock key is a plain
// prefix concatenation while the product key needs the first segment only.
func (i *Invalidator) handle(ctx context.Context, e domain.Event) error {
	aggregateID := e.Head().AggregateID

	if err := i.cache.Delete(ctx, "stock:"+aggregateID); err != nil {
		return err
	}

	productPart, _, ok := strings.Cut(aggregateID, ":")
	if !ok {
		i.logger.WarnContext(ctx, "malformed aggregate id, skipping product invalidation",
			slog.String("aggregate_id", aggregateID),
		)
		return nil
	}

	pattern := "^product_inventory:" + regexp.QuoteMeta(productPart) + "$"
	if _, err := i.cache.InvalidatePattern(ctx, pattern); err != nil {
		return err
	}

	i.logger.DebugContext(ctx, "cache invalidated for event",
		slog.String("event_type", e.Kind()),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
