package redis

import (
	"context"
	"time"
)

// WebhookGuard deduplicates processor webhook deliveries by event id.
type WebhookGuard struct {
	store IdempotencyStore
	scope string
	ttl   time.Duration
}

// NewWebhookGuard builds a guard scoped to one webhook source.
func NewWebhookGuard(store IdempotencyStore, scope string, ttl time.Duration) *WebhookGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WebhookGuard{store: store, scope: scope, ttl: ttl}
}

// CheckAndMark reports whether the event was already processed and, if not,
// marks it. A failed handler must call Delete so retries can run again.
func (g *WebhookGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(g.scope, eventID)
	stored, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !stored, nil
}

// Delete releases the idempotency marker for the event.
func (g *WebhookGuard) Delete(ctx context.Context, eventID string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
