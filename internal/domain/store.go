package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market records keyed by derived address. The store is
// the engine's atomicity collaborator: all writes issued within one
// Atomic.InTx call are applied together or not at all.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, addr Address) (Market, error)
	Update(ctx context.Context, m Market) error
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Market, error)
}

// AuditEntry is one row of the append-only settlement audit log.
type AuditEntry struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Market    Address        `json:"market"`
	Actor     Address        `json:"actor"`
	Amount    uint64         `json:"amount"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists the settlement audit log.
type AuditStore interface {
	Log(ctx context.Context, e AuditEntry) error
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]AuditEntry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Atomic runs fn within a single all-or-nothing storage transaction. Store
// and ledger calls made with the context passed to fn participate in the
// transaction.
type Atomic interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockManager serializes operations against one market address. Acquire
// returns an unlock function on success and ErrLockHeld when another
// operation holds the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MarketCache is a read-through cache for market records.
type MarketCache interface {
	Get(ctx context.Context, addr Address) (Market, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, addr Address) error
}

// SignalBus is the ephemeral pub/sub fabric between the engine and
// downstream consumers (WebSocket hub, notifier).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
