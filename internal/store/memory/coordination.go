package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// LockManager is an in-process domain.LockManager keyed the same way as the
// Redis implementation so the two are interchangeable.
type LockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]bool)}
}

// Acquire takes the lock for key, returning an unlock function. The TTL is
// ignored; in-process locks die with the process.
func (lm *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.held[key] {
		return nil, domain.ErrLockHeld
	}
	lm.held[key] = true

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(lm.held, key)
	}
	return unlock, nil
}

// Cache is an in-memory domain.MarketCache without expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[domain.Address]domain.Market
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[domain.Address]domain.Market)}
}

// Get returns a cached market record.
func (c *Cache) Get(_ context.Context, addr domain.Address) (domain.Market, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[addr]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// Set stores a market record.
func (c *Cache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[m.Address] = m
	return nil
}

// Invalidate drops a cached record.
func (c *Cache) Invalidate(_ context.Context, addr domain.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, addr)
	return nil
}

// SignalBus is an in-process fan-out domain.SignalBus.
type SignalBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every subscriber of channel. Slow subscribers
// drop messages rather than block the publisher.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for _, ch := range sb.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. The
// subscription ends when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	sb.mu.Lock()
	sb.subs[channel] = append(sb.subs[channel], ch)
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()
		sb.mu.Lock()
		defer sb.mu.Unlock()
		subs := sb.subs[channel]
		for i, c := range subs {
			if c == ch {
				sb.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

var (
	_ domain.LockManager = (*LockManager)(nil)
	_ domain.MarketCache = (*Cache)(nil)
	_ domain.SignalBus   = (*SignalBus)(nil)
)
