package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventum/internal/domain"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func marketAt(b byte, created time.Time) domain.Market {
	return domain.Market{
		Address:   addr(b),
		MarketID:  uint64(b),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStoreCreateGetUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	m := marketAt(1, base)
	require.NoError(t, s.Create(ctx, m))
	assert.ErrorIs(t, s.Create(ctx, m), domain.ErrAlreadyInitialized)

	got, err := s.Get(ctx, m.Address)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = s.Get(ctx, addr(9))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	m.YesReserve = 500
	require.NoError(t, s.Update(ctx, m))
	got, err = s.Get(ctx, m.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got.YesReserve)

	assert.ErrorIs(t, s.Update(ctx, marketAt(9, base)), domain.ErrNotFound)
}

func TestStoreList(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of creation order; List must sort by CreatedAt.
	require.NoError(t, s.Create(ctx, marketAt(3, base.Add(2*time.Hour))))
	require.NoError(t, s.Create(ctx, marketAt(1, base)))
	require.NoError(t, s.Create(ctx, marketAt(2, base.Add(time.Hour))))

	all, err := s.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1), all[0].MarketID)
	assert.Equal(t, uint64(2), all[1].MarketID)
	assert.Equal(t, uint64(3), all[2].MarketID)

	page, err := s.List(ctx, domain.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].MarketID)

	empty, err := s.List(ctx, domain.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreListResolvedBefore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	resolved := marketAt(1, base)
	resolved.Resolved = true
	require.NoError(t, s.Create(ctx, resolved))

	open := marketAt(2, base)
	require.NoError(t, s.Create(ctx, open))

	recent := marketAt(3, base.Add(48*time.Hour))
	recent.Resolved = true
	require.NoError(t, s.Create(ctx, recent))

	out, err := s.ListResolvedBefore(ctx, base.Add(24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, resolved.Address, out[0].Address)
}

func TestAuditLog(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Log(ctx, domain.AuditEntry{
			ID:        string(rune('a' + i)),
			Operation: "buy_outcome",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	old, err := s.ListBefore(ctx, base.Add(90*time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, old, 2)

	limited, err := s.ListBefore(ctx, base.Add(90*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	removed, err := s.DeleteBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 1, s.AuditLen())
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	class := addr(10)
	holder := addr(20)
	other := addr(21)

	require.NoError(t, l.CreateClass(ctx, class))
	assert.ErrorIs(t, l.CreateClass(ctx, class), domain.ErrAlreadyInitialized)

	require.NoError(t, l.Mint(ctx, class, holder, 1_000))
	bal, err := l.Balance(ctx, class, holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), bal)

	require.NoError(t, l.Transfer(ctx, class, holder, other, 400))
	bal, err = l.Balance(ctx, class, other)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bal)

	require.NoError(t, l.Burn(ctx, class, holder, 600))
	bal, err = l.Balance(ctx, class, holder)
	require.NoError(t, err)
	assert.Zero(t, bal)

	assert.ErrorIs(t, l.Burn(ctx, class, holder, 1), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, l.Transfer(ctx, class, holder, other, 1), domain.ErrInsufficientBalance)
}

func TestLedgerOverflow(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	class := addr(10)
	holder := addr(20)
	other := addr(21)

	require.NoError(t, l.Mint(ctx, class, holder, ^uint64(0)))
	assert.ErrorIs(t, l.Mint(ctx, class, holder, 1), domain.ErrArithmeticOverflow)

	require.NoError(t, l.Mint(ctx, class, other, ^uint64(0)))
	assert.ErrorIs(t, l.Transfer(ctx, class, holder, other, 1), domain.ErrArithmeticOverflow)
}

func TestLockManager(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "market:abc", time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "market:abc", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// A different key is independent.
	unlock2, err := lm.Acquire(ctx, "market:def", time.Second)
	require.NoError(t, err)
	unlock2()

	unlock()
	unlock() // second release is a no-op

	unlock3, err := lm.Acquire(ctx, "market:abc", time.Second)
	require.NoError(t, err)
	unlock3()
}

func TestCache(t *testing.T) {
	c := NewCache()
	ctx := context.Background()
	m := marketAt(1, time.Now())

	_, err := c.Get(ctx, m.Address)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.Set(ctx, m))
	got, err := c.Get(ctx, m.Address)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	require.NoError(t, c.Invalidate(ctx, m.Address))
	_, err = c.Get(ctx, m.Address)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignalBus(t *testing.T) {
	sb := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := sb.Subscribe(ctx, "markets")
	require.NoError(t, err)

	require.NoError(t, sb.Publish(ctx, "markets", []byte("one")))
	require.NoError(t, sb.Publish(ctx, "other", []byte("ignored")))

	select {
	case msg := <-ch:
		assert.Equal(t, []byte("one"), msg)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
