// Package memory provides in-memory implementations of the storage and
// coordination interfaces: market store, token ledger, audit log, locks,
// cache, and signal bus. It backs the standalone operating mode and lets the
// engine be tested without external services.
//
// Atomicity model: InTx runs the function directly. Isolation comes from the
// per-market lock manager, and the engine orders every operation so that all
// validation precedes the first mutation, so a failed operation leaves no
// partial state behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// Store is an in-memory domain.MarketStore, domain.AuditStore, and
// domain.Atomic.
type Store struct {
	mu      sync.RWMutex
	markets map[domain.Address]domain.Market
	audit   []domain.AuditEntry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		markets: make(map[domain.Address]domain.Market),
	}
}

// Create inserts a new market record.
func (s *Store) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.Address]; ok {
		return domain.ErrAlreadyInitialized
	}
	s.markets[m.Address] = m
	return nil
}

// Get retrieves a market record by address.
func (s *Store) Get(_ context.Context, addr domain.Address) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[addr]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// Update overwrites an existing market record.
func (s *Store) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.Address]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.Address] = m
	return nil
}

// List returns market records ordered by creation time.
func (s *Store) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

// ListResolvedBefore returns resolved markets last updated before cutoff.
func (s *Store) ListResolvedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Market
	for _, m := range s.markets {
		if m.Resolved && m.UpdatedAt.Before(cutoff) {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Log appends an audit entry.
func (s *Store) Log(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListBefore returns audit entries created before cutoff.
func (s *Store) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEntry
	for _, e := range s.audit {
		if e.CreatedAt.Before(cutoff) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// DeleteBefore removes audit entries created before cutoff.
func (s *Store) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.audit[:0]
	var removed int64
	for _, e := range s.audit {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.audit = kept
	return removed, nil
}

// InTx runs fn directly; see the package comment for the atomicity model.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AuditLen returns the number of audit entries. Test helper.
func (s *Store) AuditLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audit)
}

var (
	_ domain.MarketStore = (*Store)(nil)
	_ domain.AuditStore  = (*Store)(nil)
	_ domain.Atomic      = (*Store)(nil)
)
