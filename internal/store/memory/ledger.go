package memory

import (
	"context"
	"math"
	"sync"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// Ledger is an in-memory domain.TokenLedger.
type Ledger struct {
	mu       sync.RWMutex
	classes  map[domain.Address]bool
	balances map[domain.Address]map[domain.Address]uint64 // class -> holder -> amount
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		classes:  make(map[domain.Address]bool),
		balances: make(map[domain.Address]map[domain.Address]uint64),
	}
}

// CreateClass registers a token class.
func (l *Ledger) CreateClass(_ context.Context, class domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.classes[class] {
		return domain.ErrAlreadyInitialized
	}
	l.classes[class] = true
	return nil
}

// Mint credits amount of class to holder.
func (l *Ledger) Mint(_ context.Context, class, holder domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holders := l.balances[class]
	if holders == nil {
		holders = make(map[domain.Address]uint64)
		l.balances[class] = holders
	}
	if holders[holder] > math.MaxUint64-amount {
		return domain.ErrArithmeticOverflow
	}
	holders[holder] += amount
	return nil
}

// Burn debits amount of class from holder.
func (l *Ledger) Burn(_ context.Context, class, holder domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holders := l.balances[class]
	if holders == nil || holders[holder] < amount {
		return domain.ErrInsufficientBalance
	}
	holders[holder] -= amount
	return nil
}

// Transfer moves amount of class from one holder to another.
func (l *Ledger) Transfer(_ context.Context, class, from, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holders := l.balances[class]
	if holders == nil || holders[from] < amount {
		return domain.ErrInsufficientBalance
	}
	if holders[to] > math.MaxUint64-amount {
		return domain.ErrArithmeticOverflow
	}
	holders[from] -= amount
	holders[to] += amount
	return nil
}

// Balance returns holder's balance of class.
func (l *Ledger) Balance(_ context.Context, class, holder domain.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[class][holder], nil
}

var _ domain.TokenLedger = (*Ledger)(nil)
