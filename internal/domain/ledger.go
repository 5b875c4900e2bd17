package domain

import "context"

// TokenLedger is the fungible-balance capability the engine depends on. A
// token class is itself an Address (outcome mints, LP mints, and the shared
// collateral class). The engine holds no balance state of its own; every
// mint, burn, and transfer goes through this interface so it can be swapped
// for an in-memory fake in tests.
type TokenLedger interface {
	// CreateClass registers a new token class. Registering an existing
	// class returns ErrAlreadyInitialized.
	CreateClass(ctx context.Context, class Address) error

	// Mint credits amount of class to holder.
	Mint(ctx context.Context, class, holder Address, amount uint64) error

	// Burn debits amount of class from holder. Returns
	// ErrInsufficientBalance if the holder's balance is smaller.
	Burn(ctx context.Context, class, holder Address, amount uint64) error

	// Transfer moves amount of class from one holder to another. Returns
	// ErrInsufficientBalance if the source balance is smaller.
	Transfer(ctx context.Context, class, from, to Address, amount uint64) error

	// Balance returns holder's balance of class. Unknown holders have a
	// zero balance.
	Balance(ctx context.Context, class, holder Address) (uint64, error)
}
