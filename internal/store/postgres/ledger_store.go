package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// LedgerStore implements domain.TokenLedger on the balances table. Balance
// rows are created lazily on first credit; debits guard against
// insufficiency in the WHERE clause so a race can never drive a balance
// negative.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// CreateClass registers a token class.
func (s *LedgerStore) CreateClass(ctx context.Context, class domain.Address) error {
	_, err := db(ctx, s.pool).Exec(ctx,
		`INSERT INTO token_classes (class) VALUES ($1)`, class.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrAlreadyInitialized
		}
		return fmt.Errorf("postgres: create token class %s: %w", class, err)
	}
	return nil
}

// Mint credits amount of class to holder.
func (s *LedgerStore) Mint(ctx context.Context, class, holder domain.Address, amount uint64) error {
	amt, err := i64(amount)
	if err != nil {
		return fmt.Errorf("postgres: mint %s: %w", class, err)
	}

	_, err = db(ctx, s.pool).Exec(ctx, `
		INSERT INTO balances (class, holder, amount) VALUES ($1, $2, $3)
		ON CONFLICT (class, holder) DO UPDATE SET amount = balances.amount + EXCLUDED.amount`,
		class.String(), holder.String(), amt)
	if err != nil {
		return fmt.Errorf("postgres: mint %d of %s to %s: %w", amount, class, holder, err)
	}
	return nil
}

// Burn debits amount of class from holder.
func (s *LedgerStore) Burn(ctx context.Context, class, holder domain.Address, amount uint64) error {
	amt, err := i64(amount)
	if err != nil {
		return fmt.Errorf("postgres: burn %s: %w", class, err)
	}

	tag, err := db(ctx, s.pool).Exec(ctx, `
		UPDATE balances SET amount = amount - $3
		WHERE class = $1 AND holder = $2 AND amount >= $3`,
		class.String(), holder.String(), amt)
	if err != nil {
		return fmt.Errorf("postgres: burn %d of %s from %s: %w", amount, class, holder, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// Transfer moves amount of class from one holder to another.
func (s *LedgerStore) Transfer(ctx context.Context, class, from, to domain.Address, amount uint64) error {
	if err := s.Burn(ctx, class, from, amount); err != nil {
		return err
	}
	if err := s.Mint(ctx, class, to, amount); err != nil {
		return err
	}
	return nil
}

// Balance returns holder's balance of class. Missing rows are zero.
func (s *LedgerStore) Balance(ctx context.Context, class, holder domain.Address) (uint64, error) {
	var amount int64
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT amount FROM balances WHERE class = $1 AND holder = $2`,
		class.String(), holder.String()).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: balance of %s for %s: %w", class, holder, err)
	}
	return uint64(amount), nil
}

var _ domain.TokenLedger = (*LedgerStore)(nil)
