package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends a settlement audit entry.
func (s *AuditStore) Log(ctx context.Context, e domain.AuditEntry) error {
	amt, err := i64(e.Amount)
	if err != nil {
		return fmt.Errorf("postgres: audit log: %w", err)
	}

	_, err = db(ctx, s.pool).Exec(ctx, `
		INSERT INTO audit_log (id, operation, market, actor, amount, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Operation, e.Market.String(), e.Actor.String(), amt, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: audit log %s: %w", e.Operation, err)
	}
	return nil
}

// ListBefore returns audit entries created before cutoff, oldest first.
func (s *AuditStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := db(ctx, s.pool).Query(ctx, `
		SELECT id, operation, market, actor, amount, detail, created_at
		FROM audit_log WHERE created_at < $1
		ORDER BY created_at LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate audit entries: %w", err)
	}
	return out, nil
}

// DeleteBefore removes audit entries created before cutoff and returns the
// number of rows deleted.
func (s *AuditStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx,
		`DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAuditEntry(row pgx.Row) (domain.AuditEntry, error) {
	var (
		e             domain.AuditEntry
		market, actor string
		amount        int64
	)
	if err := row.Scan(&e.ID, &e.Operation, &market, &actor, &amount, &e.Detail, &e.CreatedAt); err != nil {
		return domain.AuditEntry{}, err
	}

	m, err := domain.ParseAddress(market)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	a, err := domain.ParseAddress(actor)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	e.Market = m
	e.Actor = a
	e.Amount = uint64(amount)
	return e, nil
}

var _ domain.AuditStore = (*AuditStore)(nil)
