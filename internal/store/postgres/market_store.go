package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// i64 narrows an engine quantity to the BIGINT column range. Quantities are
// at most MaxInt64; larger values would silently wrap in the database, so
// they are rejected as overflow instead.
func i64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, domain.ErrArithmeticOverflow
	}
	return int64(v), nil
}

const marketCols = `address, market_id, creator, oracle_authority, question, fee_bps,
	start_time, end_time, yes_reserve, no_reserve, total_liquidity, lp_supply,
	resolved, winning_outcome, vault_address, yes_mint, no_mint, lp_mint,
	created_at, updated_at`

// marketArgs flattens a market record into the column order of marketCols.
func marketArgs(m domain.Market) ([]any, error) {
	marketID, err := i64(m.MarketID)
	if err != nil {
		return nil, err
	}
	yes, err := i64(m.YesReserve)
	if err != nil {
		return nil, err
	}
	no, err := i64(m.NoReserve)
	if err != nil {
		return nil, err
	}
	total, err := i64(m.TotalLiquidity)
	if err != nil {
		return nil, err
	}
	supply, err := i64(m.LPSupply)
	if err != nil {
		return nil, err
	}

	var winning *string
	if m.Resolved {
		w := string(m.WinningOutcome)
		winning = &w
	}

	return []any{
		m.Address.String(), marketID, m.Creator.String(), m.OracleAuthority.String(),
		m.Question, int32(m.FeeBps), m.StartTime, m.EndTime,
		yes, no, total, supply,
		m.Resolved, winning,
		m.VaultAddress.String(), m.YesMint.String(), m.NoMint.String(), m.LPMint.String(),
		m.CreatedAt, m.UpdatedAt,
	}, nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m                                domain.Market
		addr, creator, oracle            string
		vault, yesMint, noMint, lpMint   string
		marketID, yes, no, total, supply int64
		feeBps                           int32
		winning                          *string
	)
	err := row.Scan(
		&addr, &marketID, &creator, &oracle, &m.Question, &feeBps,
		&m.StartTime, &m.EndTime, &yes, &no, &total, &supply,
		&m.Resolved, &winning, &vault, &yesMint, &noMint, &lpMint,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}

	for dst, src := range map[*domain.Address]string{
		&m.Address: addr, &m.Creator: creator, &m.OracleAuthority: oracle,
		&m.VaultAddress: vault, &m.YesMint: yesMint, &m.NoMint: noMint, &m.LPMint: lpMint,
	} {
		parsed, err := domain.ParseAddress(src)
		if err != nil {
			return domain.Market{}, err
		}
		*dst = parsed
	}

	m.MarketID = uint64(marketID)
	m.FeeBps = uint32(feeBps)
	m.YesReserve = uint64(yes)
	m.NoReserve = uint64(no)
	m.TotalLiquidity = uint64(total)
	m.LPSupply = uint64(supply)
	if winning != nil {
		m.WinningOutcome = domain.Outcome(*winning)
	}
	return m, nil
}

// Create inserts a new market record. A duplicate address reports
// domain.ErrAlreadyInitialized.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	args, err := marketArgs(m)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.Address, err)
	}

	const query = `
		INSERT INTO markets (` + marketCols + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	if _, err := db(ctx, s.pool).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrAlreadyInitialized
		}
		return fmt.Errorf("postgres: create market %s: %w", m.Address, err)
	}
	return nil
}

// Get retrieves a market record by address.
func (s *MarketStore) Get(ctx context.Context, addr domain.Address) (domain.Market, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE address = $1`, addr.String())
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", addr, err)
	}
	return m, nil
}

// Update overwrites an existing market record.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	args, err := marketArgs(m)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.Address, err)
	}

	const query = `
		UPDATE markets SET
			market_id = $2, creator = $3, oracle_authority = $4, question = $5,
			fee_bps = $6, start_time = $7, end_time = $8,
			yes_reserve = $9, no_reserve = $10, total_liquidity = $11, lp_supply = $12,
			resolved = $13, winning_outcome = $14,
			vault_address = $15, yes_mint = $16, no_mint = $17, lp_mint = $18,
			created_at = $19, updated_at = $20
		WHERE address = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.Address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns market records ordered by creation time.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+marketCols+` FROM markets ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	return collectMarkets(rows)
}

// ListResolvedBefore returns resolved markets last updated before cutoff.
func (s *MarketStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE resolved AND updated_at < $1
		 ORDER BY updated_at LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets: %w", err)
	}
	defer rows.Close()

	return collectMarkets(rows)
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate markets: %w", err)
	}
	return out, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
