// Package engine implements the deterministic settlement engine for binary
// prediction markets: market lifecycle, fixed-product pricing, liquidity
// accounting, and post-resolution redemption. The engine holds no state of
// its own; it orchestrates the injected market store and token ledger, one
// atomic transition per operation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/eventum/internal/address"
	"github.com/alanyoungcy/eventum/internal/domain"
)

// defaultLockTTL bounds how long a crashed operation can keep a market
// locked.
const defaultLockTTL = 10 * time.Second

// Deps bundles the collaborators the engine needs. Markets, Ledger, Atomic,
// Locks, and Logger are required; Cache, Bus, and Audit may be nil-equivalent
// no-ops only in tests that do not exercise them.
type Deps struct {
	Markets domain.MarketStore
	Ledger  domain.TokenLedger
	Audit   domain.AuditStore
	Atomic  domain.Atomic
	Locks   domain.LockManager
	Cache   domain.MarketCache
	Bus     domain.SignalBus
	Logger  *slog.Logger

	// Clock supplies the environment time for trading-window checks and
	// timestamps. Defaults to time.Now; injectable for deterministic tests.
	Clock func() time.Time

	// LockTTL overrides the per-market lock TTL.
	LockTTL time.Duration
}

// Engine executes the five settlement operations against market records.
type Engine struct {
	markets    domain.MarketStore
	ledger     domain.TokenLedger
	audit      domain.AuditStore
	atomic     domain.Atomic
	locks      domain.LockManager
	cache      domain.MarketCache
	bus        domain.SignalBus
	logger     *slog.Logger
	now        func() time.Time
	lockTTL    time.Duration
	collateral domain.Address
}

// New creates an Engine from its dependencies.
func New(deps Deps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Engine{
		markets:    deps.Markets,
		ledger:     deps.Ledger,
		audit:      deps.Audit,
		atomic:     deps.Atomic,
		locks:      deps.Locks,
		cache:      deps.Cache,
		bus:        deps.Bus,
		logger:     deps.Logger.With(slog.String("component", "engine")),
		now:        clock,
		lockTTL:    ttl,
		collateral: address.CollateralClass(),
	}
}

// InitializeParams carries the inputs of the initialize operation.
type InitializeParams struct {
	MarketID        uint64         `json:"market_id"`
	Creator         domain.Address `json:"creator"`
	OracleAuthority domain.Address `json:"oracle_authority"`
	EndTime         int64          `json:"end_time"`
	FeeBps          uint32         `json:"fee_bps"`
	Question        string         `json:"question"`
}

// Initialize creates a new market record with zero reserves, registers its
// outcome and liquidity token classes, and opens it for liquidity and
// trading. The record address is derived from (creator, market id); a second
// initialize against the same pair fails with ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (domain.Market, error) {
	now := e.now()

	if p.Creator.IsZero() {
		return domain.Market{}, fmt.Errorf("engine: initialize: creator: %w", domain.ErrUnauthorized)
	}
	if len(p.Question) > domain.MaxQuestionLen {
		return domain.Market{}, fmt.Errorf("engine: initialize: %w", domain.ErrQuestionTooLong)
	}
	if p.FeeBps > domain.MaxFeeBps {
		return domain.Market{}, fmt.Errorf("engine: initialize: fee %d bps: %w", p.FeeBps, domain.ErrInvalidAmount)
	}
	if p.EndTime <= now.Unix() {
		return domain.Market{}, fmt.Errorf("engine: initialize: %w", domain.ErrInvalidDuration)
	}

	oracle := p.OracleAuthority
	if oracle.IsZero() {
		// A missing oracle authority falls back to the creator.
		oracle = p.Creator
	}

	addr := address.Market(p.Creator, p.MarketID)
	m := domain.Market{
		Address:         addr,
		MarketID:        p.MarketID,
		Creator:         p.Creator,
		OracleAuthority: oracle,
		Question:        p.Question,
		FeeBps:          p.FeeBps,
		StartTime:       now.Unix(),
		EndTime:         p.EndTime,
		VaultAddress:    address.Vault(addr),
		YesMint:         address.YesMint(addr),
		NoMint:          address.NoMint(addr),
		LPMint:          address.LPMint(addr),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	unlock, err := e.lockMarket(ctx, addr)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	err = e.atomic.InTx(ctx, func(ctx context.Context) error {
		if err := e.markets.Create(ctx, m); err != nil {
			return fmt.Errorf("engine: initialize: %w", err)
		}
		for _, class := range []domain.Address{m.YesMint, m.NoMint, m.LPMint} {
			if err := e.ledger.CreateClass(ctx, class); err != nil {
				return fmt.Errorf("engine: initialize: create token class: %w", err)
			}
		}
		return e.logAudit(ctx, "initialize", m.Address, p.Creator, 0, map[string]any{
			"market_id": p.MarketID,
			"end_time":  p.EndTime,
			"fee_bps":   p.FeeBps,
		})
	})
	if err != nil {
		return domain.Market{}, err
	}

	e.finish(ctx, m, domain.MarketEvent{
		Type:     domain.EventMarketInitialized,
		Market:   m.Address,
		Actor:    p.Creator,
		Question: m.Question,
	})
	e.logger.InfoContext(ctx, "engine: market initialized",
		slog.String("market", m.Address.String()),
		slog.Uint64("market_id", p.MarketID),
	)
	return m, nil
}

// Resolve finalizes the market outcome. Only the oracle authority may call
// it, exactly once; the decision is not retractable.
func (e *Engine) Resolve(ctx context.Context, market, caller domain.Address, outcome domain.Outcome) (domain.Market, error) {
	if !outcome.Valid() {
		return domain.Market{}, fmt.Errorf("engine: resolve: %q: %w", outcome, domain.ErrInvalidOutcome)
	}

	m, err := e.mutate(ctx, market, func(ctx context.Context, m *domain.Market) error {
		if m.Resolved {
			return domain.ErrMarketAlreadyResolved
		}
		if caller != m.OracleAuthority {
			return domain.ErrUnauthorized
		}
		m.Resolved = true
		m.WinningOutcome = outcome
		return e.logAudit(ctx, "resolve", m.Address, caller, 0, map[string]any{
			"winning_outcome": outcome,
		})
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("engine: resolve: %w", err)
	}

	e.finish(ctx, m, domain.MarketEvent{
		Type:     domain.EventMarketResolved,
		Market:   m.Address,
		Actor:    caller,
		Side:     outcome,
		Question: m.Question,
	})
	e.logger.InfoContext(ctx, "engine: market resolved",
		slog.String("market", m.Address.String()),
		slog.String("winning_outcome", string(outcome)),
	)
	return m, nil
}

// Claim redeems the claimant's entire winning-outcome balance at one unit of
// collateral per token, paid from the market vault. With burnLosing set, any
// losing-outcome balance is burned as well for bookkeeping; losing tokens
// carry no collateral value either way. Returns the paid-out amount.
func (e *Engine) Claim(ctx context.Context, market, claimant domain.Address, burnLosing bool) (domain.Market, uint64, error) {
	var paid uint64

	m, err := e.mutate(ctx, market, func(ctx context.Context, m *domain.Market) error {
		if !m.Resolved {
			return domain.ErrMarketNotResolved
		}

		winMint := m.OutcomeMint(m.WinningOutcome)
		bal, err := e.ledger.Balance(ctx, winMint, claimant)
		if err != nil {
			return fmt.Errorf("winning balance: %w", err)
		}
		if bal == 0 {
			return domain.ErrNothingToClaim
		}

		// The vault always covers the winning side in full; a shortfall
		// means ledger state was corrupted outside the engine.
		vaultBal, err := e.ledger.Balance(ctx, e.collateral, m.VaultAddress)
		if err != nil {
			return fmt.Errorf("vault balance: %w", err)
		}
		if vaultBal < bal {
			return fmt.Errorf("vault holds %d, claim needs %d: %w", vaultBal, bal, domain.ErrInsufficientBalance)
		}

		if err := e.ledger.Burn(ctx, winMint, claimant, bal); err != nil {
			return fmt.Errorf("burn winning tokens: %w", err)
		}
		if err := e.ledger.Transfer(ctx, e.collateral, m.VaultAddress, claimant, bal); err != nil {
			return fmt.Errorf("pay out: %w", err)
		}
		paid = bal

		if burnLosing {
			loseMint := m.OutcomeMint(m.WinningOutcome.Opposite())
			loseBal, err := e.ledger.Balance(ctx, loseMint, claimant)
			if err != nil {
				return fmt.Errorf("losing balance: %w", err)
			}
			if loseBal > 0 {
				if err := e.ledger.Burn(ctx, loseMint, claimant, loseBal); err != nil {
					return fmt.Errorf("burn losing tokens: %w", err)
				}
			}
		}

		return e.logAudit(ctx, "claim", m.Address, claimant, paid, nil)
	})
	if err != nil {
		return domain.Market{}, 0, fmt.Errorf("engine: claim: %w", err)
	}

	e.finish(ctx, m, domain.MarketEvent{
		Type:   domain.EventWinningsClaimed,
		Market: m.Address,
		Actor:  claimant,
		Amount: paid,
	})
	return m, paid, nil
}

// GetMarket retrieves a market record, checking the cache first and falling
// back to the store on a miss.
func (e *Engine) GetMarket(ctx context.Context, addr domain.Address) (domain.Market, error) {
	m, err := e.cache.Get(ctx, addr)
	if err == nil {
		return m, nil
	}

	m, err = e.markets.Get(ctx, addr)
	if err != nil {
		return domain.Market{}, fmt.Errorf("engine: get market %s: %w", addr, err)
	}

	if cacheErr := e.cache.Set(ctx, m); cacheErr != nil {
		e.logger.WarnContext(ctx, "engine: cache set failed",
			slog.String("market", addr.String()),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// ListMarkets returns market records from the store.
func (e *Engine) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := e.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("engine: list markets: %w", err)
	}
	return markets, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (e *Engine) lockMarket(ctx context.Context, addr domain.Address) (func(), error) {
	unlock, err := e.locks.Acquire(ctx, "market:"+addr.String(), e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("engine: lock market %s: %w", addr, err)
	}
	return unlock, nil
}

// mutate runs one load-validate-mutate-store transition against a market
// under its per-market lock and inside a storage transaction. fn sees the
// loaded record and may mutate it; any error aborts with no state change.
func (e *Engine) mutate(ctx context.Context, addr domain.Address, fn func(ctx context.Context, m *domain.Market) error) (domain.Market, error) {
	unlock, err := e.lockMarket(ctx, addr)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	var out domain.Market
	err = e.atomic.InTx(ctx, func(ctx context.Context) error {
		m, err := e.markets.Get(ctx, addr)
		if err != nil {
			return err
		}
		if !address.VerifyMarket(m.Address, m.Creator, m.MarketID) {
			return domain.ErrAddressMismatch
		}
		if err := fn(ctx, &m); err != nil {
			return err
		}
		m.UpdatedAt = e.now()
		if err := e.markets.Update(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}
	return out, nil
}

// finish performs the post-commit side effects: cache refresh and event
// publication. Both are best-effort; the committed state is authoritative.
func (e *Engine) finish(ctx context.Context, m domain.Market, ev domain.MarketEvent) {
	if err := e.cache.Set(ctx, m); err != nil {
		e.logger.WarnContext(ctx, "engine: cache set failed",
			slog.String("market", m.Address.String()),
			slog.String("error", err.Error()),
		)
	}

	ev.At = e.now()
	payload, err := marshalEvent(ev)
	if err != nil {
		e.logger.WarnContext(ctx, "engine: marshal event failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.bus.Publish(ctx, domain.ChannelMarkets, payload); err != nil {
		e.logger.WarnContext(ctx, "engine: publish event failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

func marshalEvent(ev domain.MarketEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func (e *Engine) logAudit(ctx context.Context, op string, market, actor domain.Address, amount uint64, detail map[string]any) error {
	err := e.audit.Log(ctx, domain.AuditEntry{
		ID:        uuid.NewString(),
		Operation: op,
		Market:    market,
		Actor:     actor,
		Amount:    amount,
		Detail:    detail,
		CreatedAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", op, err)
	}
	return nil
}
