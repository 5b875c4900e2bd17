package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// liquidityQuote is the computed effect of one liquidity deposit.
type liquidityQuote struct {
	lpOut          uint64
	yesReserve     uint64
	noReserve      uint64
	lpSupply       uint64
	totalLiquidity uint64
}

// priceLiquidity computes the liquidity-token issuance for a deposit.
//
// The first deposit bootstraps both reserves at the full amount and issues
// liquidity tokens 1:1. Later deposits require a balanced pool and issue
// tokens in proportion to the existing supply along the diagonal:
//
//	lp_out = floor(amount * lp_supply / yes_reserve)
//
// Deposits into an unbalanced pool are rejected; there is no rebalancing
// formula.
func priceLiquidity(m *domain.Market, amount uint64) (liquidityQuote, error) {
	if amount == 0 {
		return liquidityQuote{}, domain.ErrInvalidAmount
	}

	if m.LPSupply == 0 {
		// Supply zero with nonzero reserves would violate the record's own
		// invariant; refuse to build on corrupted state.
		if m.YesReserve != 0 || m.NoReserve != 0 {
			return liquidityQuote{}, domain.ErrUnbalancedPool
		}
		total, err := addU64(m.TotalLiquidity, amount)
		if err != nil {
			return liquidityQuote{}, err
		}
		return liquidityQuote{
			lpOut:          amount,
			yesReserve:     amount,
			noReserve:      amount,
			lpSupply:       amount,
			totalLiquidity: total,
		}, nil
	}

	if m.YesReserve != m.NoReserve {
		return liquidityQuote{}, domain.ErrUnbalancedPool
	}

	lpOut, err := mul128(amount, m.LPSupply).div64(m.YesReserve)
	if err != nil {
		return liquidityQuote{}, err
	}
	if lpOut == 0 {
		// Deposit too small to mint a single liquidity token.
		return liquidityQuote{}, domain.ErrInvalidAmount
	}

	yes, err := addU64(m.YesReserve, amount)
	if err != nil {
		return liquidityQuote{}, err
	}
	no, err := addU64(m.NoReserve, amount)
	if err != nil {
		return liquidityQuote{}, err
	}
	supply, err := addU64(m.LPSupply, lpOut)
	if err != nil {
		return liquidityQuote{}, err
	}
	total, err := addU64(m.TotalLiquidity, amount)
	if err != nil {
		return liquidityQuote{}, err
	}

	return liquidityQuote{
		lpOut:          lpOut,
		yesReserve:     yes,
		noReserve:      no,
		lpSupply:       supply,
		totalLiquidity: total,
	}, nil
}

// AddLiquidity deposits collateral into the pool and mints liquidity tokens
// to the provider. Any identity may provide liquidity; the operation is not
// time-gated, only resolution-gated. Returns the updated record and the
// number of liquidity tokens minted.
func (e *Engine) AddLiquidity(ctx context.Context, market, provider domain.Address, amount uint64) (domain.Market, uint64, error) {
	var quote liquidityQuote

	m, err := e.mutate(ctx, market, func(ctx context.Context, m *domain.Market) error {
		if m.Resolved {
			return domain.ErrMarketResolved
		}

		q, err := priceLiquidity(m, amount)
		if err != nil {
			return err
		}

		bal, err := e.ledger.Balance(ctx, e.collateral, provider)
		if err != nil {
			return fmt.Errorf("provider balance: %w", err)
		}
		if bal < amount {
			return domain.ErrInsufficientBalance
		}

		if err := e.ledger.Transfer(ctx, e.collateral, provider, m.VaultAddress, amount); err != nil {
			return fmt.Errorf("collateral to vault: %w", err)
		}
		if err := e.ledger.Mint(ctx, m.LPMint, provider, q.lpOut); err != nil {
			return fmt.Errorf("mint liquidity tokens: %w", err)
		}

		m.YesReserve = q.yesReserve
		m.NoReserve = q.noReserve
		m.LPSupply = q.lpSupply
		m.TotalLiquidity = q.totalLiquidity
		quote = q

		return e.logAudit(ctx, "add_liquidity", m.Address, provider, amount, map[string]any{
			"lp_out": q.lpOut,
		})
	})
	if err != nil {
		return domain.Market{}, 0, fmt.Errorf("engine: add liquidity: %w", err)
	}

	e.finish(ctx, m, domain.MarketEvent{
		Type:   domain.EventLiquidityAdded,
		Market: m.Address,
		Actor:  provider,
		Amount: amount,
	})
	e.logger.DebugContext(ctx, "engine: liquidity added",
		slog.String("market", m.Address.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("lp_out", quote.lpOut),
	)
	return m, quote.lpOut, nil
}
