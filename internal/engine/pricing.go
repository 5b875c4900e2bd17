package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// tradeQuote is the outcome of the fixed-product pricing computation for one
// trade, before any state is touched.
type tradeQuote struct {
	fee        uint64
	net        uint64
	sharesOut  uint64
	yesReserve uint64
	noReserve  uint64
}

// priceTrade runs the fixed-product market maker over the current reserves.
//
// K is fixed pre-mint; the net amount is minted into both reserves, and the
// chosen side gives up exactly enough tokens to restore the product:
//
//	shares_out = reserve_side' - floor(K / reserve_other')
//
// Floor division leaves the sub-unit remainder of the restored reserve with
// the buyer, so the post-trade product sits in (K - reserve_other', K].
//
// A buy larger than the pool's implied depth floors the restored reserve all
// the way to zero. The bought side then holds no tokens, so the pool admits
// no further trades (K becomes zero) or deposits (the reserves are
// unbalanced); resolution and claims still settle normally.
func priceTrade(m *domain.Market, amount uint64, side domain.Outcome) (tradeQuote, error) {
	if amount == 0 {
		return tradeQuote{}, domain.ErrInvalidAmount
	}
	if m.YesReserve == 0 || m.NoReserve == 0 {
		return tradeQuote{}, domain.ErrInsufficientLiquidity
	}

	fee := feeOf(amount, m.FeeBps)
	net := amount - fee
	if net == 0 {
		// A 100% fee leaves nothing to trade with.
		return tradeQuote{}, domain.ErrInvalidAmount
	}

	k := mul128(m.YesReserve, m.NoReserve)

	yes, err := addU64(m.YesReserve, net)
	if err != nil {
		return tradeQuote{}, err
	}
	no, err := addU64(m.NoReserve, net)
	if err != nil {
		return tradeQuote{}, err
	}

	reserveSide, reserveOther := yes, no
	if side == domain.OutcomeNo {
		reserveSide, reserveOther = no, yes
	}

	// The quotient fits: K/reserve_other' <= K/reserve_other < 2^64 because
	// K was computed before the mint. div64 still guards rather than panics.
	restored, err := k.div64(reserveOther)
	if err != nil {
		return tradeQuote{}, err
	}
	if restored >= reserveSide {
		// Cannot happen for K computed pre-mint with net > 0; treated as a
		// hard arithmetic fault rather than minting zero or wrapping.
		return tradeQuote{}, domain.ErrArithmeticOverflow
	}
	shares := reserveSide - restored

	q := tradeQuote{fee: fee, net: net, sharesOut: shares}
	if side == domain.OutcomeYes {
		q.yesReserve, q.noReserve = restored, no
	} else {
		q.yesReserve, q.noReserve = yes, restored
	}
	return q, nil
}

// BuyOutcome executes a trade: the buyer pays amount of collateral into the
// vault and receives outcome tokens on the chosen side, priced by the
// fixed-product market maker. The fee portion stays in the vault without
// minting anything, accruing to liquidity-token holders. Returns the updated
// record and the number of shares minted.
func (e *Engine) BuyOutcome(ctx context.Context, market, buyer domain.Address, amount uint64, side domain.Outcome) (domain.Market, uint64, error) {
	if !side.Valid() {
		return domain.Market{}, 0, fmt.Errorf("engine: buy outcome: %q: %w", side, domain.ErrInvalidOutcome)
	}

	var quote tradeQuote
	m, err := e.mutate(ctx, market, func(ctx context.Context, m *domain.Market) error {
		if m.Resolved {
			return domain.ErrMarketResolved
		}
		if !m.TradingOpen(e.now().Unix()) {
			return domain.ErrMarketExpired
		}

		q, err := priceTrade(m, amount, side)
		if err != nil {
			return err
		}

		// All validation happens before the first ledger write, including
		// the buyer's collateral check, so a failure leaves no mutation.
		bal, err := e.ledger.Balance(ctx, e.collateral, buyer)
		if err != nil {
			return fmt.Errorf("buyer balance: %w", err)
		}
		if bal < amount {
			return domain.ErrInsufficientBalance
		}

		if err := e.ledger.Transfer(ctx, e.collateral, buyer, m.VaultAddress, amount); err != nil {
			return fmt.Errorf("collateral to vault: %w", err)
		}
		if err := e.ledger.Mint(ctx, m.OutcomeMint(side), buyer, q.sharesOut); err != nil {
			return fmt.Errorf("mint outcome tokens: %w", err)
		}

		m.YesReserve = q.yesReserve
		m.NoReserve = q.noReserve
		quote = q

		return e.logAudit(ctx, "buy_outcome", m.Address, buyer, amount, map[string]any{
			"side":       side,
			"shares_out": q.sharesOut,
			"fee":        q.fee,
		})
	})
	if err != nil {
		return domain.Market{}, 0, fmt.Errorf("engine: buy outcome: %w", err)
	}

	e.finish(ctx, m, domain.MarketEvent{
		Type:      domain.EventOutcomeBought,
		Market:    m.Address,
		Actor:     buyer,
		Amount:    amount,
		SharesOut: quote.sharesOut,
		Side:      side,
	})
	e.logger.DebugContext(ctx, "engine: outcome bought",
		slog.String("market", m.Address.String()),
		slog.String("side", string(side)),
		slog.Uint64("amount", amount),
		slog.Uint64("shares_out", quote.sharesOut),
	)
	return m, quote.sharesOut, nil
}
