package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alanyoungcy/eventum/internal/domain"
)

func poolMarket(yes, no uint64, feeBps uint32) *domain.Market {
	return &domain.Market{
		YesReserve: yes,
		NoReserve:  no,
		FeeBps:     feeBps,
	}
}

func TestPriceTradeWorkedExample(t *testing.T) {
	// 1000/1000 reserves, no fee. Buying YES for 100 mints 100 into both
	// sides, then restores the product: floor(1_000_000 / 1100) = 909, so
	// the buyer takes 1100 - 909 = 191 YES tokens.
	q, err := priceTrade(poolMarket(1_000, 1_000, 0), 100, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), q.fee)
	assert.Equal(t, uint64(100), q.net)
	assert.Equal(t, uint64(191), q.sharesOut)
	assert.Equal(t, uint64(909), q.yesReserve)
	assert.Equal(t, uint64(1_100), q.noReserve)
}

func TestPriceTradeSymmetry(t *testing.T) {
	yes, err := priceTrade(poolMarket(1_000, 1_000, 0), 100, domain.OutcomeYes)
	require.NoError(t, err)
	no, err := priceTrade(poolMarket(1_000, 1_000, 0), 100, domain.OutcomeNo)
	require.NoError(t, err)

	assert.Equal(t, yes.sharesOut, no.sharesOut)
	assert.Equal(t, yes.yesReserve, no.noReserve)
	assert.Equal(t, yes.noReserve, no.yesReserve)
}

func TestPriceTradeFee(t *testing.T) {
	// 5% fee on 100: fee 5, net 95. Both reserves mint to 1095 and
	// floor(1_000_000 / 1095) = 913, so shares_out = 1095 - 913 = 182.
	q, err := priceTrade(poolMarket(1_000, 1_000, 500), 100, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), q.fee)
	assert.Equal(t, uint64(95), q.net)
	assert.Equal(t, uint64(182), q.sharesOut)
	assert.Equal(t, uint64(913), q.yesReserve)
	assert.Equal(t, uint64(1_095), q.noReserve)
}

func TestPriceTradeExceedsReserves(t *testing.T) {
	// Buying far past the pool's depth still succeeds: 1_000_000 into a
	// 1000/1000 pool mints both sides to 1_001_000 and the restored reserve
	// floors to floor(1_000_000 / 1_001_000) = 0, so the buyer takes the
	// entire bought side.
	q, err := priceTrade(poolMarket(1_000, 1_000, 0), 1_000_000, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_001_000), q.sharesOut)
	assert.Zero(t, q.yesReserve)
	assert.Equal(t, uint64(1_001_000), q.noReserve)
}

func TestPriceTradeSkewedPool(t *testing.T) {
	// A 1/1_000_000 pool prices NO near zero: one unit of collateral buys
	// 1_000_001 - floor(1_000_000 / 2) = 500_001 NO tokens.
	q, err := priceTrade(poolMarket(1, 1_000_000, 0), 1, domain.OutcomeNo)
	require.NoError(t, err)

	assert.Equal(t, uint64(500_001), q.sharesOut)
	assert.Equal(t, uint64(2), q.yesReserve)
	assert.Equal(t, uint64(500_000), q.noReserve)
}

func TestPriceTradeErrors(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		_, err := priceTrade(poolMarket(1_000, 1_000, 0), 0, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := priceTrade(poolMarket(0, 0, 0), 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	})

	t.Run("full fee leaves nothing", func(t *testing.T) {
		_, err := priceTrade(poolMarket(1_000, 1_000, 10_000), 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("reserve overflow", func(t *testing.T) {
		_, err := priceTrade(poolMarket(1<<63, 1_000, 0), 1<<63, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
	})
}

func TestPriceTradeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		yes := rapid.Uint64Range(2, 1_000_000_000).Draw(t, "yes")
		no := rapid.Uint64Range(2, 1_000_000_000).Draw(t, "no")
		amount := rapid.Uint64Range(1, 1_000_000_000_000).Draw(t, "amount")
		side := domain.OutcomeYes
		if rapid.Bool().Draw(t, "no_side") {
			side = domain.OutcomeNo
		}

		q, err := priceTrade(poolMarket(yes, no, 0), amount, side)
		require.NoError(t, err)

		// The unbought reserve grows by the net amount and stays positive;
		// the bought reserve may floor to zero when the trade exceeds the
		// pool's depth. The buyer always receives more shares than the net
		// amount paid.
		unbought := q.noReserve
		if side == domain.OutcomeNo {
			unbought = q.yesReserve
		}
		assert.Positive(t, unbought)
		assert.Greater(t, q.sharesOut, amount)

		// Floor division keeps the post-trade product within one unit of
		// the other reserve below the pre-trade product.
		before := mul128(yes, no)
		after := mul128(q.yesReserve, q.noReserve)
		assert.False(t, less128(before, after), "product may not increase past K")
		slack := add128(after, unbought)
		assert.True(t, less128(before, slack), "product may not drop by a full unit of the other reserve")
	})
}

func TestBuyOutcomeUpdatesLedgerAndReserves(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 0)

	f.fund(t, alice, 1_000)
	f.fund(t, bob, 100)
	_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)

	updated, shares, err := e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, uint64(191), shares)
	assert.Equal(t, uint64(909), updated.YesReserve)
	assert.Equal(t, uint64(1_100), updated.NoReserve)

	// The full payment sits in the vault; the buyer holds the minted side.
	assert.Equal(t, uint64(1_100), f.collateralOf(t, m.VaultAddress))
	assert.Zero(t, f.collateralOf(t, bob))
	yesBal, err := f.ledger.Balance(ctx, m.YesMint, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(191), yesBal)
}

func TestBuyOutcomeFeeStaysInVault(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 500)

	f.fund(t, alice, 1_000)
	f.fund(t, bob, 100)
	_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)

	updated, shares, err := e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
	require.NoError(t, err)

	// Reserves move by the net amount only; the 5-unit fee is vault
	// collateral with no tokens behind it, accruing to liquidity holders.
	assert.Equal(t, uint64(182), shares)
	assert.Equal(t, uint64(913), updated.YesReserve)
	assert.Equal(t, uint64(1_095), updated.NoReserve)
	assert.Equal(t, uint64(1_100), f.collateralOf(t, m.VaultAddress))
}

func TestBuyOutcomeGates(t *testing.T) {
	t.Run("invalid side", func(t *testing.T) {
		e, f := newTestEngine(t)
		m := initMarket(t, e, f, 0)
		_, _, err := e.BuyOutcome(context.Background(), m.Address, bob, 100, domain.Outcome("draw"))
		assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
	})

	t.Run("resolved market", func(t *testing.T) {
		e, f := newTestEngine(t)
		ctx := context.Background()
		m := initMarket(t, e, f, 0)
		_, err := e.Resolve(ctx, m.Address, oracle, domain.OutcomeYes)
		require.NoError(t, err)
		_, _, err = e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrMarketResolved)
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		e, f := newTestEngine(t)
		ctx := context.Background()
		m := initMarket(t, e, f, 0)
		f.fund(t, alice, 1_000)
		_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
		require.NoError(t, err)

		f.fund(t, bob, 100)
		f.now = time.Unix(m.EndTime, 0).UTC()
		_, _, err = e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrMarketExpired)
	})

	t.Run("insufficient collateral", func(t *testing.T) {
		e, f := newTestEngine(t)
		ctx := context.Background()
		m := initMarket(t, e, f, 0)
		f.fund(t, alice, 1_000)
		_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
		require.NoError(t, err)

		f.fund(t, bob, 99)
		_, _, err = e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		// The failed trade left no trace on the pool.
		got, err := e.GetMarket(ctx, m.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000), got.YesReserve)
		assert.Equal(t, uint64(1_000), got.NoReserve)
		assert.Equal(t, uint64(99), f.collateralOf(t, bob))
	})

	t.Run("no liquidity", func(t *testing.T) {
		e, f := newTestEngine(t)
		m := initMarket(t, e, f, 0)
		f.fund(t, bob, 100)
		_, _, err := e.BuyOutcome(context.Background(), m.Address, bob, 100, domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	})
}

func TestBuyOutcomeDrainsReserve(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 0)

	f.fund(t, alice, 1_500)
	f.fund(t, bob, 1_000_010)
	_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)

	updated, shares, err := e.BuyOutcome(ctx, m.Address, bob, 1_000_000, domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_001_000), shares)
	assert.Zero(t, updated.YesReserve)
	assert.Equal(t, uint64(1_001_000), updated.NoReserve)

	// A drained side is terminal for the pool: no further trades or
	// deposits are accepted.
	_, _, err = e.BuyOutcome(ctx, m.Address, bob, 10, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	_, _, err = e.AddLiquidity(ctx, m.Address, alice, 500)
	assert.ErrorIs(t, err, domain.ErrUnbalancedPool)

	// Settlement is unaffected: the vault holds the full payment and covers
	// every winning token.
	_, err = e.Resolve(ctx, m.Address, oracle, domain.OutcomeYes)
	require.NoError(t, err)
	_, paid, err := e.Claim(ctx, m.Address, bob, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_001_000), paid)
	assert.Zero(t, f.collateralOf(t, m.VaultAddress))
}
