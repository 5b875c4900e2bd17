package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventum/internal/domain"
)

func TestPriceLiquidityBootstrap(t *testing.T) {
	q, err := priceLiquidity(&domain.Market{}, 1_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000), q.lpOut)
	assert.Equal(t, uint64(1_000), q.yesReserve)
	assert.Equal(t, uint64(1_000), q.noReserve)
	assert.Equal(t, uint64(1_000), q.lpSupply)
	assert.Equal(t, uint64(1_000), q.totalLiquidity)
}

func TestPriceLiquidityProportional(t *testing.T) {
	m := &domain.Market{
		YesReserve:     1_000,
		NoReserve:      1_000,
		LPSupply:       1_000,
		TotalLiquidity: 1_000,
	}

	q, err := priceLiquidity(m, 500)
	require.NoError(t, err)

	assert.Equal(t, uint64(500), q.lpOut)
	assert.Equal(t, uint64(1_500), q.yesReserve)
	assert.Equal(t, uint64(1_500), q.noReserve)
	assert.Equal(t, uint64(1_500), q.lpSupply)
	assert.Equal(t, uint64(1_500), q.totalLiquidity)
}

func TestPriceLiquidityErrors(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		_, err := priceLiquidity(&domain.Market{}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unbalanced pool", func(t *testing.T) {
		m := &domain.Market{YesReserve: 909, NoReserve: 1_100, LPSupply: 1_000}
		_, err := priceLiquidity(m, 500)
		assert.ErrorIs(t, err, domain.ErrUnbalancedPool)
	})

	t.Run("reserves without supply", func(t *testing.T) {
		m := &domain.Market{YesReserve: 100, NoReserve: 100}
		_, err := priceLiquidity(m, 500)
		assert.ErrorIs(t, err, domain.ErrUnbalancedPool)
	})

	t.Run("deposit too small to mint", func(t *testing.T) {
		m := &domain.Market{YesReserve: 1_000, NoReserve: 1_000, LPSupply: 10}
		_, err := priceLiquidity(m, 50)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestAddLiquidityBootstrap(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 0)

	f.fund(t, alice, 1_000)
	updated, lpOut, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000), lpOut)
	assert.Equal(t, uint64(1_000), updated.YesReserve)
	assert.Equal(t, uint64(1_000), updated.NoReserve)
	assert.Equal(t, uint64(1_000), updated.LPSupply)
	assert.Equal(t, uint64(1_000), updated.TotalLiquidity)

	// Collateral moved into the vault; liquidity tokens to the provider.
	assert.Zero(t, f.collateralOf(t, alice))
	assert.Equal(t, uint64(1_000), f.collateralOf(t, m.VaultAddress))
	lpBal, err := f.ledger.Balance(ctx, m.LPMint, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), lpBal)
}

func TestAddLiquiditySecondDeposit(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 0)

	f.fund(t, alice, 1_000)
	f.fund(t, bob, 500)
	_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)

	updated, lpOut, err := e.AddLiquidity(ctx, m.Address, bob, 500)
	require.NoError(t, err)

	assert.Equal(t, uint64(500), lpOut)
	assert.Equal(t, uint64(1_500), updated.YesReserve)
	assert.Equal(t, uint64(1_500), updated.NoReserve)
	assert.Equal(t, uint64(1_500), updated.LPSupply)
	assert.Equal(t, uint64(1_500), updated.TotalLiquidity)
}

func TestAddLiquidityAfterTradeRejected(t *testing.T) {
	e, f := newTestEngine(t)
	ctx := context.Background()
	m := initMarket(t, e, f, 0)

	f.fund(t, alice, 2_000)
	f.fund(t, bob, 100)
	_, _, err := e.AddLiquidity(ctx, m.Address, alice, 1_000)
	require.NoError(t, err)
	_, _, err = e.BuyOutcome(ctx, m.Address, bob, 100, domain.OutcomeYes)
	require.NoError(t, err)

	// The trade skewed the reserves; further deposits have no sound price.
	_, _, err = e.AddLiquidity(ctx, m.Address, alice, 500)
	assert.ErrorIs(t, err, domain.ErrUnbalancedPool)
}

func TestAddLiquidityGates(t *testing.T) {
	t.Run("resolved market", func(t *testing.T) {
		e, f := newTestEngine(t)
		ctx := context.Background()
		m := initMarket(t, e, f, 0)
		_, err := e.Resolve(ctx, m.Address, oracle, domain.OutcomeNo)
		require.NoError(t, err)

		f.fund(t, alice, 1_000)
		_, _, err = e.AddLiquidity(ctx, m.Address, alice, 1_000)
		assert.ErrorIs(t, err, domain.ErrMarketResolved)
	})

	t.Run("insufficient collateral", func(t *testing.T) {
		e, f := newTestEngine(t)
		m := initMarket(t, e, f, 0)
		f.fund(t, alice, 999)
		_, _, err := e.AddLiquidity(context.Background(), m.Address, alice, 1_000)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})

	t.Run("unknown market", func(t *testing.T) {
		e, f := newTestEngine(t)
		f.fund(t, alice, 1_000)
		_, _, err := e.AddLiquidity(context.Background(), domain.Address{1}, alice, 1_000)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
