package address

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/eventum/internal/domain"
)

func TestMarketDeterministic(t *testing.T) {
	creator := Identity("creator")

	a := Market(creator, 7)
	b := Market(creator, 7)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())

	// A different id or creator changes the address.
	assert.NotEqual(t, a, Market(creator, 8))
	assert.NotEqual(t, a, Market(Identity("other"), 7))
}

func TestSubordinateAddressesDistinct(t *testing.T) {
	market := Market(Identity("creator"), 1)

	derived := []domain.Address{
		market,
		Vault(market),
		YesMint(market),
		NoMint(market),
		LPMint(market),
		CollateralClass(),
	}
	seen := make(map[domain.Address]bool)
	for _, a := range derived {
		assert.False(t, a.IsZero())
		assert.False(t, seen[a], "duplicate derivation %s", a)
		seen[a] = true
	}
}

func TestVerifyMarket(t *testing.T) {
	creator := Identity("creator")
	addr := Market(creator, 42)

	assert.True(t, VerifyMarket(addr, creator, 42))
	assert.False(t, VerifyMarket(addr, creator, 43))
	assert.False(t, VerifyMarket(addr, Identity("other"), 42))
	assert.False(t, VerifyMarket(domain.Address{}, creator, 42))
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, Identity("alice"), Identity("alice"))
	assert.NotEqual(t, Identity("alice"), Identity("bob"))
}
