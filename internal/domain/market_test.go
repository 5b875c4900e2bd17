package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	var a Address
	a[0] = 0xab
	a[31] = 0x01

	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	prefixed, err := ParseAddress("0x" + a.String())
	require.NoError(t, err)
	assert.Equal(t, a, prefixed)

	_, err = ParseAddress("abcd")
	assert.Error(t, err)
	_, err = ParseAddress("zz" + a.String()[2:])
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	var a Address
	a[0] = 0xff

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"`+a.String()+`"`, string(data))

	var back Address
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestOutcome(t *testing.T) {
	assert.True(t, OutcomeYes.Valid())
	assert.True(t, OutcomeNo.Valid())
	assert.False(t, Outcome("maybe").Valid())
	assert.False(t, Outcome("").Valid())

	assert.Equal(t, OutcomeNo, OutcomeYes.Opposite())
	assert.Equal(t, OutcomeYes, OutcomeNo.Opposite())
}

func TestTradingOpen(t *testing.T) {
	m := Market{StartTime: 100, EndTime: 200}

	assert.False(t, m.TradingOpen(99))
	assert.True(t, m.TradingOpen(100))
	assert.True(t, m.TradingOpen(199))
	// The end bound is exclusive.
	assert.False(t, m.TradingOpen(200))
}

func TestMarketStatus(t *testing.T) {
	m := Market{}
	assert.Equal(t, MarketStatusOpen, m.Status())
	m.Resolved = true
	assert.Equal(t, MarketStatusResolved, m.Status())
}

func TestOutcomeMint(t *testing.T) {
	m := Market{YesMint: Address{1}, NoMint: Address{2}}
	assert.Equal(t, m.YesMint, m.OutcomeMint(OutcomeYes))
	assert.Equal(t, m.NoMint, m.OutcomeMint(OutcomeNo))
}
