package domain

import "time"

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether the outcome is one of the two recognized sides.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the other side.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusResolved MarketStatus = "resolved"
)

// MaxQuestionLen is the maximum byte length of a market question.
const MaxQuestionLen = 100

// MaxFeeBps is the fee ceiling in basis points (100%).
const MaxFeeBps = 10_000

// Market is the settlement record for one binary prediction market. It is
// owned exclusively by the engine and mutated only through the five
// operations (initialize, add-liquidity, buy-outcome, resolve, claim).
type Market struct {
	Address         Address `json:"address"`
	MarketID        uint64  `json:"market_id"`
	Creator         Address `json:"creator"`
	OracleAuthority Address `json:"oracle_authority"`
	Question        string  `json:"question"`
	FeeBps          uint32  `json:"fee_bps"`

	// Trading window, Unix seconds. Trading is permitted while the current
	// time is within [StartTime, EndTime).
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`

	// Fixed-product reserves. Both zero until the first liquidity deposit.
	YesReserve uint64 `json:"yes_reserve"`
	NoReserve  uint64 `json:"no_reserve"`

	// TotalLiquidity is cumulative collateral ever deposited as liquidity.
	// It is a share-math denominator, not a live balance.
	TotalLiquidity uint64 `json:"total_liquidity"`
	// LPSupply is the outstanding liquidity-token supply. Zero iff no
	// liquidity has ever been added.
	LPSupply uint64 `json:"lp_supply"`

	Resolved       bool    `json:"resolved"`
	WinningOutcome Outcome `json:"winning_outcome,omitempty"`

	// Subordinate addresses, all derived from Address.
	VaultAddress Address `json:"vault_address"`
	YesMint      Address `json:"yes_mint"`
	NoMint       Address `json:"no_mint"`
	LPMint       Address `json:"lp_mint"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status returns the formal lifecycle state.
func (m *Market) Status() MarketStatus {
	if m.Resolved {
		return MarketStatusResolved
	}
	return MarketStatusOpen
}

// TradingOpen reports whether the trading window is open at the given Unix
// time. The end bound is exclusive.
func (m *Market) TradingOpen(now int64) bool {
	return now >= m.StartTime && now < m.EndTime
}

// OutcomeMint returns the token class address for the given side.
func (m *Market) OutcomeMint(o Outcome) Address {
	if o == OutcomeYes {
		return m.YesMint
	}
	return m.NoMint
}
