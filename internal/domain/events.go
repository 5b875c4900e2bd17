package domain

import "time"

// Signal bus channels.
const (
	ChannelMarkets = "markets"
)

// Market event types published on ChannelMarkets.
const (
	EventMarketInitialized = "market_initialized"
	EventLiquidityAdded    = "liquidity_added"
	EventOutcomeBought     = "outcome_bought"
	EventMarketResolved    = "market_resolved"
	EventWinningsClaimed   = "winnings_claimed"
)

// MarketEvent is the JSON payload published after a committed operation.
type MarketEvent struct {
	Type      string    `json:"type"`
	Market    Address   `json:"market"`
	Actor     Address   `json:"actor"`
	Amount    uint64    `json:"amount,omitempty"`
	SharesOut uint64    `json:"shares_out,omitempty"`
	Side      Outcome   `json:"side,omitempty"`
	Question  string    `json:"question,omitempty"`
	At        time.Time `json:"at"`
}
