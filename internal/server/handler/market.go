package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/eventum/internal/domain"
	"github.com/alanyoungcy/eventum/internal/engine"
)

// SettlementEngine defines the engine operations the market handler needs.
// Declared locally so the handler package does not depend on the concrete
// engine beyond its parameter types.
type SettlementEngine interface {
	Initialize(ctx context.Context, p engine.InitializeParams) (domain.Market, error)
	AddLiquidity(ctx context.Context, market, provider domain.Address, amount uint64) (domain.Market, uint64, error)
	BuyOutcome(ctx context.Context, market, buyer domain.Address, amount uint64, side domain.Outcome) (domain.Market, uint64, error)
	Resolve(ctx context.Context, market, caller domain.Address, outcome domain.Outcome) (domain.Market, error)
	Claim(ctx context.Context, market, claimant domain.Address, burnLosing bool) (domain.Market, uint64, error)
	GetMarket(ctx context.Context, addr domain.Address) (domain.Market, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
}

// MarketHandler serves the settlement operation endpoints.
type MarketHandler struct {
	engine SettlementEngine
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given engine and logger.
func NewMarketHandler(eng SettlementEngine, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		engine: eng,
		logger: logger,
	}
}

// listMarketsResponse wraps the list endpoint output with its pagination.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns market records with pagination.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets, err := h.engine.ListMarkets(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market record by derived address.
// GET /api/markets/{address}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	m, err := h.engine.GetMarket(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// InitializeMarket creates a new market.
// POST /api/markets
func (h *MarketHandler) InitializeMarket(w http.ResponseWriter, r *http.Request) {
	var p engine.InitializeParams
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := h.engine.Initialize(r.Context(), p)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: initialize failed",
			slog.Uint64("market_id", p.MarketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// liquidityRequest is the add-liquidity request body.
type liquidityRequest struct {
	Provider domain.Address `json:"provider"`
	Amount   uint64         `json:"amount"`
}

// liquidityResponse carries the updated record and the liquidity tokens
// minted to the provider.
type liquidityResponse struct {
	Market domain.Market `json:"market"`
	LPOut  uint64        `json:"lp_out"`
}

// AddLiquidity deposits collateral into a market's pool.
// POST /api/markets/{address}/liquidity
func (h *MarketHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, lpOut, err := h.engine.AddLiquidity(r.Context(), addr, req.Provider, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liquidityResponse{Market: m, LPOut: lpOut})
}

// buyRequest is the buy-outcome request body.
type buyRequest struct {
	Buyer  domain.Address `json:"buyer"`
	Amount uint64         `json:"amount"`
	Side   domain.Outcome `json:"side"`
}

// buyResponse carries the updated record and the outcome tokens minted.
type buyResponse struct {
	Market    domain.Market `json:"market"`
	SharesOut uint64        `json:"shares_out"`
}

// BuyOutcome executes a trade against the fixed-product market maker.
// POST /api/markets/{address}/buy
func (h *MarketHandler) BuyOutcome(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	var req buyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, shares, err := h.engine.BuyOutcome(r.Context(), addr, req.Buyer, req.Amount, req.Side)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buyResponse{Market: m, SharesOut: shares})
}

// resolveRequest is the resolve request body.
type resolveRequest struct {
	Caller  domain.Address `json:"caller"`
	Outcome domain.Outcome `json:"outcome"`
}

// Resolve finalizes a market outcome.
// POST /api/markets/{address}/resolve
func (h *MarketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := h.engine.Resolve(r.Context(), addr, req.Caller, req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// claimRequest is the claim request body.
type claimRequest struct {
	Claimant   domain.Address `json:"claimant"`
	BurnLosing bool           `json:"burn_losing"`
}

// claimResponse carries the updated record and the collateral paid out.
type claimResponse struct {
	Market domain.Market `json:"market"`
	Paid   uint64        `json:"paid"`
}

// Claim redeems a claimant's winning-outcome tokens for collateral.
// POST /api/markets/{address}/claim
func (h *MarketHandler) Claim(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, paid, err := h.engine.Claim(r.Context(), addr, req.Claimant, req.BurnLosing)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Market: m, Paid: paid})
}
