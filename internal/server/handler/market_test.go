package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventum/internal/address"
	"github.com/alanyoungcy/eventum/internal/domain"
	"github.com/alanyoungcy/eventum/internal/engine"
	"github.com/alanyoungcy/eventum/internal/store/memory"
)

var (
	testCreator = address.Identity("creator")
	testOracle  = address.Identity("oracle")
	testTrader  = address.Identity("trader")
)

type testAPI struct {
	mux    *http.ServeMux
	ledger *memory.Ledger
	now    time.Time
}

// newTestAPI wires a market handler to a real engine over in-memory backends,
// routed with the same patterns as the production server so path values
// resolve.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		ledger: memory.NewLedger(),
		now:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, api.ledger.CreateClass(context.Background(), address.CollateralClass()))

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.Deps{
		Markets: store,
		Ledger:  api.ledger,
		Audit:   store,
		Atomic:  store,
		Locks:   memory.NewLockManager(),
		Cache:   memory.NewCache(),
		Bus:     memory.NewSignalBus(),
		Logger:  logger,
		Clock:   func() time.Time { return api.now },
	})

	h := NewMarketHandler(eng, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("POST /api/markets", h.InitializeMarket)
	mux.HandleFunc("GET /api/markets/{address}", h.GetMarket)
	mux.HandleFunc("POST /api/markets/{address}/liquidity", h.AddLiquidity)
	mux.HandleFunc("POST /api/markets/{address}/buy", h.BuyOutcome)
	mux.HandleFunc("POST /api/markets/{address}/resolve", h.Resolve)
	mux.HandleFunc("POST /api/markets/{address}/claim", h.Claim)
	api.mux = mux
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (api *testAPI) createMarket(t *testing.T, marketID uint64) domain.Market {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/markets", engine.InitializeParams{
		MarketID:        marketID,
		Creator:         testCreator,
		OracleAuthority: testOracle,
		EndTime:         api.now.Add(24 * time.Hour).Unix(),
		Question:        "Will the launch slip to Q4?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[domain.Market](t, rec)
}

func (api *testAPI) fund(t *testing.T, holder domain.Address, amount uint64) {
	t.Helper()
	require.NoError(t, api.ledger.Mint(context.Background(), address.CollateralClass(), holder, amount))
}

func TestMarketLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	m := api.createMarket(t, 1)
	base := "/api/markets/" + m.Address.String()

	api.fund(t, testCreator, 1_000)
	api.fund(t, testTrader, 100)

	rec := api.do(t, http.MethodPost, base+"/liquidity", liquidityRequest{
		Provider: testCreator,
		Amount:   1_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	liq := decode[liquidityResponse](t, rec)
	assert.Equal(t, uint64(1_000), liq.LPOut)
	assert.Equal(t, uint64(1_000), liq.Market.YesReserve)

	rec = api.do(t, http.MethodPost, base+"/buy", buyRequest{
		Buyer:  testTrader,
		Amount: 100,
		Side:   domain.OutcomeYes,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	buy := decode[buyResponse](t, rec)
	assert.Equal(t, uint64(191), buy.SharesOut)
	assert.Equal(t, uint64(909), buy.Market.YesReserve)
	assert.Equal(t, uint64(1_100), buy.Market.NoReserve)

	rec = api.do(t, http.MethodPost, base+"/resolve", resolveRequest{
		Caller:  testOracle,
		Outcome: domain.OutcomeYes,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decode[domain.Market](t, rec)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, domain.OutcomeYes, resolved.WinningOutcome)

	rec = api.do(t, http.MethodPost, base+"/claim", claimRequest{Claimant: testTrader})
	require.Equal(t, http.StatusOK, rec.Code)
	claim := decode[claimResponse](t, rec)
	assert.Equal(t, uint64(191), claim.Paid)

	rec = api.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Market](t, rec)
	assert.True(t, got.Resolved)
}

func TestInitializeMarketErrors(t *testing.T) {
	api := newTestAPI(t)
	api.createMarket(t, 1)

	t.Run("duplicate", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/markets", engine.InitializeParams{
			MarketID:        1,
			Creator:         testCreator,
			OracleAuthority: testOracle,
			EndTime:         api.now.Add(24 * time.Hour).Unix(),
			Question:        "q",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/markets", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		api.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/markets", bytes.NewBufferString(`{"bogus":1}`))
		rec := httptest.NewRecorder()
		api.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("expired end time", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/markets", engine.InitializeParams{
			MarketID:        2,
			Creator:         testCreator,
			OracleAuthority: testOracle,
			EndTime:         api.now.Add(-time.Hour).Unix(),
			Question:        "q",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetMarketErrors(t *testing.T) {
	api := newTestAPI(t)

	t.Run("invalid address", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/markets/nothex", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown address", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/markets/"+domain.Address{1}.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBuyOutcomeErrors(t *testing.T) {
	api := newTestAPI(t)
	m := api.createMarket(t, 1)
	base := "/api/markets/" + m.Address.String()

	api.fund(t, testCreator, 1_000)
	api.fund(t, testTrader, 100)
	rec := api.do(t, http.MethodPost, base+"/liquidity", liquidityRequest{Provider: testCreator, Amount: 1_000})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("invalid side", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, base+"/buy", buyRequest{Buyer: testTrader, Amount: 10, Side: "maybe"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("after resolution", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, base+"/resolve", resolveRequest{Caller: testOracle, Outcome: domain.OutcomeNo})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodPost, base+"/buy", buyRequest{Buyer: testTrader, Amount: 10, Side: domain.OutcomeYes})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestResolveForbidden(t *testing.T) {
	api := newTestAPI(t)
	m := api.createMarket(t, 1)

	rec := api.do(t, http.MethodPost, "/api/markets/"+m.Address.String()+"/resolve", resolveRequest{
		Caller:  testTrader,
		Outcome: domain.OutcomeYes,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClaimBeforeResolution(t *testing.T) {
	api := newTestAPI(t)
	m := api.createMarket(t, 1)

	rec := api.do(t, http.MethodPost, "/api/markets/"+m.Address.String()+"/claim", claimRequest{Claimant: testTrader})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListMarketsPagination(t *testing.T) {
	api := newTestAPI(t)
	for id := uint64(1); id <= 3; id++ {
		api.createMarket(t, id)
		api.now = api.now.Add(time.Minute)
	}

	rec := api.do(t, http.MethodGet, "/api/markets?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[listMarketsResponse](t, rec)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 1, resp.Offset)
	require.Len(t, resp.Markets, 2)
	assert.Equal(t, uint64(2), resp.Markets[0].MarketID)
	assert.Equal(t, uint64(3), resp.Markets[1].MarketID)

	rec = api.do(t, http.MethodGet, "/api/markets?limit=-5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[listMarketsResponse](t, rec)
	assert.Equal(t, 50, resp.Limit)
	assert.Len(t, resp.Markets, 3)
}
