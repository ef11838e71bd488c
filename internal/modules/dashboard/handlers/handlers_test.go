package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

type stubFetcher struct {
	raw *prices.RawTable
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context, tickers []string, period domain.Period, interval domain.Interval) (*prices.RawTable, error) {
	return f.raw, f.err
}

func sampleTable() *prices.RawTable {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, 5)
	for i := range ts {
		ts[i] = start.AddDate(0, 0, i)
	}
	return &prices.RawTable{
		Timestamps: ts,
		Columns: []prices.RawColumn{
			{Field: prices.FieldClose, Ticker: "GC=F", Values: []float64{2000, 2010, 2005, 2030, 2040}},
			{Field: prices.FieldClose, Ticker: "BTC-USD", Values: []float64{40000, 42000, 35700, 37000, 39000}},
		},
	}
}

func setupRouter(t *testing.T, fetcher prices.Fetcher) http.Handler {
	log := zerolog.Nop()
	registry, err := domain.NewRegistry(
		domain.Asset{Key: "Gold", Ticker: "GC=F"},
		domain.Asset{Key: "Bitcoin", Ticker: "BTC-USD"},
	)
	require.NoError(t, err)

	svc := dashboard.NewService(
		prices.NewNormalizer(fetcher, registry, time.Second, log),
		optimization.NewEstimator(log),
		optimization.NewMVOptimizer(log),
		alerts.NewDetector(log),
		dashboard.Defaults{},
		log,
	)

	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, log).RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleGetAssets(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{}), "/api/assets")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	data := body["data"].(map[string]interface{})
	assets := data["assets"].([]interface{})
	require.Len(t, assets, 2)
	assert.Equal(t, "Gold", assets[0].(map[string]interface{})["key"])
	assert.NotNil(t, body["metadata"])
}

func TestHandleGetPrices(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{raw: sampleTable()}), "/api/prices?period=6mo")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, false, data["empty"])
	assert.Len(t, data["timestamps"], 5)
	assert.Len(t, data["series"], 2)
}

func TestHandleGetPrices_EmptyOnProviderFailure(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{err: errors.New("timeout")}), "/api/prices")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["empty"])
	assert.Empty(t, data["timestamps"])
}

func TestHandleGetAllocation(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{raw: sampleTable()}), "/api/allocation?strategy=min_volatility")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "min_volatility", data["strategy"])
	assert.Equal(t, "arithmetic", data["return_method"])

	sum := 0.0
	for _, w := range data["weights"].([]interface{}) {
		sum += w.(map[string]interface{})["weight"].(float64)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	perf := data["performance"].(map[string]interface{})
	assert.Contains(t, perf, "sharpe")
}

func TestHandleGetAllocation_GeometricReturns(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{raw: sampleTable()}), "/api/allocation?return_method=geometric")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "geometric", data["return_method"])
}

func TestHandleGetAllocation_NoData(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{err: errors.New("down")}), "/api/allocation")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "data unavailable")
}

func TestHandleGetAlerts(t *testing.T) {
	router := setupRouter(t, &stubFetcher{raw: sampleTable()})

	w, body := get(t, router, "/api/alerts?threshold=10")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	triggered := data["alerts"].([]interface{})
	require.Len(t, triggered, 1)
	alert := triggered[0].(map[string]interface{})
	assert.Equal(t, "Bitcoin", alert["asset"])
	assert.InDelta(t, -15.0, alert["min_drop_percent"].(float64), 1e-9)
	assert.Len(t, data["scanned"], 2)

	_, body = get(t, router, "/api/alerts?threshold=20")
	assert.Empty(t, body["data"].(map[string]interface{})["alerts"])
}

func TestHandleGetDashboard(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{raw: sampleTable()}), "/api/dashboard?period=2y&risk_free_rate=0")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["run_id"])
	assert.Equal(t, "2y", data["period"])
	assert.Equal(t, "arithmetic", data["return_method"])
	assert.NotNil(t, data["allocation"])
	assert.Empty(t, data["warnings"])
}

func TestHandleGetDashboard_NoDataWarning(t *testing.T) {
	w, body := get(t, setupRouter(t, &stubFetcher{err: errors.New("down")}), "/api/dashboard")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Nil(t, data["allocation"])
	assert.Equal(t, []interface{}{dashboard.WarningNoData}, data["warnings"])
}

func TestBadRequests(t *testing.T) {
	router := setupRouter(t, &stubFetcher{raw: sampleTable()})

	for _, target := range []string{
		"/api/dashboard?period=3y",
		"/api/dashboard?interval=1h",
		"/api/alerts?threshold=0",
		"/api/alerts?threshold=abc",
		"/api/alerts?threshold=60",
		"/api/allocation?strategy=hrp",
		"/api/allocation?risk_free_rate=x",
		"/api/allocation?assets=Silver",
		"/api/allocation?return_method=log",
	} {
		w, body := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.InsufficientDataError{Rows: 1, Required: 2}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.OptimizationInfeasibleError{Reason: "x"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestFiniteOrNil(t *testing.T) {
	assert.Nil(t, finiteOrNil(nanValue()))
	v := finiteOrNil(1.5)
	require.NotNil(t, v)
	assert.Equal(t, 1.5, *v)
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
