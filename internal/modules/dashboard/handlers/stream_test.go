package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/alerts"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/prices"
)

func setupStreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()
	registry, err := domain.NewRegistry(
		domain.Asset{Key: "Gold", Ticker: "GC=F"},
		domain.Asset{Key: "Bitcoin", Ticker: "BTC-USD"},
	)
	require.NoError(t, err)

	svc := dashboard.NewService(
		prices.NewNormalizer(&stubFetcher{raw: sampleTable()}, registry, time.Second, log),
		optimization.NewEstimator(log),
		optimization.NewMVOptimizer(log),
		alerts.NewDetector(log),
		dashboard.Defaults{},
		log,
	)

	h := NewHandler(svc, log)
	h.minStreamInterval = time.Millisecond

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterStreamRoutes(r)
		h.RegisterRoutes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestDashboardStream_PushesSnapshots(t *testing.T) {
	srv := setupStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/dashboard/stream?every=20ms&threshold=10"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var runIDs []string
	for i := 0; i < 2; i++ {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, typ)

		var msg StreamMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "snapshot", msg.Type)
		require.NotNil(t, msg.Data)
		assert.Equal(t, 10.0, msg.Data.ThresholdPercent)
		require.NotNil(t, msg.Data.Allocation)
		runIDs = append(runIDs, msg.Data.RunID)
	}
	assert.NotEqual(t, runIDs[0], runIDs[1])
}

func TestDashboardStream_RejectsBadParameters(t *testing.T) {
	srv := setupStreamServer(t)

	for _, query := range []string{"?period=3y", "?every=soon", "?every=-1s", "?threshold=99"} {
		resp, err := http.Get(srv.URL + "/api/dashboard/stream" + query)
		require.NoError(t, err, query)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestStreamInterval_Default(t *testing.T) {
	h := &Handler{minStreamInterval: MinStreamInterval}

	d, err := h.streamInterval(httptest.NewRequest(http.MethodGet, "/api/dashboard/stream", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultStreamInterval, d)

	_, err = h.streamInterval(httptest.NewRequest(http.MethodGet, "/api/dashboard/stream?every=1s", nil))
	assert.ErrorIs(t, err, dashboard.ErrInvalidRequest)
}
