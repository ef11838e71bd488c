package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/aristath/allocator/internal/modules/dashboard"
)

const (
	// DefaultStreamInterval is the refresh period when the client sends none.
	DefaultStreamInterval = time.Minute
	// MinStreamInterval keeps clients from hammering the market-data provider.
	MinStreamInterval = 10 * time.Second

	streamWriteTimeout = 10 * time.Second
)

// StreamMessage is one websocket frame.
type StreamMessage struct {
	Type     string                 `json:"type"`
	Data     *SnapshotDTO           `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
}

// HandleDashboardStream handles GET /api/dashboard/stream. It upgrades to a
// websocket and pushes a fresh snapshot immediately and then every interval.
func (h *Handler) HandleDashboardStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err == nil {
		err = h.service.Validate(req)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	every, err := h.streamInterval(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// CloseRead discards client frames and cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Dur("every", every).Msg("Dashboard stream opened")

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := h.pushSnapshot(ctx, conn, req); err != nil {
			if ctx.Err() == nil {
				h.log.Warn().Err(err).Msg("Dashboard stream write failed")
			}
			return
		}

		select {
		case <-ctx.Done():
			h.log.Info().Msg("Dashboard stream closed")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) streamInterval(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("every")
	if v == "" {
		return DefaultStreamInterval, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid every %q", dashboard.ErrInvalidRequest, v)
	}
	if d < h.minStreamInterval {
		return 0, fmt.Errorf("%w: every must be at least %s", dashboard.ErrInvalidRequest, h.minStreamInterval)
	}
	return d, nil
}

func (h *Handler) pushSnapshot(ctx context.Context, conn *websocket.Conn, req dashboard.Request) error {
	msg := StreamMessage{
		Type: "snapshot",
		Metadata: map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	snap, err := h.service.Build(ctx, req)
	if err != nil {
		msg.Type = "error"
		msg.Error = err.Error()
	} else {
		dto := toSnapshot(snap)
		msg.Data = &dto
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode stream message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
