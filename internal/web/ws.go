package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type snapshot struct {
	Positions     interface{} `json:"positions"`
	PendingOrders interface{} `json:"pending_orders"`
	Stats         interface{} `json:"stats"`
}

// handleWS pushes portfolio snapshots to the dashboard on the configured
// refresh interval, so the page does not re-poll the JSON endpoints.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WS upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain the reader so close frames are handled
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		snap := snapshot{
			Positions:     s.portfolio.Positions(ctx),
			PendingOrders: s.portfolio.PendingOrders(ctx),
			Stats:         s.portfolio.SummaryStats(ctx),
		}
		if err := conn.WriteJSON(snap); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
