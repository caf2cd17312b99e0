package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/usecase"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// handleWebhook is the HTTP ingestion path. The PIN is rejected with 403
// here at the boundary; the validator re-checks it so the email path is
// equally safe.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "malformed JSON"})
		return
	}

	if s.pin != "" {
		if pin, _ := payload[usecase.FieldPIN].(string); pin != s.pin {
			s.logger.Warn("Invalid webhook PIN received")
			s.writeJSON(w, http.StatusForbidden, map[string]string{"status": "error", "message": "invalid PIN"})
			return
		}
	}

	result := s.processor.Process(r.Context(), usecase.SourceWebhook, payload)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePositionsJSON(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.portfolio.Positions(r.Context()))
}

func (s *Server) handlePendingOrdersJSON(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.portfolio.PendingOrders(r.Context()))
}

func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.portfolio.SummaryStats(r.Context()))
}

func (s *Server) handleSignalsJSON(w http.ResponseWriter, r *http.Request) {
	signals, err := s.signals.ListSignals(r.Context(), 100)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to list signals"})
		return
	}
	s.writeJSON(w, http.StatusOK, signals)
}
