package web

import (
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"

	"go.uber.org/zap"
)

// Templates
var templates *template.Template

func InitTemplates(dir string) error {
	var err error
	templates, err = template.ParseGlob(filepath.Join(dir, "*.html"))
	return err
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if err := templates.ExecuteTemplate(w, "login.html", nil); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", 400)
		return
	}

	if !s.auth.CheckPassword(r.FormValue("password")) {
		s.logger.Warn("Invalid login attempt")
		if err := templates.ExecuteTemplate(w, "login.html", map[string]interface{}{"Error": "Invalid password"}); err != nil {
			s.logger.Error("Template error", zap.Error(err))
		}
		return
	}

	if err := s.auth.IssueCookie(w); err != nil {
		s.logger.Error("Failed to issue session", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
		return
	}
	s.logger.Info("User logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	positions := s.portfolio.Positions(ctx)
	pending := s.portfolio.PendingOrders(ctx)
	stats := s.portfolio.SummaryStats(ctx)

	recent, err := s.signals.ListSignals(ctx, 50)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
	}

	data := map[string]interface{}{
		"Positions":     positions,
		"PendingOrders": pending,
		"Stats":         stats,
		"Signals":       recent,
		"Message":       r.URL.Query().Get("message"),
	}

	if err := templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", 400)
		return
	}

	exchange := r.FormValue("EXCHANGE")
	symbol := r.FormValue("SYMBOL")

	result := s.mutations.ClosePosition(r.Context(), exchange, symbol)
	s.logger.Info("Close position requested",
		zap.String("exchange", exchange),
		zap.String("symbol", symbol),
		zap.String("status", string(result.Status)))

	http.Redirect(w, r, "/?message="+url.QueryEscape(result.Message), http.StatusSeeOther)
}

func (s *Server) handleCloseAllPositions(w http.ResponseWriter, r *http.Request) {
	results := s.mutations.CloseAllPositions(r.Context())
	s.logger.Info("Close all positions requested", zap.Int("count", len(results)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", 400)
		return
	}

	exchange := r.FormValue("EXCHANGE")
	orderID := r.FormValue("ORDER_ID")
	symbol := r.FormValue("SYMBOL")

	result := s.mutations.CancelOrder(r.Context(), exchange, orderID, symbol)
	s.logger.Info("Cancel order requested",
		zap.String("exchange", exchange),
		zap.String("order_id", orderID),
		zap.String("status", string(result.Status)))

	http.Redirect(w, r, "/?message="+url.QueryEscape(result.Message), http.StatusSeeOther)
}
