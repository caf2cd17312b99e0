package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
	"github.com/vitos/crypto_signal_relay/internal/usecase"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	processor *usecase.SignalProcessor
	portfolio *usecase.PortfolioService
	mutations *usecase.MutationService
	signals   domain.SignalRepository
	auth      *Auth
	pin       string
	webhook   bool
	refresh   time.Duration
	logger    *zap.Logger
}

func NewServer(
	port int,
	processor *usecase.SignalProcessor,
	portfolio *usecase.PortfolioService,
	mutations *usecase.MutationService,
	signals domain.SignalRepository,
	auth *Auth,
	pin string,
	webhookEnabled bool,
	refresh time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		processor: processor,
		portfolio: portfolio,
		mutations: mutations,
		signals:   signals,
		auth:      auth,
		pin:       pin,
		webhook:   webhookEnabled,
		refresh:   refresh,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Signal ingestion
	if s.webhook {
		s.router.HandleFunc("POST /webhook", s.handleWebhook)
	}

	// Session
	s.router.HandleFunc("GET /login", s.handleLoginPage)
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("GET /logout", s.handleLogout)

	// Dashboard
	s.router.HandleFunc("GET /{$}", s.auth.Require(s.handleDashboard))

	// JSON APIs
	s.router.HandleFunc("GET /positions", s.auth.Require(s.handlePositionsJSON))
	s.router.HandleFunc("GET /pending_orders", s.auth.Require(s.handlePendingOrdersJSON))
	s.router.HandleFunc("GET /signals", s.auth.Require(s.handleSignalsJSON))
	s.router.HandleFunc("GET /api/summary", s.auth.Require(s.handleSummaryJSON))

	// Mutations
	s.router.HandleFunc("POST /close_position", s.auth.Require(s.handleClosePosition))
	s.router.HandleFunc("POST /close_all_positions", s.auth.Require(s.handleCloseAllPositions))
	s.router.HandleFunc("POST /cancel_order", s.auth.Require(s.handleCancelOrder))

	// Live feed
	s.router.HandleFunc("GET /ws", s.auth.Require(s.handleWS))
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
