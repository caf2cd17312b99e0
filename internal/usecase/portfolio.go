package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// PortfolioService aggregates live positions, open orders and balances
// across every configured exchange. One exchange's outage never blocks
// visibility into the others: its entry degrades to an empty list and the
// failure is logged.
type PortfolioService struct {
	registry     domain.ConnectorRegistry
	baseCurrency string
	logger       *zap.Logger
}

func NewPortfolioService(registry domain.ConnectorRegistry, baseCurrency string, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		registry:     registry,
		baseCurrency: baseCurrency,
		logger:       logger,
	}
}

func (s *PortfolioService) Positions(ctx context.Context) map[string][]*domain.Position {
	result := make(map[string][]*domain.Position)
	for _, name := range s.registry.Names() {
		conn, _ := s.registry.Get(name)

		positions, err := conn.FetchPositions(ctx)
		if err != nil {
			s.logger.Error("Failed to fetch positions", zap.String("exchange", name), zap.Error(err))
			result[name] = []*domain.Position{}
			continue
		}
		if positions == nil {
			positions = []*domain.Position{}
		}
		result[name] = positions
	}
	return result
}

func (s *PortfolioService) PendingOrders(ctx context.Context) map[string][]*domain.PendingOrder {
	result := make(map[string][]*domain.PendingOrder)
	for _, name := range s.registry.Names() {
		conn, _ := s.registry.Get(name)

		orders, err := conn.FetchOpenOrders(ctx)
		if err != nil {
			s.logger.Error("Failed to fetch open orders", zap.String("exchange", name), zap.Error(err))
			result[name] = []*domain.PendingOrder{}
			continue
		}
		if orders == nil {
			orders = []*domain.PendingOrder{}
		}
		result[name] = orders
	}
	return result
}

// SummaryStats sums base-currency balances, unrealized PnL and margin in
// use across all exchanges. A failing exchange contributes zero rather
// than aborting the aggregate.
func (s *PortfolioService) SummaryStats(ctx context.Context) *domain.SummaryStats {
	stats := &domain.SummaryStats{}

	for _, name := range s.registry.Names() {
		conn, _ := s.registry.Get(name)

		balances, err := conn.FetchBalance(ctx)
		if err != nil {
			s.logger.Error("Failed to fetch balance", zap.String("exchange", name), zap.Error(err))
		} else if entry, ok := balances[s.baseCurrency]; ok {
			stats.PortfolioValue += entry.Total
		}
	}

	for _, positions := range s.Positions(ctx) {
		for _, pos := range positions {
			stats.TotalPnL += pos.UnrealizedPnL
			stats.MarginUsed += pos.Notional * pos.MarginRatio
		}
	}

	return stats
}
