package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// MutationResult reports the outcome of a close or cancel operation.
type MutationResult struct {
	Status  domain.ExecStatus   `json:"status"`
	Message string              `json:"message,omitempty"`
	Order   *domain.OrderResult `json:"order,omitempty"`
}

// MutationService closes positions and cancels orders. Everything comes
// back as a MutationResult: "no matching open position" is a reported
// error, never a panic or an aborted batch.
type MutationService struct {
	registry domain.ConnectorRegistry
	logger   *zap.Logger
}

func NewMutationService(registry domain.ConnectorRegistry, logger *zap.Logger) *MutationService {
	return &MutationService{registry: registry, logger: logger}
}

// ClosePosition finds the open position for symbol on the given exchange
// and flattens it with an opposite-side market order for the full size.
func (s *MutationService) ClosePosition(ctx context.Context, exchangeName, symbol string) *MutationResult {
	conn, ok := s.registry.Get(exchangeName)
	if !ok {
		return errorResult("exchange %s is not configured", exchangeName)
	}

	positions, err := conn.FetchPositions(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch positions for close", zap.String("exchange", exchangeName), zap.Error(err))
		return errorResult("failed to fetch positions on %s: %v", exchangeName, err)
	}

	for _, pos := range positions {
		if pos.Symbol != symbol || pos.Size == 0 {
			continue
		}
		return s.flatten(ctx, conn, pos)
	}

	return errorResult("no open position found for %s on %s", symbol, exchangeName)
}

// CloseAllPositions flattens every open position on every exchange.
// Results are keyed by symbol; per-exchange fetch failures are recorded
// under the exchange name and never abort the sweep.
func (s *MutationService) CloseAllPositions(ctx context.Context) map[string]*MutationResult {
	results := make(map[string]*MutationResult)

	for _, name := range s.registry.Names() {
		conn, _ := s.registry.Get(name)

		positions, err := conn.FetchPositions(ctx)
		if err != nil {
			s.logger.Error("Failed to fetch positions for close-all", zap.String("exchange", name), zap.Error(err))
			results[name] = errorResult("failed to fetch positions: %v", err)
			continue
		}

		for _, pos := range positions {
			if pos.Size == 0 {
				continue
			}
			results[pos.Symbol] = s.flatten(ctx, conn, pos)
		}
	}

	return results
}

// CancelOrder passes the cancellation straight through to the adapter. An
// unknown exchange fails before any network call.
func (s *MutationService) CancelOrder(ctx context.Context, exchangeName, orderID, symbol string) *MutationResult {
	conn, ok := s.registry.Get(exchangeName)
	if !ok {
		return errorResult("exchange %s is not configured", exchangeName)
	}

	if err := conn.CancelOrder(ctx, orderID, symbol); err != nil {
		s.logger.Error("Failed to cancel order",
			zap.String("exchange", exchangeName),
			zap.String("order_id", orderID),
			zap.Error(err))
		return errorResult("failed to cancel order %s: %v", orderID, err)
	}

	return &MutationResult{Status: domain.StatusSuccess, Message: fmt.Sprintf("order %s canceled", orderID)}
}

func (s *MutationService) flatten(ctx context.Context, conn domain.Connector, pos *domain.Position) *MutationResult {
	side := pos.Side.CloseSide()
	size := decimal.NewFromFloat(pos.Size).Abs()

	order, err := conn.PlaceOrder(ctx, pos.Symbol, side, domain.OrderTypeMarket, size, decimal.Zero)
	if err != nil {
		s.logger.Error("Failed to close position",
			zap.String("exchange", pos.Exchange),
			zap.String("symbol", pos.Symbol),
			zap.Error(err))
		return errorResult("failed to close %s: %v", pos.Symbol, err)
	}

	s.logger.Info("Position closed",
		zap.String("exchange", pos.Exchange),
		zap.String("symbol", pos.Symbol),
		zap.Float64("size", pos.Size))
	return &MutationResult{Status: domain.StatusSuccess, Order: order}
}

func errorResult(format string, args ...interface{}) *MutationResult {
	return &MutationResult{Status: domain.StatusError, Message: fmt.Sprintf(format, args...)}
}
