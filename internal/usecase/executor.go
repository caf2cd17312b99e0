package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// ExecutionEngine places the primary order for a validated intent, then
// the derived protective orders where the intent asks for them. Primary
// order failure is terminal and never retried: placement is not safely
// idempotent and a blind retry could double-fill.
type ExecutionEngine struct {
	registry domain.ConnectorRegistry
	logger   *zap.Logger
}

func NewExecutionEngine(registry domain.ConnectorRegistry, logger *zap.Logger) *ExecutionEngine {
	return &ExecutionEngine{registry: registry, logger: logger}
}

func (e *ExecutionEngine) Execute(ctx context.Context, intent *domain.OrderIntent) *domain.ExecutionResult {
	// The validator already checked this, but the engine must not trust
	// its caller.
	conn, ok := e.registry.Get(intent.Exchange)
	if !ok {
		err := &domain.ExecutionError{Reason: domain.ReasonExchangeUnavailable}
		return &domain.ExecutionResult{Status: domain.StatusError, Message: err.Error()}
	}

	primary, err := conn.PlaceOrder(ctx, intent.Symbol, intent.Side, intent.OrderType, intent.Quantity, intent.Price)
	if err != nil {
		execErr := &domain.ExecutionError{Reason: domain.ReasonPrimaryOrderFailed, Err: err}
		e.logger.Error("Primary order failed",
			zap.String("exchange", intent.Exchange),
			zap.String("symbol", intent.Symbol),
			zap.Error(err))
		return &domain.ExecutionResult{Status: domain.StatusError, Message: execErr.Error()}
	}

	e.logger.Info("Primary order placed",
		zap.String("exchange", intent.Exchange),
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("order_id", primary.OrderID))

	result := &domain.ExecutionResult{Status: domain.StatusSuccess, Primary: primary}
	if !intent.WantsProtection() {
		return result
	}

	result.Protective = e.placeProtection(ctx, conn, intent)
	for _, p := range result.Protective {
		if p.Status == domain.StatusError {
			// A failed protective order never undoes the filled primary;
			// the caller is told the result is partial instead.
			result.Status = domain.StatusPartial
			result.Message = "primary order filled; protective order placement failed"
			break
		}
	}

	return result
}

// placeProtection issues the take-profit/stop-loss orders on the side
// opposite the primary so they only ever reduce the position. The shape
// of the call depends on what the connector supports: separate native
// conditional orders, or one bracket carrying both triggers.
func (e *ExecutionEngine) placeProtection(ctx context.Context, conn domain.Connector, intent *domain.OrderIntent) []domain.ProtectiveResult {
	protectiveSide := intent.Side.Opposite()

	switch placer := conn.(type) {
	case domain.NativeTpSlPlacer:
		var results []domain.ProtectiveResult
		if intent.HasTakeProfit() {
			results = append(results, e.placeConditional(ctx, placer, intent, protectiveSide, domain.TriggerTakeProfit, intent.TakeProfit))
		}
		if intent.HasStopLoss() {
			results = append(results, e.placeConditional(ctx, placer, intent, protectiveSide, domain.TriggerStopLoss, intent.StopLoss))
		}
		return results

	case domain.BracketOrderPlacer:
		res, err := placer.PlaceBracketOrder(ctx, intent.Symbol, protectiveSide, intent.Quantity, intent.TakeProfit, intent.StopLoss)
		if err != nil {
			e.logger.Error("Bracket order failed",
				zap.String("exchange", intent.Exchange),
				zap.String("symbol", intent.Symbol),
				zap.Error(err))
			return []domain.ProtectiveResult{{Kind: domain.TriggerBracket, Status: domain.StatusError, Detail: err.Error()}}
		}
		return []domain.ProtectiveResult{{Kind: domain.TriggerBracket, Status: domain.StatusSuccess, Detail: res.OrderID}}

	default:
		return []domain.ProtectiveResult{{
			Kind:   domain.TriggerBracket,
			Status: domain.StatusError,
			Detail: fmt.Sprintf("exchange %s supports no protective orders", conn.Name()),
		}}
	}
}

func (e *ExecutionEngine) placeConditional(ctx context.Context, placer domain.NativeTpSlPlacer, intent *domain.OrderIntent, side domain.Side, kind domain.TriggerKind, trigger decimal.Decimal) domain.ProtectiveResult {
	res, err := placer.PlaceConditionalOrder(ctx, intent.Symbol, side, kind, trigger, intent.Quantity)
	if err != nil {
		e.logger.Error("Protective order failed",
			zap.String("exchange", intent.Exchange),
			zap.String("symbol", intent.Symbol),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return domain.ProtectiveResult{Kind: kind, Status: domain.StatusError, Detail: err.Error()}
	}
	return domain.ProtectiveResult{Kind: kind, Status: domain.StatusSuccess, Detail: res.OrderID}
}
