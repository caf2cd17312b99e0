package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Connector wraps a single exchange's order, position and balance API.
// Every call is a live network request; implementations hold no cached
// state and must be safe for concurrent use.
type Connector interface {
	Name() string

	// PlaceOrder submits an order. Price is ignored for market orders
	// and mandatory for limit orders.
	PlaceOrder(ctx context.Context, symbol string, side Side, orderType OrderType, quantity, price decimal.Decimal) (*OrderResult, error)

	// FetchPositions returns open positions only; zero-size entries are
	// filtered out before returning.
	FetchPositions(ctx context.Context) ([]*Position, error)

	FetchOpenOrders(ctx context.Context) ([]*PendingOrder, error)

	FetchBalance(ctx context.Context) (map[string]BalanceEntry, error)

	CancelOrder(ctx context.Context, orderID, symbol string) error
}

// NativeTpSlPlacer is implemented by connectors whose exchange accepts
// separate reduce-only conditional orders for take profit and stop loss.
type NativeTpSlPlacer interface {
	PlaceConditionalOrder(ctx context.Context, symbol string, side Side, kind TriggerKind, triggerPrice, quantity decimal.Decimal) (*OrderResult, error)
}

// BracketOrderPlacer is implemented by connectors whose exchange only
// supports a combined one-cancels-other bracket, taking both trigger
// prices in a single call.
type BracketOrderPlacer interface {
	PlaceBracketOrder(ctx context.Context, symbol string, side Side, quantity, takeProfit, stopLoss decimal.Decimal) (*OrderResult, error)
}

// ConnectorRegistry resolves configured exchanges by name. An exchange
// with missing credentials is simply absent; the registry is built once
// at startup and never mutated afterwards.
type ConnectorRegistry interface {
	Get(name string) (Connector, bool)
	Names() []string
}

// SignalRepository stores the audit trail of processed signals.
type SignalRepository interface {
	SaveSignal(ctx context.Context, rec *SignalRecord) error
	ListSignals(ctx context.Context, limit int) ([]*SignalRecord, error)
}
