package usecase_test

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

type fakeRegistry struct {
	connectors map[string]domain.Connector
}

func newFakeRegistry(connectors ...domain.Connector) *fakeRegistry {
	m := make(map[string]domain.Connector)
	for _, c := range connectors {
		m[c.Name()] = c
	}
	return &fakeRegistry{connectors: m}
}

func (r *fakeRegistry) Get(name string) (domain.Connector, bool) {
	c, ok := r.connectors[name]
	return c, ok
}

func (r *fakeRegistry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type placeCall struct {
	Symbol    string
	Side      domain.Side
	OrderType domain.OrderType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

type conditionalCall struct {
	Symbol   string
	Side     domain.Side
	Kind     domain.TriggerKind
	Trigger  decimal.Decimal
	Quantity decimal.Decimal
}

type bracketCall struct {
	Symbol     string
	Side       domain.Side
	Quantity   decimal.Decimal
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

type cancelCall struct {
	OrderID string
	Symbol  string
}

// spyConnector records every call. It implements domain.Connector only;
// wrap it in nativeSpy or bracketSpy for protective-order capabilities.
type spyConnector struct {
	name string

	PlaceCalls  []placeCall
	PlaceErr    error
	CancelCalls []cancelCall
	CancelErr   error

	Positions    []*domain.Position
	PositionsErr error
	Orders       []*domain.PendingOrder
	OrdersErr    error
	Balances     map[string]domain.BalanceEntry
	BalanceErr   error
}

func (c *spyConnector) Name() string { return c.name }

func (c *spyConnector) PlaceOrder(ctx context.Context, symbol string, side domain.Side, orderType domain.OrderType, quantity, price decimal.Decimal) (*domain.OrderResult, error) {
	c.PlaceCalls = append(c.PlaceCalls, placeCall{Symbol: symbol, Side: side, OrderType: orderType, Quantity: quantity, Price: price})
	if c.PlaceErr != nil {
		return nil, c.PlaceErr
	}
	return &domain.OrderResult{
		OrderID:  "order-1",
		Exchange: c.name,
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
	}, nil
}

func (c *spyConnector) FetchPositions(ctx context.Context) ([]*domain.Position, error) {
	if c.PositionsErr != nil {
		return nil, c.PositionsErr
	}
	return c.Positions, nil
}

func (c *spyConnector) FetchOpenOrders(ctx context.Context) ([]*domain.PendingOrder, error) {
	if c.OrdersErr != nil {
		return nil, c.OrdersErr
	}
	return c.Orders, nil
}

func (c *spyConnector) FetchBalance(ctx context.Context) (map[string]domain.BalanceEntry, error) {
	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	return c.Balances, nil
}

func (c *spyConnector) CancelOrder(ctx context.Context, orderID, symbol string) error {
	c.CancelCalls = append(c.CancelCalls, cancelCall{OrderID: orderID, Symbol: symbol})
	return c.CancelErr
}

// nativeSpy additionally accepts separate TP/SL conditional orders.
type nativeSpy struct {
	*spyConnector

	ConditionalCalls []conditionalCall
	ConditionalErr   error
}

func (c *nativeSpy) PlaceConditionalOrder(ctx context.Context, symbol string, side domain.Side, kind domain.TriggerKind, triggerPrice, quantity decimal.Decimal) (*domain.OrderResult, error) {
	c.ConditionalCalls = append(c.ConditionalCalls, conditionalCall{Symbol: symbol, Side: side, Kind: kind, Trigger: triggerPrice, Quantity: quantity})
	if c.ConditionalErr != nil {
		return nil, c.ConditionalErr
	}
	return &domain.OrderResult{OrderID: "cond-1", Exchange: c.name, Symbol: symbol, Side: side}, nil
}

// bracketSpy only supports the combined one-cancels-other bracket.
type bracketSpy struct {
	*spyConnector

	BracketCalls []bracketCall
	BracketErr   error
}

func (c *bracketSpy) PlaceBracketOrder(ctx context.Context, symbol string, side domain.Side, quantity, takeProfit, stopLoss decimal.Decimal) (*domain.OrderResult, error) {
	c.BracketCalls = append(c.BracketCalls, bracketCall{Symbol: symbol, Side: side, Quantity: quantity, TakeProfit: takeProfit, StopLoss: stopLoss})
	if c.BracketErr != nil {
		return nil, c.BracketErr
	}
	return &domain.OrderResult{OrderID: "bracket-1", Exchange: c.name, Symbol: symbol, Side: side}, nil
}

// memorySignals is an in-memory domain.SignalRepository.
type memorySignals struct {
	Saved []*domain.SignalRecord
}

func (m *memorySignals) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	m.Saved = append(m.Saved, rec)
	return nil
}

func (m *memorySignals) ListSignals(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	if len(m.Saved) > limit {
		return m.Saved[:limit], nil
	}
	return m.Saved, nil
}
