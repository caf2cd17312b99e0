package domain

import "time"

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// CloseSide returns the order side that closes a position on this side.
func (s PositionSide) CloseSide() Side {
	if s == PositionLong {
		return SideSell
	}
	return SideBuy
}

// Position is a live open position as reported by an exchange. It is
// rebuilt from exchange state on every query and never cached.
// LiquidationPrice, MarginRatio and Leverage are zero when the exchange
// does not report them.
type Position struct {
	Exchange         string       `json:"exchange"`
	Symbol           string       `json:"symbol"`
	Side             PositionSide `json:"side"`
	Size             float64      `json:"size"`
	Notional         float64      `json:"notional"`
	EntryPrice       float64      `json:"entry_price"`
	LiquidationPrice float64      `json:"liquidation_price,omitempty"`
	MarginRatio      float64      `json:"margin_ratio,omitempty"`
	Leverage         float64      `json:"leverage,omitempty"`
	UnrealizedPnL    float64      `json:"unrealized_pnl"`
}

// PendingOrder is an open (unfilled) order as reported by an exchange.
type PendingOrder struct {
	Exchange string  `json:"exchange"`
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"type"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// BalanceEntry is one currency's balance on an exchange.
type BalanceEntry struct {
	Total float64 `json:"total"`
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
}

// SummaryStats aggregates balances and open-position figures across all
// configured exchanges.
type SummaryStats struct {
	PortfolioValue float64 `json:"portfolio_value"`
	TotalPnL       float64 `json:"total_pnl"`
	MarginUsed     float64 `json:"margin_used"`
}

// SignalRecord is the audit entry written for every processed signal.
type SignalRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	OrderType string    `json:"order_type"`
	Quantity  string    `json:"quantity"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
