package domain

import "github.com/shopspring/decimal"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the side that reduces a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type TriggerKind string

const (
	TriggerTakeProfit TriggerKind = "take_profit"
	TriggerStopLoss   TriggerKind = "stop_loss"
	TriggerBracket    TriggerKind = "bracket"
)

// OrderIntent is a validated trading signal, normalized and ready for
// execution. Price is set only for limit orders; a zero TakeProfit or
// StopLoss means "not requested".
type OrderIntent struct {
	Exchange   string
	Symbol     string
	Side       Side
	OrderType  OrderType
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

func (i *OrderIntent) HasTakeProfit() bool {
	return i.TakeProfit.IsPositive()
}

func (i *OrderIntent) HasStopLoss() bool {
	return i.StopLoss.IsPositive()
}

func (i *OrderIntent) WantsProtection() bool {
	return i.HasTakeProfit() || i.HasStopLoss()
}
