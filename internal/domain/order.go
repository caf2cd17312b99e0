package domain

import "github.com/shopspring/decimal"

// OrderResult is the normalized acknowledgement an exchange returns for
// an accepted order.
type OrderResult struct {
	OrderID  string          `json:"order_id"`
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Type     OrderType       `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price,omitempty"`
}

type ExecStatus string

const (
	StatusSuccess ExecStatus = "success"
	StatusPartial ExecStatus = "partial"
	StatusError   ExecStatus = "error"
)

// ProtectiveResult reports one attempted take-profit/stop-loss placement.
// Kind is "bracket" when the exchange takes both triggers in a single call.
type ProtectiveResult struct {
	Kind   TriggerKind `json:"kind"`
	Status ExecStatus  `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// ExecutionResult is the outcome of executing one OrderIntent. Status is
// "partial" when the primary order filled but a protective order failed.
type ExecutionResult struct {
	Status     ExecStatus         `json:"status"`
	Primary    *OrderResult       `json:"primary_order,omitempty"`
	Protective []ProtectiveResult `json:"protective_orders,omitempty"`
	Message    string             `json:"message,omitempty"`
}
