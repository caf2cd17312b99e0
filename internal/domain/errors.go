package domain

import "fmt"

type ValidationReason string

const (
	ReasonMissingField          ValidationReason = "missing_field"
	ReasonUnsupportedExchange   ValidationReason = "unsupported_exchange"
	ReasonInvalidSide           ValidationReason = "invalid_side"
	ReasonInvalidOrderType      ValidationReason = "invalid_order_type"
	ReasonInvalidQuantity       ValidationReason = "invalid_quantity"
	ReasonMissingOrInvalidPrice ValidationReason = "missing_or_invalid_price"
	ReasonInvalidPIN            ValidationReason = "invalid_pin"
)

// ValidationError rejects a signal payload before any network call is
// made. Field names the offending key where that adds information.
type ValidationError struct {
	Reason ValidationReason
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ConnectorError wraps a transport/auth/exchange-rejection failure with
// the exchange name and attempted operation.
type ConnectorError struct {
	Exchange string
	Op       string
	Err      error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

type ExecutionReason string

const (
	ReasonExchangeUnavailable ExecutionReason = "exchange_unavailable"
	ReasonPrimaryOrderFailed  ExecutionReason = "primary_order_failed"
)

// ExecutionError is an engine-level failure: the exchange is not
// configured, or the primary order was rejected.
type ExecutionError struct {
	Reason ExecutionReason
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("execution failed: %s", e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
