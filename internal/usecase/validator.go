package usecase

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// Payload field names of the inbound signal schema. The same schema
// arrives from the webhook body and from decoded email subjects.
const (
	FieldPIN        = "PIN"
	FieldExchange   = "EXCHANGE"
	FieldSymbol     = "SYMBOL"
	FieldSide       = "SIDE"
	FieldOrderType  = "ORDER_TYPE"
	FieldQuantity   = "QUANTITY"
	FieldPrice      = "PRICE"
	FieldTakeProfit = "TAKE_PROFIT"
	FieldStopLoss   = "STOP_LOSS"
)

var requiredFields = []string{FieldExchange, FieldSymbol, FieldSide, FieldOrderType, FieldQuantity}

// Validator turns an untrusted signal payload into a typed OrderIntent.
// It never touches the network: the registry is only consulted for name
// membership.
type Validator struct {
	registry domain.ConnectorRegistry
	pin      string
}

func NewValidator(registry domain.ConnectorRegistry, pin string) *Validator {
	return &Validator{registry: registry, pin: pin}
}

// Validate checks the payload and builds an OrderIntent, short-circuiting
// on the first failure. The PIN is checked before anything else so that a
// forbidden caller learns nothing about payload validity; the HTTP and
// mail boundaries run the same check, but the validator does not rely on
// them having done so.
func (v *Validator) Validate(payload map[string]interface{}) (*domain.OrderIntent, error) {
	if v.pin != "" {
		if pin, _ := payload[FieldPIN].(string); pin != v.pin {
			return nil, &domain.ValidationError{Reason: domain.ReasonInvalidPIN, Field: FieldPIN}
		}
	}

	for _, field := range requiredFields {
		if _, ok := payload[field]; !ok {
			return nil, &domain.ValidationError{Reason: domain.ReasonMissingField, Field: field}
		}
	}

	exchangeName := strings.ToLower(stringValue(payload[FieldExchange]))
	if _, ok := v.registry.Get(exchangeName); !ok {
		return nil, &domain.ValidationError{Reason: domain.ReasonUnsupportedExchange, Field: FieldExchange}
	}

	side := domain.Side(strings.ToLower(stringValue(payload[FieldSide])))
	if side != domain.SideBuy && side != domain.SideSell {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidSide, Field: FieldSide}
	}

	orderType := domain.OrderType(strings.ToLower(stringValue(payload[FieldOrderType])))
	if orderType != domain.OrderTypeMarket && orderType != domain.OrderTypeLimit {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidOrderType, Field: FieldOrderType}
	}

	quantity, err := decimal.NewFromString(stringValue(payload[FieldQuantity]))
	if err != nil || !quantity.IsPositive() {
		return nil, &domain.ValidationError{Reason: domain.ReasonInvalidQuantity, Field: FieldQuantity}
	}

	var price decimal.Decimal
	if orderType == domain.OrderTypeLimit {
		raw, ok := payload[FieldPrice]
		if !ok {
			return nil, &domain.ValidationError{Reason: domain.ReasonMissingOrInvalidPrice, Field: FieldPrice}
		}
		price, err = decimal.NewFromString(stringValue(raw))
		if err != nil || !price.IsPositive() {
			return nil, &domain.ValidationError{Reason: domain.ReasonMissingOrInvalidPrice, Field: FieldPrice}
		}
	}

	// Absent or non-positive trigger prices mean "not requested"
	takeProfit := optionalPrice(payload[FieldTakeProfit])
	stopLoss := optionalPrice(payload[FieldStopLoss])

	return &domain.OrderIntent{
		Exchange:   exchangeName,
		Symbol:     stringValue(payload[FieldSymbol]),
		Side:       side,
		OrderType:  orderType,
		Quantity:   quantity,
		Price:      price,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
	}, nil
}

func optionalPrice(raw interface{}) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(stringValue(raw))
	if err != nil || !d.IsPositive() {
		return decimal.Zero
	}
	return d
}

// stringValue normalizes a payload value that may arrive as a JSON string
// or number.
func stringValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
