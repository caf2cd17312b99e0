package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

const (
	BybitBaseURL = "https://api.bybit.com"

	// Bybit allows 10 req/s per endpoint group for a normal account;
	// stay well under it.
	bybitRateLimit = rate.Limit(5)
)

// BybitAdapter talks to Bybit's V5 linear (USDT perpetual) API. Take
// profit and stop loss are placed as separate reduce-only conditional
// orders, so the adapter implements domain.NativeTpSlPlacer.
type BybitAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewBybitAdapter(apiKey, apiSecret, baseURL string) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	return &BybitAdapter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(bybitRateLimit, 1),
	}
}

func (b *BybitAdapter) Name() string { return "bybit" }

// bybitSymbol converts pair notation ("BTC/USDT") to Bybit's contract
// notation ("BTCUSDT").
func bybitSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func (b *BybitAdapter) sign(params string, timestamp int64, recvWindow int) string {
	// timestamp + apiKey + recvWindow + params
	toSign := fmt.Sprintf("%d%s%d%s", timestamp, b.apiKey, recvWindow, params)
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(toSign))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BybitAdapter) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timestamp := time.Now().UnixMilli()
	recvWindow := 5000

	var body []byte
	var paramsStr string

	if payload != nil {
		jsonBody, _ := json.Marshal(payload)
		body = jsonBody
		paramsStr = string(jsonBody)
	} else if method == http.MethodGet {
		// For GET, params are signed as the raw query string
		if idx := strings.Index(path, "?"); idx != -1 {
			paramsStr = path[idx+1:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	signature := b.sign(paramsStr, timestamp, recvWindow)

	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-BAPI-SIGN", signature)
	req.Header.Set("X-BAPI-RECV-WINDOW", strconv.Itoa(recvWindow))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

type bybitAck struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		OrderID string `json:"orderId"`
	} `json:"result"`
}

func (b *BybitAdapter) createOrder(ctx context.Context, op string, payload map[string]interface{}) (string, error) {
	resp, err := b.sendRequest(ctx, http.MethodPost, "/v5/order/create", payload)
	if err != nil {
		return "", &domain.ConnectorError{Exchange: "bybit", Op: op, Err: err}
	}

	var ack bybitAck
	if err := json.Unmarshal(resp, &ack); err != nil {
		return "", &domain.ConnectorError{Exchange: "bybit", Op: op, Err: err}
	}
	if ack.RetCode != 0 {
		return "", &domain.ConnectorError{Exchange: "bybit", Op: op, Err: fmt.Errorf("retCode %d: %s", ack.RetCode, ack.RetMsg)}
	}
	return ack.Result.OrderID, nil
}

func (b *BybitAdapter) PlaceOrder(ctx context.Context, symbol string, side domain.Side, orderType domain.OrderType, quantity, price decimal.Decimal) (*domain.OrderResult, error) {
	payload := map[string]interface{}{
		"category":    "linear",
		"symbol":      bybitSymbol(symbol),
		"side":        bybitSide(side),
		"orderType":   bybitOrderType(orderType),
		"qty":         quantity.String(),
		"timeInForce": "GTC",
	}
	if orderType == domain.OrderTypeLimit {
		payload["price"] = price.String()
	}

	orderID, err := b.createOrder(ctx, "place_order", payload)
	if err != nil {
		return nil, err
	}

	return &domain.OrderResult{
		OrderID:  orderID,
		Exchange: "bybit",
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
	}, nil
}

// PlaceConditionalOrder places one reduce-only TakeProfit or StopLoss
// order triggered at triggerPrice. Reduce-only keeps the order from ever
// increasing exposure.
func (b *BybitAdapter) PlaceConditionalOrder(ctx context.Context, symbol string, side domain.Side, kind domain.TriggerKind, triggerPrice, quantity decimal.Decimal) (*domain.OrderResult, error) {
	orderType := "TakeProfit"
	if kind == domain.TriggerStopLoss {
		orderType = "StopLoss"
	}

	payload := map[string]interface{}{
		"category":   "linear",
		"symbol":     bybitSymbol(symbol),
		"side":       bybitSide(side),
		"orderType":  orderType,
		"qty":        quantity.String(),
		"stopPx":     triggerPrice.String(),
		"triggerBy":  "LastPrice",
		"reduceOnly": true,
	}

	orderID, err := b.createOrder(ctx, "place_conditional_order", payload)
	if err != nil {
		return nil, err
	}

	return &domain.OrderResult{
		OrderID:  orderID,
		Exchange: "bybit",
		Symbol:   symbol,
		Side:     side,
		Type:     domain.OrderTypeMarket,
		Quantity: quantity,
		Price:    triggerPrice,
	}, nil
}

func (b *BybitAdapter) FetchPositions(ctx context.Context) ([]*domain.Position, error) {
	path := "/v5/position/list?category=linear&settleCoin=USDT"
	resp, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_positions", Err: err}
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Symbol        string `json:"symbol"`
				Side          string `json:"side"`
				Size          string `json:"size"`
				PositionValue string `json:"positionValue"`
				AvgPrice      string `json:"avgPrice"`
				LiqPrice      string `json:"liqPrice"`
				PositionIM    string `json:"positionIM"`
				Leverage      string `json:"leverage"`
				UnrealisedPnl string `json:"unrealisedPnl"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_positions", Err: err}
	}
	if result.RetCode != 0 {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_positions", Err: fmt.Errorf("retCode %d: %s", result.RetCode, result.RetMsg)}
	}

	var positions []*domain.Position
	for _, raw := range result.Result.List {
		size, _ := strconv.ParseFloat(raw.Size, 64)
		if size == 0 {
			// A zero-size entry is not an open position
			continue
		}

		notional, _ := strconv.ParseFloat(raw.PositionValue, 64)
		entry, _ := strconv.ParseFloat(raw.AvgPrice, 64)
		liq, _ := strconv.ParseFloat(raw.LiqPrice, 64)
		margin, _ := strconv.ParseFloat(raw.PositionIM, 64)
		leverage, _ := strconv.ParseFloat(raw.Leverage, 64)
		pnl, _ := strconv.ParseFloat(raw.UnrealisedPnl, 64)

		side := domain.PositionLong
		if raw.Side == "Sell" {
			side = domain.PositionShort
		}

		var marginRatio float64
		if notional > 0 {
			marginRatio = margin / notional
		}

		positions = append(positions, &domain.Position{
			Exchange:         "bybit",
			Symbol:           raw.Symbol,
			Side:             side,
			Size:             size,
			Notional:         notional,
			EntryPrice:       entry,
			LiquidationPrice: liq,
			MarginRatio:      marginRatio,
			Leverage:         leverage,
			UnrealizedPnL:    pnl,
		})
	}

	return positions, nil
}

func (b *BybitAdapter) FetchOpenOrders(ctx context.Context) ([]*domain.PendingOrder, error) {
	path := "/v5/order/realtime?category=linear&settleCoin=USDT"
	resp, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_open_orders", Err: err}
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				OrderID   string `json:"orderId"`
				Symbol    string `json:"symbol"`
				OrderType string `json:"orderType"`
				Side      string `json:"side"`
				Price     string `json:"price"`
				Qty       string `json:"qty"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_open_orders", Err: err}
	}
	if result.RetCode != 0 {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_open_orders", Err: fmt.Errorf("retCode %d: %s", result.RetCode, result.RetMsg)}
	}

	var orders []*domain.PendingOrder
	for _, raw := range result.Result.List {
		price, _ := strconv.ParseFloat(raw.Price, 64)
		qty, _ := strconv.ParseFloat(raw.Qty, 64)

		orders = append(orders, &domain.PendingOrder{
			Exchange: "bybit",
			OrderID:  raw.OrderID,
			Symbol:   raw.Symbol,
			Type:     strings.ToLower(raw.OrderType),
			Side:     strings.ToLower(raw.Side),
			Price:    price,
			Quantity: qty,
		})
	}

	return orders, nil
}

func (b *BybitAdapter) FetchBalance(ctx context.Context) (map[string]domain.BalanceEntry, error) {
	path := "/v5/account/wallet-balance?accountType=UNIFIED"
	resp, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_balance", Err: err}
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Coin []struct {
					Coin                string `json:"coin"`
					WalletBalance       string `json:"walletBalance"`
					AvailableToWithdraw string `json:"availableToWithdraw"`
				} `json:"coin"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_balance", Err: err}
	}
	if result.RetCode != 0 {
		return nil, &domain.ConnectorError{Exchange: "bybit", Op: "fetch_balance", Err: fmt.Errorf("retCode %d: %s", result.RetCode, result.RetMsg)}
	}

	balances := make(map[string]domain.BalanceEntry)
	for _, account := range result.Result.List {
		for _, coin := range account.Coin {
			total, _ := strconv.ParseFloat(coin.WalletBalance, 64)
			free, _ := strconv.ParseFloat(coin.AvailableToWithdraw, 64)
			if total == 0 {
				continue
			}
			balances[coin.Coin] = domain.BalanceEntry{
				Total: total,
				Free:  free,
				Used:  total - free,
			}
		}
	}

	return balances, nil
}

func (b *BybitAdapter) CancelOrder(ctx context.Context, orderID, symbol string) error {
	payload := map[string]interface{}{
		"category": "linear",
		"symbol":   bybitSymbol(symbol),
		"orderId":  orderID,
	}

	resp, err := b.sendRequest(ctx, http.MethodPost, "/v5/order/cancel", payload)
	if err != nil {
		return &domain.ConnectorError{Exchange: "bybit", Op: "cancel_order", Err: err}
	}

	var ack bybitAck
	if err := json.Unmarshal(resp, &ack); err != nil {
		return &domain.ConnectorError{Exchange: "bybit", Op: "cancel_order", Err: err}
	}
	if ack.RetCode != 0 {
		return &domain.ConnectorError{Exchange: "bybit", Op: "cancel_order", Err: fmt.Errorf("retCode %d: %s", ack.RetCode, ack.RetMsg)}
	}
	return nil
}

func bybitSide(side domain.Side) string {
	if side == domain.SideBuy {
		return "Buy"
	}
	return "Sell"
}

func bybitOrderType(orderType domain.OrderType) string {
	if orderType == domain.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}
