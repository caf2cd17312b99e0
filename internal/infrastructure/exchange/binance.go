package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

const (
	BinanceBaseURL = "https://fapi.binance.com"

	binanceRateLimit = rate.Limit(5)
)

// BinanceAdapter talks to Binance's USDT-M futures API. The exchange has
// no separate TakeProfit/StopLoss order types for this flow; protective
// orders go out as one batch carrying both triggers, so the adapter
// implements domain.BracketOrderPlacer.
type BinanceAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewBinanceAdapter(apiKey, apiSecret, baseURL string) *BinanceAdapter {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	return &BinanceAdapter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(binanceRateLimit, 1),
	}
}

func (b *BinanceAdapter) Name() string { return "binance" }

func binanceSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func (b *BinanceAdapter) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BinanceAdapter) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", "5000")

	reqURL, err := url.Parse(b.baseURL + endpoint)
	if err != nil {
		return nil, err
	}
	query := params.Encode()
	reqURL.RawQuery = query + "&signature=" + b.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"msg"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
	}

	return body, nil
}

func (b *BinanceAdapter) PlaceOrder(ctx context.Context, symbol string, side domain.Side, orderType domain.OrderType, quantity, price decimal.Decimal) (*domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(symbol))
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", strings.ToUpper(string(orderType)))
	params.Set("quantity", quantity.String())
	if orderType == domain.OrderTypeLimit {
		params.Set("price", price.String())
		params.Set("timeInForce", "GTC")
	}

	body, err := b.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_order", Err: err}
	}

	var ack struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_order", Err: err}
	}

	return &domain.OrderResult{
		OrderID:  fmt.Sprintf("%d", ack.OrderID),
		Exchange: "binance",
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
	}, nil
}

// PlaceBracketOrder submits the take-profit and stop-loss triggers in a
// single batch request. Both legs are reduce-only market triggers; a zero
// trigger price drops that leg from the batch.
func (b *BinanceAdapter) PlaceBracketOrder(ctx context.Context, symbol string, side domain.Side, quantity, takeProfit, stopLoss decimal.Decimal) (*domain.OrderResult, error) {
	type leg struct {
		Symbol     string `json:"symbol"`
		Side       string `json:"side"`
		Type       string `json:"type"`
		Quantity   string `json:"quantity"`
		StopPrice  string `json:"stopPrice"`
		ReduceOnly string `json:"reduceOnly"`
	}

	var legs []leg
	if takeProfit.IsPositive() {
		legs = append(legs, leg{
			Symbol:     binanceSymbol(symbol),
			Side:       strings.ToUpper(string(side)),
			Type:       "TAKE_PROFIT_MARKET",
			Quantity:   quantity.String(),
			StopPrice:  takeProfit.String(),
			ReduceOnly: "true",
		})
	}
	if stopLoss.IsPositive() {
		legs = append(legs, leg{
			Symbol:     binanceSymbol(symbol),
			Side:       strings.ToUpper(string(side)),
			Type:       "STOP_MARKET",
			Quantity:   quantity.String(),
			StopPrice:  stopLoss.String(),
			ReduceOnly: "true",
		})
	}
	if len(legs) == 0 {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_bracket_order", Err: fmt.Errorf("no trigger prices given")}
	}

	batch, err := json.Marshal(legs)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_bracket_order", Err: err}
	}

	params := url.Values{}
	params.Set("batchOrders", string(batch))

	body, err := b.doRequest(ctx, http.MethodPost, "/fapi/v1/batchOrders", params)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_bracket_order", Err: err}
	}

	var acks []struct {
		OrderID int64  `json:"orderId"`
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &acks); err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_bracket_order", Err: err}
	}
	// Batch responses report per-leg rejections inline with code != 0
	var ids []string
	for _, ack := range acks {
		if ack.Code != 0 {
			return nil, &domain.ConnectorError{Exchange: "binance", Op: "place_bracket_order", Err: fmt.Errorf("leg rejected (%d): %s", ack.Code, ack.Msg)}
		}
		ids = append(ids, fmt.Sprintf("%d", ack.OrderID))
	}

	return &domain.OrderResult{
		OrderID:  strings.Join(ids, ","),
		Exchange: "binance",
		Symbol:   symbol,
		Side:     side,
		Type:     domain.OrderTypeMarket,
		Quantity: quantity,
	}, nil
}

func (b *BinanceAdapter) FetchPositions(ctx context.Context) ([]*domain.Position, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_positions", Err: err}
	}

	var raw []struct {
		Symbol           string          `json:"symbol"`
		PositionAmt      decimal.Decimal `json:"positionAmt"`
		EntryPrice       decimal.Decimal `json:"entryPrice"`
		MarkPrice        decimal.Decimal `json:"markPrice"`
		UnRealizedProfit decimal.Decimal `json:"unRealizedProfit"`
		LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
		Leverage         decimal.Decimal `json:"leverage"`
		Notional         decimal.Decimal `json:"notional"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_positions", Err: err}
	}

	var positions []*domain.Position
	for _, p := range raw {
		amt, _ := p.PositionAmt.Float64()
		if amt == 0 {
			continue
		}

		side := domain.PositionLong
		size := amt
		if amt < 0 {
			side = domain.PositionShort
			size = -amt
		}

		entry, _ := p.EntryPrice.Float64()
		liq, _ := p.LiquidationPrice.Float64()
		leverage, _ := p.Leverage.Float64()
		pnl, _ := p.UnRealizedProfit.Float64()
		notional, _ := p.Notional.Abs().Float64()

		var marginRatio float64
		if leverage > 0 {
			marginRatio = 1 / leverage
		}

		positions = append(positions, &domain.Position{
			Exchange:         "binance",
			Symbol:           p.Symbol,
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

func (b *BinanceAdapter) FetchOpenOrders(ctx context.Context) ([]*domain.PendingOrder, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/fapi/v1/openOrders", nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_open_orders", Err: err}
	}

	var raw []struct {
		OrderID int64           `json:"orderId"`
		Symbol  string          `json:"symbol"`
		Type    string          `json:"type"`
		Side    string          `json:"side"`
		Price   decimal.Decimal `json:"price"`
		OrigQty decimal.Decimal `json:"origQty"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_open_orders", Err: err}
	}

	var orders []*domain.PendingOrder
	for _, o := range raw {
		price, _ := o.Price.Float64()
		qty, _ := o.OrigQty.Float64()

		orders = append(orders, &domain.PendingOrder{
			Exchange: "binance",
			OrderID:  fmt.Sprintf("%d", o.OrderID),
			Symbol:   o.Symbol,
			Type:     strings.ToLower(o.Type),
			Side:     strings.ToLower(o.Side),
			Price:    price,
			Quantity: qty,
		})
	}

	return orders, nil
}

func (b *BinanceAdapter) FetchBalance(ctx context.Context) (map[string]domain.BalanceEntry, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/fapi/v2/balance", nil)
	if err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_balance", Err: err}
	}

	var raw []struct {
		Asset            string          `json:"asset"`
		Balance          decimal.Decimal `json:"balance"`
		AvailableBalance decimal.Decimal `json:"availableBalance"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ConnectorError{Exchange: "binance", Op: "fetch_balance", Err: err}
	}

	balances := make(map[string]domain.BalanceEntry)
	for _, entry := range raw {
		total, _ := entry.Balance.Float64()
		free, _ := entry.AvailableBalance.Float64()
		if total == 0 {
			continue
		}
		balances[entry.Asset] = domain.BalanceEntry{
			Total: total,
			Free:  free,
			Used:  total - free,
		}
	}

	return balances, nil
}

func (b *BinanceAdapter) CancelOrder(ctx context.Context, orderID, symbol string) error {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(symbol))
	params.Set("orderId", orderID)

	if _, err := b.doRequest(ctx, http.MethodDelete, "/fapi/v1/order", params); err != nil {
		return &domain.ConnectorError{Exchange: "binance", Op: "cancel_order", Err: err}
	}
	return nil
}
