package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

func newBybitTestServer(t *testing.T, response string) (*BybitAdapter, *[]capturedRequest) {
	t.Helper()
	var calls []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-BAPI-API-KEY"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-SIGN"))
		assert.NotEmpty(t, r.Header.Get("X-BAPI-TIMESTAMP"))

		call := capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&call.Body)
		}
		calls = append(calls, call)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return NewBybitAdapter("test-key", "test-secret", srv.URL), &calls
}

func TestBybit_PlaceMarketOrder(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{"retCode":0,"retMsg":"OK","result":{"orderId":"ord-123"}}`)

	result, err := adapter.PlaceOrder(context.Background(), "BTC/USDT",
		domain.SideBuy, domain.OrderTypeMarket, decimal.RequireFromString("0.01"), decimal.Zero)

	require.NoError(t, err)
	assert.Equal(t, "ord-123", result.OrderID)
	assert.Equal(t, "bybit", result.Exchange)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/v5/order/create", call.Path)
	assert.Equal(t, "BTCUSDT", call.Body["symbol"])
	assert.Equal(t, "Buy", call.Body["side"])
	assert.Equal(t, "Market", call.Body["orderType"])
	assert.Equal(t, "0.01", call.Body["qty"])
	_, hasPrice := call.Body["price"]
	assert.False(t, hasPrice, "market orders carry no price")
}

func TestBybit_PlaceLimitOrderIncludesPrice(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{"retCode":0,"result":{"orderId":"ord-1"}}`)

	_, err := adapter.PlaceOrder(context.Background(), "ETH/USDT",
		domain.SideSell, domain.OrderTypeLimit, decimal.RequireFromString("2"), decimal.RequireFromString("3500"))

	require.NoError(t, err)
	call := (*calls)[0]
	assert.Equal(t, "Sell", call.Body["side"])
	assert.Equal(t, "Limit", call.Body["orderType"])
	assert.Equal(t, "3500", call.Body["price"])
}

func TestBybit_ConditionalOrderIsReduceOnly(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{"retCode":0,"result":{"orderId":"cond-1"}}`)

	_, err := adapter.PlaceConditionalOrder(context.Background(), "BTC/USDT",
		domain.SideSell, domain.TriggerTakeProfit,
		decimal.RequireFromString("52000"), decimal.RequireFromString("0.01"))

	require.NoError(t, err)
	call := (*calls)[0]
	assert.Equal(t, "TakeProfit", call.Body["orderType"])
	assert.Equal(t, "52000", call.Body["stopPx"])
	assert.Equal(t, true, call.Body["reduceOnly"])
	assert.Equal(t, "LastPrice", call.Body["triggerBy"])
}

func TestBybit_StopLossConditionalOrderType(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{"retCode":0,"result":{"orderId":"cond-2"}}`)

	_, err := adapter.PlaceConditionalOrder(context.Background(), "BTC/USDT",
		domain.SideSell, domain.TriggerStopLoss,
		decimal.RequireFromString("48000"), decimal.RequireFromString("0.01"))

	require.NoError(t, err)
	assert.Equal(t, "StopLoss", (*calls)[0].Body["orderType"])
}

func TestBybit_APIErrorBecomesConnectorError(t *testing.T) {
	adapter, _ := newBybitTestServer(t, `{"retCode":110007,"retMsg":"insufficient balance"}`)

	_, err := adapter.PlaceOrder(context.Background(), "BTC/USDT",
		domain.SideBuy, domain.OrderTypeMarket, decimal.RequireFromString("100"), decimal.Zero)

	var cerr *domain.ConnectorError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "bybit", cerr.Exchange)
	assert.Equal(t, "place_order", cerr.Op)
	assert.Contains(t, cerr.Error(), "insufficient balance")
}

func TestBybit_FetchPositionsFiltersZeroSize(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{
		"retCode":0,
		"result":{"list":[
			{"symbol":"BTCUSDT","side":"Buy","size":"0.5","positionValue":"25000","avgPrice":"50000","liqPrice":"40000","positionIM":"2500","leverage":"10","unrealisedPnl":"120"},
			{"symbol":"ETHUSDT","side":"None","size":"0","positionValue":"0","avgPrice":"0","liqPrice":"","positionIM":"0","leverage":"0","unrealisedPnl":"0"}
		]}
	}`)

	positions, err := adapter.FetchPositions(context.Background())

	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.Equal(t, domain.PositionLong, pos.Side)
	assert.InDelta(t, 0.5, pos.Size, 1e-9)
	assert.InDelta(t, 0.1, pos.MarginRatio, 1e-9)
	assert.InDelta(t, 120, pos.UnrealizedPnL, 1e-9)

	assert.Equal(t, "/v5/position/list", (*calls)[0].Path)
	assert.Contains(t, (*calls)[0].Query, "category=linear")
}

func TestBybit_CancelOrder(t *testing.T) {
	adapter, calls := newBybitTestServer(t, `{"retCode":0,"result":{"orderId":"ord-9"}}`)

	err := adapter.CancelOrder(context.Background(), "ord-9", "BTC/USDT")

	require.NoError(t, err)
	call := (*calls)[0]
	assert.Equal(t, "/v5/order/cancel", call.Path)
	assert.Equal(t, "ord-9", call.Body["orderId"])
	assert.Equal(t, "BTCUSDT", call.Body["symbol"])
}
