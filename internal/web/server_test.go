package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
	"github.com/vitos/crypto_signal_relay/internal/usecase"
)

const (
	testPIN      = "web-pin"
	testPassword = "hunter2"
)

type stubConnector struct {
	name       string
	PlaceCalls int
	Cancels    []string
	Positions  []*domain.Position
}

func (c *stubConnector) Name() string { return c.name }

func (c *stubConnector) PlaceOrder(ctx context.Context, symbol string, side domain.Side, orderType domain.OrderType, quantity, price decimal.Decimal) (*domain.OrderResult, error) {
	c.PlaceCalls++
	return &domain.OrderResult{OrderID: "order-1", Exchange: c.name, Symbol: symbol, Side: side, Type: orderType, Quantity: quantity}, nil
}

func (c *stubConnector) FetchPositions(ctx context.Context) ([]*domain.Position, error) {
	return c.Positions, nil
}

func (c *stubConnector) FetchOpenOrders(ctx context.Context) ([]*domain.PendingOrder, error) {
	return nil, nil
}

func (c *stubConnector) FetchBalance(ctx context.Context) (map[string]domain.BalanceEntry, error) {
	return nil, nil
}

func (c *stubConnector) CancelOrder(ctx context.Context, orderID, symbol string) error {
	c.Cancels = append(c.Cancels, orderID)
	return nil
}

func (c *stubConnector) PlaceConditionalOrder(ctx context.Context, symbol string, side domain.Side, kind domain.TriggerKind, triggerPrice, quantity decimal.Decimal) (*domain.OrderResult, error) {
	return &domain.OrderResult{OrderID: "cond-1"}, nil
}

type stubRegistry struct {
	conn *stubConnector
}

func (r *stubRegistry) Get(name string) (domain.Connector, bool) {
	if name == r.conn.name {
		return r.conn, true
	}
	return nil, false
}

func (r *stubRegistry) Names() []string { return []string{r.conn.name} }

type memorySignals struct {
	Saved []*domain.SignalRecord
}

func (m *memorySignals) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	m.Saved = append(m.Saved, rec)
	return nil
}

func (m *memorySignals) ListSignals(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	return m.Saved, nil
}

func newTestServer(t *testing.T, conn *stubConnector) (*Server, *memorySignals) {
	t.Helper()
	require.NoError(t, InitTemplates("templates"))

	registry := &stubRegistry{conn: conn}
	log := zap.NewNop()
	signals := &memorySignals{}

	processor := usecase.NewSignalProcessor(
		usecase.NewValidator(registry, testPIN),
		usecase.NewExecutionEngine(registry, log),
		signals, nil, log)
	portfolio := usecase.NewPortfolioService(registry, "USDT", log)
	mutations := usecase.NewMutationService(registry, log)
	auth := NewAuth(testPassword, "test-secret", time.Hour)

	return NewServer(0, processor, portfolio, mutations, signals, auth, testPIN, true, time.Second, log), signals
}

func login(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("password="+testPassword))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestWebhook_MalformedJSON(t *testing.T) {
	s, _ := newTestServer(t, &stubConnector{name: "bybit"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_InvalidPINIsForbidden(t *testing.T) {
	conn := &stubConnector{name: "bybit"}
	s, signals := newTestServer(t, conn)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"PIN":"wrong","EXCHANGE":"bybit","SYMBOL":"BTC/USDT","SIDE":"buy","ORDER_TYPE":"market","QUANTITY":"0.01"}`))
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid PIN")
	assert.Zero(t, conn.PlaceCalls)
	assert.Empty(t, signals.Saved, "rejected-at-boundary requests never reach the processor")
}

func TestWebhook_ValidSignalIsExecuted(t *testing.T) {
	conn := &stubConnector{name: "bybit"}
	s, signals := newTestServer(t, conn)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"PIN":"web-pin","EXCHANGE":"bybit","SYMBOL":"BTC/USDT","SIDE":"buy","ORDER_TYPE":"market","QUANTITY":"0.01"}`))
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	assert.Equal(t, 1, conn.PlaceCalls)
	assert.Len(t, signals.Saved, 1)
}

func TestDashboard_RequiresSession(t *testing.T) {
	s, _ := newTestServer(t, &stubConnector{name: "bybit"})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDashboard_RendersWithValidSession(t *testing.T) {
	conn := &stubConnector{
		name: "bybit",
		Positions: []*domain.Position{
			{Exchange: "bybit", Symbol: "BTC/USDT", Side: domain.PositionLong, Size: 0.5},
		},
	}
	s, _ := newTestServer(t, conn)
	cookie := login(t, s)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BTC/USDT")
}

func TestLogin_WrongPasswordKeepsSessionOut(t *testing.T) {
	s, _ := newTestServer(t, &stubConnector{name: "bybit"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("password=nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuth_TamperedCookieIsRejected(t *testing.T) {
	s, _ := newTestServer(t, &stubConnector{name: "bybit"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not-a-token"})
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestPositionsJSON(t *testing.T) {
	conn := &stubConnector{
		name: "bybit",
		Positions: []*domain.Position{
			{Exchange: "bybit", Symbol: "ETH/USDT", Side: domain.PositionShort, Size: -1},
		},
	}
	s, _ := newTestServer(t, conn)
	cookie := login(t, s)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	req.AddCookie(cookie)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ETH/USDT")
}

func TestClosePosition_FlattensAndRedirects(t *testing.T) {
	conn := &stubConnector{
		name: "bybit",
		Positions: []*domain.Position{
			{Exchange: "bybit", Symbol: "BTC/USDT", Side: domain.PositionLong, Size: 0.5},
		},
	}
	s, _ := newTestServer(t, conn)
	cookie := login(t, s)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/close_position",
		strings.NewReader("EXCHANGE=bybit&SYMBOL=BTC%2FUSDT"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, conn.PlaceCalls)
}

func TestCancelOrder_PassesThrough(t *testing.T) {
	conn := &stubConnector{name: "bybit"}
	s, _ := newTestServer(t, conn)
	cookie := login(t, s)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cancel_order",
		strings.NewReader("EXCHANGE=bybit&ORDER_ID=42&SYMBOL=BTC%2FUSDT"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"42"}, conn.Cancels)
}
