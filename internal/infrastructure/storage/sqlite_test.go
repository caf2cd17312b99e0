package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &domain.SignalRecord{
		ID:        "sig-1",
		Source:    "webhook",
		Exchange:  "bybit",
		Symbol:    "BTC/USDT",
		Side:      "buy",
		OrderType: "market",
		Quantity:  "0.01",
		Status:    "success",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveSignal(ctx, rec))

	records, err := store.ListSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "sig-1", got.ID)
	assert.Equal(t, "webhook", got.Source)
	assert.Equal(t, "bybit", got.Exchange)
	assert.Equal(t, "BTC/USDT", got.Symbol)
	assert.Equal(t, "0.01", got.Quantity)
	assert.Equal(t, "success", got.Status)
	assert.Empty(t, got.Price)
}

func TestSQLiteStore_ListReturnsNewestFirstAndHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.SaveSignal(ctx, &domain.SignalRecord{
			ID:        id,
			Source:    "email",
			Status:    "error",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.ListSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
}

func TestSQLiteStore_RejectedSignalKeepsEmptyIntentColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSignal(ctx, &domain.SignalRecord{
		ID:        "rej-1",
		Source:    "webhook",
		Status:    "error",
		Message:   "invalid_quantity: field QUANTITY",
		CreatedAt: time.Now().UTC(),
	}))

	records, err := store.ListSignals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Exchange)
	assert.Contains(t, records[0].Message, "invalid_quantity")
}
