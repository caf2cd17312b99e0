package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// SQLiteStore keeps the audit trail of processed signals. It never holds
// positions or orders; live exchange state is always re-fetched.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			exchange TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL DEFAULT '',
			side TEXT NOT NULL DEFAULT '',
			order_type TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals(created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, source, exchange, symbol, side, order_type, quantity, price, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Exchange, rec.Symbol, rec.Side, rec.OrderType,
		rec.Quantity, rec.Price, rec.Status, rec.Message, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, exchange, symbol, side, order_type, quantity, price, status, message, created_at
		 FROM signals ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	var records []*domain.SignalRecord
	for rows.Next() {
		rec := &domain.SignalRecord{}
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Exchange, &rec.Symbol, &rec.Side,
			&rec.OrderType, &rec.Quantity, &rec.Price, &rec.Status, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
