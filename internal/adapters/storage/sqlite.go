package storage

// sqlite.go: trade log append-only.
//
// Estrategia:
//   - `trades`: una fila por orden terminal. INSERT al registrar; la única
//     mutación posterior es escribir los campos de liquidación una vez.
//   - Nunca se borra nada: el log es la fuente de verdad del P&L histórico.
//   - SQLite pure Go (sin CGo), single-writer igual que el engine.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por orden que alcanzó estado terminal
CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT     NOT NULL,
    market_key  TEXT     NOT NULL,
    ticker      TEXT     NOT NULL,
    side        TEXT     NOT NULL,
    price       INTEGER  NOT NULL,
    quantity    INTEGER  NOT NULL,
    cost        REAL     NOT NULL DEFAULT 0,
    placed_at   DATETIME NOT NULL,
    settled     INTEGER  NOT NULL DEFAULT 0,
    settled_at  DATETIME,
    result      TEXT     NOT NULL DEFAULT '',
    payout      REAL     NOT NULL DEFAULT 0,
    pnl         REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_trades_settled ON trades(settled);
CREATE INDEX IF NOT EXISTS idx_trades_market  ON trades(market_key);
CREATE INDEX IF NOT EXISTS idx_trades_placed  ON trades(placed_at DESC);
`

// SQLiteStorage implementa ports.TradeStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el
// schema. Usa ":memory:" en tests.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveTrade inserta un trade nuevo y rellena su ID autoincremental.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, trade *domain.TradeRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (order_id, market_key, ticker, side, price, quantity, cost, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.OrderID, trade.MarketKey, trade.Ticker, string(trade.Side),
		trade.Price, trade.Quantity, trade.Cost, trade.PlacedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: last id: %w", err)
	}
	trade.ID = id
	return nil
}

// UpdateSettlement escribe los campos de liquidación de un trade existente.
// Es la única mutación permitida sobre el log.
func (s *SQLiteStorage) UpdateSettlement(ctx context.Context, trade domain.TradeRecord) error {
	var settledAt *time.Time
	if trade.SettledAt != nil {
		t := trade.SettledAt.UTC()
		settledAt = &t
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET settled = 1, settled_at = ?, result = ?, payout = ?, pnl = ?
		WHERE id = ? AND settled = 0
	`, settledAt, trade.Result, trade.Payout, trade.PnL, trade.ID)
	if err != nil {
		return fmt.Errorf("storage.UpdateSettlement: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.UpdateSettlement: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.UpdateSettlement: trade %d not found or already settled", trade.ID)
	}
	return nil
}

// GetUnsettled devuelve los trades pendientes de liquidar, más antiguos primero.
func (s *SQLiteStorage) GetUnsettled(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, market_key, ticker, side, price, quantity, cost, placed_at,
		       settled, settled_at, result, payout, pnl
		FROM trades
		WHERE settled = 0
		ORDER BY placed_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetUnsettled: query: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetRecent devuelve los últimos n trades, más recientes al final.
func (s *SQLiteStorage) GetRecent(ctx context.Context, n int) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, market_key, ticker, side, price, quantity, cost, placed_at,
		       settled, settled_at, result, payout, pnl
		FROM (
			SELECT * FROM trades ORDER BY placed_at DESC LIMIT ?
		)
		ORDER BY placed_at ASC
	`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRecent: query: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// Summary devuelve las estadísticas agregadas del log en una sola query.
func (s *SQLiteStorage) Summary(ctx context.Context) (domain.TradeSummary, error) {
	var sum domain.TradeSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(settled), 0),
		       COALESCE(SUM(CASE WHEN settled = 1 AND pnl >= 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN settled = 1 AND pnl < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN settled = 1 THEN pnl ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN settled = 1 THEN cost ELSE 0 END), 0)
		FROM trades
	`).Scan(&sum.TotalTrades, &sum.Settled, &sum.Wins, &sum.Losses, &sum.TotalPnL, &sum.TotalWagered)
	if err != nil {
		return domain.TradeSummary{}, fmt.Errorf("storage.Summary: query: %w", err)
	}

	sum.Unsettled = sum.TotalTrades - sum.Settled
	if sum.Settled > 0 {
		sum.WinRate = float64(sum.Wins) / float64(sum.Settled)
	}
	if sum.TotalWagered > 0 {
		sum.ROI = sum.TotalPnL / sum.TotalWagered * 100
	}
	return sum, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanTrades materializa las filas de un SELECT con las 14 columnas estándar.
func scanTrades(rows *sql.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var side string
		var settled int
		var settledAt sql.NullTime

		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.MarketKey, &t.Ticker, &side,
			&t.Price, &t.Quantity, &t.Cost, &t.PlacedAt,
			&settled, &settledAt, &t.Result, &t.Payout, &t.PnL,
		); err != nil {
			return nil, fmt.Errorf("storage.scanTrades: scan row: %w", err)
		}

		t.Side = domain.OrderSide(side)
		t.Settled = settled == 1
		if settledAt.Valid {
			at := settledAt.Time
			t.SettledAt = &at
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
