package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "optionedge/internal/errors"
	"optionedge/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Backtest runs: config and result stored together for auditability
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		config TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol, created_at);

	-- Ranked scan snapshots
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		cards TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scans_symbol ON scans(symbol, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists a backtest result together with its configuration.
func (s *SQLiteStore) SaveRun(ctx context.Context, symbol string, result *models.BacktestResult) (int64, error) {
	configJSON, err := json.Marshal(result.Config)
	if err != nil {
		return 0, fmt.Errorf("encoding config: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encoding result: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backtest_runs (symbol, config, result) VALUES (?, ?, ?)`,
		symbol, string(configJSON), string(resultJSON))
	if err != nil {
		return 0, fmt.Errorf("inserting backtest run: %w", err)
	}
	return res.LastInsertId()
}

// GetRuns returns the most recent runs for a symbol, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, symbol string, limit int) ([]StoredRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, config, result, created_at
		 FROM backtest_runs WHERE symbol = ?
		 ORDER BY created_at DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("querying backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		var configJSON, resultJSON string
		if err := rows.Scan(&run.ID, &run.Symbol, &configJSON, &resultJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning backtest run: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
		if err := json.Unmarshal([]byte(resultJSON), &run.Result); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveScan persists a ranked card list.
func (s *SQLiteStore) SaveScan(ctx context.Context, symbol string, cards []*models.StrategyCard) (int64, error) {
	cardsJSON, err := json.Marshal(cards)
	if err != nil {
		return 0, fmt.Errorf("encoding cards: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (symbol, cards) VALUES (?, ?)`,
		symbol, string(cardsJSON))
	if err != nil {
		return 0, fmt.Errorf("inserting scan: %w", err)
	}
	return res.LastInsertId()
}

// GetLatestScan returns the most recent scan for a symbol, or
// ErrDataNotFound when the symbol has never been scanned.
func (s *SQLiteStore) GetLatestScan(ctx context.Context, symbol string) (*StoredScan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, cards, created_at
		 FROM scans WHERE symbol = ?
		 ORDER BY created_at DESC LIMIT 1`, symbol)

	var scan StoredScan
	var cardsJSON string
	if err := row.Scan(&scan.ID, &scan.Symbol, &cardsJSON, &scan.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrDataNotFound
		}
		return nil, fmt.Errorf("querying latest scan: %w", err)
	}
	if err := json.Unmarshal([]byte(cardsJSON), &scan.Cards); err != nil {
		return nil, fmt.Errorf("decoding cards: %w", err)
	}
	return &scan, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
