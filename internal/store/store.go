// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"optionedge/internal/models"
)

// StoredRun is one persisted backtest run: the configuration that produced
// the result travels with it.
type StoredRun struct {
	ID        int64
	Symbol    string
	CreatedAt time.Time
	Config    models.BacktestConfig
	Result    models.BacktestResult
}

// StoredScan is one persisted ranked scan.
type StoredScan struct {
	ID        int64
	Symbol    string
	CreatedAt time.Time
	Cards     []models.StrategyCard
}

// DataStore defines the interface for result persistence.
type DataStore interface {
	// Backtest journal
	SaveRun(ctx context.Context, symbol string, result *models.BacktestResult) (int64, error)
	GetRuns(ctx context.Context, symbol string, limit int) ([]StoredRun, error)

	// Scan snapshots
	SaveScan(ctx context.Context, symbol string, cards []*models.StrategyCard) (int64, error)
	GetLatestScan(ctx context.Context, symbol string) (*StoredScan, error)

	// Lifecycle
	Close() error
}
