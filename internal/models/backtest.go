package models

// BacktestLeg is a leg reduced to what the backtest service accepts: side,
// option type, and a delta quantized to a multiple of 5 in [5, 50].
type BacktestLeg struct {
	Side  Side
	Type  OptionType
	Delta int
}

// BacktestManagement holds the trade management rules applied during a
// simulated campaign. Percentages are relative to the credit received or
// debit paid. ExitDTE closes the position this many days before expiration
// regardless of P&L.
type BacktestManagement struct {
	ProfitTargetPercent float64
	StopLossPercent     float64
	ExitDTE             int
}

// BacktestConfig describes one historical backtest request. StartDate and
// EndDate are ISO calendar dates (YYYY-MM-DD).
type BacktestConfig struct {
	Symbol       string
	StrategyType string
	Legs         []BacktestLeg
	TargetDTE    int
	Management   BacktestManagement
	StartDate    string
	EndDate      string
}

// ExitReason enumerates why a simulated trade was closed.
type ExitReason string

const (
	ExitProfitTarget ExitReason = "profit_target"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitDTE          ExitReason = "dte_exit"
	ExitExpiration   ExitReason = "expiration"
)

// BacktestTrade is one simulated round-trip.
type BacktestTrade struct {
	EntryDate   string
	ExitDate    string
	EntryPrice  float64
	ExitPrice   float64
	PnL         float64
	PnLPercent  float64
	HoldingDays int
	ExitReason  ExitReason
	MaxDrawdown float64
}

// EquityPoint is one point on the cumulative P&L curve.
type EquityPoint struct {
	Date   string
	Equity float64
}

// BacktestSummary aggregates a trade log. WinRate is a percentage,
// ProfitFactor is +Inf when there are wins and no losses.
type BacktestSummary struct {
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	WinRate           float64
	AvgPnL            float64
	TotalPnL          float64
	MaxDrawdown       float64
	SharpeRatio       float64
	ProfitFactor      float64
	LongestWinStreak  int
	LongestLossStreak int
}

// BacktestResult is a parsed backtest response. Config is always the
// configuration that produced the result so runs stay auditable.
type BacktestResult struct {
	Config      BacktestConfig
	Trades      []BacktestTrade
	Summary     BacktestSummary
	EquityCurve []EquityPoint
	MonthlyPnL  map[string]float64
}
