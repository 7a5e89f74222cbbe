package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"optionedge/internal/models"
)

// ParseResponse converts a raw backtest result into typed trades and
// summary statistics, tolerant of the several field-name dialects the
// service emits. Server-supplied summary fields take precedence over local
// computation. The originating config is attached so the result stays
// auditable.
func ParseResponse(raw map[string]any, cfg models.BacktestConfig) (*models.BacktestResult, error) {
	rawTrades, ok := tradesArray(raw)
	if !ok {
		return nil, fmt.Errorf("backtest response has no trades array")
	}

	trades := make([]models.BacktestTrade, 0, len(rawTrades))
	for _, entry := range rawTrades {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		trades = append(trades, parseTrade(m))
	}

	result := &models.BacktestResult{
		Config:     cfg,
		Trades:     trades,
		MonthlyPnL: monthlyBuckets(trades),
	}
	result.EquityCurve = equityCurve(trades)
	result.Summary = computeSummary(trades, result.EquityCurve)

	if summary, ok := raw["summary"].(map[string]any); ok {
		applyServerSummary(&result.Summary, summary)
	}
	return result, nil
}

func tradesArray(raw map[string]any) ([]any, bool) {
	for _, key := range []string{"trades", "results"} {
		if arr, ok := raw[key].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func parseTrade(m map[string]any) models.BacktestTrade {
	return models.BacktestTrade{
		EntryDate:   pickString(m, "entry-date", "entry_date", "entryDate", "open-date"),
		ExitDate:    pickString(m, "exit-date", "exit_date", "exitDate", "close-date"),
		EntryPrice:  pickNumber(m, "entry-price", "entry_price", "entryPrice", "open-price"),
		ExitPrice:   pickNumber(m, "exit-price", "exit_price", "exitPrice", "close-price"),
		PnL:         pickNumber(m, "pnl", "profit-loss", "profit_loss", "pl"),
		PnLPercent:  pickNumber(m, "pnl-percent", "pnl_percent", "pnlPercent", "profit-loss-percent"),
		HoldingDays: int(pickNumber(m, "holding-days", "holding_days", "holdingDays", "days-held")),
		ExitReason:  parseExitReason(pickString(m, "exit-reason", "exit_reason", "close-reason", "close_reason", "reason")),
		MaxDrawdown: pickNumber(m, "max-drawdown", "max_drawdown", "maxDrawdown", "drawdown"),
	}
}

// parseExitReason matches the reason text case-insensitively into the
// four-value enum, defaulting to expiration.
func parseExitReason(s string) models.ExitReason {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "profit"):
		return models.ExitProfitTarget
	case strings.Contains(lower, "stop"):
		return models.ExitStopLoss
	case strings.Contains(lower, "dte"):
		return models.ExitDTE
	default:
		return models.ExitExpiration
	}
}

// equityCurve accumulates trade P&L in exit-date order.
func equityCurve(trades []models.BacktestTrade) []models.EquityPoint {
	ordered := make([]models.BacktestTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDate < ordered[j].ExitDate
	})

	curve := make([]models.EquityPoint, 0, len(ordered))
	equity := 0.0
	for _, t := range ordered {
		equity += t.PnL
		curve = append(curve, models.EquityPoint{Date: t.ExitDate, Equity: equity})
	}
	return curve
}

func monthlyBuckets(trades []models.BacktestTrade) map[string]float64 {
	buckets := make(map[string]float64)
	for _, t := range trades {
		if len(t.ExitDate) < 7 {
			continue
		}
		buckets[t.ExitDate[:7]] += t.PnL
	}
	return buckets
}

func computeSummary(trades []models.BacktestTrade, curve []models.EquityPoint) models.BacktestSummary {
	s := models.BacktestSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	var grossWins, grossLosses float64
	var winStreak, lossStreak int
	for _, t := range trades {
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.WinningTrades++
			grossWins += t.PnL
			winStreak++
			lossStreak = 0
		} else {
			s.LosingTrades++
			grossLosses += -t.PnL
			lossStreak++
			winStreak = 0
		}
		if winStreak > s.LongestWinStreak {
			s.LongestWinStreak = winStreak
		}
		if lossStreak > s.LongestLossStreak {
			s.LongestLossStreak = lossStreak
		}
	}

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	s.AvgPnL = s.TotalPnL / float64(s.TotalTrades)

	// Max drawdown in dollars off the running peak of cumulative P&L.
	peak := 0.0
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if dd := peak - pt.Equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	switch {
	case grossLosses > 0:
		s.ProfitFactor = grossWins / grossLosses
	case grossWins > 0:
		s.ProfitFactor = math.Inf(1)
	}

	s.SharpeRatio = sharpeFromMonthly(monthlyBuckets(trades))
	return s
}

// sharpeFromMonthly annualizes the mean/stdev of monthly P&L buckets.
// Fewer than two buckets or zero variance yields 0.
func sharpeFromMonthly(buckets map[string]float64) float64 {
	if len(buckets) < 2 {
		return 0
	}
	values := make([]float64, 0, len(buckets))
	for _, v := range buckets {
		values = append(values, v)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(12)
}

// applyServerSummary overrides locally computed fields with whatever the
// server supplied.
func applyServerSummary(s *models.BacktestSummary, m map[string]any) {
	if v, ok := numberAt(m, "total-trades", "total_trades"); ok {
		s.TotalTrades = int(v)
	}
	if v, ok := numberAt(m, "winning-trades", "winning_trades"); ok {
		s.WinningTrades = int(v)
	}
	if v, ok := numberAt(m, "losing-trades", "losing_trades"); ok {
		s.LosingTrades = int(v)
	}
	if v, ok := numberAt(m, "win-rate", "win_rate"); ok {
		s.WinRate = v
	}
	if v, ok := numberAt(m, "avg-pnl", "avg_pnl", "average-pnl"); ok {
		s.AvgPnL = v
	}
	if v, ok := numberAt(m, "total-pnl", "total_pnl"); ok {
		s.TotalPnL = v
	}
	if v, ok := numberAt(m, "max-drawdown", "max_drawdown"); ok {
		s.MaxDrawdown = v
	}
	if v, ok := numberAt(m, "sharpe-ratio", "sharpe_ratio"); ok {
		s.SharpeRatio = v
	}
	if v, ok := numberAt(m, "profit-factor", "profit_factor"); ok {
		s.ProfitFactor = v
	}
}

// pickNumber coerces the first present key to a float64, falling back to 0
// for missing or unparseable fields.
func pickNumber(m map[string]any, keys ...string) float64 {
	v, _ := numberAt(m, keys...)
	return v
}

func numberAt(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}
