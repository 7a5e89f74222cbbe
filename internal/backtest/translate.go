// Package backtest translates strategy cards into backtest-service
// requests and parses the service's results into typed trades and summary
// statistics.
package backtest

import (
	"math"
	"time"

	"optionedge/internal/models"
)

// historyYears is the default lookback when no date range is given.
const historyYears = 5

// QuantizeDelta rounds a leg delta to the nearest multiple of 5 and clamps
// it to [5, 50], the only deltas the backtest service accepts.
func QuantizeDelta(delta float64) int {
	d := int(math.Round(math.Abs(delta)*100/5)) * 5
	if d < 5 {
		return 5
	}
	if d > 50 {
		return 50
	}
	return d
}

// StrategyType maps a strategy family to the service's type identifier,
// total over the enum. Anything without a dedicated identifier runs as
// "custom".
func StrategyType(k models.StrategyKind) string {
	switch k {
	case models.KindIronCondor:
		return "iron-condor"
	case models.KindPutCreditSpread:
		return "put-credit-spread"
	case models.KindCallCreditSpread:
		return "call-credit-spread"
	case models.KindShortStrangle:
		return "short-strangle"
	case models.KindShortStraddle:
		return "short-straddle"
	case models.KindBullCallSpread:
		return "bull-call-spread"
	case models.KindDebitSpread:
		return "debit-spread"
	case models.KindLongStraddle:
		return "long-straddle"
	case models.KindLongStrangle:
		return "long-strangle"
	case models.KindJadeLizard:
		return "jade-lizard"
	case models.KindCustom:
		return "custom"
	default:
		return "custom"
	}
}

// DefaultManagement returns the management rules applied when the caller
// does not override them: credit families take profits early and ride out
// drawdowns, debit families do the reverse.
func DefaultManagement(k models.StrategyKind) models.BacktestManagement {
	if k.IsCreditFamily() {
		return models.BacktestManagement{
			ProfitTargetPercent: 50,
			StopLossPercent:     200,
			ExitDTE:             21,
		}
	}
	return models.BacktestManagement{
		ProfitTargetPercent: 100,
		StopLossPercent:     50,
		ExitDTE:             7,
	}
}

// Translate maps a strategy card into a backtest configuration for the
// given symbol. Dates default to the trailing five years ending today.
func Translate(card *models.StrategyCard, symbol string, now time.Time) models.BacktestConfig {
	legs := make([]models.BacktestLeg, 0, len(card.Legs))
	for _, leg := range card.Legs {
		legs = append(legs, models.BacktestLeg{
			Side:  leg.Side,
			Type:  leg.Type,
			Delta: QuantizeDelta(leg.Greeks.Delta),
		})
	}
	return models.BacktestConfig{
		Symbol:       symbol,
		StrategyType: StrategyType(card.Kind),
		Legs:         legs,
		TargetDTE:    card.DTE,
		Management:   DefaultManagement(card.Kind),
		StartDate:    now.AddDate(-historyYears, 0, 0).Format("2006-01-02"),
		EndDate:      now.Format("2006-01-02"),
	}
}
