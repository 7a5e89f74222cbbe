package cli

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optionedge/internal/backtest"
	apperrors "optionedge/internal/errors"
	"optionedge/internal/logging"
	"optionedge/internal/models"
	"optionedge/internal/strategy"
	"optionedge/pkg/utils"
)

func newBacktestCmd(app *App) *cobra.Command {
	var rank string

	cmd := &cobra.Command{
		Use:   "backtest <snapshot.json>",
		Short: "Backtest a ranked strategy against historical data",
		Long: `Backtest scans the snapshot, picks one ranked strategy, translates it
into the backtest service's delta-quantized request shape, submits the
job, and polls until it finishes or the attempt budget runs out.

A job still running when the budget is exhausted is reported as such;
it is not an error and the service keeps working on it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, card, err := pickCard(app, args[0], rank)
			if err != nil {
				return err
			}
			now := time.Now()
			cfg := backtest.Translate(card, snap.Symbol, now)
			cfg.StartDate = now.AddDate(-app.Config.Backtest.HistoryYears, 0, 0).Format("2006-01-02")

			output.Info("Backtesting %s on %s (%s to %s)...", card.Name, cfg.Symbol, cfg.StartDate, cfg.EndDate)

			outcome, err := app.Backtest.Run(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("running backtest: %w", err)
			}

			switch outcome.Status {
			case backtest.StatusCompleted:
				logging.LogBacktestRun(app.Logger, cfg.Symbol, cfg.StrategyType,
					string(outcome.Status), outcome.Result.Summary.TotalTrades)
				if app.Store != nil {
					if _, err := app.Store.SaveRun(cmd.Context(), cfg.Symbol, outcome.Result); err != nil {
						app.Logger.Warn().Err(err).Msg("failed to journal backtest run")
					}
				}
				if output.IsJSON() {
					return output.JSON(outcome.Result)
				}
				printResult(output, outcome.Result)
			case backtest.StatusFailed:
				output.Error("Backtest failed: %s", outcome.Reason)
				return fmt.Errorf("backtest failed: %s", outcome.Reason)
			case backtest.StatusRunning:
				output.Warning("%s", outcome.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "A", "rank label of the strategy to backtest")
	return cmd
}

func newSimulateCmd(app *App) *cobra.Command {
	var rank string

	cmd := &cobra.Command{
		Use:   "simulate <snapshot.json>",
		Short: "Run a single-trade simulation for a ranked strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, card, err := pickCard(app, args[0], rank)
			if err != nil {
				return err
			}
			now := time.Now()
			cfg := backtest.Translate(card, snap.Symbol, now)
			cfg.StartDate = now.AddDate(-app.Config.Backtest.HistoryYears, 0, 0).Format("2006-01-02")

			result, err := app.Backtest.Simulate(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("running simulation: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "A", "rank label of the strategy to simulate")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	var lastScan bool

	cmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "Show journaled backtest runs for a symbol",
		Long: `History lists the journaled backtest runs for a symbol, newest first.
With --scan it shows the most recent journaled scan instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			symbol := strings.ToUpper(args[0])

			if lastScan {
				return showLatestScan(cmd, app, output, symbol)
			}

			runs, err := app.Store.GetRuns(cmd.Context(), symbol, limit)
			if err != nil {
				return fmt.Errorf("loading runs: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Warning("No journaled runs for %s.", symbol)
				return nil
			}

			table := NewTable(output, "When", "Strategy", "Trades", "Win Rate", "Total P&L", "Sharpe")
			for _, run := range runs {
				s := run.Result.Summary
				table.AddRow(
					run.CreatedAt.Format("2006-01-02 15:04"),
					run.Config.StrategyType,
					fmt.Sprintf("%d", s.TotalTrades),
					fmt.Sprintf("%.1f%%", s.WinRate),
					output.FormatPnL(s.TotalPnL),
					fmt.Sprintf("%.2f", s.SharpeRatio),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	cmd.Flags().BoolVar(&lastScan, "scan", false, "show the latest journaled scan instead of runs")
	return cmd
}

func showLatestScan(cmd *cobra.Command, app *App, output *Output, symbol string) error {
	scan, err := app.Store.GetLatestScan(cmd.Context(), symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrDataNotFound) {
			output.Warning("No journaled scans for %s.", symbol)
			return nil
		}
		return fmt.Errorf("loading latest scan: %w", err)
	}
	if output.IsJSON() {
		return output.JSON(scan)
	}

	output.Bold("%s  scanned %s", scan.Symbol, scan.CreatedAt.Format("2006-01-02 15:04"))
	table := NewTable(output, "Rank", "Strategy", "PoP", "EV", "Score")
	for i := range scan.Cards {
		card := &scan.Cards[i]
		table.AddRow(
			card.Label,
			card.Name,
			fmt.Sprintf("%.0f%%", card.PoP*100),
			output.FormatPnL(card.EV),
			fmt.Sprintf("%.1f", card.Score),
		)
	}
	table.Render()
	return nil
}

// rankSnapshot generates and ranks candidates for the snapshot using the
// configured model and gate parameters.
func rankSnapshot(app *App, snap *models.ChainSnapshot) ([]*models.StrategyCard, error) {
	emitter := strategy.NewLogEmitter(logging.WithSymbol(app.Logger, snap.Symbol))
	cards := strategy.NewGenerator(emitter).Generate(snap)
	ranked := strategy.NewPipeline(pipelineParams(app), emitter).Run(snap, cards)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("no strategies survived gating for %s", snap.Symbol)
	}
	return ranked, nil
}

// pickCard scans the snapshot and returns the card carrying the requested
// rank label.
func pickCard(app *App, path, rank string) (*models.ChainSnapshot, *models.StrategyCard, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, nil, err
	}
	ranked, err := rankSnapshot(app, snap)
	if err != nil {
		return nil, nil, err
	}

	rank = strings.ToUpper(rank)
	for _, card := range ranked {
		if card.Label == rank {
			return snap, card, nil
		}
	}
	return nil, nil, fmt.Errorf("no strategy ranked %q (have %d)", rank, len(ranked))
}

func printResult(output *Output, result *models.BacktestResult) {
	s := result.Summary

	output.Bold("%s %s  (%s to %s)", result.Config.Symbol, result.Config.StrategyType,
		result.Config.StartDate, result.Config.EndDate)
	output.Println()

	output.Printf("  Trades:        %d  (%d W / %d L)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	output.Printf("  Win Rate:      %.1f%%\n", s.WinRate)
	output.Printf("  Total P&L:     %s\n", output.FormatPnL(s.TotalPnL))
	output.Printf("  Avg P&L:       %s\n", output.FormatPnL(s.AvgPnL))
	output.Printf("  Max Drawdown:  %s\n", utils.FormatMoney(s.MaxDrawdown))
	output.Printf("  Sharpe:        %.2f\n", s.SharpeRatio)
	if math.IsInf(s.ProfitFactor, 1) {
		output.Printf("  Profit Factor: inf\n")
	} else {
		output.Printf("  Profit Factor: %.2f\n", s.ProfitFactor)
	}
	output.Printf("  Streaks:       %d wins / %d losses\n", s.LongestWinStreak, s.LongestLossStreak)

	if len(result.MonthlyPnL) > 0 {
		output.Println()
		output.Dim("  %d months of P&L recorded", len(result.MonthlyPnL))
	}
}
