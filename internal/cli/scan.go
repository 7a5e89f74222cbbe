package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"optionedge/internal/chain"
	"optionedge/internal/logging"
	"optionedge/internal/models"
	"optionedge/internal/strategy"
	"optionedge/pkg/utils"
)

func newScanCmd(app *App) *cobra.Command {
	var legSpecs []string

	cmd := &cobra.Command{
		Use:   "scan <snapshot.json>",
		Short: "Scan a chain snapshot for ranked strategies",
		Long: `Scan reads an option chain snapshot, generates candidate strategies
for the snapshot's volatility regime, gates them on expected value,
probability of profit, and minimum credit, and prints the survivors
ranked best first.

Pass "-" to read the snapshot from stdin. With --leg flags the generated
families are replaced by a single custom strategy built from the given
legs, e.g. --leg "sell put 95" --leg "buy put 90".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			emitter := strategy.NewLogEmitter(logging.WithSymbol(app.Logger, snap.Symbol))
			var cards []*models.StrategyCard
			if len(legSpecs) > 0 {
				specs, err := parseLegSpecs(legSpecs)
				if err != nil {
					return err
				}
				card, err := strategy.BuildCustom(snap, specs)
				if err != nil {
					return fmt.Errorf("building custom strategy: %w", err)
				}
				cards = []*models.StrategyCard{card}
			} else {
				cards = strategy.NewGenerator(emitter).Generate(snap)
			}

			ranked := strategy.NewPipeline(pipelineParams(app), emitter).Run(snap, cards)
			logging.LogScan(app.Logger, snap.Symbol, snap.IVRank, len(cards), len(ranked))

			if app.Store != nil && len(ranked) > 0 {
				if _, err := app.Store.SaveScan(cmd.Context(), snap.Symbol, ranked); err != nil {
					app.Logger.Warn().Err(err).Msg("failed to journal scan")
				}
			}

			if output.IsJSON() {
				return output.JSON(ranked)
			}
			printScan(output, snap, ranked)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&legSpecs, "leg", nil, `custom leg: "<buy|sell> <call|put> <strike>" (repeatable)`)
	return cmd
}

// pipelineParams maps the loaded configuration onto the pipeline's model
// and gate parameters.
func pipelineParams(app *App) strategy.PipelineParams {
	return strategy.PipelineParams{
		Model: strategy.ModelParams{
			IVHVRatioCap:            app.Config.Model.IVHVRatioCap,
			UnlimitedLossMultiplier: app.Config.Model.UnlimitedLossMultiplier,
		},
		MinCreditPerShare: app.Config.Gates.MinCreditPerShare,
	}
}

func readSnapshot(path string) (*models.ChainSnapshot, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return chain.ParseSnapshot(data)
}

// parseLegSpecs parses "sell put 95" style leg descriptions.
func parseLegSpecs(specs []string) ([]strategy.CustomLeg, error) {
	legs := make([]strategy.CustomLeg, 0, len(specs))
	for _, spec := range specs {
		fields := strings.Fields(strings.ToLower(spec))
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid leg %q: want \"<buy|sell> <call|put> <strike>\"", spec)
		}

		var side models.Side
		switch fields[0] {
		case "buy":
			side = models.SideBuy
		case "sell":
			side = models.SideSell
		default:
			return nil, fmt.Errorf("invalid leg %q: side must be buy or sell", spec)
		}

		var typ models.OptionType
		switch fields[1] {
		case "call":
			typ = models.OptionCall
		case "put":
			typ = models.OptionPut
		default:
			return nil, fmt.Errorf("invalid leg %q: type must be call or put", spec)
		}

		strike, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || strike <= 0 {
			return nil, fmt.Errorf("invalid leg %q: bad strike", spec)
		}
		legs = append(legs, strategy.CustomLeg{Strike: strike, Type: typ, Side: side})
	}
	return legs, nil
}

func printScan(output *Output, snap *models.ChainSnapshot, cards []*models.StrategyCard) {
	output.Bold("%s  spot %s  IV rank %.0f%%  %d DTE (exp %s)",
		snap.Symbol, utils.FormatMoney(snap.SpotPrice), snap.IVRank*100, snap.DTE, snap.Expiration)
	output.Println()

	if len(cards) == 0 {
		output.Warning("No strategies survived gating.")
		return
	}

	table := NewTable(output, "Rank", "Strategy", "Credit/Debit", "Max Profit", "Max Loss", "PoP", "EV", "Score")
	for _, card := range cards {
		table.AddRow(
			card.Label,
			card.Name,
			formatCashFlow(card),
			utils.FormatMoney(card.MaxProfit),
			formatMaxLoss(output, card),
			fmt.Sprintf("%.0f%%", card.PoP*100),
			output.FormatPnL(card.EV),
			fmt.Sprintf("%.1f", card.Score),
		)
	}
	table.Render()
	output.Println()

	for _, card := range cards {
		printCardDetail(output, card)
	}
}

func formatCashFlow(card *models.StrategyCard) string {
	if card.NetCredit != nil {
		return fmt.Sprintf("+%s cr", utils.FormatMoney(*card.NetCredit))
	}
	if card.NetDebit != nil {
		return fmt.Sprintf("-%s db", utils.FormatMoney(*card.NetDebit))
	}
	return "-"
}

func formatMaxLoss(output *Output, card *models.StrategyCard) string {
	if card.UnlimitedRisk {
		return output.Red("unlimited")
	}
	if card.MaxLoss == nil {
		return "-"
	}
	return utils.FormatMoney(*card.MaxLoss)
}

func printCardDetail(output *Output, card *models.StrategyCard) {
	output.Bold("%s. %s", card.Label, card.Name)
	for _, leg := range card.Legs {
		tag := ""
		if leg.WideSpread {
			tag = output.Yellow("  (wide spread)")
		}
		output.Printf("   %-4s %-4s %8.2f  @ %s  Δ %+.2f%s\n",
			leg.Side, leg.Type, leg.Strike, utils.FormatMoney(leg.Price), leg.Greeks.Delta, tag)
	}

	output.Printf("   Breakevens: ")
	if len(card.Breakevens) == 0 {
		output.Printf("none\n")
	} else {
		parts := make([]string, len(card.Breakevens))
		for i, be := range card.Breakevens {
			parts[i] = fmt.Sprintf("%.2f", be)
		}
		output.Printf("%s\n", strings.Join(parts, ", "))
	}

	output.Printf("   PoP %.0f%%", card.PoP*100)
	if card.VolAdjustedPoP != nil {
		output.Printf("  vol-adj %.0f%%", *card.VolAdjustedPoP*100)
	}
	output.Printf("  theta/day %s  EV %s (%s of risk)\n",
		utils.FormatMoney(card.ThetaPerDay), output.FormatPnL(card.EV),
		output.FormatPercent(card.EVPerRisk*100))
	output.Println()
}
