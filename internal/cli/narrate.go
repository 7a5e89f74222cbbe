package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNarrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "narrate <snapshot.json>",
		Short: "Narrate the ranked strategies in plain language",
		Long: `Narrate scans the snapshot and asks the language model to describe the
surviving strategies for a human reader. Requires an OpenAI API key in
credentials.toml or OPENAI_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Narrator == nil {
				return fmt.Errorf("narration unavailable: no OpenAI API key configured")
			}

			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			ranked, err := rankSnapshot(app, snap)
			if err != nil {
				return err
			}

			text, err := app.Narrator.Narrate(cmd.Context(), snap.Symbol, ranked)
			if err != nil {
				return fmt.Errorf("narrating strategies: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"symbol": snap.Symbol, "commentary": text})
			}
			output.Println(text)
			return nil
		},
	}
}
