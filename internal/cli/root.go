// Package cli provides the command-line interface for the strategy engine.
package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionedge/internal/backtest"
	"optionedge/internal/commentary"
	"optionedge/internal/config"
	"optionedge/internal/logging"
	"optionedge/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-31"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Backtest *backtest.Client
	Narrator *commentary.Narrator
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Backtest = backtest.NewClient(
		cfg.Backtest.URL,
		time.Duration(cfg.Backtest.PollIntervalSeconds)*time.Second,
		cfg.Backtest.MaxPollAttempts,
		logger,
	)

	dbPath := config.DefaultConfigDir() + "/optionedge.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize store, history will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("sqlite store initialized")
	}

	if cfg.Credentials.OpenAI.APIKey != "" {
		app.Narrator = commentary.NewNarrator(cfg.Credentials.OpenAI.APIKey, cfg.Credentials.OpenAI.Model)
		logger.Debug().Str("model", cfg.Credentials.OpenAI.Model).Msg("narrator initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "optionedge",
		Short: "Options strategy scanner and backtest driver",
		Long: `optionedge scans an option chain snapshot for income and volatility
strategies, models their probability of profit and expected value, filters
them through admission gates, and ranks the survivors.

Ranked strategies can be translated into historical backtests against a
backtest service, and results are journaled locally for review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionedge)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newSimulateCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newNarrateCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("optionedge v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Model")
	output.Printf("  IV/HV Ratio Cap:     %.1f\n", cfg.Model.IVHVRatioCap)
	output.Printf("  Unlimited Loss Mult: %.1f\n", cfg.Model.UnlimitedLossMultiplier)
	output.Println()

	output.Bold("Gates")
	output.Printf("  Min Credit/Share:    $%.2f\n", cfg.Gates.MinCreditPerShare)
	output.Println()

	output.Bold("Backtest Service")
	output.Printf("  URL:                 %s\n", cfg.Backtest.URL)
	output.Printf("  Poll Interval:       %ds\n", cfg.Backtest.PollIntervalSeconds)
	output.Printf("  Max Poll Attempts:   %d\n", cfg.Backtest.MaxPollAttempts)
	output.Printf("  History Years:       %d\n", cfg.Backtest.HistoryYears)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:               %s\n", cfg.Logging.Level)
	output.Printf("  Console:             %v\n", cfg.Logging.Console)
	output.Printf("  File:                %v\n", cfg.Logging.File)

	return nil
}
