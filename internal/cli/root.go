package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"angel-trader/internal/advisor"
	"angel-trader/internal/config"
	"angel-trader/internal/gateway"
	"angel-trader/internal/logging"
	"angel-trader/internal/models"
	"angel-trader/internal/provider"
	"angel-trader/internal/session"
	"angel-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Provider provider.Provider
	Session  *session.Manager
	Market   gateway.MarketData
	Advisor  *advisor.Advisor
	Store    store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	client := provider.NewSmartClient(provider.SmartConfig{
		APIKey:          cfg.Credentials.Angel.APIKey,
		TimeoutSeconds:  int(cfg.Gateway.RequestTimeout / time.Second),
		RateLimitPerSec: cfg.Gateway.RateLimitPerSec,
	}, logger)
	app.Provider = client

	app.Session = session.NewManager(client, session.Config{
		Credentials: provider.Credentials{
			APIKey:     cfg.Credentials.Angel.APIKey,
			ClientCode: cfg.Credentials.Angel.ClientCode,
			Password:   cfg.Credentials.Angel.Password,
			TOTPSecret: cfg.Credentials.Angel.TOTPSecret,
		},
		RefreshMargin: time.Duration(cfg.Gateway.RefreshMarginMins) * time.Minute,
	}, logger)

	resolver := app.initResolver()

	gw := gateway.New(client, app.Session, resolver, gateway.Config{
		MaxRetries:     cfg.Gateway.MaxRetries,
		InitialBackoff: cfg.Gateway.InitialBackoff,
		MaxBackoff:     cfg.Gateway.MaxBackoff,
	}, logger)

	app.Market = gw
	if cfg.Gateway.BreakerEnabled {
		app.Market = gateway.NewBreakerGateway(gw, gateway.DefaultBreakerSettings(), logger)
		logger.Debug().Msg("Circuit breaker enabled")
	}

	app.Advisor = advisor.New(app.Market, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "angel-trader",
		Short: "Option spread advisor for NSE index derivatives",
		Long: `angel-trader recommends vertical debit spreads on NIFTY and BANKNIFTY.

It fetches option chains through the Angel One SmartAPI feed, filters
contracts around the at-the-money strike by delta, and ranks bull call
and bear put spreads by risk-reward.

Use 'angel-trader help <command>' for more information about a command.`,
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

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/angel-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addAdvisorCommands(rootCmd, app)

	return rootCmd
}

// initResolver opens the instrument cache, seeds it from the config file,
// and returns it as the token resolver. A static map backs everything
// when the database cannot be opened.
func (app *App) initResolver() gateway.TokenResolver {
	static := gateway.StaticResolver{}
	for sym, sc := range app.Config.Symbols {
		static[models.Symbol(sym)] = sc.Token
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "advisor.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to open instrument cache, using config tokens")
		return static
	}
	app.Store = dataStore

	ctx := context.Background()
	for sym, sc := range app.Config.Symbols {
		if sc.Token == "" {
			continue
		}
		inst := models.Instrument{
			Token:    sc.Token,
			Symbol:   sym,
			Exchange: models.NSE,
			Name:     sym,
		}
		if err := dataStore.UpsertInstrument(ctx, inst); err != nil {
			app.Logger.Warn().Err(err).Str("symbol", sym).Msg("Failed to seed instrument cache")
		}
	}
	return dataStore
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
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
				output.Printf("angel-trader v%s\n", Version)
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
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Analysis Configuration")
	output.Printf("  Delta Band:      [%.2f, %.2f]\n", cfg.Analysis.MinDeltaDiff, cfg.Analysis.MaxDeltaDiff)
	output.Printf("  Strike Window:   %d per side\n", cfg.Analysis.StrikeWindow)
	output.Printf("  Top N:           %d\n", cfg.Analysis.TopN)
	output.Println()

	output.Bold("Gateway Configuration")
	output.Printf("  Max Retries:     %d\n", cfg.Gateway.MaxRetries)
	output.Printf("  Initial Backoff: %s\n", cfg.Gateway.InitialBackoff)
	output.Printf("  Max Backoff:     %s\n", cfg.Gateway.MaxBackoff)
	output.Printf("  Rate Limit:      %.1f req/s\n", cfg.Gateway.RateLimitPerSec)
	output.Printf("  Breaker:         %v\n", cfg.Gateway.BreakerEnabled)
	output.Println()

	output.Bold("Symbols")
	for sym, sc := range cfg.Symbols {
		output.Printf("  %-11s lot %d, interval %.0f, token %s\n", sym, sc.LotSize, sc.StrikeInterval, sc.Token)
	}
	return nil
}
