package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"angel-trader/internal/models"
	"angel-trader/pkg/utils"
)

// addMarketCommands adds raw market-data commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newOHLCCmd(app))
	rootCmd.AddCommand(newMoversCmd(app))
}

// parseSymbol maps a CLI argument to a supported index symbol.
func parseSymbol(arg string) (models.Symbol, error) {
	sym := models.Symbol(strings.ToUpper(arg))
	if !sym.Valid() {
		return "", fmt.Errorf("unsupported symbol %q (use NIFTY or BANKNIFTY)", arg)
	}
	return sym, nil
}

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol>",
		Short: "Show the index spot price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sym, err := parseSymbol(args[0])
			if err != nil {
				return err
			}

			ltp, err := app.Market.SpotPrice(cmd.Context(), sym)
			if err != nil {
				output.Error("Failed to fetch spot price: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(models.Quote{Symbol: sym, LTP: ltp, Timestamp: time.Now()})
			}
			output.Printf("%s  %s\n", sym, utils.FormatIndianCurrency(ltp))
			if !utils.IsMarketOpen(time.Now()) {
				output.Dim("Market closed; price is the last traded value.")
			}
			return nil
		},
	}
}

func newOHLCCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ohlc <symbol>",
		Short: "Show historical candles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sym, err := parseSymbol(args[0])
			if err != nil {
				return err
			}

			interval, _ := cmd.Flags().GetString("interval")
			days, _ := cmd.Flags().GetInt("days")

			candles, err := app.Market.OHLC(cmd.Context(), sym, interval, time.Duration(days)*24*time.Hour)
			if err != nil {
				output.Error("Failed to fetch candles: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(candles)
			}

			output.Bold("%s  %s  (%d candles)", sym, interval, len(candles))
			table := NewTable(output, "Time", "Open", "High", "Low", "Close", "Volume")
			for _, c := range candles {
				table.AddRow(
					c.Timestamp.Format("02-Jan 15:04"),
					fmt.Sprintf("%.2f", c.Open),
					fmt.Sprintf("%.2f", c.High),
					fmt.Sprintf("%.2f", c.Low),
					fmt.Sprintf("%.2f", c.Close),
					fmt.Sprintf("%d", c.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("interval", "ONE_DAY", "candle interval (ONE_MINUTE..ONE_DAY)")
	cmd.Flags().Int("days", 7, "lookback window in days")
	return cmd
}

func newMoversCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movers",
		Short: "Show derivative gainers and losers",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			kindArg, _ := cmd.Flags().GetString("type")
			scopeArg, _ := cmd.Flags().GetString("expiry")

			kind := models.MoverKind(kindArg)
			if !kind.Valid() {
				return fmt.Errorf("invalid mover type %q (PercPriceGainers, PercPriceLosers, PercOIGainers, PercOILosers)", kindArg)
			}
			scope := models.ExpiryScope(strings.ToUpper(scopeArg))
			if !scope.Valid() {
				return fmt.Errorf("invalid expiry scope %q (NEAR, NEXT, FAR)", scopeArg)
			}

			movers, err := app.Market.Movers(cmd.Context(), kind, scope)
			if err != nil {
				output.Error("Failed to fetch movers: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(movers)
			}

			output.Bold("%s (%s expiry)", kind, scope)
			table := NewTable(output, "Symbol", "Change", "LTP", "Net")
			for _, m := range movers {
				table.AddRow(
					m.TradingSymbol,
					output.FormatPercent(m.PercentChange),
					fmt.Sprintf("%.2f", m.Value),
					fmt.Sprintf("%+.2f", m.NetChange),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("type", string(models.PercPriceGainers), "mover data type")
	cmd.Flags().String("expiry", string(models.ExpiryNear), "expiry scope (NEAR, NEXT, FAR)")
	return cmd
}
