package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"angel-trader/internal/advisor"
	"angel-trader/internal/models"
	"angel-trader/pkg/utils"
)

// addAdvisorCommands adds spread analysis commands.
func addAdvisorCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRecommendCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
}

func newRecommendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <symbol>",
		Short: "Recommend vertical debit spreads",
		Long: `Fetches the option chain for the nearest expiry, pairs the at-the-money
contract with out-of-the-money contracts inside the delta band, and ranks
the resulting bull call and bear put spreads by risk-reward.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sym, err := parseSymbol(args[0])
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			window, _ := cmd.Flags().GetInt("window")

			report, err := app.Advisor.Recommendations(cmd.Context(), sym, advisor.Options{
				Limit:        limit,
				StrikeWindow: window,
			})
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			return renderReport(output, report)
		},
	}
	cmd.Flags().Int("limit", 0, "maximum recommendations (default from config)")
	cmd.Flags().Int("window", 0, "strikes per side around ATM (default from config)")
	return cmd
}

func renderReport(output *Output, report *advisor.Report) error {
	output.Bold("%s  expiry %s", report.Symbol, report.Expiry)
	output.Printf("Spot %s   ATM %s\n", utils.FormatIndianCurrency(report.Spot), utils.FormatStrike(report.ATMStrike))
	if report.DroppedRows > 0 {
		output.Dim("Dropped %d malformed chain rows", report.DroppedRows)
	}
	output.Println()

	if len(report.Recommendations) == 0 {
		output.Warning("No spreads inside the delta band for this chain.")
		return nil
	}

	table := NewTable(output, "#", "Type", "Buy", "Sell", "ΔDiff", "Debit", "Max Profit", "Max Loss", "R:R", "Breakeven", "Prob", "Volume")
	for i, r := range report.Recommendations {
		kind := output.Green(string(models.BullCall))
		if r.Type == models.BearPut {
			kind = output.Red(string(models.BearPut))
		}
		table.AddRow(
			fmt.Sprintf("%d", i+1),
			kind,
			utils.FormatStrike(r.Buy.Strike),
			utils.FormatStrike(r.Sell.Strike),
			fmt.Sprintf("%.3f", r.DeltaDifference),
			fmt.Sprintf("%.2f", r.NetPremium),
			utils.FormatIndianCurrency(r.MaxProfit),
			utils.FormatIndianCurrency(r.MaxLoss),
			fmt.Sprintf("%.2f", r.RiskRewardRatio),
			utils.FormatStrike(r.Breakeven),
			fmt.Sprintf("%.0f%%", r.ProbabilityProfit),
			fmt.Sprintf("%d", r.TotalVolume),
		)
	}
	table.Render()
	return nil
}

func newChainCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Show the normalized option chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			sym, err := parseSymbol(args[0])
			if err != nil {
				return err
			}

			contracts, expiry, err := app.Advisor.Chain(cmd.Context(), sym)
			if err != nil {
				output.Error("Failed to fetch chain: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":    sym,
					"expiry":    expiry,
					"contracts": contracts,
				})
			}

			output.Bold("%s option chain  expiry %s  (%d contracts)", sym, expiry, len(contracts))
			table := NewTable(output, "Strike", "Type", "Premium", "Delta", "IV", "Volume")
			for _, c := range contracts {
				table.AddRow(
					utils.FormatStrike(c.Strike),
					string(c.Type),
					fmt.Sprintf("%.2f", c.Premium),
					fmt.Sprintf("%+.3f", c.Delta),
					fmt.Sprintf("%.1f", c.ImpliedVolatility),
					fmt.Sprintf("%d", c.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
}

