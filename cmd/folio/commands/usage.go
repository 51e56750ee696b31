package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ledgewood/folio/ai/tracker"
	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/db"
	"github.com/ledgewood/folio/display"
	"github.com/ledgewood/folio/logger"
)

// UsageCmd shows model usage statistics and spend.
var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show model usage and spend",
	Long: `Show aggregated model usage (requests, tokens, cost) and a per-model
breakdown from the local usage database.

Examples:
  folio usage            # last 30 days
  folio usage --days 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		database, err := db.OpenWithMigrations(cfg.GetDatabasePath(), logger.Named("db"))
		if err != nil {
			return err
		}
		defer database.Close()

		t := tracker.NewUsageTracker(database, 0)
		since := time.Now().AddDate(0, 0, -days)

		stats, err := t.GetUsageStats(since)
		if err != nil {
			return err
		}
		breakdown, err := t.GetModelBreakdown(since)
		if err != nil {
			return err
		}
		series, err := t.GetTimeSeriesData(days)
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]any{
				"days":      days,
				"stats":     stats,
				"breakdown": breakdown,
				"daily":     series,
			})
		}

		pterm.DefaultSection.Printf("Usage, last %d days\n", days)
		fmt.Printf("Requests:     %d (%.1f%% success)\n", stats.TotalRequests, stats.SuccessRate*100)
		fmt.Printf("Tokens:       %d\n", stats.TotalTokens)
		fmt.Printf("Cost:         $%.4f\n", stats.TotalCost)
		fmt.Printf("Models used:  %d\n", stats.UniqueModels)

		if len(breakdown) > 0 {
			rows := pterm.TableData{{"Model", "Provider", "Requests", "Tokens", "Cost"}}
			for _, mb := range breakdown {
				rows = append(rows, []string{
					mb.ModelName,
					mb.ModelProvider,
					fmt.Sprintf("%d", mb.RequestCount),
					fmt.Sprintf("%d", mb.TotalTokens),
					fmt.Sprintf("$%.4f", mb.TotalCost),
				})
			}
			fmt.Println()
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}

		if len(series) > 0 {
			rows := pterm.TableData{{"Date", "Requests", "Cost"}}
			for _, point := range series {
				rows = append(rows, []string{
					point.Date,
					fmt.Sprintf("%d", point.Requests),
					fmt.Sprintf("$%.4f", point.Cost),
				})
			}
			fmt.Println()
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	UsageCmd.Flags().Int("days", 30, "Aggregation window in days")
	UsageCmd.Flags().Bool("json", false, "Output as JSON")
}
