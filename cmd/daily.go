package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/cli"
)

var flagDailyDays int

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage table",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().IntVarP(&flagDailyDays, "days", "n", 30, "Number of days to show")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	days, err := st.Daily(flagDailyDays)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Println("\n  No sessions ingested yet. Run `aide ingest` first.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY USAGE  Last %dd", flagDailyDays)))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	costs := make([]float64, 0, len(days))
	for _, d := range days {
		weekday := "???"
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			weekday = cli.FormatDayOfWeek(int(t.Weekday()))
		}
		rows = append(rows, []string{
			d.Date,
			weekday,
			cli.FormatNumber(int64(d.Sessions)),
			cli.FormatTokens(d.InputTokens + d.OutputTokens + d.CacheReadTokens),
			cli.FormatDuration(d.DurationSecs),
			cli.FormatCost(d.EstimatedCostUSD),
		})
		costs = append(costs, d.EstimatedCostUSD)
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Sessions", "Tokens", "Time", "Cost"},
		Rows:    rows,
	}))

	// Sparkline runs oldest to newest.
	if len(costs) > 1 {
		rev := make([]float64, len(costs))
		for i, c := range costs {
			rev[len(costs)-1-i] = c
		}
		fmt.Printf("\n  Cost trend: %s\n", cli.RenderSparkline(rev))
	}
	return nil
}
