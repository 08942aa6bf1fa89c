package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/cli"
)

var flagEffectiveness bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Overall usage summary",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&flagEffectiveness, "effectiveness", false, "Show derived effectiveness ratios")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	stats, err := st.Summary()
	if err != nil {
		return err
	}
	if stats.TotalSessions == 0 {
		fmt.Println("\n  No sessions ingested yet. Run `aide ingest` first.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("USAGE SUMMARY"))
	fmt.Println()
	fmt.Printf("  Sessions:   %s across %d projects\n",
		cli.FormatNumber(int64(stats.TotalSessions)), stats.TotalProjects)
	fmt.Printf("  Est. cost:  %s\n", cli.FormatCost(stats.TotalCostUSD))
	if !stats.FirstSession.IsZero() {
		fmt.Printf("  Range:      %s to %s\n",
			stats.FirstSession.Format("2006-01-02"),
			stats.LastSession.Format("2006-01-02"))
	}
	fmt.Println()

	rows := make([][]string, 0, len(stats.ByProject))
	for _, p := range stats.ByProject {
		rows = append(rows, []string{
			p.Project,
			cli.FormatNumber(int64(p.Sessions)),
			cli.FormatTokens(p.TotalTokens),
			cli.FormatDuration(p.ActiveSecs),
			cli.FormatCost(p.EstimatedCostUSD),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Sessions", "Tokens", "Active", "Cost"},
		Rows:    rows,
	}))

	if !flagEffectiveness {
		return nil
	}

	e, err := st.Effectiveness()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.Header("  Effectiveness"))
	fmt.Printf("    Cache hit rate:      %s\n", cli.FormatPercent(e.CacheHitRate))
	fmt.Printf("    Edit ratio:          %s of tool calls\n", cli.FormatPercent(e.EditRatio))
	fmt.Printf("    Compaction rate:     %s of sessions\n", cli.FormatPercent(e.CompactionRate))
	fmt.Printf("    Reads per edit:      %.1f\n", e.ReadToEditRatio)
	fmt.Printf("    Output ratio:        %s\n", cli.FormatPercent(e.OutputRatio))
	fmt.Printf("    Tokens / user turn:  %s\n", cli.FormatTokens(e.TokensPerUserTurn))
	fmt.Printf("    Turns / user turn:   %.1f\n", e.TurnsPerUserTurn)
	return nil
}
