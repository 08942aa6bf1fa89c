package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/autopsy"
	"github.com/aide-dev/aide/internal/cli"
)

var autopsyCmd = &cobra.Command{
	Use:   "autopsy <session-id>",
	Short: "Post-hoc analysis of one session",
	Long:  "Breaks one session down after the fact: where the cost went, how hard the context window was pushed, and what to do differently next time.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAutopsy,
}

func init() {
	rootCmd.AddCommand(autopsyCmd)
}

func runAutopsy(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sess, err := st.GetSession(args[0])
	if err != nil {
		return err
	}
	turns, err := st.SessionTurns(sess.SessionID)
	if err != nil {
		return err
	}
	files, err := st.SessionFilesTouched(sess.SessionID)
	if err != nil {
		return err
	}
	tools, err := st.SessionToolUsage(sess.SessionID)
	if err != nil {
		return err
	}

	rep := autopsy.Analyze(sess, turns, files, tools)

	fmt.Println()
	fmt.Println(cli.RenderTitle("SESSION AUTOPSY"))
	fmt.Println()

	title := sess.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("  %s\n", title)
	fmt.Printf("  %s  %s  %s active\n",
		cli.Muted(sess.ProjectName),
		cli.Muted(sess.StartedAt.Format("2006-01-02 15:04")),
		cli.FormatDuration(sess.ActiveSecs))
	fmt.Println()

	printAutopsySummary(rep)
	printAutopsyCost(rep)
	printAutopsyContext(rep)
	printAutopsySuggestions(rep)
	return nil
}

func printAutopsySummary(rep autopsy.Report) {
	fmt.Println(cli.Header("  Summary"))
	fmt.Printf("    Files read:      %d\n", rep.Summary.FilesRead)
	fmt.Printf("    Files modified:  %d\n", rep.Summary.FilesModified)

	if len(rep.Summary.ToolUsage) > 0 {
		var parts []string
		for i, tc := range rep.Summary.ToolUsage {
			if i >= 6 {
				parts = append(parts, "...")
				break
			}
			parts = append(parts, fmt.Sprintf("%s %d", tc.ToolName, tc.Count))
		}
		fmt.Printf("    Tool usage:      %s\n", strings.Join(parts, ", "))
	}
	fmt.Println()
}

func printAutopsyCost(rep autopsy.Report) {
	fmt.Println(cli.Header("  Where the money went"))
	fmt.Printf("    Total: %s\n", cli.FormatCost(rep.Cost.TotalUSD))

	var maxCost float64
	for _, c := range rep.Cost.ByCategory {
		if c.CostUSD > maxCost {
			maxCost = c.CostUSD
		}
	}
	for _, c := range rep.Cost.ByCategory {
		fmt.Printf("%s %s (%.0f%%)\n",
			cli.RenderHorizontalBar(c.Category, c.CostUSD, maxCost, 24),
			cli.FormatCost(c.CostUSD),
			c.Percent)
	}

	fmt.Printf("    Cache hit rate:  %s", cli.FormatPercent(rep.Cost.CacheHitRate))
	if rep.Cost.CacheSavings > 0 {
		fmt.Printf("  (saved ~%s)", cli.FormatCost(rep.Cost.CacheSavings))
	}
	fmt.Println()

	if len(rep.Cost.TopTurns) > 0 {
		rows := make([][]string, 0, len(rep.Cost.TopTurns))
		for _, t := range rep.Cost.TopTurns {
			toolCol := strings.Join(t.ToolNames, ",")
			if len(toolCol) > 30 {
				toolCol = toolCol[:27] + "..."
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", t.Index),
				t.Category,
				toolCol,
				cli.FormatTokens(t.Tokens),
				cli.FormatCost(t.CostUSD),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Most expensive turns",
			Headers: []string{"Turn", "Category", "Tools", "Tokens", "Cost"},
			Rows:    rows,
		}))
	}
	fmt.Println()
}

func printAutopsyContext(rep autopsy.Report) {
	fmt.Println(cli.Header("  Context pressure"))
	fmt.Printf("    Peak:         %s of %s (%s)\n",
		cli.FormatTokens(rep.Context.PeakTokens),
		cli.FormatTokens(rep.Context.WindowTokens),
		cli.FormatPercent(rep.Context.PeakUtilization))
	fmt.Printf("    Average:      %s\n", cli.FormatTokens(rep.Context.AvgTokens))
	fmt.Printf("    Compactions:  %d\n", rep.Context.CompactionCount)
	fmt.Println()
}

func printAutopsySuggestions(rep autopsy.Report) {
	fmt.Println(cli.Header("  Suggestions"))
	if len(rep.Suggestions) == 0 {
		fmt.Println(cli.Muted("    Nothing stands out. Clean session."))
		return
	}
	for _, s := range rep.Suggestions {
		fmt.Printf("    [%s] %s (%s)\n", cli.Severity(s.Severity), s.Title, s.Category)
		fmt.Printf("      %s\n", cli.Muted(s.Detail))
		if s.Evidence != "" {
			fmt.Printf("      %s\n", cli.Muted(s.Evidence))
		}
	}
}
