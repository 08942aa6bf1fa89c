package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/cli"
	"github.com/aide-dev/aide/internal/model"
)

var (
	flagSessionsProject string
	flagSessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List sessions or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&flagSessionsProject, "project", "p", "", "Filter to one project (exact match)")
	sessionsCmd.Flags().IntVarP(&flagSessionsLimit, "limit", "l", 25, "Maximum sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if len(args) == 1 {
		sess, err := st.GetSession(args[0])
		if err != nil {
			return err
		}
		blocks, err := st.SessionWorkBlocks(sess.SessionID)
		if err != nil {
			return err
		}
		printSessionDetail(sess, blocks)
		return nil
	}

	sessions, err := st.ListSessions(flagSessionsProject, flagSessionsLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SESSIONS"))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		title := s.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			s.StartedAt.Format("2006-01-02 15:04"),
			s.ProjectName,
			title,
			cli.FormatDuration(s.ActiveSecs),
			cli.FormatNumber(int64(s.TurnCount)),
			cli.FormatCost(s.EstimatedCostUSD),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Started", "Project", "Title", "Active", "Turns", "Cost"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Println(cli.Muted("  Run `aide sessions <id>` or `aide autopsy <id>` for details."))
	return nil
}

func printSessionDetail(s model.Session, blocks []model.WorkBlock) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("SESSION " + s.SessionID))
	fmt.Println()
	if s.Title != "" {
		fmt.Printf("  Title:        %s\n", s.Title)
	}
	fmt.Printf("  Project:      %s\n", s.ProjectName)
	if s.GitBranch != "" {
		fmt.Printf("  Branch:       %s\n", s.GitBranch)
	}
	if s.PermissionMode != "" {
		fmt.Printf("  Mode:         %s\n", s.PermissionMode)
	}
	fmt.Printf("  Started:      %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Wall clock:   %s\n", cli.FormatDuration(s.DurationSecs))
	fmt.Printf("  Active:       %s in %d work block(s)\n", cli.FormatDuration(s.ActiveSecs), len(blocks))
	fmt.Println()
	fmt.Printf("  Turns:        %d (%d user, %d assistant)\n", s.TurnCount, s.UserTurns, s.AssistantTurns)
	fmt.Printf("  Tokens:       %s in / %s out / %s cached\n",
		cli.FormatTokens(s.InputTokens),
		cli.FormatTokens(s.OutputTokens),
		cli.FormatTokens(s.CacheReadTokens))
	fmt.Printf("  Est. cost:    %s\n", cli.FormatCost(s.EstimatedCostUSD))
	fmt.Printf("  Tool calls:   %d (%d reads, %d edits, %d writes, %d bash)\n",
		s.ToolCalls, s.FileReads, s.FileEdits, s.FileWrites, s.BashCalls)
	if s.ToolErrors > 0 {
		fmt.Printf("  Tool errors:  %s\n", cli.Warn(fmt.Sprintf("%d", s.ToolErrors)))
	}
	if s.CompactionCount > 0 {
		fmt.Printf("  Compactions:  %d (peak context %s)\n",
			s.CompactionCount, cli.FormatTokens(s.PeakContextTokens))
	}

	if len(blocks) > 1 {
		fmt.Println()
		rows := make([][]string, 0, len(blocks))
		for _, b := range blocks {
			rows = append(rows, []string{
				fmt.Sprintf("%d", b.Index+1),
				b.StartedAt.Format("15:04:05"),
				b.EndedAt.Format("15:04:05"),
				cli.FormatDuration(b.DurationSecs),
				cli.FormatNumber(int64(b.TurnCount)),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Work blocks",
			Headers: []string{"#", "Start", "End", "Duration", "Turns"},
			Rows:    rows,
		}))
	}
}
