package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/cli"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Per-project usage table",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	projects, err := st.Projects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("\n  No sessions ingested yet. Run `aide ingest` first.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECTS"))
	fmt.Println()

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			p.Project,
			cli.FormatNumber(int64(p.Sessions)),
			cli.FormatTokens(p.TotalTokens),
			cli.FormatDuration(p.ActiveSecs),
			cli.FormatNumber(int64(p.ToolCalls)),
			cli.FormatCost(p.EstimatedCostUSD),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Sessions", "Tokens", "Active", "Tools", "Cost"},
		Rows:    rows,
	}))
	return nil
}
