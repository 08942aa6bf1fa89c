package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aide-dev/aide/internal/cli"
	"github.com/aide-dev/aide/internal/pipeline"
)

var (
	flagFull  bool
	flagWatch bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse session logs into the database",
	Long:  "Scans the log directory for session JSONL files and loads them into the database. Unchanged files are skipped unless --full is given.",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&flagFull, "full", false, "Reingest all files, not just changed ones")
	ingestCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Keep watching for new log lines after the initial ingest")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing %s", cli.RenderProgressBar(current, total, 30))
		}
	}

	result, err := pipeline.Ingest(logDir(), st, flagFull, progressFn)
	if err != nil {
		return err
	}

	if !flagQuiet {
		if result.TotalFiles == 0 {
			fmt.Fprintf(os.Stderr, "  No session logs found under %s\n", logDir())
		} else {
			fmt.Fprintf(os.Stderr, "\r  Ingested %d sessions from %d files (%d unchanged, %d projects)    \n",
				result.Sessions,
				result.ParsedFiles,
				result.SkippedFiles,
				result.ProjectCount,
			)
			if result.LinesSkipped > 0 {
				fmt.Fprintf(os.Stderr, "  %s\n",
					cli.Muted(fmt.Sprintf("%d malformed lines skipped", result.LinesSkipped)))
			}
			if result.FileErrors > 0 {
				fmt.Fprintf(os.Stderr, "  %s\n",
					cli.Warn(fmt.Sprintf("%d file(s) could not be read", result.FileErrors)))
			}
		}
	}

	if !flagWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Watching %s for changes (ctrl-c to stop)\n", logDir())
	}

	return pipeline.Watch(ctx, logDir(), st, func(path string, sessions int, err error) {
		if flagQuiet {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s\n", cli.Warn(fmt.Sprintf("%s: %v", path, err)))
			return
		}
		fmt.Fprintf(os.Stderr, "  Updated %d session(s) from %s\n", sessions, path)
	})
}
