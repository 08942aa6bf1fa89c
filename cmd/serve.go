package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aide-dev/aide/internal/api"
	"github.com/aide-dev/aide/internal/pipeline"
)

var (
	flagAddr       string
	flagServeWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics JSON API",
	Long:  "Serves stored session analytics over a local JSON API. With --watch, log changes are ingested live.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8787", "Listen address")
	serveCmd.Flags().BoolVarP(&flagServeWatch, "watch", "w", false, "Ingest log changes while serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(st, flagAddr)
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Serving on http://%s (ctrl-c to stop)\n", srv.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if flagServeWatch {
		g.Go(func() error {
			return pipeline.Watch(gctx, logDir(), st, func(path string, sessions int, err error) {
				if flagQuiet {
					return
				}
				if err != nil {
					fmt.Fprintf(os.Stderr, "  watch: %s: %v\n", path, err)
					return
				}
				fmt.Fprintf(os.Stderr, "  Updated %d session(s) from %s\n", sessions, path)
			})
		})
	}
	return g.Wait()
}
