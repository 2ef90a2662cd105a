package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"cardscan/internal/catalog"
	"cardscan/internal/logging"
	"cardscan/internal/match"
	"cardscan/internal/pipeline"
	"cardscan/internal/resolve"
	"cardscan/internal/store"
	"cardscan/internal/vision"
	"cardscan/internal/visualindex"
)

func newProcessCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Resolve pending scans against the catalog",
		Long: `Process runs one resolution batch: every NEW scan is identified through
the visual index when possible, resolved against the catalog otherwise, and
moved to a terminal status. Interrupting the batch stops it between scans;
the remaining scans stay NEW for the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			// One batch at a time: the catalog rate limiter only spaces
			// requests within a single process.
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire batch lock: %w", err)
			}
			if !locked {
				return errors.New("another cardscan batch is already running")
			}
			defer lock.Unlock()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			client, err := catalog.New(cfg.Catalog)
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				Config:   cfg,
				Store:    st,
				Catalog:  client,
				Resolver: resolve.New(client, cfg.Matcher.MinResolveScore),
				Logger:   logger,
			}

			if index, err := visualindex.Open(cfg); err != nil {
				logger.Warn("visual index unavailable; text resolution only", logging.Error(err))
			} else {
				opts.Matcher = match.NewMatcher(index, vision.NewVerifier(cfg.Matcher), cfg.Matcher)
				opts.Embedder = pipeline.SidecarEmbedder{}
			}

			showBar := false
			if isTerminal(os.Stderr) {
				pending, err := st.ScansByStatus(signalCtx, store.ScanStatusNew)
				if err != nil {
					return err
				}
				total := len(pending)
				if limit > 0 && limit < total {
					total = limit
				}
				if total > 0 {
					opts.Progress = newProgressBar(total, "Resolving scans")
					showBar = true
				}
			}

			processor, err := pipeline.NewProcessor(opts)
			if err != nil {
				return err
			}

			summary, runErr := processor.Run(signalCtx, limit)
			if showBar {
				clearProgressLine()
			}
			if summary != nil {
				printBatchSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum scans to process this run (0 = all pending)")
	return cmd
}

func printBatchSummary(out io.Writer, summary *pipeline.Summary) {
	if summary.Total == 0 {
		fmt.Fprintln(out, "No pending scans")
		return
	}
	handled := summary.Completed + summary.Skipped + summary.NoMatch + summary.Failed
	if handled < summary.Total {
		fmt.Fprintf(out, "Interrupted after %d of %d scans\n", handled, summary.Total)
	}
	fmt.Fprintf(out, "Processed %d scans in %s: %d completed, %d no match, %d skipped, %d failed\n",
		handled, summary.Duration.Round(time.Millisecond),
		summary.Completed, summary.NoMatch, summary.Skipped, summary.Failed)
}
