package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cardscan/internal/visualindex"
)

func newIndexCommand(cmdCtx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build and inspect the visual card index",
	}
	indexCmd.AddCommand(newIndexBuildCommand(cmdCtx))
	indexCmd.AddCommand(newIndexStatsCommand(cmdCtx))
	return indexCmd
}

func newIndexBuildCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build <manifest.jsonl>",
		Short: "Rebuild the visual index from an embedding manifest",
		Long: `Build replaces the visual index with the contents of a JSONL manifest
produced by the embedding collaborator. Each line carries a card id, name,
reference image path, and the card's embedding vector.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			manifestPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve manifest path: %w", err)
			}
			manifest, err := os.Open(manifestPath)
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer manifest.Close()

			builder, err := visualindex.NewBuilder(cfg)
			if err != nil {
				return err
			}

			var onEntry func(visualindex.ManifestEntry)
			if isTerminal(os.Stderr) {
				bar := newProgressBar(-1, "Indexing cards")
				onEntry = func(visualindex.ManifestEntry) {
					_ = bar.Add(1)
				}
				defer clearProgressLine()
			}

			count, err := builder.IngestManifest(cmd.Context(), manifest, onEntry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d cards from %s\n", count, filepath.Base(manifestPath))
			return nil
		},
	}
}

func newIndexStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show visual index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			index, err := visualindex.Open(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed cards: %d\n", index.Count())
			fmt.Fprintf(out, "Index directory: %s\n", cfg.Paths.IndexDir)
			return nil
		},
	}
}
