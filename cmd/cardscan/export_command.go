package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/export"
	"cardscan/internal/logging"
	"cardscan/internal/store"
)

func newExportCommand(cmdCtx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write completed scans to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, st *store.Store) error {
				target := strings.TrimSpace(outPath)
				if target == "" {
					target = export.DefaultPath(cfg, time.Now())
				} else {
					expanded, err := config.ExpandPath(target)
					if err != nil {
						return fmt.Errorf("resolve output path: %w", err)
					}
					target = expanded
				}

				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create export directory: %w", err)
				}
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					file.Close()
					return fmt.Errorf("init logger: %w", err)
				}

				rows, err := export.New(st, logger).WriteCSV(cmd.Context(), file)
				if err != nil {
					file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("close export file: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d completed scans to %s\n", rows, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination CSV path (default: export_dir/cards_YYYYMMDD.csv)")
	return cmd
}
