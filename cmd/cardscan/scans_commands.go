package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardscan/internal/cards"
	"cardscan/internal/config"
	"cardscan/internal/store"
)

var scanImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

func newScansCommand(cmdCtx *commandContext) *cobra.Command {
	scansCmd := &cobra.Command{
		Use:   "scans",
		Short: "Record and manage scan attempts",
	}
	scansCmd.AddCommand(newScansAddCommand(cmdCtx))
	scansCmd.AddCommand(newScansListCommand(cmdCtx))
	scansCmd.AddCommand(newScansRetryCommand(cmdCtx))
	scansCmd.AddCommand(newScansStatsCommand(cmdCtx))
	return scansCmd
}

func newScansAddCommand(cmdCtx *commandContext) *cobra.Command {
	var name string
	var number string
	var ocrConfidence float64

	cmd := &cobra.Command{
		Use:   "add <image>",
		Short: "Record a scan attempt for the next batch",
		Long: `Add records a captured card image together with whatever the OCR stage
extracted from it. The scan enters the database as NEW and is resolved by
the next "cardscan process" run.

Examples:
  cardscan scans add scan0001.png --name Charizard --number 4/102
  cardscan scans add scan0002.jpg --name "Dark Blastoise" --ocr-confidence 72.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve image path: %w", err)
			}
			info, err := os.Stat(imagePath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("image does not exist: %s", imagePath)
				}
				return fmt.Errorf("inspect image: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", imagePath)
			}
			ext := strings.ToLower(filepath.Ext(imagePath))
			if _, ok := scanImageExtensions[ext]; !ok {
				return fmt.Errorf("unsupported image type %q (expected png or jpeg)", ext)
			}

			extraction := cards.Extraction{
				Name:       strings.TrimSpace(name),
				Confidence: ocrConfidence,
			}
			if trimmed := strings.TrimSpace(number); trimmed != "" {
				parsed, err := cards.ParseCollectorNumber(trimmed)
				if err != nil {
					return err
				}
				extraction.Number = &parsed
			}

			return cmdCtx.withStore(func(_ *config.Config, st *store.Store) error {
				scan, err := st.InsertScan(cmd.Context(), imagePath, extraction)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded scan #%d (%s)\n", scan.ID, filepath.Base(imagePath))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Card name extracted by OCR")
	cmd.Flags().StringVar(&number, "number", "", "Collector number, e.g. 4/102")
	cmd.Flags().Float64Var(&ocrConfidence, "ocr-confidence", 0, "OCR confidence for the extracted fields")
	return cmd
}

func newScansListCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]store.ScanStatus, 0, len(statusFilters))
			for _, raw := range statusFilters {
				status, ok := store.ParseScanStatus(raw)
				if !ok {
					return fmt.Errorf("unknown scan status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return cmdCtx.withStore(func(_ *config.Config, st *store.Store) error {
				scans, err := st.ListScans(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(scans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Name", "Number", "Card", "Created", "Note"},
					buildScanRows(scans),
					0,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by scan status (repeatable)")
	return cmd
}

func buildScanRows(scans []*store.ScanRecord) [][]string {
	rows := make([][]string, 0, len(scans))
	for _, scan := range scans {
		number := ""
		if scan.Extraction.HasNumber() {
			number = scan.Extraction.Number.String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(scan.ID, 10),
			string(scan.Status),
			scan.Extraction.Name,
			number,
			scan.CardID,
			scan.CreatedAt.Local().Format("2006-01-02 15:04"),
			scan.Note,
		})
	}
	return rows
}

func newScansRetryCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [scanID...]",
		Short: "Return errored scans to NEW for reprocessing",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return cmdCtx.withStore(func(_ *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := st.RetryErrored(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d errored scans\n", updated)
					return nil
				}
				for _, id := range ids {
					scan, err := st.GetScan(cmd.Context(), id)
					if err != nil {
						return err
					}
					switch {
					case scan == nil:
						fmt.Fprintf(out, "Scan %d not found\n", id)
					case scan.Status != store.ScanStatusError:
						fmt.Fprintf(out, "Scan %d is not in ERROR state\n", id)
					default:
						if _, err := st.RetryErrored(cmd.Context(), id); err != nil {
							return err
						}
						fmt.Fprintf(out, "Scan %d reset for retry\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newScansStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scan counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(_ *config.Config, st *store.Store) error {
				stats, err := st.ScanStats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildScanStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, 1))
				return nil
			})
		},
	}
}
