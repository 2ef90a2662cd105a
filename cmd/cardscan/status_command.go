package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardscan/internal/config"
	"cardscan/internal/store"
	"cardscan/internal/visualindex"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache, index, and scan health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)

				for _, line := range renderSectionHeader("Resolution Cache", colorize) {
					fmt.Fprintln(out, line)
				}
				health, healthErr := st.CheckHealth(cmd.Context())
				fmt.Fprintln(out, renderStatusLine("Database", databaseKind(health, healthErr), databaseDetail(health, healthErr), colorize))
				if healthErr == nil {
					fmt.Fprintln(out, renderStatusLine("Cached cards", statusInfo, strconv.Itoa(health.TotalCards), colorize))
					fmt.Fprintln(out, renderStatusLine("Recorded scans", statusInfo, strconv.Itoa(health.TotalScans), colorize))
				}
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Visual Index", colorize) {
					fmt.Fprintln(out, line)
				}
				if index, err := visualindex.Open(cfg); err != nil {
					fmt.Fprintln(out, renderStatusLine("Index", statusWarn, err.Error(), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Index", statusOK, fmt.Sprintf("%d cards at %s", index.Count(), cfg.Paths.IndexDir), colorize))
				}
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Catalog", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Endpoint", statusInfo, cfg.Catalog.BaseURL, colorize))
				if strings.TrimSpace(cfg.Catalog.APIKey) != "" {
					fmt.Fprintln(out, renderStatusLine("API key", statusOK, "configured", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("API key", statusWarn, "not set (public rate limits apply)", colorize))
				}
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Notifications", colorize) {
					fmt.Fprintln(out, line)
				}
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
					fmt.Fprintln(out, renderStatusLine("ntfy", statusOK, "configured", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("ntfy", statusInfo, "disabled", colorize))
				}
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Scan Status", colorize) {
					fmt.Fprintln(out, line)
				}
				stats, err := st.ScanStats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildScanStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No scans recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, 1))
				return nil
			})
		},
	}
}

func databaseKind(health store.DatabaseHealth, err error) statusKind {
	switch {
	case err != nil:
		return statusError
	case len(health.MissingTables) > 0, !health.IntegrityCheck:
		return statusError
	default:
		return statusOK
	}
}

func databaseDetail(health store.DatabaseHealth, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case len(health.MissingTables) > 0:
		return "missing tables: " + strings.Join(health.MissingTables, ", ")
	case !health.IntegrityCheck:
		return "integrity check failed"
	default:
		return health.DBPath
	}
}

func buildScanStatusRows(stats map[store.ScanStatus]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range store.AllScanStatuses() {
		count := stats[status]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	return rows
}
