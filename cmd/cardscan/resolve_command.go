package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/cards"
	"cardscan/internal/catalog"
	"cardscan/internal/pricing"
	"cardscan/internal/resolve"
)

func newResolveCommand(cmdCtx *commandContext) *cobra.Command {
	var name string
	var number string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve card evidence against the catalog",
		Long: `Resolve runs the catalog query policy for a name and optional collector
number without recording a scan. Use it to check what a scan would resolve
to, or why it did not.

Examples:
  cardscan resolve --name Charizard
  cardscan resolve --name Charizard --number 4/102`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" && strings.TrimSpace(number) == "" {
				return errors.New("at least one of --name or --number is required")
			}
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			extraction := cards.Extraction{Name: strings.TrimSpace(name)}
			if trimmed := strings.TrimSpace(number); trimmed != "" {
				parsed, err := cards.ParseCollectorNumber(trimmed)
				if err != nil {
					return err
				}
				extraction.Number = &parsed
			}

			client, err := catalog.New(cfg.Catalog)
			if err != nil {
				return err
			}
			resolver := resolve.New(client, cfg.Matcher.MinResolveScore)

			resolveCtx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔍 Resolving %s...\n", describeExtraction(extraction))

			resolved, err := resolver.Resolve(resolveCtx, extraction)
			if err != nil {
				return err
			}
			if resolved == nil {
				fmt.Fprintln(out, "❌ No catalog card scored above the cutoff")
				return nil
			}

			card := resolved.Card
			fmt.Fprintf(out, "✅ Resolved: %s (%s)\n", card.Name, card.CardID)
			fmt.Fprintf(out, "   Set: %s (%s)\n", card.SetName, card.SetID)
			fmt.Fprintf(out, "   Number: %s\n", card.Number)
			if card.Rarity != "" {
				fmt.Fprintf(out, "   Rarity: %s\n", card.Rarity)
			}
			fmt.Fprintf(out, "   Score: %.0f via %s\n", resolved.Score, resolved.Query)

			snapshot := pricing.Extract(card)
			if market := pricing.FormatAmount(snapshot.MarketUSD); market != "" {
				fmt.Fprintf(out, "   Market: $%s\n", market)
			}
			if trend := pricing.FormatAmount(snapshot.TrendEUR); trend != "" {
				fmt.Fprintf(out, "   Trend: %s EUR\n", trend)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Card name (OCR output)")
	cmd.Flags().StringVar(&number, "number", "", "Collector number, e.g. 4/102")
	return cmd
}

func describeExtraction(extraction cards.Extraction) string {
	switch {
	case extraction.HasName() && extraction.HasNumber():
		return fmt.Sprintf("%q %s", extraction.Name, extraction.Number)
	case extraction.HasName():
		return fmt.Sprintf("%q", extraction.Name)
	case extraction.HasNumber():
		return extraction.Number.String()
	default:
		return "nothing"
	}
}
