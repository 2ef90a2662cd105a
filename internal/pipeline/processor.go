package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/cards"
	"cardscan/internal/catalog"
	"cardscan/internal/config"
	"cardscan/internal/logging"
	"cardscan/internal/match"
	"cardscan/internal/notifications"
	"cardscan/internal/pricing"
	"cardscan/internal/resolve"
	"cardscan/internal/services"
	"cardscan/internal/store"
	"cardscan/internal/vision"
)

// Embedder produces the query embedding for a scan image. The embedding
// model runs out of process; implementations bridge to it.
type Embedder interface {
	Embed(ctx context.Context, imagePath string) ([]float32, error)
}

// VisualMatcher runs the visual identification path for one query image.
type VisualMatcher interface {
	Match(ctx context.Context, query *image.Gray, embedding []float32) (*cards.MatchResult, match.Decision, error)
}

// Progress observes batch progress. Run reports one unit per scan that
// reaches a terminal status, failures included.
type Progress interface {
	Add(n int) error
}

type noopProgress struct{}

func (noopProgress) Add(int) error { return nil }

// Options wires the processor's collaborators. Config, Store, Catalog, and
// Resolver are required; Matcher and Embedder are optional and must be set
// together for the visual path to run.
type Options struct {
	Config   *config.Config
	Store    *store.Store
	Catalog  catalog.Searcher
	Resolver *resolve.Resolver
	Matcher  VisualMatcher
	Embedder Embedder
	Notifier notifications.Service
	Progress Progress
	Logger   *slog.Logger
}

// Processor resolves pending scans in a single-worker batch.
type Processor struct {
	cfg      *config.Config
	store    *store.Store
	catalog  catalog.Searcher
	resolver *resolve.Resolver
	matcher  VisualMatcher
	embedder Embedder
	notifier notifications.Service
	progress Progress
	logger   *slog.Logger
}

// NewProcessor validates the wiring and returns a ready processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("pipeline: catalog is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("pipeline: resolver is required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(opts.Config)
	}
	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		cfg:      opts.Config,
		store:    opts.Store,
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		matcher:  opts.Matcher,
		embedder: opts.Embedder,
		notifier: notifier,
		progress: progress,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Summary reports the outcome of one batch run.
type Summary struct {
	Total     int
	Completed int
	Skipped   int
	NoMatch   int
	Failed    int
	Duration  time.Duration
}

// Run processes pending NEW scans oldest first, at most limit of them when
// limit is positive. Cancellation stops the batch between scans; the scan in
// flight either reaches a terminal status or stays NEW for the next run.
func (p *Processor) Run(ctx context.Context, limit int) (*Summary, error) {
	start := time.Now()

	scans, err := p.store.ScansByStatus(ctx, store.ScanStatusNew)
	if err != nil {
		return nil, fmt.Errorf("list pending scans: %w", err)
	}
	if limit > 0 && limit < len(scans) {
		scans = scans[:limit]
	}

	summary := &Summary{Total: len(scans)}
	var runErr error
	for _, scan := range scans {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		// The in-flight scan always runs to a terminal status; cancellation
		// only takes effect between scans.
		scanCtx := services.WithScanID(services.WithRequestID(context.WithoutCancel(ctx), uuid.NewString()), scan.ID)
		logger := logging.WithContext(scanCtx, p.logger)

		status, err := p.processScan(scanCtx, logger, scan)
		if err != nil {
			summary.Failed++
			note := services.Note(err)
			logger.Error("scan failed", logging.Error(err))
			if markErr := p.store.UpdateScanStatus(scanCtx, scan.ID, store.ScanStatusError, note); markErr != nil {
				logger.Error("failed to mark scan errored", logging.Error(markErr))
			}
			if notifyErr := p.notifier.NotifyScanError(scanCtx, err, fmt.Sprintf("scan %d", scan.ID)); notifyErr != nil {
				logger.Warn("error notification failed", logging.Error(notifyErr))
			}
			_ = p.progress.Add(1)
			continue
		}

		switch status {
		case store.ScanStatusCompleted:
			summary.Completed++
		case store.ScanStatusSkipped:
			summary.Skipped++
		case store.ScanStatusNoMatch:
			summary.NoMatch++
		}
		_ = p.progress.Add(1)
	}
	summary.Duration = time.Since(start)

	if summary.Total > 0 {
		if err := p.notifier.NotifyBatchCompleted(context.WithoutCancel(ctx), summary.Completed, summary.Failed, summary.Duration); err != nil {
			p.logger.Warn("batch notification failed", logging.Error(err))
		}
	}
	p.logger.Info("batch finished",
		logging.Int("total", summary.Total),
		logging.Int("completed", summary.Completed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("no_match", summary.NoMatch),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (p *Processor) processScan(ctx context.Context, logger *slog.Logger, scan *store.ScanRecord) (store.ScanStatus, error) {
	logger.Info("scan started",
		logging.String("image", scan.ImagePath),
		logging.String("extracted_name", scan.Extraction.Name),
	)

	if !scan.Extraction.HasName() && !usableImage(scan.ImagePath) {
		note := "no extracted name and no readable image"
		if err := p.store.UpdateScanStatus(ctx, scan.ID, store.ScanStatusSkipped, note); err != nil {
			return "", err
		}
		logger.Info("scan skipped", logging.String("reason", note))
		return store.ScanStatusSkipped, nil
	}

	card, note, err := p.identify(ctx, logger, scan)
	if err != nil {
		return "", err
	}
	if card == nil {
		if note == "" {
			note = "no catalog match"
		}
		if err := p.store.UpdateScanStatus(ctx, scan.ID, store.ScanStatusNoMatch, note); err != nil {
			return "", err
		}
		logger.Info("scan unmatched", logging.String("reason", note))
		if err := p.notifier.NotifyNoMatch(ctx, scan.ID, scan.ImagePath); err != nil {
			logger.Warn("no-match notification failed", logging.Error(err))
		}
		return store.ScanStatusNoMatch, nil
	}

	snapshot, card, err := p.persistResolution(ctx, card)
	if err != nil {
		return "", err
	}
	if err := p.store.MarkScanCompleted(ctx, scan.ID, card.CardID); err != nil {
		return "", err
	}

	logger.Info("scan completed",
		logging.String("card_id", card.CardID),
		logging.String("card_name", card.Name),
		logging.Bool("priced", snapshot.HasPrice()),
	)
	if err := p.notifier.NotifyCardResolved(ctx, card.Name, card.CardID, pricing.FormatAmount(snapshot.MarketUSD)); err != nil {
		logger.Warn("resolved notification failed", logging.Error(err))
	}
	return store.ScanStatusCompleted, nil
}

// identify tries the visual path first and falls back to text resolution.
// A nil card with nil error is a no-match; the note explains what was tried.
func (p *Processor) identify(ctx context.Context, logger *slog.Logger, scan *store.ScanRecord) (*cards.ResolvedCard, string, error) {
	var notes []string

	if p.matcher != nil && p.embedder != nil && usableImage(scan.ImagePath) {
		card, visualNote, err := p.identifyVisual(ctx, logger, scan)
		switch {
		case errors.Is(err, ErrNoEmbedding):
			logger.Debug("no embedding for scan; text resolution only")
		case err != nil:
			// The text path may still resolve the scan, so visual
			// failures degrade instead of aborting.
			logger.Warn("visual identification failed; falling back to text", logging.Error(err))
			notes = append(notes, "visual path failed")
		case card != nil:
			return card, visualNote, nil
		case visualNote != "":
			notes = append(notes, visualNote)
		}
	}

	resolved, err := p.resolver.Resolve(ctx, scan.Extraction)
	if err != nil {
		return nil, "", err
	}
	if resolved != nil {
		logger.Info("text resolution accepted",
			logging.String("card_id", resolved.Card.CardID),
			logging.Float64("score", resolved.Score),
			logging.String("query", resolved.Query),
		)
		return resolved.Card, strings.Join(append(notes, fmt.Sprintf("resolved by query %s (score %.0f)", resolved.Query, resolved.Score)), "; "), nil
	}
	if scan.Extraction.HasName() || scan.Extraction.HasNumber() {
		notes = append(notes, "no catalog match above cutoff")
	}
	return nil, strings.Join(notes, "; "), nil
}

// identifyVisual runs embed, index search, rerank, and confidence. Only an
// Accept decision yields a card; Review surfaces the candidate in the note
// and falls through to text resolution.
func (p *Processor) identifyVisual(ctx context.Context, logger *slog.Logger, scan *store.ScanRecord) (*cards.ResolvedCard, string, error) {
	embedding, err := p.embedder.Embed(ctx, scan.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("embed scan image: %w", err)
	}
	img, err := vision.Load(scan.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("load scan image: %w", err)
	}
	result, decision, err := p.matcher.Match(ctx, img, embedding)
	if err != nil {
		return nil, "", err
	}
	if result == nil {
		return nil, "", nil
	}

	logger.Debug("visual match evaluated",
		logging.String("card_id", result.CardID),
		logging.Float64("distance", result.Distance),
		logging.Int("inliers", result.Inliers),
		logging.Float64("confidence", result.Confidence),
		logging.String("decision", decision.String()),
	)

	switch decision {
	case match.Accept:
		card, err := p.store.GetCard(ctx, result.CardID)
		if err != nil {
			return nil, "", err
		}
		if card == nil {
			card, err = p.catalog.GetCard(ctx, result.CardID)
			if err != nil {
				return nil, "", err
			}
		}
		if card == nil {
			// The index points at a card the catalog no longer serves.
			return nil, fmt.Sprintf("visual accept %s unknown to catalog", result.CardID), nil
		}
		return card, fmt.Sprintf("visual match %s (confidence %.2f, %d inliers)", result.CardID, result.Confidence, result.Inliers), nil
	case match.Review:
		return nil, fmt.Sprintf("visual review candidate %s (confidence %.2f, %d inliers)", result.CardID, result.Confidence, result.Inliers), nil
	default:
		return nil, "", nil
	}
}

// persistResolution caches the card and ensures a price snapshot no older
// than the configured window exists, extracting a fresh one when needed. The
// returned card may be a catalog refresh of the input when the cached copy
// carried no pricing blobs.
func (p *Processor) persistResolution(ctx context.Context, card *cards.ResolvedCard) (*cards.PriceSnapshot, *cards.ResolvedCard, error) {
	if snap, err := p.store.GetPrice(ctx, card.CardID, p.cfg.Cache.PriceMaxAge()); err != nil {
		return nil, card, err
	} else if snap != nil {
		if err := p.store.UpsertCard(ctx, card); err != nil {
			return nil, card, err
		}
		return snap, card, nil
	}

	// Pricing blobs only travel on catalog responses, so a cache-hydrated
	// card needs a refresh before extraction.
	if len(card.TCGPlayer) == 0 && len(card.Cardmarket) == 0 {
		fetched, err := p.catalog.GetCard(ctx, card.CardID)
		if err != nil {
			return nil, card, err
		}
		if fetched != nil {
			card = fetched
		}
	}
	if err := p.store.UpsertCard(ctx, card); err != nil {
		return nil, card, err
	}
	snapshot := pricing.Extract(card)
	if err := p.store.UpsertPrice(ctx, card.CardID, snapshot, pricing.Source); err != nil {
		return nil, card, err
	}
	return &snapshot, card, nil
}

func usableImage(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
