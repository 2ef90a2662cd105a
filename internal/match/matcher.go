package match

import (
	"context"
	"image"

	"cardscan/internal/cards"
	"cardscan/internal/config"
)

// Index answers nearest-neighbor queries over card embeddings, ascending by
// cosine distance.
type Index interface {
	Search(ctx context.Context, embedding []float32, k int) ([]cards.VisualCandidate, error)
}

// Verifier reranks visual candidates by geometric inlier count.
type Verifier interface {
	Rerank(query *image.Gray, candidates []cards.VisualCandidate, topK int) (string, int)
}

// Matcher runs the visual identification path: index search, geometric
// rerank, confidence fusion. It performs no catalog work; callers act on the
// returned decision.
type Matcher struct {
	index      Index
	verifier   Verifier
	scorer     Scorer
	searchTopK int
	rerankTopK int
}

// NewMatcher wires the index and verifier under the configured search and
// rerank widths.
func NewMatcher(index Index, verifier Verifier, cfg config.Matcher) *Matcher {
	searchTopK := cfg.SearchTopK
	if searchTopK <= 0 {
		searchTopK = 10
	}
	rerankTopK := cfg.RerankTopK
	if rerankTopK <= 0 {
		rerankTopK = 5
	}
	return &Matcher{
		index:      index,
		verifier:   verifier,
		scorer:     NewScorer(cfg),
		searchTopK: searchTopK,
		rerankTopK: rerankTopK,
	}
}

// Match identifies the query image against the index. A nil result with a
// nil error means the index returned no candidates; the caller falls back to
// text resolution.
func (m *Matcher) Match(ctx context.Context, query *image.Gray, embedding []float32) (*cards.MatchResult, Decision, error) {
	candidates, err := m.index.Search(ctx, embedding, m.searchTopK)
	if err != nil {
		return nil, Reject, err
	}
	if len(candidates) == 0 {
		return nil, Reject, nil
	}

	bestID, inliers := m.verifier.Rerank(query, candidates, m.rerankTopK)

	// A rerank with no readable reference images yields no geometric
	// evidence. The nearest candidate is reported with zero inliers, so
	// confidence cannot exceed the distance term alone.
	best := candidates[0]
	if bestID != "" {
		for _, candidate := range candidates {
			if candidate.CardID == bestID {
				best = candidate
				break
			}
		}
	}
	if inliers < 0 {
		inliers = 0
	}

	confidence := Confidence(best.Distance, inliers)
	result := &cards.MatchResult{
		CardID:     best.CardID,
		Distance:   best.Distance,
		Inliers:    inliers,
		Confidence: confidence,
	}
	return result, m.scorer.Decide(confidence), nil
}
