// Package resolve picks one catalog card for a scan's extracted evidence.
//
// Resolution runs the number-first query policy against the catalog and
// ranks each result set with a weighted score normalized against the
// applicable maximum. The best candidate is accepted only when its score
// clears the configured cutoff; anything less resolves to "no match",
// which is a normal outcome rather than an error.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cardscan/internal/cards"
	"cardscan/internal/catalog"
	"cardscan/internal/textutil"
)

const (
	numberWeight  = 40.0
	nameWeight    = 40.0
	recencyWeight = 20.0
)

// Match is an accepted resolution together with its ranking evidence.
type Match struct {
	Card  *cards.ResolvedCard
	Score float64
	Query string
}

// Resolver ranks catalog search results against extracted scan evidence.
type Resolver struct {
	searcher catalog.Searcher
	minScore float64
}

// New constructs a resolver. minScore is the normalized acceptance cutoff;
// a best candidate at or below it resolves to "no match".
func New(searcher catalog.Searcher, minScore float64) *Resolver {
	return &Resolver{searcher: searcher, minScore: minScore}
}

// Resolve tries the constructed queries in order and returns the first
// accepted candidate. A nil match with nil error means no catalog card
// scored above the cutoff.
func (r *Resolver) Resolve(ctx context.Context, extracted cards.Extraction) (*Match, error) {
	for _, query := range buildQueries(extracted) {
		candidates, err := r.searcher.SearchCards(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}
		best := pickBest(extracted, candidates)
		if best.card != nil && best.score > r.minScore {
			return &Match{Card: best.card, Score: best.score, Query: query}, nil
		}
	}
	return nil, nil
}

// buildQueries implements the number-first policy. A bare number query runs
// before the name-refined form so an unambiguous collector number resolves
// in one request; the name-only query is the last resort. Later queries run
// only when earlier ones produce no accepted candidate.
func buildQueries(extracted cards.Extraction) []string {
	name := strings.TrimSpace(extracted.Name)
	queries := make([]string, 0, 3)
	if extracted.HasNumber() {
		numberQuery := fmt.Sprintf("number:%q", strconv.Itoa(extracted.Number.Num))
		queries = append(queries, numberQuery)
		if name != "" {
			queries = append(queries, fmt.Sprintf("%s name:%q", numberQuery, name))
		}
	}
	if name != "" {
		queries = append(queries, fmt.Sprintf("name:%q", name))
	}
	return queries
}

type scored struct {
	card        *cards.ResolvedCard
	score       float64
	exactNumber bool
	nameRatio   float64
	release     time.Time
	hasRelease  bool
}

// pickBest scores every candidate and returns the winner. A weight counts
// toward the normalization maximum only when its precondition holds: an
// extracted number for the number weight, an extracted name for the name
// weight, a candidate release date for the recency weight.
func pickBest(extracted cards.Extraction, candidates []*cards.ResolvedCard) scored {
	newest, hasNewest := newestRelease(candidates)
	var best scored
	for _, candidate := range candidates {
		current := scoreCandidate(extracted, candidate, newest, hasNewest)
		if best.card == nil || betterCandidate(current, best) {
			best = current
		}
	}
	return best
}

func newestRelease(candidates []*cards.ResolvedCard) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, candidate := range candidates {
		release, ok := candidate.ReleaseDate()
		if !ok {
			continue
		}
		if !found || release.After(newest) {
			newest = release
			found = true
		}
	}
	return newest, found
}

func scoreCandidate(extracted cards.Extraction, candidate *cards.ResolvedCard, newest time.Time, hasNewest bool) scored {
	current := scored{card: candidate}
	points := 0.0
	applicable := 0.0

	if extracted.HasNumber() {
		applicable += numberWeight
		want := textutil.NormalizeNumber(strconv.Itoa(extracted.Number.Num))
		if textutil.NormalizeNumber(candidate.Number) == want {
			points += numberWeight
			current.exactNumber = true
		}
	}
	if extracted.HasName() {
		applicable += nameWeight
		current.nameRatio = textutil.Ratio(textutil.NormalizeName(extracted.Name), textutil.NormalizeName(candidate.Name))
		points += nameWeight * current.nameRatio / 100
	}
	if release, ok := candidate.ReleaseDate(); ok {
		applicable += recencyWeight
		current.release = release
		current.hasRelease = true
		// Only the newest set in the result set earns the recency bonus.
		if hasNewest && !release.Before(newest) {
			points += recencyWeight
		}
	}

	if applicable > 0 {
		current.score = points / applicable * 100
	}
	return current
}

// betterCandidate orders equal scores by exact number, then name similarity,
// then newer release. A full tie keeps the earlier candidate, which arrived
// first in catalog order.
func betterCandidate(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.exactNumber != b.exactNumber {
		return a.exactNumber
	}
	if a.nameRatio != b.nameRatio {
		return a.nameRatio > b.nameRatio
	}
	if a.hasRelease && b.hasRelease && !a.release.Equal(b.release) {
		return a.release.After(b.release)
	}
	return false
}
