// Package visualindex provides the persistent embedding index that visual
// search queries. Embeddings are 512-dim unit vectors computed by the
// external embedding collaborator; the index only stores and searches them.
package visualindex

import (
	"context"
	"errors"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"

	"cardscan/internal/cards"
	"cardscan/internal/config"
)

const (
	collectionName = "cards"
	// embeddingDim is the embedding width the collaborator produces. A
	// mismatched manifest fails at build time, not at query time.
	embeddingDim = 512

	metaName  = "name"
	metaImage = "image"
)

// rejectTextEmbedding guards against accidental text-embedding calls; every
// vector in this index arrives precomputed.
var rejectTextEmbedding chromem.EmbeddingFunc = func(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("visual index only accepts precomputed embeddings")
}

// Index is a read-only view of the card embedding collection. Queries are
// safe for concurrent use.
type Index struct {
	collection *chromem.Collection
}

// Open loads an existing index and fails fast when it is missing or empty.
// Downstream logic treats an empty search result as a normal outcome, so
// absence has to surface here instead.
func Open(cfg *config.Config) (*Index, error) {
	dir := cfg.Paths.IndexDir
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("visual index unavailable at %s: %w", dir, err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open visual index: %w", err)
	}
	collection := db.GetCollection(collectionName, rejectTextEmbedding)
	if collection == nil {
		return nil, fmt.Errorf("visual index at %s has no %q collection", dir, collectionName)
	}
	if collection.Count() == 0 {
		return nil, fmt.Errorf("visual index at %s is empty", dir)
	}
	return &Index{collection: collection}, nil
}

// Search returns the k nearest cards by cosine distance, ascending. k is
// clamped to the collection size; k < 1 is an error.
func (ix *Index) Search(ctx context.Context, embedding []float32, k int) ([]cards.VisualCandidate, error) {
	if k < 1 {
		return nil, errors.New("k must be at least 1")
	}
	if count := ix.collection.Count(); k > count {
		k = count
	}
	results, err := ix.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query visual index: %w", err)
	}

	// Results arrive ordered by descending similarity, so distances come
	// out ascending.
	candidates := make([]cards.VisualCandidate, 0, len(results))
	for _, result := range results {
		candidates = append(candidates, cards.VisualCandidate{
			CardID:    result.ID,
			Name:      result.Metadata[metaName],
			ImagePath: result.Metadata[metaImage],
			Distance:  1 - float64(result.Similarity),
		})
	}
	return candidates, nil
}

// Count reports the number of indexed cards.
func (ix *Index) Count() int {
	return ix.collection.Count()
}
