package visualindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	chromem "github.com/philippgille/chromem-go"

	"cardscan/internal/config"
)

// ManifestEntry is one line of the JSONL embedding manifest produced by the
// embedding collaborator.
type ManifestEntry struct {
	CardID    string    `json:"card_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Embedding []float32 `json:"embedding"`
}

// Builder writes a fresh card collection into the index directory. Creating
// a builder drops any existing collection so removed cards do not linger
// across rebuilds.
type Builder struct {
	collection *chromem.Collection
}

// NewBuilder opens the index directory for writing, creating it if needed.
func NewBuilder(cfg *config.Config) (*Builder, error) {
	dir := cfg.Paths.IndexDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open visual index for build: %w", err)
	}
	if err := db.DeleteCollection(collectionName); err != nil {
		return nil, fmt.Errorf("reset visual index: %w", err)
	}
	collection, err := db.CreateCollection(collectionName, nil, rejectTextEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create visual index collection: %w", err)
	}
	return &Builder{collection: collection}, nil
}

// Add indexes one manifest entry.
func (b *Builder) Add(ctx context.Context, entry ManifestEntry) error {
	if entry.CardID == "" {
		return errors.New("manifest entry missing card_id")
	}
	if len(entry.Embedding) != embeddingDim {
		return fmt.Errorf("card %s: embedding has %d dimensions, want %d", entry.CardID, len(entry.Embedding), embeddingDim)
	}
	doc := chromem.Document{
		ID:        entry.CardID,
		Content:   entry.Name,
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			metaName:  entry.Name,
			metaImage: entry.Image,
		},
	}
	if err := b.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index card %s: %w", entry.CardID, err)
	}
	return nil
}

// IngestManifest streams a JSONL manifest into the index, one entry per
// line. onEntry, when non-nil, observes each indexed entry. Returns the
// number of entries indexed.
func (b *Builder) IngestManifest(ctx context.Context, r io.Reader, onEntry func(ManifestEntry)) (int, error) {
	decoder := json.NewDecoder(r)
	count := 0
	for {
		var entry ManifestEntry
		if err := decoder.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, fmt.Errorf("parse manifest entry %d: %w", count+1, err)
		}
		if err := b.Add(ctx, entry); err != nil {
			return count, err
		}
		count++
		if onEntry != nil {
			onEntry(entry)
		}
	}
	return count, nil
}

// Count reports the number of cards indexed so far.
func (b *Builder) Count() int {
	return b.collection.Count()
}
