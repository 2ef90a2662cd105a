package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrNoEmbedding reports that no embedding exists for a scan image. The
// batch treats it as a quiet fall-through to text resolution rather than a
// visual-path failure.
var ErrNoEmbedding = errors.New("no embedding for scan image")

// SidecarSuffix is appended to a scan image path to locate the embedding
// the embedding collaborator wrote for it.
const SidecarSuffix = ".embedding.json"

// SidecarEmbedder reads precomputed query embeddings from JSON sidecar
// files next to each scan image. The embedding model runs out of process;
// its output is a JSON float array at <image>.embedding.json.
type SidecarEmbedder struct{}

var _ Embedder = SidecarEmbedder{}

func (SidecarEmbedder) Embed(_ context.Context, imagePath string) ([]float32, error) {
	sidecar := imagePath + SidecarSuffix
	raw, err := os.ReadFile(sidecar)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", sidecar, ErrNoEmbedding)
		}
		return nil, fmt.Errorf("read embedding sidecar: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(raw, &embedding); err != nil {
		return nil, fmt.Errorf("parse embedding sidecar %s: %w", sidecar, err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding sidecar %s holds no values", sidecar)
	}
	return embedding, nil
}
