package contract

import (
	"context"

	"github.com/google/uuid"

	"docchat-be/internal/entity"
)

// ScoredChunk wraps a DocumentChunk with its search score and the owning
// document's metadata.
type ScoredChunk struct {
	Chunk          *entity.DocumentChunk
	DocumentTitle  string
	DocumentAuthor string
	Score          float64 // 0.0 to 1.0
}

// DocumentChunkRepository is read-only: chunks are written by the ingestion
// side, this service only searches them.
type DocumentChunkRepository interface {
	// SearchSimilar ranks the user's chunks by cosine similarity against the
	// query vector.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*ScoredChunk, error)

	// SearchLexical ranks the user's chunks by full-text relevance against
	// the literal query, with scores normalized to [0, 1].
	SearchLexical(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*ScoredChunk, error)
}
