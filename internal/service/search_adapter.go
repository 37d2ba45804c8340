package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docchat-be/internal/repository/contract"
	"docchat-be/pkg/rag/retrieval"
)

// Search backends are shared across requests while results must be scoped to
// the asking user, so the user id travels on the context.

type searchUserKey struct{}

func withSearchUser(ctx context.Context, userId uuid.UUID) context.Context {
	return context.WithValue(ctx, searchUserKey{}, userId)
}

func searchUserFrom(ctx context.Context) (uuid.UUID, error) {
	userId, ok := ctx.Value(searchUserKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("search context missing user scope")
	}
	return userId, nil
}

// chunkVectorSearcher adapts the chunk repository's pgvector query to the
// retriever's semantic contract.
type chunkVectorSearcher struct {
	repo contract.DocumentChunkRepository
}

func NewChunkVectorSearcher(repo contract.DocumentChunkRepository) retrieval.VectorSearcher {
	return &chunkVectorSearcher{repo: repo}
}

func (s *chunkVectorSearcher) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.ScoredChunk, error) {
	userId, err := searchUserFrom(ctx)
	if err != nil {
		return nil, err
	}
	scored, err := s.repo.SearchSimilar(ctx, vector, topK, userId)
	if err != nil {
		return nil, err
	}
	return toScoredChunks(scored), nil
}

// chunkLexicalSearcher adapts the repository's full-text query to the
// retriever's keyword contract.
type chunkLexicalSearcher struct {
	repo contract.DocumentChunkRepository
}

func NewChunkLexicalSearcher(repo contract.DocumentChunkRepository) retrieval.LexicalSearcher {
	return &chunkLexicalSearcher{repo: repo}
}

func (s *chunkLexicalSearcher) Search(ctx context.Context, query string, topK int) ([]retrieval.ScoredChunk, error) {
	userId, err := searchUserFrom(ctx)
	if err != nil {
		return nil, err
	}
	scored, err := s.repo.SearchLexical(ctx, query, topK, userId)
	if err != nil {
		return nil, err
	}
	return toScoredChunks(scored), nil
}

func toScoredChunks(scored []*contract.ScoredChunk) []retrieval.ScoredChunk {
	chunks := make([]retrieval.ScoredChunk, len(scored))
	for i, s := range scored {
		chunks[i] = retrieval.ScoredChunk{
			ID:             s.Chunk.Id.String(),
			DocumentID:     s.Chunk.DocumentId.String(),
			DocumentTitle:  s.DocumentTitle,
			DocumentAuthor: s.DocumentAuthor,
			Content:        s.Chunk.Content,
			Score:          s.Score,
		}
	}
	return chunks
}
