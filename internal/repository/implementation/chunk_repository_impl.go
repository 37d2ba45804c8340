package implementation

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"docchat-be/internal/mapper"
	"docchat-be/internal/model"
	"docchat-be/internal/repository/contract"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

// SearchSimilar ranks chunks by pgvector cosine similarity.
// Cosine distance in pgvector is: 1 - cosine_similarity
// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
func (r *DocumentChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentChunk
		DocumentTitle  string
		DocumentAuthor string
		Similarity     float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, documents.title as document_title, documents.author as document_author, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.user_id = ?", userId).
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:          r.mapper.ToEntity(&res.DocumentChunk),
			DocumentTitle:  res.DocumentTitle,
			DocumentAuthor: res.DocumentAuthor,
			Score:          res.Similarity,
		}
	}
	return scored, nil
}

// SearchLexical ranks chunks with Postgres full-text search. ts_rank_cd is
// unbounded above, so the score is squashed into [0, 1) with rank/(rank+1).
func (r *DocumentChunkRepositoryImpl) SearchLexical(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentChunk
		DocumentTitle  string
		DocumentAuthor string
		Rank           float64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select(`document_chunks.*, documents.title as document_title, documents.author as document_author,
			ts_rank_cd(to_tsvector('english', document_chunks.content), plainto_tsquery('english', ?)) as rank`, query).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.user_id = ?", userId).
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Where("to_tsvector('english', document_chunks.content) @@ plainto_tsquery('english', ?)", query).
		Order("rank DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:          r.mapper.ToEntity(&res.DocumentChunk),
			DocumentTitle:  res.DocumentTitle,
			DocumentAuthor: res.DocumentAuthor,
			Score:          res.Rank / (res.Rank + 1),
		}
	}
	return scored, nil
}
