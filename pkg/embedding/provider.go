package embedding

import "context"

// Task type hints passed to providers that distinguish query and document embeddings
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type Embedding struct {
	Values []float32
}

type EmbeddingResponse struct {
	Embedding Embedding
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}
