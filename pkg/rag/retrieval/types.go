package retrieval

import "context"

// Strategy records which signal(s) contributed to the final ranking
type Strategy string

const (
	StrategySemanticOnly Strategy = "semantic_only"
	StrategyKeywordOnly  Strategy = "keyword_only"
	StrategyHybrid       Strategy = "hybrid"
	StrategyNone         Strategy = "none"
)

// Candidate is one retrieved chunk with its fused ranking score.
// Never mutated after the retriever produces it.
type Candidate struct {
	ID             string  `json:"id"`
	DocumentID     string  `json:"document_id"`
	DocumentTitle  string  `json:"document_title"`
	DocumentAuthor string  `json:"document_author,omitempty"`
	Content        string  `json:"content"`
	SemanticScore  float64 `json:"semantic_score"`
	LexicalScore   float64 `json:"lexical_score"`
	FusedScore     float64 `json:"fused_score"`
}

// Result is the retriever output for one request.
// Invariant: Confidence == 0 iff Results is empty.
type Result struct {
	Results     []Candidate `json:"results"`
	Strategy    Strategy    `json:"search_strategy"`
	Confidence  float64     `json:"confidence"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// ScoredChunk is the raw hit shape both search backends return
type ScoredChunk struct {
	ID             string
	DocumentID     string
	DocumentTitle  string
	DocumentAuthor string
	Content        string
	Score          float64
}

// VectorSearcher is the semantic index query contract
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)
}

// LexicalSearcher is the keyword index query contract
type LexicalSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]ScoredChunk, error)
}
