package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/rag/intent"

	"github.com/sony/gobreaker/v2"
)

// Config encapsulates retrieval parameters
type Config struct {
	SemanticWeight   float64
	LexicalWeight    float64
	FactualSemWeight float64
	SemanticFloor    float64
	LexicalFloor     float64
	TopK             int
	SearchTimeout    time.Duration
}

// DefaultConfig returns the default retrieval configuration.
// The 0.7/0.3 split and the factual shift are a starting calibration,
// overridable through configuration.
func DefaultConfig() Config {
	return Config{
		SemanticWeight:   0.7,
		LexicalWeight:    0.3,
		FactualSemWeight: 0.85,
		SemanticFloor:    0.3,
		LexicalFloor:     0.1,
		TopK:             10,
		SearchTimeout:    10 * time.Second,
	}
}

// Options carries per-request retrieval hints
type Options struct {
	Intent string
	TopK   int // 0 means config default
}

// ErrAllBackendsFailed is returned when neither search signal could be obtained
var ErrAllBackendsFailed = fmt.Errorf("both search backends unavailable")

// Retriever fuses semantic and lexical rankings into one scored result set.
// Each backend sits behind its own circuit breaker so a flapping index
// degrades to the surviving signal instead of stalling every request.
type Retriever struct {
	embedder embedding.EmbeddingProvider
	vector   VectorSearcher
	lexical  LexicalSearcher
	config   Config
	logger   logger.ILogger

	vectorBreaker  *gobreaker.CircuitBreaker[[]ScoredChunk]
	lexicalBreaker *gobreaker.CircuitBreaker[[]ScoredChunk]
}

func NewRetriever(
	embedder embedding.EmbeddingProvider,
	vector VectorSearcher,
	lexical LexicalSearcher,
	config Config,
	log logger.ILogger,
) *Retriever {
	return &Retriever{
		embedder:       embedder,
		vector:         vector,
		lexical:        lexical,
		config:         config,
		logger:         log,
		vectorBreaker:  newBreaker("vector-search", log),
		lexicalBreaker: newBreaker("lexical-search", log),
	}
}

func newBreaker(name string, log logger.ILogger) *gobreaker.CircuitBreaker[[]ScoredChunk] {
	return gobreaker.NewCircuitBreaker[[]ScoredChunk](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			log.Warn("Retrieval", "Circuit breaker state change", map[string]interface{}{
				"breaker": n,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

// Search runs both backends concurrently and fuses their rankings.
// If one backend fails, the result degrades to the surviving signal;
// only when both fail does Search return an error.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = r.config.TopK
	}

	var (
		wg       sync.WaitGroup
		semantic []ScoredChunk
		lexical  []ScoredChunk
		semErr   error
		lexErr   error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		semantic, semErr = r.semanticSearch(ctx, query, topK)
	}()

	go func() {
		defer wg.Done()
		lexical, lexErr = r.lexicalSearch(ctx, query, topK)
	}()

	wg.Wait()

	if semErr != nil && lexErr != nil {
		r.logger.Error("Retrieval", "Both search backends failed", map[string]interface{}{
			"semantic_error": semErr.Error(),
			"lexical_error":  lexErr.Error(),
		})
		return nil, fmt.Errorf("%w: semantic: %v, lexical: %v", ErrAllBackendsFailed, semErr, lexErr)
	}
	if semErr != nil {
		r.logger.Warn("Retrieval", "Semantic backend failed, degrading to keyword-only", map[string]interface{}{
			"error": semErr.Error(),
		})
	}
	if lexErr != nil {
		r.logger.Warn("Retrieval", "Lexical backend failed, degrading to semantic-only", map[string]interface{}{
			"error": lexErr.Error(),
		})
	}

	semWeight, lexWeight := r.weightsFor(opts.Intent)
	result := Fuse(semantic, lexical, FuseParams{
		SemanticWeight: semWeight,
		LexicalWeight:  lexWeight,
		SemanticFloor:  r.config.SemanticFloor,
		LexicalFloor:   r.config.LexicalFloor,
		TopK:           topK,
	})

	if len(result.Results) == 0 {
		result.Suggestions = rephraseSuggestions(query)
	}

	r.logger.Debug("Retrieval", "Search complete", map[string]interface{}{
		"strategy":   string(result.Strategy),
		"results":    len(result.Results),
		"confidence": result.Confidence,
	})

	return result, nil
}

func (r *Retriever) semanticSearch(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()

	embeddingRes, err := r.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	return r.vectorBreaker.Execute(func() ([]ScoredChunk, error) {
		return r.vector.Search(ctx, embeddingRes.Embedding.Values, topK)
	})
}

func (r *Retriever) lexicalSearch(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()

	return r.lexicalBreaker.Execute(func() ([]ScoredChunk, error) {
		return r.lexical.Search(ctx, query, topK)
	})
}

// weightsFor shifts the blend semantic-heavy for factual lookups: precise
// semantic match matters more than keyword overlap there.
func (r *Retriever) weightsFor(intentName string) (float64, float64) {
	if intentName == intent.IntentBasicFactual {
		return r.config.FactualSemWeight, 1 - r.config.FactualSemWeight
	}
	return r.config.SemanticWeight, r.config.LexicalWeight
}

func rephraseSuggestions(query string) []string {
	suggestions := []string{
		"Try rephrasing with more specific terms",
		"Mention the document or topic you have in mind",
	}
	if len(query) < 20 {
		suggestions = append(suggestions, "Add more detail to your question")
	}
	return suggestions
}

// FuseParams controls one fusion pass
type FuseParams struct {
	SemanticWeight float64
	LexicalWeight  float64
	SemanticFloor  float64
	LexicalFloor   float64
	TopK           int
}

// Fuse merges the two rankings by chunk identity. A chunk found by both
// signals gets one row with both scores combined; a chunk found by one
// signal keeps it with the missing signal treated as 0. Floors drop noise
// before fusion. Output is fused-score descending, truncated to TopK.
func Fuse(semantic, lexical []ScoredChunk, params FuseParams) *Result {
	merged := make(map[string]*Candidate)
	order := make([]string, 0, len(semantic)+len(lexical))

	semKept := 0
	for _, chunk := range semantic {
		if chunk.Score < params.SemanticFloor {
			continue
		}
		semKept++
		merged[chunk.ID] = &Candidate{
			ID:             chunk.ID,
			DocumentID:     chunk.DocumentID,
			DocumentTitle:  chunk.DocumentTitle,
			DocumentAuthor: chunk.DocumentAuthor,
			Content:        chunk.Content,
			SemanticScore:  chunk.Score,
		}
		order = append(order, chunk.ID)
	}

	lexKept := 0
	for _, chunk := range lexical {
		if chunk.Score < params.LexicalFloor {
			continue
		}
		lexKept++
		if existing, ok := merged[chunk.ID]; ok {
			existing.LexicalScore = chunk.Score
			continue
		}
		merged[chunk.ID] = &Candidate{
			ID:             chunk.ID,
			DocumentID:     chunk.DocumentID,
			DocumentTitle:  chunk.DocumentTitle,
			DocumentAuthor: chunk.DocumentAuthor,
			Content:        chunk.Content,
			LexicalScore:   chunk.Score,
		}
		order = append(order, chunk.ID)
	}

	candidates := make([]Candidate, 0, len(merged))
	for _, id := range order {
		c := merged[id]
		c.FusedScore = params.SemanticWeight*c.SemanticScore + params.LexicalWeight*c.LexicalScore
		candidates = append(candidates, *c)
	}

	// Stable sort so equal fused scores keep insertion order: semantic rank
	// first, then lexical. Reproducible for identical inputs.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FusedScore > candidates[j].FusedScore
	})

	if params.TopK > 0 && len(candidates) > params.TopK {
		candidates = candidates[:params.TopK]
	}

	return &Result{
		Results:    candidates,
		Strategy:   strategyFor(semKept, lexKept),
		Confidence: ComputeConfidence(candidates),
	}
}

func strategyFor(semKept, lexKept int) Strategy {
	switch {
	case semKept > 0 && lexKept > 0:
		return StrategyHybrid
	case semKept > 0:
		return StrategySemanticOnly
	case lexKept > 0:
		return StrategyKeywordOnly
	default:
		return StrategyNone
	}
}
