package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"docchat-be/pkg/embedding"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Generate(context.Context, string, string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.Embedding{Values: []float32{0.1, 0.2}}}, nil
}

type fakeVectorSearcher struct {
	chunks []ScoredChunk
	err    error
	calls  int
}

func (f *fakeVectorSearcher) Search(context.Context, []float32, int) ([]ScoredChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeLexicalSearcher struct {
	chunks []ScoredChunk
	err    error
	calls  int
}

func (f *fakeLexicalSearcher) Search(context.Context, string, int) ([]ScoredChunk, error) {
	f.calls++
	return f.chunks, f.err
}

func chunk(id string, score float64) ScoredChunk {
	return ScoredChunk{ID: id, DocumentID: "doc-" + id, DocumentTitle: "Doc " + id, Content: "content " + id, Score: score}
}

func defaultParams() FuseParams {
	return FuseParams{
		SemanticWeight: 0.7,
		LexicalWeight:  0.3,
		SemanticFloor:  0.3,
		LexicalFloor:   0.1,
		TopK:           10,
	}
}

func TestFuseMergesByIdentity(t *testing.T) {
	semantic := []ScoredChunk{chunk("a", 0.9), chunk("b", 0.6)}
	lexical := []ScoredChunk{chunk("a", 0.5), chunk("c", 0.4)}

	result := Fuse(semantic, lexical, defaultParams())

	if len(result.Results) != 3 {
		t.Fatalf("expected 3 merged rows, got %d", len(result.Results))
	}
	if result.Strategy != StrategyHybrid {
		t.Errorf("strategy = %s, want hybrid", result.Strategy)
	}

	top := result.Results[0]
	if top.ID != "a" {
		t.Fatalf("top candidate = %s, want a", top.ID)
	}
	want := 0.7*0.9 + 0.3*0.5
	if math.Abs(top.FusedScore-want) > 1e-9 {
		t.Errorf("fused score = %f, want %f", top.FusedScore, want)
	}
	if top.SemanticScore != 0.9 || top.LexicalScore != 0.5 {
		t.Error("merged row must keep both component scores")
	}
}

func TestFuseMissingSignalTreatedAsZero(t *testing.T) {
	result := Fuse([]ScoredChunk{chunk("a", 0.8)}, nil, defaultParams())

	if len(result.Results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Results))
	}
	c := result.Results[0]
	if c.LexicalScore != 0 {
		t.Error("missing lexical signal must be 0")
	}
	want := 0.7 * 0.8
	if math.Abs(c.FusedScore-want) > 1e-9 {
		t.Errorf("fused score = %f, want %f", c.FusedScore, want)
	}
	if result.Strategy != StrategySemanticOnly {
		t.Errorf("strategy = %s, want semantic_only", result.Strategy)
	}
}

func TestFuseFloorsSuppressNoise(t *testing.T) {
	semantic := []ScoredChunk{chunk("a", 0.29)} // below 0.3 floor
	lexical := []ScoredChunk{chunk("b", 0.09)}  // below 0.1 floor

	result := Fuse(semantic, lexical, defaultParams())

	if len(result.Results) != 0 {
		t.Fatalf("floored candidates must be discarded, got %d rows", len(result.Results))
	}
	if result.Confidence != 0 {
		t.Errorf("empty results must have confidence 0, got %f", result.Confidence)
	}
	if result.Strategy != StrategyNone {
		t.Errorf("strategy = %s, want none when no signal survives", result.Strategy)
	}
}

func TestFuseDeterministicOrdering(t *testing.T) {
	semantic := []ScoredChunk{chunk("a", 0.8), chunk("b", 0.8), chunk("c", 0.5)}
	lexical := []ScoredChunk{chunk("d", 0.6), chunk("b", 0.2)}

	first := Fuse(semantic, lexical, defaultParams())
	for i := 0; i < 20; i++ {
		again := Fuse(semantic, lexical, defaultParams())
		if len(again.Results) != len(first.Results) {
			t.Fatal("result count changed between identical runs")
		}
		for j := range again.Results {
			if again.Results[j].ID != first.Results[j].ID {
				t.Fatalf("ordering not reproducible at rank %d", j)
			}
			if again.Results[j].FusedScore != first.Results[j].FusedScore {
				t.Fatalf("fused score not reproducible at rank %d", j)
			}
		}
	}
}

func TestFuseTruncatesToTopK(t *testing.T) {
	var semantic []ScoredChunk
	for i := 0; i < 30; i++ {
		semantic = append(semantic, chunk(string(rune('a'+i)), 0.9-float64(i)*0.01))
	}

	params := defaultParams()
	params.TopK = 10
	result := Fuse(semantic, nil, params)

	if len(result.Results) != 10 {
		t.Errorf("expected top-10 truncation, got %d", len(result.Results))
	}
}

func TestConfidenceEmptyInvariant(t *testing.T) {
	if got := ComputeConfidence(nil); got != 0 {
		t.Errorf("empty => confidence 0, got %f", got)
	}

	nonEmpty := []Candidate{{FusedScore: 0.001}}
	if got := ComputeConfidence(nonEmpty); got <= 0 {
		t.Errorf("non-empty => confidence > 0, got %f", got)
	}
}

func TestConfidenceRewardsSteepGap(t *testing.T) {
	steep := []Candidate{{FusedScore: 0.9}, {FusedScore: 0.2}}
	flat := []Candidate{{FusedScore: 0.4}, {FusedScore: 0.38}, {FusedScore: 0.37}}

	if ComputeConfidence(steep) <= ComputeConfidence(flat) {
		t.Error("steep leading gap must outrank a flat low tail")
	}
}

func TestSearchDegradesToSurvivingSignal(t *testing.T) {
	vec := &fakeVectorSearcher{err: errors.New("index down")}
	lex := &fakeLexicalSearcher{chunks: []ScoredChunk{chunk("a", 0.7)}}

	r := NewRetriever(fakeEmbedder{}, vec, lex, DefaultConfig(), noopLogger{})
	result, err := r.Search(context.Background(), "quarterly revenue", Options{})
	if err != nil {
		t.Fatalf("single backend failure must not error: %v", err)
	}
	if result.Strategy != StrategyKeywordOnly {
		t.Errorf("strategy = %s, want keyword_only", result.Strategy)
	}
	if len(result.Results) != 1 {
		t.Errorf("expected surviving signal's results, got %d", len(result.Results))
	}
}

func TestSearchBothBackendsFailing(t *testing.T) {
	vec := &fakeVectorSearcher{err: errors.New("index down")}
	lex := &fakeLexicalSearcher{err: errors.New("index down")}

	r := NewRetriever(fakeEmbedder{}, vec, lex, DefaultConfig(), noopLogger{})
	_, err := r.Search(context.Background(), "anything", Options{})
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("expected ErrAllBackendsFailed, got %v", err)
	}
}

func TestSearchEmbeddingFailureDegradesToLexical(t *testing.T) {
	vec := &fakeVectorSearcher{chunks: []ScoredChunk{chunk("a", 0.9)}}
	lex := &fakeLexicalSearcher{chunks: []ScoredChunk{chunk("b", 0.5)}}

	r := NewRetriever(fakeEmbedder{err: errors.New("embedder down")}, vec, lex, DefaultConfig(), noopLogger{})
	result, err := r.Search(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if vec.calls != 0 {
		t.Error("vector search must not run without an embedding")
	}
	if result.Strategy != StrategyKeywordOnly {
		t.Errorf("strategy = %s, want keyword_only", result.Strategy)
	}
}

func TestSearchEmptyBothYieldsSuggestions(t *testing.T) {
	r := NewRetriever(fakeEmbedder{}, &fakeVectorSearcher{}, &fakeLexicalSearcher{}, DefaultConfig(), noopLogger{})

	result, err := r.Search(context.Background(), "zzz", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 0 || result.Confidence != 0 {
		t.Fatal("no hits must produce empty results with zero confidence")
	}
	if len(result.Suggestions) == 0 {
		t.Error("empty result must carry rephrase suggestions")
	}
	if result.Strategy != StrategyNone {
		t.Errorf("strategy = %s, want none when both backends return nothing", result.Strategy)
	}
}

func TestFactualIntentShiftsWeights(t *testing.T) {
	cfg := DefaultConfig()
	r := NewRetriever(fakeEmbedder{}, &fakeVectorSearcher{}, &fakeLexicalSearcher{}, cfg, noopLogger{})

	sem, lex := r.weightsFor("basic_factual")
	if sem != cfg.FactualSemWeight {
		t.Errorf("factual semantic weight = %f, want %f", sem, cfg.FactualSemWeight)
	}
	if math.Abs(sem+lex-1) > 1e-9 {
		t.Errorf("factual weights must sum to 1, got %f", sem+lex)
	}

	sem, lex = r.weightsFor("retrieve_from_docs")
	if sem != cfg.SemanticWeight || lex != cfg.LexicalWeight {
		t.Error("non-factual intents use the default weights")
	}
}
