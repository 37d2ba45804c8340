package clarify

import (
	"testing"

	"docchat-be/pkg/rag/retrieval"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultConfig(), noopLogger{})
}

func candidates(ids ...string) []retrieval.Candidate {
	out := make([]retrieval.Candidate, len(ids))
	for i, id := range ids {
		out[i] = retrieval.Candidate{ID: id, DocumentTitle: "Doc " + id}
	}
	return out
}

func TestNonsensicalWithoutHistory(t *testing.T) {
	a := newTestAnalyzer()

	d := a.Analyze(Input{
		Question:   "What is the capital of nowhere?",
		Results:    nil,
		Confidence: 0,
		Strategy:   retrieval.StrategyHybrid,
		HasHistory: false,
	})

	if !d.NeedsClarification {
		t.Fatal("zero confidence with no history must trigger clarification")
	}
	if d.Type != TypeNonsensical {
		t.Errorf("type = %s, want nonsensical", d.Type)
	}
	if d.Message == "" {
		t.Error("clarification must carry a message")
	}
}

func TestZeroConfidenceWithHistoryIsNotNonsensical(t *testing.T) {
	a := newTestAnalyzer()

	d := a.Analyze(Input{
		Question:   "What about the appendix section with all the tables?",
		Confidence: 0.05,
		HasHistory: true,
	})

	if d.Type == TypeNonsensical {
		t.Error("an ongoing conversation should never be classified nonsensical")
	}
}

func TestAmbiguityThresholdBoundary(t *testing.T) {
	a := newTestAnalyzer()
	threshold := DefaultConfig().LowConfidence

	base := Input{
		Question:   "tell me more", // short and generic
		Results:    candidates("a", "b"),
		Strategy:   retrieval.StrategyHybrid,
		HasHistory: true,
	}

	justBelow := base
	justBelow.Confidence = threshold - 0.001
	if d := a.Analyze(justBelow); !d.NeedsClarification || d.Type != TypeAmbiguous {
		t.Errorf("just below threshold must always clarify, got %+v", d)
	}

	justAbove := base
	justAbove.Confidence = threshold + 0.001
	if d := a.Analyze(justAbove); d.NeedsClarification {
		t.Errorf("just above threshold must never clarify, got %+v", d)
	}
}

func TestLongSpecificQuestionNotAmbiguous(t *testing.T) {
	a := newTestAnalyzer()

	d := a.Analyze(Input{
		Question:   "What were the exact audit findings on supplier payments in the March report?",
		Results:    candidates("a"),
		Confidence: 0.2, // weak retrieval, but the question is specific
		HasHistory: true,
	})

	if d.NeedsClarification {
		t.Error("a specific question with history should proceed despite weak retrieval")
	}
}

func TestRewriteDivergenceTriggersDoubt(t *testing.T) {
	a := newTestAnalyzer()

	d := a.Analyze(Input{
		Question:       "When was it signed?",
		Results:        candidates("a", "b", "c"),
		Confidence:     0.8,
		HasHistory:     true,
		WasRewritten:   true,
		LiteralResults: candidates("x", "y", "z"),
	})

	if !d.NeedsClarification || d.Type != TypeLowConfidence {
		t.Errorf("diverging rewrite must trigger doubt, got %+v", d)
	}
}

func TestRewriteAgreementPasses(t *testing.T) {
	a := newTestAnalyzer()

	d := a.Analyze(Input{
		Question:       "When was the contract signed by both parties?",
		Results:        candidates("a", "b", "c"),
		Confidence:     0.8,
		HasHistory:     true,
		WasRewritten:   true,
		LiteralResults: candidates("a", "b", "d"),
	})

	if d.NeedsClarification {
		t.Errorf("agreeing rewrite must pass, got %+v", d)
	}
}

func TestIdempotence(t *testing.T) {
	a := newTestAnalyzer()

	in := Input{
		Question:   "why",
		Results:    candidates("a"),
		Confidence: 0.1,
		HasHistory: true,
	}

	first := a.Analyze(in)
	for i := 0; i < 20; i++ {
		if got := a.Analyze(in); got != first {
			t.Fatal("decision must be idempotent for identical inputs")
		}
	}
}

func TestResultOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []retrieval.Candidate
		want float64
	}{
		{"both empty", nil, nil, 1},
		{"one empty", candidates("a"), nil, 0},
		{"disjoint", candidates("a", "b"), candidates("c", "d"), 0},
		{"identical", candidates("a", "b"), candidates("a", "b"), 1},
		{"half shared", candidates("a", "b", "c"), candidates("a", "b", "d"), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resultOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("overlap = %f, want %f", got, tt.want)
			}
		})
	}
}
