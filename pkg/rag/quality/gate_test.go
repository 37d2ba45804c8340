package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docchat-be/pkg/rag/intent"
)

func TestEvaluateIsLow(t *testing.T) {
	g := NewGate(DefaultConfig())

	tests := []struct {
		name    string
		in      Input
		wantLow bool
	}{
		{
			name:    "empty context, weak scores",
			in:      Input{ContextSize: 0, Confidence: 0.1, TopScore: 0.2},
			wantLow: true,
		},
		{
			name:    "context present rescues",
			in:      Input{ContextSize: 2, Confidence: 0.1, TopScore: 0.2},
			wantLow: false,
		},
		{
			name:    "strong confidence rescues",
			in:      Input{ContextSize: 0, Confidence: 0.8, TopScore: 0.2},
			wantLow: false,
		},
		{
			name:    "strong top score rescues",
			in:      Input{ContextSize: 0, Confidence: 0.1, TopScore: 0.9},
			wantLow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Evaluate(tt.in)
			assert.Equal(t, tt.wantLow, got.IsLow)
		})
	}
}

// The override is exact: transform_prior_artifact with a prior artifact,
// nothing else. Every other combination must be refused when low.
func TestOverrideExactness(t *testing.T) {
	g := NewGate(DefaultConfig())

	intents := []string{
		intent.IntentRetrieveFromDocs,
		intent.IntentBasicFactual,
		intent.IntentSynthesizeFromDocs,
		intent.IntentTransformPriorArtifact,
		intent.IntentGenerateDocument,
	}

	for _, intentName := range intents {
		for _, hasPrior := range []bool{false, true} {
			v := g.Evaluate(Input{
				ContextSize:      0,
				Confidence:       0.01,
				TopScore:         0.01,
				Intent:           intentName,
				HasPriorArtifact: hasPrior,
			})

			wantOverride := intentName == intent.IntentTransformPriorArtifact && hasPrior
			assert.Equal(t, wantOverride, v.AllowOverride, "intent=%s hasPrior=%v", intentName, hasPrior)
			assert.True(t, v.IsLow, "intent=%s: these inputs must read as low quality", intentName)
		}
	}
}
