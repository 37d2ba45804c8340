package quality

import (
	"docchat-be/pkg/rag/intent"
)

// Verdict is the final go/no-go call before generation
type Verdict struct {
	IsLow         bool
	AllowOverride bool
}

// Input is the evidence the gate evaluates
type Input struct {
	ContextSize      int // retrieved chunks available for grounding
	Confidence       float64
	TopScore         float64
	Intent           string
	HasPriorArtifact bool // a non-empty answer exists in the previous turn
}

// Config encapsulates gate thresholds
type Config struct {
	MinContextSize int
	MinConfidence  float64
	MinTopScore    float64
}

func DefaultConfig() Config {
	return Config{
		MinContextSize: 1,
		MinConfidence:  0.25,
		MinTopScore:    0.35,
	}
}

// Gate decides whether an answer should be attempted at all.
type Gate struct {
	config Config
}

func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Evaluate reports whether retrieval is too weak to answer from, and
// whether the turn may proceed anyway.
//
// The override is deliberately narrow: only a transform of the previous
// answer may proceed on low retrieval, because that answer is built from
// the prior turn rather than fresh retrieval. It is not a general fallback.
func (g *Gate) Evaluate(in Input) Verdict {
	isLow := in.ContextSize < g.config.MinContextSize &&
		in.Confidence < g.config.MinConfidence &&
		in.TopScore < g.config.MinTopScore

	allowOverride := in.Intent == intent.IntentTransformPriorArtifact && in.HasPriorArtifact

	return Verdict{
		IsLow:         isLow,
		AllowOverride: allowOverride,
	}
}
