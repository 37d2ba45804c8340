package clarify

import (
	"strings"

	"docchat-be/internal/pkg/logger"
	"docchat-be/pkg/rag/retrieval"
)

// Decision types
const (
	TypeAmbiguous     = "ambiguous"
	TypeNonsensical   = "nonsensical"
	TypeLowConfidence = "low_confidence"
	TypeNone          = "none"
)

// Decision is the analyzer output. Idempotent given identical inputs.
type Decision struct {
	NeedsClarification bool
	Type               string
	Message            string
	Confidence         float64
}

// Input carries everything the analyzer looks at for one question
type Input struct {
	Question   string
	Results    []retrieval.Candidate
	Confidence float64
	Strategy   retrieval.Strategy
	HasHistory bool

	// Rewrite comparison: when the question was contextually rewritten
	// (pronoun resolution against history), LiteralResults holds what the
	// un-rewritten question retrieved so divergence can be measured.
	WasRewritten   bool
	LiteralResults []retrieval.Candidate
}

// Config encapsulates clarification thresholds
type Config struct {
	LowConfidence  float64 // below this, a short question reads as ambiguous
	ZeroConfidence float64 // at or below this with no history, nonsensical
	ShortQueryLen  int     // word count at or below which a question is "short"
}

func DefaultConfig() Config {
	return Config{
		LowConfidence:  0.35,
		ZeroConfidence: 0.1,
		ShortQueryLen:  4,
	}
}

// divergenceFloor is the minimum top-results overlap between rewritten and
// literal retrieval before the rewrite is trusted
const divergenceFloor = 0.3

// Analyzer decides whether a question is too ambiguous or low-signal to
// answer, and composes the conversational clarification turn when it is.
type Analyzer struct {
	config Config
	logger logger.ILogger
}

func NewAnalyzer(config Config, log logger.ILogger) *Analyzer {
	return &Analyzer{
		config: config,
		logger: log,
	}
}

// Analyze runs the clarification checks in priority order
func (a *Analyzer) Analyze(in Input) Decision {
	// Off-topic or gibberish: nothing found and no conversation to lean on
	if in.Confidence <= a.config.ZeroConfidence && !in.HasHistory {
		return a.decide(TypeNonsensical, nonsensicalMessage(in.Question), in.Confidence)
	}

	// Rewrite doubt: the pronoun-resolved question found materially
	// different chunks than the literal one, so the resolution may have
	// guessed wrong
	if in.WasRewritten && resultOverlap(in.Results, in.LiteralResults) < divergenceFloor {
		return a.decide(TypeLowConfidence, rewriteDoubtMessage(in.Question), in.Confidence)
	}

	// Ambiguity: weak retrieval plus a short or generic question in an
	// ongoing conversation
	if in.Confidence < a.config.LowConfidence && in.HasHistory && a.isShortOrGeneric(in.Question) {
		return a.decide(TypeAmbiguous, ambiguousMessage(in.Question, in.Results), in.Confidence)
	}

	return Decision{NeedsClarification: false, Type: TypeNone, Confidence: in.Confidence}
}

func (a *Analyzer) decide(decisionType, message string, confidence float64) Decision {
	a.logger.Info("Clarify", "Clarification triggered", map[string]interface{}{
		"type":       decisionType,
		"confidence": confidence,
	})
	return Decision{
		NeedsClarification: true,
		Type:               decisionType,
		Message:            message,
		Confidence:         confidence,
	}
}

func (a *Analyzer) isShortOrGeneric(question string) bool {
	words := strings.Fields(question)
	if len(words) <= a.config.ShortQueryLen {
		return true
	}
	return isGenericPhrase(strings.ToLower(strings.TrimSpace(question)))
}

var genericPhrases = []string{
	"tell me more", "what about it", "and then", "go on", "what else",
	"more details", "explain", "why", "how so", "anything else",
}

func isGenericPhrase(q string) bool {
	for _, phrase := range genericPhrases {
		if strings.HasPrefix(q, phrase) {
			return true
		}
	}
	return false
}

// resultOverlap measures Jaccard overlap of the two result sets' chunk IDs.
// Empty-vs-empty counts as full agreement.
func resultOverlap(a, b []retrieval.Candidate) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(a))
	for _, c := range a {
		seen[c.ID] = struct{}{}
	}

	shared := 0
	for _, c := range b {
		if _, ok := seen[c.ID]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
