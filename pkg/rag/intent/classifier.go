package intent

import (
	"strings"
)

// Intent constants
const (
	IntentRetrieveFromDocs       = "retrieve_from_docs"
	IntentBasicFactual           = "basic_factual"
	IntentSynthesizeFromDocs     = "synthesize_from_docs"
	IntentTransformPriorArtifact = "transform_prior_artifact"
	IntentGenerateDocument       = "generate_document"
)

// Document format constants
const (
	FormatPDF  = "pdf"
	FormatPPTX = "pptx"
	FormatXLSX = "xlsx"
)

// Classification is the classifier output
type Classification struct {
	Intent         string
	DocumentFormat string // set only for generate_document
}

// Classifier categorizes a question into an intent from lexical cues plus
// two booleans describing conversational context. Pure function: no I/O,
// same inputs always produce the same output.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// formatCues maps phrasing to an export format. Checked in declaration
// order; the first match wins.
var formatCues = []struct {
	format string
	cues   []string
}{
	{FormatPPTX, []string{"pptx", "powerpoint", "power point", "presentation", "slide deck", "slides"}},
	{FormatXLSX, []string{"xlsx", "excel", "spreadsheet", "workbook"}},
	{FormatPDF, []string{"pdf"}},
}

var exportVerbs = []string{
	"generate", "create", "export", "make", "produce", "download", "turn this into", "give me",
}

var transformCues = []string{
	"make it", "make that", "rewrite", "rephrase", "shorten", "expand on that",
	"translate it", "translate that", "simplify it", "simplify that",
	"the previous answer", "your last answer", "your answer", "that response",
	"change the tone", "more formal", "less formal", "in bullet points",
}

var synthesizeCues = []string{
	"summarize", "summarise", "summary of", "compare", "comparison",
	"across all", "across my", "all my documents", "all documents",
	"key themes", "main themes", "overview of", "common threads", "synthesize",
}

var factualPrefixes = []string{
	"what is ", "what are ", "what was ", "who is ", "who was ",
	"when is ", "when was ", "when did ", "where is ", "where was ",
	"how many ", "how much ", "define ", "what does ", "which year ",
}

// Classify resolves the intent for a question.
// hasHistory reports whether the conversation has prior turns;
// lastAnswerLength is the rune length of the most recent answer (0 if none).
func (c *Classifier) Classify(question string, hasHistory bool, lastAnswerLength int) Classification {
	q := strings.ToLower(strings.TrimSpace(question))

	// Export requests first: they may also contain transform/synthesize wording
	if format, ok := detectDocumentRequest(q); ok {
		return Classification{Intent: IntentGenerateDocument, DocumentFormat: format}
	}

	// A transform needs something to transform
	if hasHistory && lastAnswerLength > 0 && containsAny(q, transformCues) {
		return Classification{Intent: IntentTransformPriorArtifact}
	}

	if containsAny(q, synthesizeCues) {
		return Classification{Intent: IntentSynthesizeFromDocs}
	}

	if isFactualLookup(q) {
		return Classification{Intent: IntentBasicFactual}
	}

	return Classification{Intent: IntentRetrieveFromDocs}
}

func detectDocumentRequest(q string) (string, bool) {
	for _, fc := range formatCues {
		if !containsAny(q, fc.cues) {
			continue
		}
		// "the pdf says..." is a question about a document, not an export.
		// Require an export verb or an "as a/into a" construction.
		if containsAny(q, exportVerbs) || strings.Contains(q, "as a ") || strings.Contains(q, "as an ") || strings.Contains(q, "into a ") {
			return fc.format, true
		}
	}
	return "", false
}

func isFactualLookup(q string) bool {
	for _, prefix := range factualPrefixes {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func containsAny(q string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}
