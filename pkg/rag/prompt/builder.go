package prompt

import (
	"fmt"
	"strings"

	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/intent"
	"docchat-be/pkg/rag/retrieval"
)

// ContextualBuilder assembles the generation prompt from retrieved chunks,
// conversation history and the classified intent.
type ContextualBuilder struct {
	question string
	intent   string
	chunks   []retrieval.Candidate
	history  []llm.Message
	prior    string
}

// NewContextualBuilder creates a new contextual prompt builder
func NewContextualBuilder(question, classifiedIntent string, chunks []retrieval.Candidate, history []llm.Message, priorArtifact string) *ContextualBuilder {
	return &ContextualBuilder{
		question: question,
		intent:   classifiedIntent,
		chunks:   chunks,
		history:  history,
		prior:    priorArtifact,
	}
}

// Build creates a semantic prompt that trusts LLM intelligence
func (b *ContextualBuilder) Build() string {
	var prompt strings.Builder

	b.writeSourceMaterial(&prompt)
	b.writePriorArtifact(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuestion(&prompt)

	return prompt.String()
}

func (b *ContextualBuilder) writeSourceMaterial(prompt *strings.Builder) {
	if len(b.chunks) == 0 {
		return
	}

	prompt.WriteString("<source_material>\n")
	for i, chunk := range b.chunks {
		prompt.WriteString(fmt.Sprintf("--- Source %d: %s ---\n", i+1, chunk.DocumentTitle))
		prompt.WriteString(chunk.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</source_material>\n\n")
}

func (b *ContextualBuilder) writePriorArtifact(prompt *strings.Builder) {
	if b.intent != intent.IntentTransformPriorArtifact || b.prior == "" {
		return
	}

	prompt.WriteString("<prior_answer>\n")
	prompt.WriteString(b.prior)
	prompt.WriteString("\n</prior_answer>\n\n")
}

func (b *ContextualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")

	switch b.intent {
	case intent.IntentBasicFactual:
		prompt.WriteString("You are a precise assistant answering a factual question about the user's documents.\n")
		prompt.WriteString("Answer directly and briefly, citing the source material where the fact appears.\n")
	case intent.IntentSynthesizeFromDocs:
		prompt.WriteString("You are a knowledgeable assistant synthesizing information across the user's documents.\n")
		prompt.WriteString("Combine the relevant passages into a coherent, well-organized response.\n")
	case intent.IntentTransformPriorArtifact:
		prompt.WriteString("You are reworking your previous answer according to the user's new instruction.\n")
		prompt.WriteString("Preserve the factual content of the prior answer unless the source material contradicts it.\n")
	case intent.IntentGenerateDocument:
		prompt.WriteString("You are drafting the content of a document the user asked to generate from their materials.\n")
		prompt.WriteString("Produce complete, export-ready content organized with clear headings.\n")
	default:
		prompt.WriteString("You are a knowledgeable assistant helping the user understand and extract information from their documents.\n")
		prompt.WriteString("Your goal is to provide exactly what the user needs based on their question and the source material.\n")
	}

	prompt.WriteString("</task>\n\n")
}

func (b *ContextualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("Response principles:\n")
	prompt.WriteString("1. Base your answer strictly on the source material provided\n")
	prompt.WriteString("2. Adapt your response style to match what the question requires\n")
	prompt.WriteString("3. Be complete - don't skip relevant information from the material\n")
	prompt.WriteString("4. Be clear and well-organized in your presentation\n")
	prompt.WriteString("5. If the material doesn't contain what's being asked, say so honestly\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *ContextualBuilder) writeUserQuestion(prompt *strings.Builder) {
	if len(b.history) > 0 {
		prompt.WriteString("<conversation>\n")
		for _, msg := range b.history {
			prompt.WriteString(msg.Role)
			prompt.WriteString(": ")
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		}
		prompt.WriteString("</conversation>\n\n")
	}

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your complete response based on the source material:")
}
