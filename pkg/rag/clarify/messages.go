package clarify

import (
	"fmt"
	"strings"

	"docchat-be/pkg/rag/retrieval"
)

// Clarification turns are composed from fixed templates over the question
// and retrieved titles. Retrieved content itself is never rewritten into
// the message.

func nonsensicalMessage(question string) string {
	return fmt.Sprintf(
		"I couldn't find anything in your documents related to %q. "+
			"Could you rephrase the question, or check that the relevant document has been uploaded?",
		truncateQuestion(question),
	)
}

func rewriteDoubtMessage(question string) string {
	return fmt.Sprintf(
		"I want to make sure I understood. When you asked %q, which earlier topic were you referring to? "+
			"A little more detail will help me find the right passage.",
		truncateQuestion(question),
	)
}

func ambiguousMessage(question string, results []retrieval.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your question %q could point at a few different things.", truncateQuestion(question))

	titles := uniqueTitles(results, 3)
	if len(titles) > 0 {
		b.WriteString(" It might relate to:\n")
		for i, title := range titles {
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
		b.WriteString("Which of these did you mean, or is it something else?")
	} else {
		b.WriteString(" Could you add a bit more detail about what you're looking for?")
	}

	return b.String()
}

func uniqueTitles(results []retrieval.Candidate, max int) []string {
	var titles []string
	seen := make(map[string]struct{})
	for _, c := range results {
		if c.DocumentTitle == "" {
			continue
		}
		if _, ok := seen[c.DocumentTitle]; ok {
			continue
		}
		seen[c.DocumentTitle] = struct{}{}
		titles = append(titles, c.DocumentTitle)
		if len(titles) == max {
			break
		}
	}
	return titles
}

func truncateQuestion(q string) string {
	const limit = 80
	q = strings.TrimSpace(q)
	if len(q) <= limit {
		return q
	}
	return q[:limit] + "..."
}
