package service

import (
	"strings"
)

// Contextual rewrite resolves pronouns and deictic references against the
// previous question, purely lexically. "What does it say about costs?" after
// "Summarize the Q3 report" becomes a query that carries the report terms.

var deicticTokens = map[string]bool{
	"it": true, "its": true, "that": true, "this": true, "those": true,
	"these": true, "they": true, "them": true, "there": true, "one": true,
}

// rewriteQuestion returns the search query to use and whether a rewrite
// happened. The rewrite appends the previous question's content words so
// retrieval sees the implied topic; the original wording is untouched.
func rewriteQuestion(question, lastQuestion string) (string, bool) {
	if lastQuestion == "" || !hasDeixis(question) {
		return question, false
	}

	carried := contentWords(lastQuestion, 6)
	if len(carried) == 0 {
		return question, false
	}

	return question + " " + strings.Join(carried, " "), true
}

func hasDeixis(question string) bool {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,?!\"'()")
		if deicticTokens[word] {
			return true
		}
	}
	return false
}

// contentWords extracts up to max topic-bearing words from a question
func contentWords(question string, max int) []string {
	var words []string
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,?!\"'()")
		if len(word) < 4 || deicticTokens[word] || rewriteStopwords[word] {
			continue
		}
		words = append(words, word)
		if len(words) == max {
			break
		}
	}
	return words
}

var rewriteStopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "about": true,
	"does": true, "have": true, "with": true, "from": true, "please": true,
	"could": true, "would": true, "tell": true, "show": true, "give": true,
	"summarize": true, "summarise": true, "explain": true,
}
