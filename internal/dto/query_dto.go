package dto

import (
	"time"

	"github.com/google/uuid"
)

type QueryRequest struct {
	Question  string    `json:"question" validate:"required,min=1,max=4000"`
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

// SourceDTO is the ranked source metadata sent ahead of the answer
type SourceDTO struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Author        string    `json:"author,omitempty"`
	Score         float64   `json:"score"`
}

// QueryAnswerResponse is the pre-stream JSON body for clarification and
// refusal turns, and the cached-answer short path
type QueryAnswerResponse struct {
	SessionId uuid.UUID   `json:"session_id"`
	Answer    string      `json:"answer"`
	Sources   []SourceDTO `json:"sources,omitempty"`
	Cached    bool        `json:"cached"`
	Kind      string      `json:"kind"` // "answer" | "clarification" | "refusal"
	CreatedAt time.Time   `json:"created_at"`
}

type InvalidateCacheResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	Cleared   bool      `json:"cleared"`
}
