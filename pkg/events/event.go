package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "QUERY_ANSWERED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewQueryAnswered records that a user query completed the full pipeline.
func NewQueryAnswered(userID, sessionID, intent, strategy string, cached bool, answerChars int) Event {
	return BaseEvent{
		Type: "QUERY_ANSWERED",
		Data: map[string]interface{}{
			"user_id":      userID,
			"session_id":   sessionID,
			"intent":       intent,
			"strategy":     strategy,
			"cached":       cached,
			"answer_chars": answerChars,
		},
		OccurredAt: time.Now(),
	}
}

// NewQueryRejected records a pre-generation refusal (rate limit, quality gate,
// clarification) so usage accounting can distinguish it from answered queries.
func NewQueryRejected(userID, sessionID, reason string) Event {
	return BaseEvent{
		Type: "QUERY_REJECTED",
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}
