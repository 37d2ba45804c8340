package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationTurn struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	UserId     uuid.UUID
	Question   string
	Answer     string
	Intent     string
	Strategy   string
	Confidence float64
	Incomplete bool
	CreatedAt  time.Time
}
