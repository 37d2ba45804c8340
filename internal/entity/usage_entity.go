package entity

import (
	"time"

	"github.com/google/uuid"
)

type UsageRecord struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	SessionId   uuid.UUID
	Kind        string // "answered", "rejected"
	Reason      string
	AnswerChars int
	CreatedAt   time.Time
}
