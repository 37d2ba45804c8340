package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationTurn struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Question   string    `gorm:"type:text;not null"`
	Answer     string    `gorm:"type:text"`
	Intent     string    `gorm:"type:varchar(64)"`
	Strategy   string    `gorm:"type:varchar(32)"`
	Confidence float64
	Incomplete bool      `gorm:"default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
