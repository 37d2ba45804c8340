package model

import (
	"time"

	"github.com/google/uuid"
)

type UsageRecord struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;index"`
	SessionId   uuid.UUID `gorm:"type:uuid;index"`
	Kind        string    `gorm:"type:varchar(32);not null"`
	Reason      string    `gorm:"type:varchar(64)"`
	AnswerChars int       `gorm:"default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}
