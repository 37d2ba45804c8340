package contract

import (
	"context"

	"github.com/google/uuid"

	"docchat-be/internal/entity"
)

type UsageRecordRepository interface {
	Create(ctx context.Context, record *entity.UsageRecord) error
	CountByUserSince(ctx context.Context, userId uuid.UUID, kind string, sinceDays int) (int64, error)
}
