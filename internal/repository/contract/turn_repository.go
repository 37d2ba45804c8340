package contract

import (
	"context"

	"github.com/google/uuid"

	"docchat-be/internal/entity"
)

type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error
	FindBySession(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ConversationTurn, error)
	CountBySession(ctx context.Context, sessionId uuid.UUID) (int64, error)
}
