package mapper

import (
	"docchat-be/internal/entity"
	"docchat-be/internal/model"
)

type ConversationTurnMapper struct{}

func NewConversationTurnMapper() *ConversationTurnMapper {
	return &ConversationTurnMapper{}
}

func (m *ConversationTurnMapper) ToEntity(t *model.ConversationTurn) *entity.ConversationTurn {
	if t == nil {
		return nil
	}
	return &entity.ConversationTurn{
		Id:         t.Id,
		SessionId:  t.SessionId,
		UserId:     t.UserId,
		Question:   t.Question,
		Answer:     t.Answer,
		Intent:     t.Intent,
		Strategy:   t.Strategy,
		Confidence: t.Confidence,
		Incomplete: t.Incomplete,
		CreatedAt:  t.CreatedAt,
	}
}

func (m *ConversationTurnMapper) ToModel(t *entity.ConversationTurn) *model.ConversationTurn {
	if t == nil {
		return nil
	}
	return &model.ConversationTurn{
		Id:         t.Id,
		SessionId:  t.SessionId,
		UserId:     t.UserId,
		Question:   t.Question,
		Answer:     t.Answer,
		Intent:     t.Intent,
		Strategy:   t.Strategy,
		Confidence: t.Confidence,
		Incomplete: t.Incomplete,
		CreatedAt:  t.CreatedAt,
	}
}

func (m *ConversationTurnMapper) ToEntities(turns []*model.ConversationTurn) []*entity.ConversationTurn {
	entities := make([]*entity.ConversationTurn, len(turns))
	for i, t := range turns {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
