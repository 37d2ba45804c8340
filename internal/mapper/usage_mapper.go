package mapper

import (
	"docchat-be/internal/entity"
	"docchat-be/internal/model"
)

type UsageRecordMapper struct{}

func NewUsageRecordMapper() *UsageRecordMapper {
	return &UsageRecordMapper{}
}

func (m *UsageRecordMapper) ToEntity(u *model.UsageRecord) *entity.UsageRecord {
	if u == nil {
		return nil
	}
	return &entity.UsageRecord{
		Id:          u.Id,
		UserId:      u.UserId,
		SessionId:   u.SessionId,
		Kind:        u.Kind,
		Reason:      u.Reason,
		AnswerChars: u.AnswerChars,
		CreatedAt:   u.CreatedAt,
	}
}

func (m *UsageRecordMapper) ToModel(u *entity.UsageRecord) *model.UsageRecord {
	if u == nil {
		return nil
	}
	return &model.UsageRecord{
		Id:          u.Id,
		UserId:      u.UserId,
		SessionId:   u.SessionId,
		Kind:        u.Kind,
		Reason:      u.Reason,
		AnswerChars: u.AnswerChars,
		CreatedAt:   u.CreatedAt,
	}
}
