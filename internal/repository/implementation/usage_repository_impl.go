package implementation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docchat-be/internal/entity"
	"docchat-be/internal/mapper"
	"docchat-be/internal/model"
	"docchat-be/internal/repository/contract"
)

type UsageRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageRecordMapper
}

func NewUsageRecordRepository(db *gorm.DB) contract.UsageRecordRepository {
	return &UsageRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageRecordMapper(),
	}
}

func (r *UsageRecordRepositoryImpl) Create(ctx context.Context, record *entity.UsageRecord) error {
	m := r.mapper.ToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = *r.mapper.ToEntity(m)
	return nil
}

func (r *UsageRecordRepositoryImpl) CountByUserSince(ctx context.Context, userId uuid.UUID, kind string, sinceDays int) (int64, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UsageRecord{}).
		Where("user_id = ?", userId).
		Where("kind = ?", kind).
		Where(fmt.Sprintf("created_at >= NOW() - INTERVAL '%d days'", sinceDays)).
		Count(&count).Error
	return count, err
}
