package repository

import (
	"context"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓库（只追加）
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// Record 按动作记录一条审计日志，description为空时取动作默认描述
func (r *AuditLogRepository) Record(ctx context.Context, action entity.AuditAction, userID, entityID, description string) error {
	if description == "" {
		description = action.Description()
	}
	return r.Create(ctx, &entity.AuditLog{
		Description: description,
		UserID:      userID,
		TypeCode:    action,
		EntityType:  action.EntityType(),
		EntityID:    entityID,
	})
}

// FindAll 查询审计日志
func (r *AuditLogRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AuditLog, int64, error) {
	var items []entity.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AuditLog{})
	if entityType := filters["entity_type"]; entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID := filters["entity_id"]; entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if userID := filters["user_id"]; userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if typeCode := filters["type_code"]; typeCode != "" {
		query = query.Where("type_code = ?", typeCode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// CountByAction 按动作统计某实体的日志条数
func (r *AuditLogRepository) CountByAction(ctx context.Context, action entity.AuditAction, entityID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.AuditLog{}).
		Where("type_code = ? AND entity_id = ?", action.Code(), entityID).
		Count(&count).Error
	return count, err
}
