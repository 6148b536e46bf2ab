package repository

import (
	"context"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnRepository 退货仓库
type ReturnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// FindAll 查询退货单列表
func (r *ReturnRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ReturnRequest, int64, error) {
	var items []entity.ReturnRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ReturnRequest{})
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("reference_no ILIKE ?", "%"+search+"%")
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

// FindByID 根据ID查找退货单（含行项和到货关联）
func (r *ReturnRepository) FindByID(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	var ret entity.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Item").
		Preload("Deliveries").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

// Create 创建退货单表头
func (r *ReturnRepository) Create(ctx context.Context, ret *entity.ReturnRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(ret).Error
}

// CreateItem 写入退货物料行
func (r *ReturnRepository) CreateItem(ctx context.Context, item *entity.ReturnItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// CreateDeliveryLink 写入退货 ↔ 原到货
func (r *ReturnRepository) CreateDeliveryLink(ctx context.Context, link *entity.ReturnDelivery) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// MarkDelivered 退货单置为已到货并回填补货到货ID
func (r *ReturnRepository) MarkDelivered(ctx context.Context, returnID, newDeliveryID string) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&entity.ReturnRequest{}).
		Where("id = ?", returnID).
		Update("status", entity.ReturnStatusDelivered)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return db.Model(&entity.ReturnDelivery{}).
		Where("return_id = ?", returnID).
		Update("new_delivery_id", newDeliveryID).Error
}

// ReferenceExists 编号是否已被占用
func (r *ReturnRepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ReturnRequest{}).Where("reference_no = ?", ref).Count(&count).Error
	return count > 0, err
}
