package repository

import (
	"context"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository 到货仓库
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// FindAll 查询到货列表
func (r *DeliveryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	var items []entity.Delivery
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Delivery{})

	if deliveryType := filters["delivery_type"]; deliveryType != "" {
		query = query.Where("delivery_type = ?", deliveryType)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("reference_no ILIKE ? OR receipt_no ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Order("delivery_date DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找到货（含行项）
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var d entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Item").
		Preload("Services").
		Preload("Services.Service").
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// Create 创建到货表头
func (r *DeliveryRepository) Create(ctx context.Context, d *entity.Delivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error
}

// ReferenceExists 编号是否已被占用
func (r *DeliveryRepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Delivery{}).Where("reference_no = ?", ref).Count(&count).Error
	return count > 0, err
}

// UpdateStatus 更新状态
func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Delivery{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateReceiptPhoto 回填回执照片路径
func (r *DeliveryRepository) UpdateReceiptPhoto(ctx context.Context, id, path string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Delivery{}).
		Where("id = ?", id).
		Update("receipt_photo", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateItem 写入到货物料行
func (r *DeliveryRepository) CreateItem(ctx context.Context, item *entity.DeliveryItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// CreateService 写入到货服务行
func (r *DeliveryRepository) CreateService(ctx context.Context, svc *entity.DeliveryService) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(svc).Error
}

// FindItems 查询到货物料行
func (r *DeliveryRepository) FindItems(ctx context.Context, deliveryID string) ([]entity.DeliveryItem, error) {
	var items []entity.DeliveryItem
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("delivery_id = ?", deliveryID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindServices 查询到货服务行
func (r *DeliveryRepository) FindServices(ctx context.Context, deliveryID string) ([]entity.DeliveryService, error) {
	var items []entity.DeliveryService
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("delivery_id = ?", deliveryID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ReturnedQuantity 某到货某物料已退数量（不含已取消/驳回的退货单）
func (r *DeliveryRepository) ReturnedQuantity(ctx context.Context, deliveryID, itemID string) (int, error) {
	var qty int
	err := r.db.WithContext(ctx).
		Table("srm_return_items ri").
		Select("COALESCE(SUM(ri.quantity), 0)").
		Joins("JOIN srm_return_deliveries rd ON rd.return_id = ri.return_id").
		Joins("JOIN srm_returns r ON r.id = ri.return_id").
		Where("rd.old_delivery_id = ? AND ri.item_id = ?", deliveryID, itemID).
		Where("r.status NOT IN ?", []string{entity.ReturnStatusRejected, entity.ReturnStatusCancelled}).
		Scan(&qty).Error
	return qty, err
}

// GenerateCode 生成到货编码 DEL-{year}-{4位}
func (r *DeliveryRepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(r.db.WithContext(ctx).Model(&entity.Delivery{}), "DEL")
}
