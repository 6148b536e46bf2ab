package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// FindAll 查询采购订单列表
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if orderType := filters["order_type"]; orderType != "" {
		query = query.Where("order_type = ?", orderType)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("reference_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Supplier").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindForExport 导出用，不分页
func (r *PORepository) FindForExport(ctx context.Context, filters map[string]string) ([]entity.PurchaseOrder, error) {
	var items []entity.PurchaseOrder
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	err := query.
		Preload("Supplier").
		Preload("Items").
		Preload("Services").
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.Item").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Services.Service").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// Exists 判断采购订单是否存在
func (r *PORepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create 创建采购订单表头
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(po).Error
}

// Update 更新采购订单表头
func (r *PORepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(po).Error
}

// UpdateStatus 更新状态
func (r *PORepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
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

// CreateItem 写入PO物料行
func (r *PORepository) CreateItem(ctx context.Context, item *entity.OrderItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// CreateService 写入PO服务行
func (r *PORepository) CreateService(ctx context.Context, svc *entity.OrderService) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(svc).Error
}

// LinkItem 写入请购物料行 ↔ PO物料行
func (r *PORepository) LinkItem(ctx context.Context, link *entity.RequisitionOrderItem) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// LinkService 写入请购服务行 ↔ PO服务行
func (r *PORepository) LinkService(ctx context.Context, link *entity.RequisitionOrderService) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// ItemLinked 请购物料行是否已下单
func (r *PORepository) ItemLinked(ctx context.Context, requisitionItemID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RequisitionOrderItem{}).
		Where("requisition_item_id = ?", requisitionItemID).
		Count(&count).Error
	return count > 0, err
}

// ServiceLinked 请购服务行是否已下单
func (r *PORepository) ServiceLinked(ctx context.Context, requisitionServiceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RequisitionOrderService{}).
		Where("requisition_service_id = ?", requisitionServiceID).
		Count(&count).Error
	return count > 0, err
}

// CountLinks 统计PO的关联行数（测试和导出用）
func (r *PORepository) CountLinks(ctx context.Context, poID string) (int64, error) {
	var items, services int64
	db := r.db.WithContext(ctx)
	err := db.Model(&entity.RequisitionOrderItem{}).
		Joins("JOIN srm_order_items oi ON oi.id = srm_requisition_order_items.order_item_id").
		Where("oi.po_id = ?", poID).
		Count(&items).Error
	if err != nil {
		return 0, err
	}
	err = db.Model(&entity.RequisitionOrderService{}).
		Joins("JOIN srm_order_services os ON os.id = srm_requisition_order_services.order_service_id").
		Where("os.po_id = ?", poID).
		Count(&services).Error
	return items + services, err
}

// ReferenceExists 编号是否已被占用
func (r *PORepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("reference_no = ?", ref).Count(&count).Error
	return count > 0, err
}

// GenerateCode 生成PO编码 PO-{year}-{4位}
func (r *PORepository) GenerateCode(ctx context.Context) (string, error) {
	return generateYearCode(r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}), "PO")
}

// generateYearCode 按 {prefix}-{year}-{4位} 取当年最大编号+1
func generateYearCode(query *gorm.DB, prefix string) (string, error) {
	year := time.Now().Format("2006")
	head := fmt.Sprintf("%s-%s-", prefix, year)

	var maxCode string
	err := query.
		Select("COALESCE(MAX(reference_no), '')").
		Where("reference_no LIKE ?", head+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, head+"%04d", &seq)
	}
	seq++
	return fmt.Sprintf("%s%04d", head, seq), nil
}
