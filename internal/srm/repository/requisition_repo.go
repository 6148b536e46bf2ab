package repository

import (
	"context"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequisitionRepository 请购单仓库
type RequisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// FindAll 查询请购单列表
func (r *RequisitionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	var items []entity.Requisition
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Requisition{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if reqType := filters["type"]; reqType != "" {
		query = query.Where("type = ?", reqType)
	}
	if userID := filters["user_id"]; userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("requestor ILIKE ? OR notes ILIKE ?", "%"+search+"%", "%"+search+"%")
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

// FindByID 根据ID查找请购单（含行项）
func (r *RequisitionRepository) FindByID(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.Item").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Services.Service").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// FindByIDs 批量查找请购单表头
func (r *RequisitionRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Requisition, error) {
	var items []entity.Requisition
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// Create 创建请购单表头（行项单独写入）
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

// UpdateHeader 只更新表头字段
func (r *RequisitionRepository) UpdateHeader(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error
}

// UpdateStatus 更新状态
func (r *RequisitionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Requisition{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UnorderedLineCount 尚未下单的请购行数（物料行只计批准数量大于0的行）
func (r *RequisitionRepository) UnorderedLineCount(ctx context.Context, requisitionID string) (int64, error) {
	db := r.db.WithContext(ctx)

	var items int64
	err := db.Table("srm_requisition_items ri").
		Joins("LEFT JOIN srm_requisition_order_items roi ON roi.requisition_item_id = ri.id").
		Where("ri.requisition_id = ? AND ri.approved_quantity > 0 AND roi.id IS NULL", requisitionID).
		Count(&items).Error
	if err != nil {
		return 0, err
	}

	var services int64
	err = db.Table("srm_requisition_services rs").
		Joins("LEFT JOIN srm_requisition_order_services ros ON ros.requisition_service_id = rs.id").
		Where("rs.requisition_id = ? AND ros.id IS NULL", requisitionID).
		Count(&services).Error
	if err != nil {
		return 0, err
	}
	return items + services, nil
}

// OpenOrderLineCount 请购单已下单、但所在PO仍未到货的行数（已驳回/取消的PO不计）
func (r *RequisitionRepository) OpenOrderLineCount(ctx context.Context, requisitionID string) (int64, error) {
	db := r.db.WithContext(ctx)
	closed := []string{entity.POStatusDelivered, entity.POStatusRejected, entity.POStatusCancelled}

	var items int64
	err := db.Table("srm_requisition_items ri").
		Joins("JOIN srm_requisition_order_items roi ON roi.requisition_item_id = ri.id").
		Joins("JOIN srm_order_items oi ON oi.id = roi.order_item_id").
		Joins("JOIN srm_purchase_orders po ON po.id = oi.po_id").
		Where("ri.requisition_id = ? AND po.status NOT IN ?", requisitionID, closed).
		Count(&items).Error
	if err != nil {
		return 0, err
	}

	var services int64
	err = db.Table("srm_requisition_services rs").
		Joins("JOIN srm_requisition_order_services ros ON ros.requisition_service_id = rs.id").
		Joins("JOIN srm_order_services os ON os.id = ros.order_service_id").
		Joins("JOIN srm_purchase_orders po ON po.id = os.po_id").
		Where("rs.requisition_id = ? AND po.status NOT IN ?", requisitionID, closed).
		Count(&services).Error
	if err != nil {
		return 0, err
	}
	return items + services, nil
}

// CreateItem 写入物料行
func (r *RequisitionRepository) CreateItem(ctx context.Context, item *entity.RequisitionItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// CreateService 写入服务行
func (r *RequisitionRepository) CreateService(ctx context.Context, svc *entity.RequisitionService) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(svc).Error
}

// DeleteLines 删除请购单全部物料行和服务行
func (r *RequisitionRepository) DeleteLines(ctx context.Context, requisitionID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", requisitionID).Delete(&entity.RequisitionItem{}).Error; err != nil {
		return err
	}
	return db.Where("requisition_id = ?", requisitionID).Delete(&entity.RequisitionService{}).Error
}

// FindItemByID 查找请购物料行
func (r *RequisitionRepository) FindItemByID(ctx context.Context, id string) (*entity.RequisitionItem, error) {
	var item entity.RequisitionItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindServiceByID 查找请购服务行
func (r *RequisitionRepository) FindServiceByID(ctx context.Context, id string) (*entity.RequisitionService, error) {
	var svc entity.RequisitionService
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, notFound(err)
	}
	return &svc, nil
}

// FindItems 查询请购单全部物料行
func (r *RequisitionRepository) FindItems(ctx context.Context, requisitionID string) ([]entity.RequisitionItem, error) {
	var items []entity.RequisitionItem
	err := r.db.WithContext(ctx).
		Where("requisition_id = ?", requisitionID).
		Order("sort_order ASC").
		Find(&items).Error
	return items, err
}

// SetApprovedQuantity 更新批准数量（乐观锁，version不匹配返回false）
func (r *RequisitionRepository) SetApprovedQuantity(ctx context.Context, lineID string, version, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.RequisitionItem{}).
		Where("id = ? AND version = ?", lineID, version).
		Updates(map[string]interface{}{
			"approved_quantity": qty,
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IDsByOrder 查询PO关联的请购单ID
func (r *RequisitionRepository) IDsByOrder(ctx context.Context, poID string) ([]string, error) {
	var ids []string
	db := r.db.WithContext(ctx)

	itemQuery := db.Table("srm_requisition_items ri").
		Distinct("ri.requisition_id").
		Joins("JOIN srm_requisition_order_items roi ON roi.requisition_item_id = ri.id").
		Joins("JOIN srm_order_items oi ON oi.id = roi.order_item_id").
		Where("oi.po_id = ?", poID)
	if err := itemQuery.Pluck("ri.requisition_id", &ids).Error; err != nil {
		return nil, err
	}

	var svcIDs []string
	svcQuery := db.Table("srm_requisition_services rs").
		Distinct("rs.requisition_id").
		Joins("JOIN srm_requisition_order_services ros ON ros.requisition_service_id = rs.id").
		Joins("JOIN srm_order_services os ON os.id = ros.order_service_id").
		Where("os.po_id = ?", poID)
	if err := svcQuery.Pluck("rs.requisition_id", &svcIDs).Error; err != nil {
		return nil, err
	}
	return append(ids, svcIDs...), nil
}
