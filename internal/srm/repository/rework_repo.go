package repository

import (
	"context"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReworkRepository 返工仓库
type ReworkRepository struct {
	db *gorm.DB
}

func NewReworkRepository(db *gorm.DB) *ReworkRepository {
	return &ReworkRepository{db: db}
}

// ServiceReworkStatus 服务行的返工状态
type ServiceReworkStatus struct {
	ServiceID string
	Status    string
}

// FindAll 查询返工单列表（不含已软删除）
func (r *ReworkRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Rework, int64, error) {
	var items []entity.Rework
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Rework{})
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("reference_no ILIKE ? OR remarks ILIKE ?", "%"+search+"%", "%"+search+"%")
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

// FindByID 根据ID查找返工单
func (r *ReworkRepository) FindByID(ctx context.Context, id string) (*entity.Rework, error) {
	var rw entity.Rework
	err := r.db.WithContext(ctx).
		Preload("Services").
		Preload("Services.Service").
		Preload("Deliveries").
		Where("id = ?", id).
		First(&rw).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rw, nil
}

// FindByIDUnscoped 按ID查询返工单，包含已取消（软删除）的记录
func (r *ReworkRepository) FindByIDUnscoped(ctx context.Context, id string) (*entity.Rework, error) {
	var rw entity.Rework
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		First(&rw).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rw, nil
}

// Create 创建返工单表头
func (r *ReworkRepository) Create(ctx context.Context, rw *entity.Rework) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rw).Error
}

// CreateService 写入返工服务行
func (r *ReworkRepository) CreateService(ctx context.Context, svc *entity.ReworkService) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(svc).Error
}

// CreateDeliveryLink 写入返工 ↔ 原到货
func (r *ReworkRepository) CreateDeliveryLink(ctx context.Context, link *entity.ReworkDelivery) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// MarkDelivered 返工单置为已到货并回填返工到货ID
func (r *ReworkRepository) MarkDelivered(ctx context.Context, reworkID, newDeliveryID string) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&entity.Rework{}).
		Where("id = ?", reworkID).
		Update("status", entity.ReworkStatusDelivered)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return db.Model(&entity.ReworkDelivery{}).
		Where("rework_id = ?", reworkID).
		Update("new_delivery_id", newDeliveryID).Error
}

// Cancel 取消返工单（状态置为Cancelled后软删除）
func (r *ReworkRepository) Cancel(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&entity.Rework{}).
		Where("id = ?", id).
		Update("status", entity.ReworkStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return db.Where("id = ?", id).Delete(&entity.Rework{}).Error
}

// HardDelete 物理删除返工单：先删服务行，再删到货关联，最后删表头
func (r *ReworkRepository) HardDelete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("rework_id = ?", id).Delete(&entity.ReworkService{}).Error; err != nil {
		return err
	}
	if err := db.Where("rework_id = ?", id).Delete(&entity.ReworkDelivery{}).Error; err != nil {
		return err
	}
	result := db.Unscoped().Where("id = ?", id).Delete(&entity.Rework{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveServiceStatuses 某到货上仍在进行中的返工服务状态
// （排除已驳回/已取消/已软删除的返工单）
func (r *ReworkRepository) ActiveServiceStatuses(ctx context.Context, deliveryID string) ([]ServiceReworkStatus, error) {
	var rows []ServiceReworkStatus
	err := r.db.WithContext(ctx).
		Table("srm_rework_services rs").
		Select("rs.service_id AS service_id, rw.status AS status").
		Joins("JOIN srm_rework_deliveries rd ON rd.rework_id = rs.rework_id").
		Joins("JOIN srm_reworks rw ON rw.id = rs.rework_id").
		Where("rd.old_delivery_id = ?", deliveryID).
		Where("rw.deleted_at IS NULL").
		Where("rw.status NOT IN ?", []string{entity.ReworkStatusRejected, entity.ReworkStatusCancelled}).
		Order("rw.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// ReferenceExists 编号是否已被占用（含已软删除）
func (r *ReworkRepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Rework{}).Where("reference_no = ?", ref).Count(&count).Error
	return count > 0, err
}
