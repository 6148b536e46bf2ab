package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"gorm.io/gorm"
)

// ErrInsufficientStock 库存不足
var ErrInsufficientStock = errors.New("insufficient stock")

// CatalogRepository 物料/服务目录仓库
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// === 物料 ===

// FindItems 查询物料列表
func (r *CatalogRepository) FindItems(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Item, int64, error) {
	var items []entity.Item
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Item{})
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if filters["active"] == "true" {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("code ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindItemByID 根据ID查找物料
func (r *CatalogRepository) FindItemByID(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindActiveItem 查找启用中的物料
func (r *CatalogRepository) FindActiveItem(ctx context.Context, id string) (*entity.Item, error) {
	var item entity.Item
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// CreateItem 创建物料
func (r *CatalogRepository) CreateItem(ctx context.Context, item *entity.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// AdjustStock 调整库存，出库时不允许扣成负数
func (r *CatalogRepository) AdjustStock(ctx context.Context, itemID string, delta int) error {
	query := r.db.WithContext(ctx).Model(&entity.Item{}).Where("id = ?", itemID)
	if delta < 0 {
		query = query.Where("stock_quantity >= ?", -delta)
	}
	result := query.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if delta < 0 {
			return ErrInsufficientStock
		}
		return ErrNotFound
	}
	return nil
}

// CreateStockMovement 记录库存流水
func (r *CatalogRepository) CreateStockMovement(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindStockMovements 查询物料库存流水
func (r *CatalogRepository) FindStockMovements(ctx context.Context, itemID string) ([]entity.StockMovement, error) {
	var items []entity.StockMovement
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// === 服务 ===

// FindServices 查询服务列表
func (r *CatalogRepository) FindServices(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Service, int64, error) {
	var items []entity.Service
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Service{})
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if filters["include_inactive"] != "true" {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindServiceByID 根据ID查找服务（含已停用）
func (r *CatalogRepository) FindServiceByID(ctx context.Context, id string) (*entity.Service, error) {
	var svc entity.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, notFound(err)
	}
	return &svc, nil
}

// FindActiveService 查找启用中的服务
func (r *CatalogRepository) FindActiveService(ctx context.Context, id string) (*entity.Service, error) {
	var svc entity.Service
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&svc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &svc, nil
}

// CreateService 创建服务
func (r *CatalogRepository) CreateService(ctx context.Context, svc *entity.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

// UpdateService 更新服务
func (r *CatalogRepository) UpdateService(ctx context.Context, svc *entity.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}

// DeactivateService 停用服务（软删除，历史订单/到货行仍可引用）
func (r *CatalogRepository) DeactivateService(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Service{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
