package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/shopspring/decimal"
)

// CatalogService 服务目录与物料主数据
type CatalogService struct {
	*base
}

// SaveServiceRequest 创建/修改服务请求
type SaveServiceRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateItemRequest 创建物料请求
type CreateItemRequest struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
}

// === 服务目录 ===

// ListServices 获取服务列表
func (s *CatalogService) ListServices(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Service, int64, error) {
	var items []entity.Service
	var total int64
	err := s.read(ctx, "查询服务", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Catalog.FindServices(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// CreateService 新增服务
func (s *CatalogService) CreateService(ctx context.Context, userID string, req *SaveServiceRequest) (*entity.Service, error) {
	if err := validateServiceRequest(req); err != nil {
		return nil, err
	}

	svc := &entity.Service{
		ID:          newID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		IsActive:    true,
		CreatedBy:   userID,
	}
	err := s.inTx(ctx, "新增服务", func(ctx context.Context, tx *repository.Repositories) error {
		if err := tx.Catalog.CreateService(ctx, svc); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditServiceCreated, userID, svc.ID, "新增服务 "+svc.Name)
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// UpdateService 修改服务
func (s *CatalogService) UpdateService(ctx context.Context, userID, id string, req *SaveServiceRequest) (*entity.Service, error) {
	if err := validateServiceRequest(req); err != nil {
		return nil, err
	}

	var svc *entity.Service
	err := s.inTx(ctx, "修改服务", func(ctx context.Context, tx *repository.Repositories) error {
		var err error
		svc, err = tx.Catalog.FindActiveService(ctx, id)
		if err != nil {
			return notFoundOr(err, "服务", id)
		}
		svc.Name = strings.TrimSpace(req.Name)
		svc.Description = req.Description
		svc.UnitPrice = req.UnitPrice
		if err := tx.Catalog.UpdateService(ctx, svc); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditServiceUpdated, userID, svc.ID, "修改服务 "+svc.Name)
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService 停用服务（软删除，历史订单和到货行仍可引用）
func (s *CatalogService) DeleteService(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, "停用服务", func(ctx context.Context, tx *repository.Repositories) error {
		svc, err := tx.Catalog.FindActiveService(ctx, id)
		if err != nil {
			return notFoundOr(err, "服务", id)
		}
		if err := tx.Catalog.DeactivateService(ctx, svc.ID); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditServiceDeleted, userID, svc.ID, "停用服务 "+svc.Name)
	})
}

func validateServiceRequest(req *SaveServiceRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "不能为空")
	}
	if req.UnitPrice.IsNegative() {
		return invalid("unit_price", "单价不能为负数")
	}
	return nil
}

// === 物料 ===

// ListItems 获取物料列表
func (s *CatalogService) ListItems(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Item, int64, error) {
	var items []entity.Item
	var total int64
	err := s.read(ctx, "查询物料", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Catalog.FindItems(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetItem 获取物料
func (s *CatalogService) GetItem(ctx context.Context, id string) (*entity.Item, error) {
	var item *entity.Item
	err := s.read(ctx, "查询物料", func(ctx context.Context) error {
		var err error
		item, err = s.repos.Catalog.FindItemByID(ctx, id)
		return notFoundOr(err, "物料", id)
	})
	return item, err
}

// StockMovements 物料库存流水
func (s *CatalogService) StockMovements(ctx context.Context, itemID string) ([]entity.StockMovement, error) {
	var movements []entity.StockMovement
	err := s.read(ctx, "查询库存流水", func(ctx context.Context) error {
		if _, err := s.repos.Catalog.FindItemByID(ctx, itemID); err != nil {
			return notFoundOr(err, "物料", itemID)
		}
		var err error
		movements, err = s.repos.Catalog.FindStockMovements(ctx, itemID)
		return err
	})
	return movements, err
}

// CreateItem 新增物料
func (s *CatalogService) CreateItem(ctx context.Context, userID string, req *CreateItemRequest) (*entity.Item, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, invalid("code", "不能为空")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "不能为空")
	}
	if req.UnitPrice.IsNegative() {
		return nil, invalid("unit_price", "单价不能为负数")
	}
	if req.StockQuantity < 0 {
		return nil, invalid("stock_quantity", "库存不能为负数")
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := &entity.Item{
		ID:            newID(),
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Unit:          unit,
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
		IsActive:      true,
	}
	err := s.inTx(ctx, "新增物料", func(ctx context.Context, tx *repository.Repositories) error {
		if err := tx.Catalog.CreateItem(ctx, item); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditItemCreated, userID, item.ID,
			fmt.Sprintf("新增物料 %s %s", item.Code, item.Name))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
