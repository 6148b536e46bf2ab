package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
)

// SupplierService 供应商服务
type SupplierService struct {
	*base
}

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

// List 获取供应商列表
func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	var items []entity.Supplier
	var total int64
	err := s.read(ctx, "查询供应商", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Supplier.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// Get 获取供应商详情
func (s *SupplierService) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	var supplier *entity.Supplier
	err := s.read(ctx, "查询供应商", func(ctx context.Context) error {
		var err error
		supplier, err = s.repos.Supplier.FindByID(ctx, id)
		return notFoundOr(err, "供应商", id)
	})
	return supplier, err
}

// Create 创建供应商
func (s *SupplierService) Create(ctx context.Context, userID string, req *CreateSupplierRequest) (*entity.Supplier, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "不能为空")
	}

	supplier := &entity.Supplier{
		ID:          newID(),
		Name:        strings.TrimSpace(req.Name),
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Status:      entity.SupplierStatusActive,
		CreatedBy:   userID,
		Notes:       req.Notes,
	}

	err := s.inTx(ctx, "创建供应商", func(ctx context.Context, tx *repository.Repositories) error {
		code, err := tx.Supplier.GenerateCode(ctx)
		if err != nil {
			return fmt.Errorf("生成供应商编码失败: %w", err)
		}
		supplier.Code = code
		if err := tx.Supplier.Create(ctx, supplier); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditSupplierCreated, userID, supplier.ID, "新增供应商 "+supplier.Name)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}
