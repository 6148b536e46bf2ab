package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories SRM仓库集合
type Repositories struct {
	db *gorm.DB

	Catalog     *CatalogRepository
	Supplier    *SupplierRepository
	Requisition *RequisitionRepository
	PO          *PORepository
	Delivery    *DeliveryRepository
	Return      *ReturnRepository
	Rework      *ReworkRepository
	AuditLog    *AuditLogRepository
}

// NewRepositories 创建SRM仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		Catalog:     NewCatalogRepository(db),
		Supplier:    NewSupplierRepository(db),
		Requisition: NewRequisitionRepository(db),
		PO:          NewPORepository(db),
		Delivery:    NewDeliveryRepository(db),
		Return:      NewReturnRepository(db),
		Rework:      NewReworkRepository(db),
		AuditLog:    NewAuditLogRepository(db),
	}
}

// DB 底层连接
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction 在同一事务内执行fn，fn返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
