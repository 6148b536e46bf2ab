package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	ReferenceNo string          `json:"reference_no" gorm:"size:32;uniqueIndex;not null"`
	OrderType   string          `json:"order_type" gorm:"size:20;not null"`   // Items/Services
	PaymentType string          `json:"payment_type" gorm:"size:20;not null"` // Cash/Disbursement/Store Credit
	TotalCost   decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	Remarks     string          `json:"remarks" gorm:"type:text"`
	SupplierID  string          `json:"supplier_id" gorm:"size:32;not null;index"`
	Status      string          `json:"status" gorm:"size:20;default:Pending;index"`

	// 管理
	CreatedBy  string     `json:"created_by" gorm:"size:32"`
	ApprovedBy *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// 关联
	Items    []OrderItem    `json:"items,omitempty" gorm:"foreignKey:POID"`
	Services []OrderService `json:"services,omitempty" gorm:"foreignKey:POID"`
	Supplier *Supplier      `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (PurchaseOrder) TableName() string {
	return "srm_purchase_orders"
}

// OrderItem PO物料行
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	POID      string          `json:"po_id" gorm:"size:32;not null;index"`
	ItemID    string          `json:"item_id" gorm:"size:32;not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	Version   int             `json:"version" gorm:"not null;default:1"`
	SortOrder int             `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (OrderItem) TableName() string {
	return "srm_order_items"
}

// OrderService PO服务行（每行数量恒为1）
type OrderService struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	POID      string          `json:"po_id" gorm:"size:32;not null;index"`
	ServiceID string          `json:"service_id" gorm:"size:32;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	Version   int             `json:"version" gorm:"not null;default:1"`
	SortOrder int             `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (OrderService) TableName() string {
	return "srm_order_services"
}

// RequisitionOrderItem 请购物料行 ↔ PO物料行
type RequisitionOrderItem struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	RequisitionItemID string    `json:"requisition_item_id" gorm:"size:32;not null;uniqueIndex"`
	OrderItemID       string    `json:"order_item_id" gorm:"size:32;not null;index"`
	CreatedAt         time.Time `json:"created_at"`
}

func (RequisitionOrderItem) TableName() string {
	return "srm_requisition_order_items"
}

// RequisitionOrderService 请购服务行 ↔ PO服务行
type RequisitionOrderService struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	RequisitionServiceID string    `json:"requisition_service_id" gorm:"size:32;not null;uniqueIndex"`
	OrderServiceID       string    `json:"order_service_id" gorm:"size:32;not null;index"`
	CreatedAt            time.Time `json:"created_at"`
}

func (RequisitionOrderService) TableName() string {
	return "srm_requisition_order_services"
}
