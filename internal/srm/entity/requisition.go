package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition 请购单（物料或服务二选一）
type Requisition struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	Requestor string          `json:"requestor" gorm:"size:100;not null"`
	UserID    string          `json:"user_id" gorm:"size:32;index"`
	Priority  string          `json:"priority" gorm:"size:20;default:Normal"`
	Type      string          `json:"type" gorm:"size:20;not null"` // items/services
	Notes     string          `json:"notes" gorm:"type:text"`
	Status    string          `json:"status" gorm:"size:30;default:Pending;index"`
	Remarks   string          `json:"remarks" gorm:"type:text"` // 驳回原因等
	TotalCost decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// 关联
	Items    []RequisitionItem    `json:"items,omitempty" gorm:"foreignKey:RequisitionID"`
	Services []RequisitionService `json:"services,omitempty" gorm:"foreignKey:RequisitionID"`
}

func (Requisition) TableName() string {
	return "srm_requisitions"
}

// RequisitionItem 请购物料行
type RequisitionItem struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID    string    `json:"requisition_id" gorm:"size:32;not null;index"`
	ItemID           string    `json:"item_id" gorm:"size:32;not null;index"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	ApprovedQuantity int       `json:"approved_quantity" gorm:"not null;default:0"`
	Version          int       `json:"version" gorm:"not null;default:1"`
	SortOrder        int       `json:"sort_order" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (RequisitionItem) TableName() string {
	return "srm_requisition_items"
}

// RequisitionService 请购服务行
type RequisitionService struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string          `json:"requisition_id" gorm:"size:32;not null;index"`
	ServiceID     string          `json:"service_id" gorm:"size:32;not null;index"`
	ItemID        *string         `json:"item_id" gorm:"size:32"` // 关联物料（可选）
	Hours         decimal.Decimal `json:"hours" gorm:"type:decimal(10,2);not null;default:0"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	SortOrder     int             `json:"sort_order" gorm:"default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (RequisitionService) TableName() string {
	return "srm_requisition_services"
}

// IsItemType 是否物料请购
func (r *Requisition) IsItemType() bool {
	return r.Type == RequisitionTypeItems
}
