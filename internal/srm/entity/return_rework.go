package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReturnRequest 退货单
type ReturnRequest struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ReferenceNo string    `json:"reference_no" gorm:"size:16;uniqueIndex;not null"` // RET-######
	Remarks     string    `json:"remarks" gorm:"type:text"`
	Status      string    `json:"status" gorm:"size:20;default:Pending;index"`
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items      []ReturnItem     `json:"items,omitempty" gorm:"foreignKey:ReturnID"`
	Deliveries []ReturnDelivery `json:"deliveries,omitempty" gorm:"foreignKey:ReturnID"`
}

func (ReturnRequest) TableName() string {
	return "srm_returns"
}

// ReturnItem 退货物料行
type ReturnItem struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ReturnID  string    `json:"return_id" gorm:"size:32;not null;index"`
	ItemID    string    `json:"item_id" gorm:"size:32;not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (ReturnItem) TableName() string {
	return "srm_return_items"
}

// ReturnDelivery 退货 ↔ 原到货/补货到货
type ReturnDelivery struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	ReturnID      string    `json:"return_id" gorm:"size:32;not null;index"`
	OldDeliveryID string    `json:"old_delivery_id" gorm:"size:32;not null;index"`
	NewDeliveryID *string   `json:"new_delivery_id" gorm:"size:32;index"` // 补货到货后回填
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ReturnDelivery) TableName() string {
	return "srm_return_deliveries"
}

// Rework 返工单
type Rework struct {
	ID          string         `json:"id" gorm:"primaryKey;size:32"`
	ReferenceNo string         `json:"reference_no" gorm:"size:16;uniqueIndex;not null"` // REW-######
	Remarks     string         `json:"remarks" gorm:"type:text;not null"`
	Status      string         `json:"status" gorm:"size:20;default:Pending;index"`
	CreatedBy   string         `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Services   []ReworkService  `json:"services,omitempty" gorm:"foreignKey:ReworkID"`
	Deliveries []ReworkDelivery `json:"deliveries,omitempty" gorm:"foreignKey:ReworkID"`
}

func (Rework) TableName() string {
	return "srm_reworks"
}

// ReworkService 返工服务行
type ReworkService struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	ReworkID  string          `json:"rework_id" gorm:"size:32;not null;index"`
	ServiceID string          `json:"service_id" gorm:"size:32;not null;index"`
	Hours     decimal.Decimal `json:"hours" gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (ReworkService) TableName() string {
	return "srm_rework_services"
}

// ReworkDelivery 返工 ↔ 原到货/返工到货
type ReworkDelivery struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	ReworkID      string    `json:"rework_id" gorm:"size:32;not null;index"`
	OldDeliveryID string    `json:"old_delivery_id" gorm:"size:32;not null;index"`
	NewDeliveryID *string   `json:"new_delivery_id" gorm:"size:32;index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ReworkDelivery) TableName() string {
	return "srm_rework_deliveries"
}

// 编号前缀
const (
	ReturnReferencePrefix = "RET"
	ReworkReferencePrefix = "REW"
)
