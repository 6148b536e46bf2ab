package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery 到货记录（来源：PO / 退货 / 返工，三选一）
type Delivery struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	ReferenceNo  string          `json:"reference_no" gorm:"size:32;uniqueIndex;not null"`
	DeliveryType string          `json:"delivery_type" gorm:"size:30;not null;index"`
	DeliveryDate time.Time       `json:"delivery_date" gorm:"not null"`
	TotalCost    decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,2);not null;default:0"`
	ReceiptNo    string          `json:"receipt_no" gorm:"size:100"`
	ReceiptPhoto *string         `json:"receipt_photo" gorm:"size:500"`
	Status       string          `json:"status" gorm:"size:20;default:Pending;index"`
	Remarks      string          `json:"remarks" gorm:"type:text"`

	POID     *string `json:"po_id" gorm:"size:32;index"`
	ReturnID *string `json:"return_id" gorm:"size:32;index"`
	ReworkID *string `json:"rework_id" gorm:"size:32;index"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Items    []DeliveryItem    `json:"items,omitempty" gorm:"foreignKey:DeliveryID"`
	Services []DeliveryService `json:"services,omitempty" gorm:"foreignKey:DeliveryID"`
}

func (Delivery) TableName() string {
	return "srm_deliveries"
}

// DeliveryItem 到货物料行
type DeliveryItem struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32"`
	DeliveryID        string          `json:"delivery_id" gorm:"size:32;not null;index"`
	ItemID            string          `json:"item_id" gorm:"size:32;not null;index"`
	Quantity          int             `json:"quantity" gorm:"not null"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt         time.Time       `json:"created_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (DeliveryItem) TableName() string {
	return "srm_delivery_items"
}

// DeliveryService 到货服务行
type DeliveryService struct {
	ID         string          `json:"id" gorm:"primaryKey;size:32"`
	DeliveryID string          `json:"delivery_id" gorm:"size:32;not null;index"`
	ServiceID  string          `json:"service_id" gorm:"size:32;not null;index"`
	Hours      decimal.Decimal `json:"hours" gorm:"type:decimal(10,2);not null;default:0"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt  time.Time       `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (DeliveryService) TableName() string {
	return "srm_delivery_services"
}

// LineTotal 物料行金额
func (i DeliveryItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
