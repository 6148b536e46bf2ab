package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item 库存物料
type Item struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	Code          string          `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Name          string          `json:"name" gorm:"size:200;not null"`
	Unit          string          `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0"`
	IsActive      bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Item) TableName() string {
	return "srm_items"
}

// Service 服务目录
type Service struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	Name        string          `json:"name" gorm:"size:200;not null"`
	Description string          `json:"description" gorm:"type:text"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,2);not null;default:0"`
	IsActive    bool            `json:"is_active" gorm:"not null;default:true;index"`
	CreatedBy   string          `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Service) TableName() string {
	return "srm_services"
}

// StockMovement 库存流水（只追加）
type StockMovement struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	ItemID     string    `json:"item_id" gorm:"size:32;not null;index"`
	Quantity   int       `json:"quantity" gorm:"not null"` // 正数入库，负数出库
	SourceType string    `json:"source_type" gorm:"size:20;not null"` // delivery/return
	SourceID   string    `json:"source_id" gorm:"size:32;not null;index"`
	CreatedBy  string    `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "srm_stock_movements"
}

// 库存流水来源
const (
	StockSourceDelivery = "delivery"
	StockSourceReturn   = "return"
)
