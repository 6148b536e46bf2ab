package entity

import "time"

// Supplier 供应商
type Supplier struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Code        string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	ContactName string    `json:"contact_name" gorm:"size:100"`
	Phone       string    `json:"phone" gorm:"size:50"`
	Email       string    `json:"email" gorm:"size:100"`
	Address     string    `json:"address" gorm:"size:500"`
	Status      string    `json:"status" gorm:"size:20;default:active"` // active/inactive
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Notes       string    `json:"notes" gorm:"type:text"`
}

func (Supplier) TableName() string {
	return "srm_suppliers"
}

// 供应商状态
const (
	SupplierStatusActive   = "active"
	SupplierStatusInactive = "inactive"
)
