package repository

import (
	"fmt"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// constraintSQL AutoMigrate之后补充的约束，可重复执行
var constraintSQL = []string{
	"ALTER TABLE srm_requisition_items DROP CONSTRAINT IF EXISTS srm_requisition_items_qty_check",
	"ALTER TABLE srm_requisition_items ADD CONSTRAINT srm_requisition_items_qty_check CHECK (quantity > 0 AND approved_quantity >= 0)",
	"ALTER TABLE srm_order_items DROP CONSTRAINT IF EXISTS srm_order_items_qty_check",
	"ALTER TABLE srm_order_items ADD CONSTRAINT srm_order_items_qty_check CHECK (quantity > 0)",
	"ALTER TABLE srm_return_items DROP CONSTRAINT IF EXISTS srm_return_items_qty_check",
	"ALTER TABLE srm_return_items ADD CONSTRAINT srm_return_items_qty_check CHECK (quantity >= 1)",
	"ALTER TABLE srm_items DROP CONSTRAINT IF EXISTS srm_items_stock_check",
	"ALTER TABLE srm_items ADD CONSTRAINT srm_items_stock_check CHECK (stock_quantity >= 0)",
	"ALTER TABLE srm_requisitions DROP CONSTRAINT IF EXISTS srm_requisitions_type_check",
	"ALTER TABLE srm_requisitions ADD CONSTRAINT srm_requisitions_type_check CHECK (type IN ('items', 'services'))",
	"ALTER TABLE srm_deliveries DROP CONSTRAINT IF EXISTS srm_deliveries_source_check",
	`ALTER TABLE srm_deliveries ADD CONSTRAINT srm_deliveries_source_check CHECK (
		(CASE WHEN po_id IS NULL THEN 0 ELSE 1 END) +
		(CASE WHEN return_id IS NULL THEN 0 ELSE 1 END) +
		(CASE WHEN rework_id IS NULL THEN 0 ELSE 1 END) <= 1)`,
	"CREATE INDEX IF NOT EXISTS idx_srm_return_deliveries_pair ON srm_return_deliveries(return_id, old_delivery_id)",
	"CREATE INDEX IF NOT EXISTS idx_srm_rework_deliveries_pair ON srm_rework_deliveries(rework_id, old_delivery_id)",
}

// Migrate 建表并补充约束。AutoMigrate失败直接返回，约束语句失败只记警告
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(entity.Models()...); err != nil {
		return fmt.Errorf("AutoMigrate SRM tables: %w", err)
	}

	for _, sql := range constraintSQL {
		if err := db.Exec(sql).Error; err != nil {
			logger.Warn("SRM constraint migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}
	logger.Info("SRM database migration completed")
	return nil
}
