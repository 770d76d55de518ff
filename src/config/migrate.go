package config

import (
	"gorm.io/gorm"

	"clinic-ops/src/models"
)

// activeAlertIndex allows one unread, undismissed alert per item and type.
const activeAlertIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_active_item_type
	ON alerts (inventory_item_id, type)
	WHERE is_read = false AND is_dismissed = false`

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.InventoryItem{},
		&models.StockMovement{},
		&models.Transaction{},
		&models.TransactionLineItem{},
		&models.Alert{},
		&models.Bill{},
		&models.BillDrugLine{},
		&models.BillProcedureLine{},
		&models.Procedure{},
	); err != nil {
		return err
	}
	return db.Exec(activeAlertIndex).Error
}
