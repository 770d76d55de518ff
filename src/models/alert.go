package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertType string

const (
	AlertLowStock       AlertType = "LOW_STOCK"
	AlertOutOfStock     AlertType = "OUT_OF_STOCK"
	AlertExpiryCritical AlertType = "EXPIRY_CRITICAL"
	AlertExpiryWarning  AlertType = "EXPIRY_WARNING"
	AlertExpiryNotice   AlertType = "EXPIRY_NOTICE"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNotice   Severity = "notice"
)

// Alert is derived from inventory state. At most one unread and undismissed
// alert may exist per (item, type); idx_alerts_active_item_type enforces it.
type Alert struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type     AlertType `gorm:"type:varchar(30);not null;index" json:"type"`
	Severity Severity  `gorm:"type:varchar(10);not null;index" json:"severity"`

	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	ItemName        string    `gorm:"type:varchar(200);not null" json:"item_name"`
	Message         string    `gorm:"type:text;not null" json:"message"`

	IsRead      bool       `gorm:"not null" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	IsDismissed bool       `gorm:"not null" json:"is_dismissed"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Alert) Active() bool {
	return !a.IsRead && !a.IsDismissed
}
