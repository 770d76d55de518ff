package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============ ENUMS & TYPES ============
type UnitType string

const (
	UnitPiece  UnitType = "piece"
	UnitBox    UnitType = "box"
	UnitBottle UnitType = "bottle"
	UnitVial   UnitType = "vial"
	UnitPack   UnitType = "pack"
	UnitStrip  UnitType = "strip"
	UnitTube   UnitType = "tube"
	UnitSachet UnitType = "sachet"
	UnitOther  UnitType = "other"
)

type Category string

const (
	CategoryMedication  Category = "medication"
	CategoryEquipment   Category = "equipment"
	CategoryConsumables Category = "consumables"
	CategorySurgical    Category = "surgical"
	CategoryDiagnostic  Category = "diagnostic"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMedication, CategoryEquipment, CategoryConsumables,
		CategorySurgical, CategoryDiagnostic, CategoryOther:
		return true
	}
	return false
}

func (u UnitType) Valid() bool {
	switch u {
	case UnitPiece, UnitBox, UnitBottle, UnitVial, UnitPack,
		UnitStrip, UnitTube, UnitSachet, UnitOther:
		return true
	}
	return false
}

type MovementType string

const (
	MovementIntake       MovementType = "intake"
	MovementSale         MovementType = "sale"
	MovementSaleCancel   MovementType = "sale_cancel"
	MovementBillDispense MovementType = "bill_dispense"
	MovementAdjustment   MovementType = "adjustment"
)

// DefaultMinimumStock applies when an item is created without a threshold.
const DefaultMinimumStock = 10

// ExpiringSoonDays is the horizon used for the is_expiring_soon flag.
const ExpiringSoonDays = 90

// ============ INVENTORY ITEM ============
type InventoryItem struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Identity
	ItemName    string  `gorm:"type:varchar(200);not null;index" json:"item_name"`
	SKU         string  `gorm:"column:sku;type:varchar(100);not null;uniqueIndex" json:"sku"`
	Barcode     *string `gorm:"type:varchar(50);uniqueIndex" json:"barcode,omitempty"`
	BatchNumber string  `gorm:"type:varchar(100)" json:"batch_number"`

	ExpirationDate *time.Time `gorm:"index" json:"expiration_date,omitempty"`

	// Stock
	Quantity     int      `gorm:"not null" json:"quantity"`
	MinimumStock int      `gorm:"not null" json:"minimum_stock"`
	UnitType     UnitType `gorm:"type:varchar(20);not null" json:"unit_type"`

	// Classification
	Category     Category `gorm:"type:varchar(20);not null;index" json:"category"`
	Subcategory  string   `gorm:"type:varchar(100)" json:"subcategory,omitempty"`
	Description  string   `gorm:"type:text" json:"description,omitempty"`
	Manufacturer string   `gorm:"type:varchar(200)" json:"manufacturer,omitempty"`
	Supplier     string   `gorm:"type:varchar(200)" json:"supplier,omitempty"`

	// Pricing
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"selling_price"`

	StorageLocation      string `gorm:"type:varchar(100)" json:"storage_location,omitempty"`
	RequiresPrescription bool   `gorm:"not null" json:"requires_prescription"`
	IsActive             bool   `gorm:"not null;index" json:"is_active"`
	Notes                string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived on load
	IsLowStock     bool `gorm:"-" json:"is_low_stock"`
	IsExpiringSoon bool `gorm:"-" json:"is_expiring_soon"`
	IsExpired      bool `gorm:"-" json:"is_expired"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *InventoryItem) AfterFind(tx *gorm.DB) error {
	i.Derive(time.Now().UTC())
	return nil
}

// Derive fills the computed flags relative to now.
func (i *InventoryItem) Derive(now time.Time) {
	i.IsLowStock = i.Quantity <= i.MinimumStock
	i.IsExpired = false
	i.IsExpiringSoon = false
	if i.ExpirationDate == nil {
		return
	}
	if i.ExpirationDate.Before(now) {
		i.IsExpired = true
		return
	}
	i.IsExpiringSoon = !i.ExpirationDate.After(now.AddDate(0, 0, ExpiringSoonDays))
}

// StockValue is quantity times unit cost.
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ============ STOCK MOVEMENT (LEDGER) ============
type StockMovement struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index:idx_movement_item_date" json:"inventory_item_id"`

	Amount  int          `gorm:"not null" json:"amount"`
	Balance int          `gorm:"not null" json:"balance"`
	Type    MovementType `gorm:"type:varchar(20);not null" json:"type"`

	// Reference tracking (transaction or bill)
	RefID  *uuid.UUID `gorm:"type:uuid;index" json:"ref_id,omitempty"`
	Reason *string    `gorm:"type:text" json:"reason,omitempty"`

	CreatedBy string    `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"index:idx_movement_item_date" json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
