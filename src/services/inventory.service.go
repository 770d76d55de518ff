package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ops/src/apperror"
	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
)

// ============ REQUEST STRUCTS ============
type CreateItemInput struct {
	ItemName             string
	SKU                  string
	Barcode              *string
	BatchNumber          string
	ExpirationDate       *time.Time
	Quantity             int
	MinimumStock         *int
	UnitType             string
	Category             string
	Subcategory          string
	Description          string
	Manufacturer         string
	Supplier             string
	UnitPrice            decimal.Decimal
	SellingPrice         decimal.Decimal
	StorageLocation      string
	RequiresPrescription bool
	Notes                string
}

// UpdateItemInput is a partial patch; nil fields are left untouched.
type UpdateItemInput struct {
	ItemName             *string
	SKU                  *string
	Barcode              *string
	BatchNumber          *string
	ExpirationDate       *time.Time
	ClearExpiration      bool
	MinimumStock         *int
	UnitType             *string
	Category             *string
	Subcategory          *string
	Description          *string
	Manufacturer         *string
	Supplier             *string
	UnitPrice            *decimal.Decimal
	SellingPrice         *decimal.Decimal
	StorageLocation      *string
	RequiresPrescription *bool
	IsActive             *bool
	Notes                *string
}

const barcodeAttempts = 5

// ============ INVENTORY SERVICE ============
type InventoryService struct {
	DB        *gorm.DB
	Repo      *repositories.InventoryRepository
	Log       *zap.Logger
	Observers []StockObserver
	Now       func() time.Time
}

func (s *InventoryService) now() time.Time {
	return clockOrDefault(s.Now)
}

// ============ PUBLIC METHODS ============

// Create - Register a new item
func (s *InventoryService) Create(ctx context.Context, in CreateItemInput, actor string) (*models.InventoryItem, error) {
	item, err := s.buildItem(in)
	if err != nil {
		return nil, err
	}

	taken, err := s.Repo.SKUTaken(ctx, item.SKU, uuid.Nil)
	if err != nil {
		return nil, storeError(err, "")
	}
	if taken {
		return nil, apperror.Conflict("Item with SKU %s already exists", item.SKU)
	}

	if in.Barcode != nil && strings.TrimSpace(*in.Barcode) != "" {
		code := strings.TrimSpace(*in.Barcode)
		if !ValidBarcode(code) {
			return nil, apperror.Validation("Invalid barcode format")
		}
		taken, err := s.Repo.BarcodeTaken(ctx, code, uuid.Nil)
		if err != nil {
			return nil, storeError(err, "")
		}
		if taken {
			return nil, apperror.Conflict("Item with barcode %s already exists", code)
		}
		item.Barcode = &code
	} else {
		code, err := s.uniqueBarcode(ctx)
		if err != nil {
			return nil, err
		}
		item.Barcode = &code
	}

	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("Item with SKU %s or its barcode already exists", item.SKU)
			}
			return err
		}
		if item.Quantity == 0 {
			return nil
		}
		return s.Repo.WithTx(tx).RecordMovement(ctx, &models.StockMovement{
			InventoryItemID: item.ID,
			Amount:          item.Quantity,
			Type:            models.MovementIntake,
			CreatedBy:       actorOrDefault(actor),
			CreatedAt:       now,
		})
	})
	if err != nil {
		return nil, storeError(err, "")
	}

	item.Derive(now)
	loggerOrNop(s.Log).Info("inventory item created",
		zap.String("item_id", item.ID.String()),
		zap.String("sku", item.SKU),
		zap.Int("quantity", item.Quantity),
	)
	notifyStockChanged(ctx, s.Observers)
	return item, nil
}

// GetByID - Get item by id
func (s *InventoryService) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Item not found")
	}
	return item, nil
}

// GetBySKU - Get active item by sku
func (s *InventoryService) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	item, err := s.Repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, storeError(err, "Item not found")
	}
	return item, nil
}

// GetByBarcode - Get active item by barcode
func (s *InventoryService) GetByBarcode(ctx context.Context, barcode string) (*models.InventoryItem, error) {
	item, err := s.Repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, storeError(err, "Item not found")
	}
	return item, nil
}

// Update - Apply a partial patch, re-checking sku and barcode uniqueness
func (s *InventoryService) Update(ctx context.Context, id uuid.UUID, in UpdateItemInput) (*models.InventoryItem, error) {
	item, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Item not found")
	}

	before := *item
	if err := s.applyPatch(ctx, item, in); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now()

	// Quantity only moves through the conditional stock writes
	err = s.DB.WithContext(ctx).Model(item).
		Select("*").
		Omit("quantity", "created_at").
		Updates(item).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("Item with SKU %s or its barcode already exists", item.SKU)
		}
		return nil, storeError(err, "Item not found")
	}
	if item.Quantity, err = s.Repo.CurrentQuantity(ctx, item.ID); err != nil {
		return nil, storeError(err, "Item not found")
	}
	item.Derive(s.now())

	if alertRelevantChange(&before, item) {
		notifyStockChanged(ctx, s.Observers)
	}
	return item, nil
}

// AdjustQuantity - Apply a signed delta; the result may not drop below zero
func (s *InventoryService) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int, reason, actor string) (*models.InventoryItem, error) {
	if delta == 0 {
		return nil, apperror.Validation("Quantity change cannot be zero")
	}

	now := s.now()
	var item *models.InventoryItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		ok, err := repo.Adjust(ctx, id, delta, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := repo.GetByID(ctx, id)
			if err != nil {
				return storeError(err, "Item not found")
			}
			return apperror.InsufficientStock(
				"Insufficient quantity for %s. Available: %d, requested change: %d",
				current.ItemName, current.Quantity, delta)
		}

		movement := &models.StockMovement{
			InventoryItemID: id,
			Amount:          delta,
			Type:            models.MovementAdjustment,
			CreatedBy:       actorOrDefault(actor),
			CreatedAt:       now,
		}
		if reason != "" {
			movement.Reason = &reason
		}
		if err := repo.RecordMovement(ctx, movement); err != nil {
			return err
		}

		item, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "Item not found")
	}

	loggerOrNop(s.Log).Info("inventory quantity adjusted",
		zap.String("item_id", id.String()),
		zap.Int("delta", delta),
		zap.Int("quantity", item.Quantity),
		zap.String("actor", actorOrDefault(actor)),
	)
	notifyStockChanged(ctx, s.Observers)
	return item, nil
}

// Deactivate - Soft delete; the row stays for historical references
func (s *InventoryService) Deactivate(ctx context.Context, id uuid.UUID, actor string) error {
	item, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "Item not found")
	}
	if !item.IsActive {
		return nil
	}

	err = s.DB.WithContext(ctx).Model(item).
		UpdateColumns(map[string]interface{}{"is_active": false, "updated_at": s.now()}).Error
	if err != nil {
		return storeError(err, "Item not found")
	}

	loggerOrNop(s.Log).Info("inventory item deactivated",
		zap.String("item_id", id.String()),
		zap.String("actor", actorOrDefault(actor)),
	)
	notifyStockChanged(ctx, s.Observers)
	return nil
}

// ============ DERIVED QUERIES ============

func (s *InventoryService) List(ctx context.Context, filter repositories.ItemFilter) ([]models.InventoryItem, int64, error) {
	items, total, err := s.Repo.List(ctx, filter, s.now())
	return items, total, storeError(err, "")
}

// Search - Quick lookup for the POS and billing drug pickers
func (s *InventoryService) Search(ctx context.Context, q string, limit int) ([]models.InventoryItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := s.Repo.Search(ctx, strings.TrimSpace(q), limit)
	return items, storeError(err, "")
}

func (s *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.Repo.LowStock(ctx)
	return items, storeError(err, "")
}

// ExpiringWithin - Active items expiring between now and now+days
func (s *InventoryService) ExpiringWithin(ctx context.Context, days int) ([]models.InventoryItem, error) {
	if days < 0 {
		return nil, apperror.Validation("days must not be negative")
	}
	now := s.now()
	items, err := s.Repo.ExpiringBetween(ctx, now, now.AddDate(0, 0, days))
	return items, storeError(err, "")
}

func (s *InventoryService) Expired(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.Repo.ExpiredBefore(ctx, s.now())
	return items, storeError(err, "")
}

func (s *InventoryService) Stats(ctx context.Context) (*repositories.InventoryStats, error) {
	stats, err := s.Repo.Stats(ctx, s.now())
	return stats, storeError(err, "")
}

// Movements - Ledger of quantity changes for one item
func (s *InventoryService) Movements(ctx context.Context, id uuid.UUID, page, limit int) ([]models.StockMovement, int64, error) {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return nil, 0, storeError(err, "Item not found")
	}
	movements, total, err := s.Repo.GetMovements(ctx, id, page, limit)
	return movements, total, storeError(err, "")
}

// ============ PRIVATE HELPER METHODS ============

func (s *InventoryService) buildItem(in CreateItemInput) (*models.InventoryItem, error) {
	name := strings.TrimSpace(in.ItemName)
	sku := strings.TrimSpace(in.SKU)
	if name == "" {
		return nil, apperror.Validation("Item name is required")
	}
	if sku == "" {
		return nil, apperror.Validation("SKU is required")
	}
	if in.Quantity < 0 {
		return nil, apperror.Validation("Quantity must not be negative")
	}
	category := models.Category(in.Category)
	if !category.Valid() {
		return nil, apperror.Validation("Invalid category %q", in.Category)
	}
	unit := models.UnitPiece
	if in.UnitType != "" {
		unit = models.UnitType(in.UnitType)
		if !unit.Valid() {
			return nil, apperror.Validation("Invalid unit type %q", in.UnitType)
		}
	}
	if in.UnitPrice.IsNegative() || in.SellingPrice.IsNegative() {
		return nil, apperror.Validation("Prices must not be negative")
	}
	minimum := models.DefaultMinimumStock
	if in.MinimumStock != nil {
		if *in.MinimumStock < 0 {
			return nil, apperror.Validation("Minimum stock must not be negative")
		}
		minimum = *in.MinimumStock
	}

	item := &models.InventoryItem{
		ItemName:             name,
		SKU:                  sku,
		BatchNumber:          in.BatchNumber,
		Quantity:             in.Quantity,
		MinimumStock:         minimum,
		UnitType:             unit,
		Category:             category,
		Subcategory:          in.Subcategory,
		Description:          in.Description,
		Manufacturer:         in.Manufacturer,
		Supplier:             in.Supplier,
		UnitPrice:            in.UnitPrice,
		SellingPrice:         in.SellingPrice,
		StorageLocation:      in.StorageLocation,
		RequiresPrescription: in.RequiresPrescription,
		IsActive:             true,
		Notes:                in.Notes,
	}
	if in.ExpirationDate != nil {
		exp := in.ExpirationDate.UTC()
		item.ExpirationDate = &exp
	}
	return item, nil
}

func (s *InventoryService) applyPatch(ctx context.Context, item *models.InventoryItem, in UpdateItemInput) error {
	if in.ItemName != nil {
		name := strings.TrimSpace(*in.ItemName)
		if name == "" {
			return apperror.Validation("Item name is required")
		}
		item.ItemName = name
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			return apperror.Validation("SKU is required")
		}
		if sku != item.SKU {
			taken, err := s.Repo.SKUTaken(ctx, sku, item.ID)
			if err != nil {
				return storeError(err, "")
			}
			if taken {
				return apperror.Conflict("Item with SKU %s already exists", sku)
			}
			item.SKU = sku
		}
	}
	if in.Barcode != nil {
		code := strings.TrimSpace(*in.Barcode)
		switch {
		case code == "":
			item.Barcode = nil
		case item.Barcode == nil || *item.Barcode != code:
			if !ValidBarcode(code) {
				return apperror.Validation("Invalid barcode format")
			}
			taken, err := s.Repo.BarcodeTaken(ctx, code, item.ID)
			if err != nil {
				return storeError(err, "")
			}
			if taken {
				return apperror.Conflict("Item with barcode %s already exists", code)
			}
			item.Barcode = &code
		}
	}
	if in.BatchNumber != nil {
		item.BatchNumber = *in.BatchNumber
	}
	if in.ClearExpiration {
		item.ExpirationDate = nil
	} else if in.ExpirationDate != nil {
		exp := in.ExpirationDate.UTC()
		item.ExpirationDate = &exp
	}
	if in.MinimumStock != nil {
		if *in.MinimumStock < 0 {
			return apperror.Validation("Minimum stock must not be negative")
		}
		item.MinimumStock = *in.MinimumStock
	}
	if in.UnitType != nil {
		unit := models.UnitType(*in.UnitType)
		if !unit.Valid() {
			return apperror.Validation("Invalid unit type %q", *in.UnitType)
		}
		item.UnitType = unit
	}
	if in.Category != nil {
		category := models.Category(*in.Category)
		if !category.Valid() {
			return apperror.Validation("Invalid category %q", *in.Category)
		}
		item.Category = category
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return apperror.Validation("Prices must not be negative")
		}
		item.UnitPrice = *in.UnitPrice
	}
	if in.SellingPrice != nil {
		if in.SellingPrice.IsNegative() {
			return apperror.Validation("Prices must not be negative")
		}
		item.SellingPrice = *in.SellingPrice
	}
	if in.Subcategory != nil {
		item.Subcategory = *in.Subcategory
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Manufacturer != nil {
		item.Manufacturer = *in.Manufacturer
	}
	if in.Supplier != nil {
		item.Supplier = *in.Supplier
	}
	if in.StorageLocation != nil {
		item.StorageLocation = *in.StorageLocation
	}
	if in.RequiresPrescription != nil {
		item.RequiresPrescription = *in.RequiresPrescription
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}
	if in.Notes != nil {
		item.Notes = *in.Notes
	}
	return nil
}

func (s *InventoryService) uniqueBarcode(ctx context.Context) (string, error) {
	for i := 0; i < barcodeAttempts; i++ {
		code := GenerateBarcode(s.now())
		taken, err := s.Repo.BarcodeTaken(ctx, code, uuid.Nil)
		if err != nil {
			return "", storeError(err, "")
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperror.Conflict("Could not generate a unique barcode")
}

func alertRelevantChange(before, after *models.InventoryItem) bool {
	if before.MinimumStock != after.MinimumStock || before.IsActive != after.IsActive {
		return true
	}
	switch {
	case before.ExpirationDate == nil && after.ExpirationDate == nil:
		return false
	case before.ExpirationDate == nil || after.ExpirationDate == nil:
		return true
	default:
		return !before.ExpirationDate.Equal(*after.ExpirationDate)
	}
}
