package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-ops/src/models"
)

type InventoryRepository struct {
	DB *gorm.DB
}

// ItemFilter narrows List results. Zero values mean "no filter".
type ItemFilter struct {
	Category        string
	Search          string
	LowStock        bool
	Expired         bool
	IncludeInactive bool
	Page            int
	Limit           int
}

type InventoryStats struct {
	TotalItems    int64           `json:"total_items"`
	LowStockItems int64           `json:"low_stock_items"`
	ExpiredItems  int64           `json:"expired_items"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// WithTx returns a repository bound to tx.
func (r *InventoryRepository) WithTx(tx *gorm.DB) *InventoryRepository {
	return &InventoryRepository{DB: tx}
}

// ============ READS ============

// GetByID - Get item by primary key, active or not
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.DB.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindBySKU - Get active item by sku
func (r *InventoryRepository) FindBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("sku = ? AND is_active = ?", sku, true).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByBarcode - Get active item by barcode
func (r *InventoryRepository) FindByBarcode(ctx context.Context, barcode string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("barcode = ? AND is_active = ?", barcode, true).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SKUTaken reports whether another item already uses sku.
func (r *InventoryRepository) SKUTaken(ctx context.Context, sku string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("sku = ? AND id <> ?", sku, excludeID).
		Count(&count).Error
	return count > 0, err
}

// BarcodeTaken reports whether another item already uses barcode.
func (r *InventoryRepository) BarcodeTaken(ctx context.Context, barcode string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("barcode = ? AND id <> ?", barcode, excludeID).
		Count(&count).Error
	return count > 0, err
}

// List - Get items with filters and pagination
func (r *InventoryRepository) List(ctx context.Context, filter ItemFilter, now time.Time) ([]models.InventoryItem, int64, error) {
	var items []models.InventoryItem
	var total int64

	query := r.DB.WithContext(ctx).Model(&models.InventoryItem{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(item_name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(barcode) LIKE ? OR LOWER(manufacturer) LIKE ?",
			like, like, like, like,
		)
	}
	if filter.LowStock {
		query = query.Where("quantity <= minimum_stock")
	}
	if filter.Expired {
		query = query.Where("expiration_date < ?", now)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("item_name ASC")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search - Match active, in-stock items by name, sku or barcode
func (r *InventoryRepository) Search(ctx context.Context, q string, limit int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	like := "%" + strings.ToLower(q) + "%"
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND quantity > 0", true).
		Where("LOWER(item_name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(barcode) LIKE ?", like, like, like).
		Order("item_name ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// LowStock - Active items at or below their minimum stock
func (r *InventoryRepository) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND quantity <= minimum_stock", true).
		Order("quantity ASC, item_name ASC").
		Find(&items).Error
	return items, err
}

// ExpiringBetween - Active items expiring in [from, to]
func (r *InventoryRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND expiration_date >= ? AND expiration_date <= ?", true, from, to).
		Order("expiration_date ASC").
		Find(&items).Error
	return items, err
}

// ExpiredBefore - Active items whose expiration date is before now
func (r *InventoryRepository) ExpiredBefore(ctx context.Context, now time.Time) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND expiration_date < ?", true, now).
		Order("expiration_date ASC").
		Find(&items).Error
	return items, err
}

// ActiveItems - Every active item, used by the alert scan
func (r *InventoryRepository) ActiveItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("item_name ASC").
		Find(&items).Error
	return items, err
}

// Stats - Aggregate counts and stock value over active items
func (r *InventoryRepository) Stats(ctx context.Context, now time.Time) (*InventoryStats, error) {
	stats := &InventoryStats{}
	base := func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.InventoryItem{}).Where("is_active = ?", true)
	}

	if err := base().Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}
	if err := base().Where("quantity <= minimum_stock").Count(&stats.LowStockItems).Error; err != nil {
		return nil, err
	}
	if err := base().Where("expiration_date < ?", now).Count(&stats.ExpiredItems).Error; err != nil {
		return nil, err
	}

	var value struct {
		Total decimal.NullDecimal
	}
	if err := base().Select("SUM(quantity * unit_price) AS total").Scan(&value).Error; err != nil {
		return nil, err
	}
	stats.TotalValue = decimal.Zero
	if value.Total.Valid {
		stats.TotalValue = value.Total.Decimal.Round(2)
	}
	return stats, nil
}

// ============ STOCK WRITES (call inside a transaction) ============

// LockItems - Load items by id with a row lock, ordered by id
func (r *InventoryRepository) LockItems(ctx context.Context, ids []uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// Decrement - Subtract qty only if the result stays >= 0
func (r *InventoryRepository) Decrement(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

// Increment - Add qty back; false when the item does not exist
func (r *InventoryRepository) Increment(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

// Adjust - Apply a signed delta only if the result stays >= 0
func (r *InventoryRepository) Adjust(ctx context.Context, id uuid.UUID, delta int, now time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

// CurrentQuantity - Read the stored quantity
func (r *InventoryRepository) CurrentQuantity(ctx context.Context, id uuid.UUID) (int, error) {
	var qty int
	err := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Select("quantity").
		Where("id = ?", id).
		Row().Scan(&qty)
	return qty, err
}

// ============ LEDGER ============

// RecordMovement - Append a ledger row with the post-change balance
func (r *InventoryRepository) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	balance, err := r.CurrentQuantity(ctx, movement.InventoryItemID)
	if err != nil {
		return err
	}
	movement.Balance = balance
	return r.DB.WithContext(ctx).Create(movement).Error
}

// GetMovements - Get ledger rows with pagination
func (r *InventoryRepository) GetMovements(ctx context.Context, itemID uuid.UUID, page, limit int) ([]models.StockMovement, int64, error) {
	var movements []models.StockMovement
	var total int64

	query := r.DB.WithContext(ctx).Model(&models.StockMovement{}).
		Where("inventory_item_id = ?", itemID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}
