package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-ops/src/apperror"
	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
	"clinic-ops/src/services"
)

// ============ TEST SCENARIO 1: CREATE ============
func TestInventoryCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("SC1: Defaults and generated barcode", func(t *testing.T) {
		item := f.createItem(t, "SKU-A", 25, 100)

		assert.Equal(t, models.DefaultMinimumStock, item.MinimumStock)
		assert.Equal(t, models.UnitPiece, item.UnitType)
		assert.True(t, item.IsActive)
		require.NotNil(t, item.Barcode)
		assert.Regexp(t, `^MED\d{12}$`, *item.Barcode)

		found, err := f.inventory.GetByBarcode(ctx, *item.Barcode)
		require.NoError(t, err)
		assert.Equal(t, item.ID, found.ID)
	})

	t.Run("SC2: Initial stock is recorded as intake", func(t *testing.T) {
		item, err := f.inventory.GetBySKU(ctx, "SKU-A")
		require.NoError(t, err)

		movements, total, err := f.inventory.Movements(ctx, item.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, models.MovementIntake, movements[0].Type)
		assert.Equal(t, 25, movements[0].Amount)
		assert.Equal(t, 25, movements[0].Balance)
		assert.Equal(t, "tester", movements[0].CreatedBy)
	})

	t.Run("SC3: Duplicate SKU is a conflict", func(t *testing.T) {
		_, err := f.inventory.Create(ctx, services.CreateItemInput{
			ItemName: "Other", SKU: "SKU-A", Category: "medication",
		}, "")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindConflict))
		assert.Equal(t, "Item with SKU SKU-A already exists", err.Error())
	})

	t.Run("SC4: Explicit barcodes are validated and unique", func(t *testing.T) {
		code := "8901234567890"
		_, err := f.inventory.Create(ctx, services.CreateItemInput{
			ItemName: "Gauze", SKU: "SKU-G", Category: "consumables", Barcode: &code,
		}, "")
		require.NoError(t, err)

		_, err = f.inventory.Create(ctx, services.CreateItemInput{
			ItemName: "Gauze 2", SKU: "SKU-G2", Category: "consumables", Barcode: &code,
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindConflict))

		bad := "ab cd"
		_, err = f.inventory.Create(ctx, services.CreateItemInput{
			ItemName: "Gauze 3", SKU: "SKU-G3", Category: "consumables", Barcode: &bad,
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("SC5: Invalid input fails validation", func(t *testing.T) {
		cases := []services.CreateItemInput{
			{SKU: "X1", Category: "medication"},
			{ItemName: "X", Category: "medication"},
			{ItemName: "X", SKU: "X2", Category: "food"},
			{ItemName: "X", SKU: "X3", Category: "medication", UnitType: "crate"},
			{ItemName: "X", SKU: "X4", Category: "medication", Quantity: -1},
			{ItemName: "X", SKU: "X5", Category: "medication", SellingPrice: decimal.NewFromInt(-5)},
			{ItemName: "X", SKU: "X6", Category: "medication", MinimumStock: intPtr(-1)},
		}
		for _, in := range cases {
			_, err := f.inventory.Create(ctx, in, "")
			assert.True(t, apperror.Is(err, apperror.KindValidation), "%+v", in)
		}
	})
}

// ============ TEST SCENARIO 2: ADJUST ============
func TestInventoryAdjustQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "SKU-A", 10, 100)

	t.Run("SC1: Positive and negative deltas apply", func(t *testing.T) {
		updated, err := f.inventory.AdjustQuantity(ctx, item.ID, 15, "delivery", "storekeeper")
		require.NoError(t, err)
		assert.Equal(t, 25, updated.Quantity)

		updated, err = f.inventory.AdjustQuantity(ctx, item.ID, -20, "", "")
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Quantity)
	})

	t.Run("SC2: Going below zero is rejected", func(t *testing.T) {
		_, err := f.inventory.AdjustQuantity(ctx, item.ID, -6, "", "")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindInsufficientStock))
		assert.Equal(t, "Insufficient quantity for Item SKU-A. Available: 5, requested change: -6", err.Error())
		assert.Equal(t, 5, f.quantity(t, item.ID))
	})

	t.Run("SC3: Zero and unknown item", func(t *testing.T) {
		_, err := f.inventory.AdjustQuantity(ctx, item.ID, 0, "", "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))

		_, err = f.inventory.AdjustQuantity(ctx, uuid.New(), 3, "", "")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("SC4: Every change lands in the ledger", func(t *testing.T) {
		movements, total, err := f.inventory.Movements(ctx, item.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		sum := 0
		for _, m := range movements {
			sum += m.Amount
		}
		assert.Equal(t, f.quantity(t, item.ID), sum)
	})
}

// ============ TEST SCENARIO 3: UPDATE AND DEACTIVATE ============
func TestInventoryUpdate(t *testing.T) {
	f := newFixture(t)
	f.inventory.Observers = nil
	ctx := context.Background()

	a := f.createItem(t, "SKU-A", 30, 100)
	f.createItem(t, "SKU-B", 30, 100)

	t.Run("SC1: Patch leaves unspecified fields alone", func(t *testing.T) {
		price := decimal.NewFromInt(120)
		updated, err := f.inventory.Update(ctx, a.ID, services.UpdateItemInput{
			SellingPrice: &price,
			MinimumStock: intPtr(40),
		})
		require.NoError(t, err)
		assert.Equal(t, "120.00", updated.SellingPrice.StringFixed(2))
		assert.Equal(t, 40, updated.MinimumStock)
		assert.Equal(t, "Item SKU-A", updated.ItemName)
		assert.Equal(t, 30, updated.Quantity)
	})

	t.Run("SC2: SKU collisions are conflicts", func(t *testing.T) {
		_, err := f.inventory.Update(ctx, a.ID, services.UpdateItemInput{SKU: strPtr("SKU-B")})
		assert.True(t, apperror.Is(err, apperror.KindConflict))

		same, err := f.inventory.Update(ctx, a.ID, services.UpdateItemInput{SKU: strPtr("SKU-A")})
		require.NoError(t, err)
		assert.Equal(t, "SKU-A", same.SKU)
	})

	t.Run("SC3: Expiration can be set and cleared", func(t *testing.T) {
		exp := baseTime.AddDate(0, 6, 0)
		updated, err := f.inventory.Update(ctx, a.ID, services.UpdateItemInput{ExpirationDate: &exp})
		require.NoError(t, err)
		require.NotNil(t, updated.ExpirationDate)

		updated, err = f.inventory.Update(ctx, a.ID, services.UpdateItemInput{ClearExpiration: true})
		require.NoError(t, err)
		assert.Nil(t, updated.ExpirationDate)
	})

	t.Run("SC4: Deactivated items disappear from lookups and lists", func(t *testing.T) {
		require.NoError(t, f.inventory.Deactivate(ctx, a.ID, ""))
		require.NoError(t, f.inventory.Deactivate(ctx, a.ID, ""))

		_, err := f.inventory.GetBySKU(ctx, "SKU-A")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))

		items, total, err := f.inventory.List(ctx, repositories.ItemFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "SKU-B", items[0].SKU)

		kept, err := f.inventory.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, kept.IsActive)
	})

	t.Run("SC5: Unknown item", func(t *testing.T) {
		_, err := f.inventory.Update(ctx, uuid.New(), services.UpdateItemInput{})
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
		err = f.inventory.Deactivate(ctx, uuid.New(), "")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("SC6: A sale committed during a metadata patch is kept", func(t *testing.T) {
		c := f.createItem(t, "SKU-C", 10, 100)

		// The first clock read in Update happens after the row was loaded
		sold := false
		f.inventory.Now = func() time.Time {
			if !sold {
				sold = true
				_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
					Items: []services.CheckoutLine{{ItemID: c.ID, Quantity: 3}},
				}, "")
				require.NoError(t, err)
			}
			return f.clock.Now()
		}
		defer func() { f.inventory.Now = f.clock.Now }()

		updated, err := f.inventory.Update(ctx, c.ID, services.UpdateItemInput{Notes: strPtr("moved to shelf 4")})
		require.NoError(t, err)
		require.True(t, sold)
		assert.Equal(t, 7, updated.Quantity)
		assert.Equal(t, "moved to shelf 4", updated.Notes)
		assert.Equal(t, 7, f.quantity(t, c.ID))
	})
}

func TestInventoryQueries(t *testing.T) {
	f := newFixture(t)
	f.inventory.Observers = nil
	ctx := context.Background()

	f.createItem(t, "SKU-PARA", 100, 10, withName("Paracetamol"))
	f.createItem(t, "SKU-IBU", 4, 10, withName("Ibuprofen"))
	f.createItem(t, "SKU-EMPTY", 0, 10, withName("Paracetamol Syrup"))
	f.createItem(t, "SKU-SOON", 50, 10, withName("Insulin"), withExpiry(baseTime.AddDate(0, 0, 10)))
	f.createItem(t, "SKU-OLD", 50, 10, withName("Old Saline"), withExpiry(baseTime.AddDate(0, 0, -1)))

	t.Run("SC1: Search skips out of stock items", func(t *testing.T) {
		items, err := f.inventory.Search(ctx, "paracetamol", 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "SKU-PARA", items[0].SKU)
	})

	t.Run("SC2: Low stock includes empty items", func(t *testing.T) {
		items, err := f.inventory.LowStock(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "SKU-EMPTY", items[0].SKU)
		assert.Equal(t, "SKU-IBU", items[1].SKU)
	})

	t.Run("SC3: Expiring and expired windows", func(t *testing.T) {
		soon, err := f.inventory.ExpiringWithin(ctx, 30)
		require.NoError(t, err)
		require.Len(t, soon, 1)
		assert.Equal(t, "SKU-SOON", soon[0].SKU)

		none, err := f.inventory.ExpiringWithin(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, none)

		expired, err := f.inventory.Expired(ctx)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "SKU-OLD", expired[0].SKU)

		_, err = f.inventory.ExpiringWithin(ctx, -1)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("SC4: Stats aggregate active items", func(t *testing.T) {
		stats, err := f.inventory.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), stats.TotalItems)
		assert.Equal(t, int64(2), stats.LowStockItems)
		assert.Equal(t, int64(1), stats.ExpiredItems)
		// unit price is half the selling price
		assert.Equal(t, "1020.00", stats.TotalValue.StringFixed(2))
	})
}
