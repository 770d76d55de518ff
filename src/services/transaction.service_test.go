package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-ops/src/apperror"
	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
	"clinic-ops/src/services"
)

// ============ TEST SCENARIO 1: CHECKOUT AND CANCEL ============
func TestCheckoutAndCancelFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	itemA := f.createItem(t, "SKU-A", 10, 100)
	itemB := f.createItem(t, "SKU-B", 1, 50)

	var txn *models.Transaction

	t.Run("SC1: Checkout decrements stock and totals the lines", func(t *testing.T) {
		var err error
		txn, err = f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{
				{ItemID: itemA.ID, Quantity: 2},
				{ItemID: itemB.ID, Quantity: 1},
			},
			PatientName: "Ada Obi",
		}, "cashier")
		require.NoError(t, err)

		assert.Equal(t, "250.00", txn.TotalAmount.StringFixed(2))
		assert.Equal(t, models.TransactionCompleted, txn.Status)
		assert.Equal(t, models.PaymentCash, txn.PaymentMethod)
		assert.Equal(t, "cashier", txn.CreatedBy)
		assert.Regexp(t, `^TXN-\d+-[0-9A-F]{8}$`, txn.TransactionID)
		require.Len(t, txn.LineItems, 2)
		assert.Equal(t, "200.00", txn.LineItems[0].Subtotal.StringFixed(2))
		assert.Equal(t, "SKU-A", txn.LineItems[0].SKU)

		assert.Equal(t, 8, f.quantity(t, itemA.ID))
		assert.Equal(t, 0, f.quantity(t, itemB.ID))
	})

	t.Run("SC2: Stored transaction matches the returned one", func(t *testing.T) {
		stored, err := f.transactions.Get(ctx, txn.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, txn.ID, stored.ID)
		require.Len(t, stored.LineItems, 2)
		assert.Equal(t, itemA.ID, stored.LineItems[0].InventoryItemID)
		assert.Equal(t, itemB.ID, stored.LineItems[1].InventoryItemID)

		byID, err := f.transactions.Get(ctx, txn.ID.String())
		require.NoError(t, err)
		assert.Equal(t, txn.TransactionID, byID.TransactionID)
	})

	t.Run("SC3: Sale movements are written per line", func(t *testing.T) {
		movements, total, err := f.inventory.Movements(ctx, itemA.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		var sale *models.StockMovement
		for i := range movements {
			if movements[i].Type == models.MovementSale {
				sale = &movements[i]
			}
		}
		require.NotNil(t, sale)
		assert.Equal(t, -2, sale.Amount)
		assert.Equal(t, 8, sale.Balance)
		require.NotNil(t, sale.RefID)
		assert.Equal(t, txn.ID, *sale.RefID)
	})

	t.Run("SC4: Cancel restores the snapshot quantities", func(t *testing.T) {
		cancelled, err := f.transactions.Cancel(ctx, txn.ID.String(), "wrong patient", "")
		require.NoError(t, err)

		assert.Equal(t, models.TransactionCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledBy)
		assert.Equal(t, services.DefaultActor, *cancelled.CancelledBy)
		assert.Equal(t, "250.00", cancelled.TotalAmount.StringFixed(2))

		assert.Equal(t, 10, f.quantity(t, itemA.ID))
		assert.Equal(t, 1, f.quantity(t, itemB.ID))

		stored, err := f.transactions.Get(ctx, txn.ID.String())
		require.NoError(t, err)
		assert.Equal(t, models.TransactionCancelled, stored.Status)
		require.NotNil(t, stored.CancellationReason)
		assert.Equal(t, "wrong patient", *stored.CancellationReason)
		assert.Len(t, stored.LineItems, 2)
	})

	t.Run("SC5: Second cancel is a conflict and changes nothing", func(t *testing.T) {
		_, err := f.transactions.Cancel(ctx, txn.TransactionID, "again", "")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindConflict))
		assert.Equal(t, "Transaction already cancelled", err.Error())

		assert.Equal(t, 10, f.quantity(t, itemA.ID))
		assert.Equal(t, 1, f.quantity(t, itemB.ID))
	})

	t.Run("SC6: Stats split revenue and cancelled amount", func(t *testing.T) {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{{ItemID: itemA.ID, Quantity: 1}},
		}, "")
		require.NoError(t, err)

		stats, err := f.transactions.DailySummary(ctx, baseTime)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalTransactions)
		assert.Equal(t, int64(1), stats.Completed)
		assert.Equal(t, int64(1), stats.Cancelled)
		assert.Equal(t, "100.00", stats.TotalRevenue.StringFixed(2))
		assert.Equal(t, "250.00", stats.CancelledAmount.StringFixed(2))
	})

	t.Run("SC7: Cancel restores deactivated items and skips deleted ones", func(t *testing.T) {
		sale, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{
				{ItemID: itemA.ID, Quantity: 2},
				{ItemID: itemB.ID, Quantity: 1},
			},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 7, f.quantity(t, itemA.ID))

		require.NoError(t, f.db.Delete(&models.InventoryItem{}, "id = ?", itemB.ID).Error)
		require.NoError(t, f.inventory.Deactivate(ctx, itemA.ID, ""))

		cancelled, err := f.transactions.Cancel(ctx, sale.TransactionID, "returned", "")
		require.NoError(t, err)
		assert.Equal(t, models.TransactionCancelled, cancelled.Status)
		assert.Len(t, cancelled.LineItems, 2)

		assert.Equal(t, 9, f.quantity(t, itemA.ID))
		_, err = f.inventory.GetByID(ctx, itemB.ID)
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})
}

func TestCheckoutLedgerBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "SKU-A", 10, 100)

	_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
		Items: []services.CheckoutLine{
			{ItemID: item.ID, Quantity: 2},
			{ItemID: item.ID, Quantity: 3},
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 5, f.quantity(t, item.ID))

	movements, _, err := f.inventory.Movements(ctx, item.ID, 1, 10)
	require.NoError(t, err)

	balances := map[int]int{}
	for _, m := range movements {
		if m.Type == models.MovementSale {
			balances[m.Amount] = m.Balance
		}
	}
	// Each row carries the balance right after its own line
	assert.Equal(t, map[int]int{-2: 8, -3: 5}, balances)
}

// ============ TEST SCENARIO 2: REJECTED CHECKOUTS ============
func TestCheckoutRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	itemA := f.createItem(t, "SKU-A", 10, 100)
	itemB := f.createItem(t, "SKU-B", 1, 50)

	countTransactions := func(t *testing.T) int64 {
		var n int64
		require.NoError(t, f.db.Model(&models.Transaction{}).Count(&n).Error)
		return n
	}

	t.Run("SC1: Any short line aborts the whole checkout", func(t *testing.T) {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{
				{ItemID: itemA.ID, Quantity: 2},
				{ItemID: itemB.ID, Quantity: 5},
			},
		}, "")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindInsufficientStock))
		assert.Equal(t, "Insufficient stock for Item SKU-B. Available: 1, Requested: 5", err.Error())

		assert.Equal(t, 10, f.quantity(t, itemA.ID))
		assert.Equal(t, 1, f.quantity(t, itemB.ID))
		assert.Equal(t, int64(0), countTransactions(t))
	})

	t.Run("SC2: Repeated lines are checked cumulatively", func(t *testing.T) {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{
				{ItemID: itemA.ID, Quantity: 6},
				{ItemID: itemA.ID, Quantity: 6},
			},
		}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Available: 10, Requested: 12")
		assert.Equal(t, 10, f.quantity(t, itemA.ID))
	})

	t.Run("SC3: Unknown item is not found", func(t *testing.T) {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{{ItemID: uuid.New(), Quantity: 1}},
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("SC4: Inactive item is rejected", func(t *testing.T) {
		inactive := f.createItem(t, "SKU-C", 5, 10)
		require.NoError(t, f.inventory.Deactivate(ctx, inactive.ID, ""))

		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{{ItemID: inactive.ID, Quantity: 1}},
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))
		assert.Equal(t, 5, f.quantity(t, inactive.ID))
	})

	t.Run("SC5: Empty cart and bad quantities fail validation", func(t *testing.T) {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{}, "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))

		_, err = f.transactions.Checkout(ctx, services.CheckoutInput{
			Items: []services.CheckoutLine{{ItemID: itemA.ID, Quantity: 0}},
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))

		_, err = f.transactions.Checkout(ctx, services.CheckoutInput{
			Items:         []services.CheckoutLine{{ItemID: itemA.ID, Quantity: 1}},
			PaymentMethod: "barter",
		}, "")
		assert.True(t, apperror.Is(err, apperror.KindValidation))
		assert.Equal(t, int64(0), countTransactions(t))
	})
}

// ============ TEST SCENARIO 3: CONCURRENT CHECKOUTS ============
func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.transactions.Observers = nil
	ctx := context.Background()

	item := f.createItem(t, "SKU-HOT", 5, 10)

	const buyers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
				Items: []services.CheckoutLine{{ItemID: item.ID, Quantity: 1}},
			}, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperror.Is(err, apperror.KindInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, 0, f.quantity(t, item.ID))

	_, total, err := f.transactions.List(ctx, repositories.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestCartSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	itemA := f.createItem(t, "SKU-A", 3, 40)
	itemB := f.createItem(t, "SKU-B", 10, 15)

	summary, err := f.transactions.CartSummary(ctx, []services.CheckoutLine{
		{ItemID: itemA.ID, Quantity: 5},
		{ItemID: itemB.ID, Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "230.00", summary.TotalAmount.StringFixed(2))
	assert.False(t, summary.CanCheckout)
	assert.False(t, summary.Items[0].InStock)
	assert.Equal(t, 3, summary.Items[0].Available)
	assert.True(t, summary.Items[1].InStock)

	// Nothing was written
	assert.Equal(t, 3, f.quantity(t, itemA.ID))
}

func TestTransactionListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "SKU-A", 50, 10)

	for _, patient := range []string{"Ada Obi", "Bola Ade", "Ada Eze"} {
		_, err := f.transactions.Checkout(ctx, services.CheckoutInput{
			Items:       []services.CheckoutLine{{ItemID: item.ID, Quantity: 1}},
			PatientName: patient,
		}, "")
		require.NoError(t, err)
	}

	transactions, total, err := f.transactions.List(ctx, repositories.TransactionFilter{Search: "ada", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, transactions, 2)

	_, _, err = f.transactions.List(ctx, repositories.TransactionFilter{Status: "VOID"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
