package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
	"clinic-ops/src/services"
	"clinic-ops/src/testutil"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyAlerts(ctx context.Context, alerts []models.Alert) error {
	args := m.Called(ctx, alerts)
	return args.Error(0)
}

type fixture struct {
	db           *gorm.DB
	clock        *testutil.FixedClock
	notifier     *notifierMock
	inventory    *services.InventoryService
	transactions *services.TransactionService
	alerts       *services.AlertService
	billing      *services.BillingService
	reports      *services.ReportService
}

// newFixture wires every service on a fresh database. Stock-changing services
// notify the alert service after commit, as in production.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := testutil.NewClock(baseTime)
	notifier := &notifierMock{}
	notifier.On("NotifyAlerts", mock.Anything, mock.Anything).Return(nil).Maybe()

	inventoryRepo := &repositories.InventoryRepository{DB: db}
	transactionRepo := &repositories.TransactionRepository{DB: db}
	alertRepo := &repositories.AlertRepository{DB: db}

	alerts := &services.AlertService{
		Repo:      alertRepo,
		Inventory: inventoryRepo,
		Notifier:  notifier,
		Now:       clock.Now,
	}
	observers := []services.StockObserver{alerts}

	return &fixture{
		db:       db,
		clock:    clock,
		notifier: notifier,
		inventory: &services.InventoryService{
			DB:        db,
			Repo:      inventoryRepo,
			Observers: observers,
			Now:       clock.Now,
		},
		transactions: &services.TransactionService{
			DB:        db,
			Repo:      transactionRepo,
			Inventory: inventoryRepo,
			Observers: observers,
			Now:       clock.Now,
		},
		alerts: alerts,
		billing: &services.BillingService{
			DB:         db,
			Repo:       &repositories.BillRepository{DB: db},
			Inventory:  inventoryRepo,
			Procedures: &repositories.ProcedureRepository{DB: db},
			Observers:  observers,
			Now:        clock.Now,
		},
		reports: &services.ReportService{
			Inventory:    inventoryRepo,
			Transactions: transactionRepo,
			Alerts:       alertRepo,
			Now:          clock.Now,
		},
	}
}

// createItem adds an active item with the given stock and selling price.
func (f *fixture) createItem(t *testing.T, sku string, qty int, price int64, opts ...func(*services.CreateItemInput)) *models.InventoryItem {
	t.Helper()
	in := services.CreateItemInput{
		ItemName:     "Item " + sku,
		SKU:          sku,
		Category:     string(models.CategoryMedication),
		Quantity:     qty,
		UnitPrice:    decimal.NewFromInt(price / 2),
		SellingPrice: decimal.NewFromInt(price),
	}
	for _, opt := range opts {
		opt(&in)
	}
	item, err := f.inventory.Create(context.Background(), in, "tester")
	require.NoError(t, err)
	return item
}

func withMinimum(n int) func(*services.CreateItemInput) {
	return func(in *services.CreateItemInput) { in.MinimumStock = &n }
}

func withExpiry(at time.Time) func(*services.CreateItemInput) {
	return func(in *services.CreateItemInput) { in.ExpirationDate = &at }
}

func withName(name string) func(*services.CreateItemInput) {
	return func(in *services.CreateItemInput) { in.ItemName = name }
}

func (f *fixture) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	item, err := f.inventory.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func (f *fixture) activeAlerts(t *testing.T, itemID uuid.UUID) []models.Alert {
	t.Helper()
	var alerts []models.Alert
	require.NoError(t, f.db.
		Where("inventory_item_id = ? AND is_read = ? AND is_dismissed = ?", itemID, false, false).
		Order("type ASC").
		Find(&alerts).Error)
	return alerts
}

func alertTypes(alerts []models.Alert) []models.AlertType {
	types := make([]models.AlertType, len(alerts))
	for i, a := range alerts {
		types[i] = a.Type
	}
	return types
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func decPtr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}
