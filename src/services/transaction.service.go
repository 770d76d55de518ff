package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ops/src/apperror"
	"clinic-ops/src/metrics"
	"clinic-ops/src/models"
	"clinic-ops/src/receipt"
	"clinic-ops/src/repositories"
)

// ============ REQUEST STRUCTS ============
type CheckoutLine struct {
	ItemID   uuid.UUID
	Quantity int
}

type CheckoutInput struct {
	Items              []CheckoutLine
	PaymentMethod      string
	PatientName        string
	PatientID          string
	PrescriptionNumber string
	Notes              string
}

type CartLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ItemName  string          `json:"item_name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	InStock   bool            `json:"in_stock"`
}

type CartSummary struct {
	Items       []CartLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CanCheckout bool            `json:"can_checkout"`
}

// ============ TRANSACTION SERVICE ============
type TransactionService struct {
	DB        *gorm.DB
	Repo      *repositories.TransactionRepository
	Inventory *repositories.InventoryRepository
	Log       *zap.Logger
	Observers []StockObserver
	Now       func() time.Time
}

func (s *TransactionService) now() time.Time {
	return clockOrDefault(s.Now)
}

// NewTransactionID formats TXN-<unix millis>-<8 hex chars>.
func NewTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix)
}

// ============ CHECKOUT ============

// Checkout - Decrement stock for every line and record one COMPLETED
// transaction. Either everything commits or nothing does.
func (s *TransactionService) Checkout(ctx context.Context, in CheckoutInput, actor string) (*models.Transaction, error) {
	if err := validateCheckout(in); err != nil {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	payment := models.PaymentCash
	if in.PaymentMethod != "" {
		payment = models.PaymentMethod(in.PaymentMethod)
	}

	now := s.now()
	var txn *models.Transaction

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inventory := s.Inventory.WithTx(tx)

		items, err := inventory.LockItems(ctx, distinctItemIDs(in.Items))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.InventoryItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}

		requested := make(map[uuid.UUID]int, len(in.Items))
		for _, line := range in.Items {
			item, ok := byID[line.ItemID]
			if !ok {
				return apperror.NotFound("Item not found: %s", line.ItemID)
			}
			if !item.IsActive {
				return apperror.Validation("Item is not active: %s", item.ItemName)
			}
			requested[line.ItemID] += line.Quantity
			if item.Quantity < requested[line.ItemID] {
				return apperror.InsufficientStock(
					"Insufficient stock for %s. Available: %d, Requested: %d",
					item.ItemName, item.Quantity, requested[line.ItemID])
			}
		}

		txn = &models.Transaction{
			ID:                 uuid.New(),
			TransactionID:      NewTransactionID(now),
			Status:             models.TransactionCompleted,
			PaymentMethod:      payment,
			PatientName:        in.PatientName,
			PatientID:          in.PatientID,
			PrescriptionNumber: in.PrescriptionNumber,
			Notes:              in.Notes,
			CreatedBy:          actorOrDefault(actor),
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		for i, line := range in.Items {
			item := byID[line.ItemID]

			ok, err := inventory.Decrement(ctx, item.ID, line.Quantity, now)
			if err != nil {
				return err
			}
			if !ok {
				available, err := inventory.CurrentQuantity(ctx, item.ID)
				if err != nil {
					return err
				}
				return apperror.InsufficientStock(
					"Insufficient stock for %s. Available: %d, Requested: %d",
					item.ItemName, available, line.Quantity)
			}

			subtotal := item.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			txn.LineItems = append(txn.LineItems, models.TransactionLineItem{
				Position:        i,
				InventoryItemID: item.ID,
				ItemName:        item.ItemName,
				SKU:             item.SKU,
				Barcode:         item.Barcode,
				BatchNumber:     item.BatchNumber,
				Quantity:        line.Quantity,
				UnitPrice:       item.SellingPrice,
				Subtotal:        subtotal,
			})

			// Balance is read right after this line's own decrement
			if err := inventory.RecordMovement(ctx, &models.StockMovement{
				InventoryItemID: item.ID,
				Amount:          -line.Quantity,
				Type:            models.MovementSale,
				RefID:           &txn.ID,
				CreatedBy:       txn.CreatedBy,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}
		txn.TotalAmount = txn.LineTotal()

		return s.Repo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			metrics.CheckoutsTotal.WithLabelValues("failed").Inc()
			loggerOrNop(s.Log).Error("checkout failed", zap.Error(err))
		} else {
			metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, storeError(err, "Item not found")
	}

	metrics.CheckoutsTotal.WithLabelValues("completed").Inc()
	loggerOrNop(s.Log).Info("checkout completed",
		zap.String("transaction_id", txn.TransactionID),
		zap.Int("lines", len(txn.LineItems)),
		zap.String("total", txn.TotalAmount.StringFixed(2)),
	)
	notifyStockChanged(ctx, s.Observers)
	return txn, nil
}

// CartSummary - Price a prospective checkout without writing anything
func (s *TransactionService) CartSummary(ctx context.Context, lines []CheckoutLine) (*CartSummary, error) {
	summary := &CartSummary{Items: []CartLine{}, TotalAmount: decimal.Zero, CanCheckout: len(lines) > 0}

	for _, line := range lines {
		item, err := s.Inventory.GetByID(ctx, line.ItemID)
		if err != nil {
			return nil, storeError(err, fmt.Sprintf("Item not found: %s", line.ItemID))
		}
		subtotal := item.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		inStock := item.IsActive && line.Quantity > 0 && item.Quantity >= line.Quantity
		summary.Items = append(summary.Items, CartLine{
			ItemID:    item.ID,
			ItemName:  item.ItemName,
			SKU:       item.SKU,
			Quantity:  line.Quantity,
			Available: item.Quantity,
			UnitPrice: item.SellingPrice,
			Subtotal:  subtotal,
			InStock:   inStock,
		})
		summary.TotalAmount = summary.TotalAmount.Add(subtotal)
		if !inStock {
			summary.CanCheckout = false
		}
	}
	return summary, nil
}

// ============ CANCEL ============

// Cancel - Restore stock for every line and flip the status to CANCELLED.
// Line items and totals are left as recorded.
func (s *TransactionService) Cancel(ctx context.Context, ref, reason, actor string) (*models.Transaction, error) {
	now := s.now()
	actor = actorOrDefault(actor)
	var txn *models.Transaction

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		inventory := s.Inventory.WithTx(tx)

		var err error
		txn, err = repo.GetForUpdate(ctx, ref)
		if err != nil {
			return storeError(err, "Transaction not found")
		}
		if txn.Status == models.TransactionCancelled {
			return apperror.Conflict("Transaction already cancelled")
		}

		for _, line := range txn.LineItems {
			restored, err := inventory.Increment(ctx, line.InventoryItemID, line.Quantity, now)
			if err != nil {
				return err
			}
			if !restored {
				loggerOrNop(s.Log).Warn("cancelled line references a missing item",
					zap.String("transaction_id", txn.TransactionID),
					zap.String("item_id", line.InventoryItemID.String()),
				)
				continue
			}
			if err := inventory.RecordMovement(ctx, &models.StockMovement{
				InventoryItemID: line.InventoryItemID,
				Amount:          line.Quantity,
				Type:            models.MovementSaleCancel,
				RefID:           &txn.ID,
				Reason:          optionalString(reason),
				CreatedBy:       actor,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}

		flipped, err := repo.MarkCancelled(ctx, txn.ID, now, reason, actor)
		if err != nil {
			return err
		}
		if !flipped {
			return apperror.Conflict("Transaction already cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "Transaction not found")
	}

	txn.Status = models.TransactionCancelled
	txn.CancelledAt = &now
	txn.CancellationReason = &reason
	txn.CancelledBy = &actor
	txn.UpdatedAt = now

	metrics.TransactionsCancelled.Inc()
	loggerOrNop(s.Log).Info("transaction cancelled",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("actor", actor),
	)
	notifyStockChanged(ctx, s.Observers)
	return txn, nil
}

// ============ QUERIES ============

func (s *TransactionService) Get(ctx context.Context, ref string) (*models.Transaction, error) {
	txn, err := s.Repo.Get(ctx, ref)
	if err != nil {
		return nil, storeError(err, "Transaction not found")
	}
	return txn, nil
}

func (s *TransactionService) List(ctx context.Context, filter repositories.TransactionFilter) ([]models.Transaction, int64, error) {
	if filter.Status != "" &&
		filter.Status != string(models.TransactionCompleted) &&
		filter.Status != string(models.TransactionCancelled) {
		return nil, 0, apperror.Validation("Invalid status %q", filter.Status)
	}
	transactions, total, err := s.Repo.List(ctx, filter)
	return transactions, total, storeError(err, "")
}

// Stats - Totals per status; zero times leave the range open
func (s *TransactionService) Stats(ctx context.Context, from, to time.Time) (*repositories.TransactionStats, error) {
	stats, err := s.Repo.Stats(ctx, from, to)
	return stats, storeError(err, "")
}

// DailySummary - Stats for the UTC calendar day containing day
func (s *TransactionService) DailySummary(ctx context.Context, day time.Time) (*repositories.TransactionStats, error) {
	if day.IsZero() {
		day = s.now()
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return s.Stats(ctx, start, end)
}

// MarkPrinted - Send the receipt to the printer and record success. A
// printer failure leaves the transaction untouched.
func (s *TransactionService) MarkPrinted(ctx context.Context, ref string, printer receipt.Printer, clinic receipt.Clinic) (*models.Transaction, error) {
	txn, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := printer.Print(ctx, receipt.RenderTransaction(clinic, txn)); err != nil {
		loggerOrNop(s.Log).Warn("receipt printing failed",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err),
		)
		return nil, apperror.Internal(err, "Failed to print receipt")
	}

	now := s.now()
	if err := s.Repo.MarkPrinted(ctx, txn.ID, now); err != nil {
		return nil, storeError(err, "Transaction not found")
	}
	txn.ReceiptPrinted = true
	txn.PrintedAt = &now
	return txn, nil
}

// ============ PRIVATE HELPER METHODS ============

func validateCheckout(in CheckoutInput) error {
	if len(in.Items) == 0 {
		return apperror.Validation("At least one item is required")
	}
	for _, line := range in.Items {
		if line.ItemID == uuid.Nil {
			return apperror.Validation("Item id is required")
		}
		if line.Quantity < 1 {
			return apperror.Validation("Quantity must be at least 1")
		}
	}
	if in.PaymentMethod != "" && !models.PaymentMethod(in.PaymentMethod).Valid() {
		return apperror.Validation("Invalid payment method %q", in.PaymentMethod)
	}
	return nil
}

func distinctItemIDs(lines []CheckoutLine) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			ids = append(ids, line.ItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
