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

type TransactionRepository struct {
	DB *gorm.DB
}

type TransactionFilter struct {
	Status    string
	Search    string
	PatientID string
	From      time.Time
	To        time.Time
	Page      int
	Limit     int
}

type TransactionStats struct {
	TotalTransactions int64           `json:"total_transactions"`
	Completed         int64           `json:"completed"`
	Cancelled         int64           `json:"cancelled"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CancelledAmount   decimal.Decimal `json:"cancelled_amount"`
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{DB: tx}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Get - Find by primary key or by transaction_id
func (r *TransactionRepository) Get(ctx context.Context, ref string) (*models.Transaction, error) {
	return r.get(r.DB.WithContext(ctx), ref)
}

// GetForUpdate - Same as Get with a row lock on the transaction
func (r *TransactionRepository) GetForUpdate(ctx context.Context, ref string) (*models.Transaction, error) {
	return r.get(r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ref)
}

func (r *TransactionRepository) get(db *gorm.DB, ref string) (*models.Transaction, error) {
	var txn models.Transaction
	query := db.Preload("LineItems", orderedLines)
	if id, err := uuid.Parse(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("transaction_id = ?", ref)
	}
	if err := query.First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create - Insert the transaction then its line items
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	db := r.DB.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(txn).Error; err != nil {
		return err
	}
	for i := range txn.LineItems {
		txn.LineItems[i].TxnID = txn.ID
	}
	if len(txn.LineItems) == 0 {
		return nil
	}
	return db.Create(&txn.LineItems).Error
}

// MarkCancelled - Flip COMPLETED to CANCELLED; false if it was not COMPLETED
func (r *TransactionRepository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time, reason, actor string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionCompleted).
		UpdateColumns(map[string]interface{}{
			"status":              models.TransactionCancelled,
			"cancelled_at":        at,
			"cancellation_reason": reason,
			"cancelled_by":        actor,
			"updated_at":          at,
		})
	return result.RowsAffected == 1, result.Error
}

// MarkPrinted - Record a successful receipt print
func (r *TransactionRepository) MarkPrinted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"receipt_printed": true,
			"printed_at":      at,
		}).Error
}

func (r *TransactionRepository) filtered(ctx context.Context, filter TransactionFilter) *gorm.DB {
	query := r.DB.WithContext(ctx).Model(&models.Transaction{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(transaction_id) LIKE ? OR LOWER(patient_name) LIKE ? OR LOWER(patient_id) LIKE ? OR LOWER(prescription_number) LIKE ?",
			like, like, like, like,
		)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}
	return query
}

// List - Get transactions, newest first, with pagination
func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	err := query.
		Preload("LineItems", orderedLines).
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset((page - 1) * filter.Limit).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// Stats - Count and sum transactions per status in [from, to]
func (r *TransactionRepository) Stats(ctx context.Context, from, to time.Time) (*TransactionStats, error) {
	var rows []struct {
		Status string
		Count  int64
		Total  decimal.NullDecimal
	}
	err := r.filtered(ctx, TransactionFilter{From: from, To: to}).
		Select("status, COUNT(*) AS count, SUM(total_amount) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &TransactionStats{TotalRevenue: decimal.Zero, CancelledAmount: decimal.Zero}
	for _, row := range rows {
		stats.TotalTransactions += row.Count
		total := decimal.Zero
		if row.Total.Valid {
			total = row.Total.Decimal.Round(2)
		}
		switch models.TransactionStatus(row.Status) {
		case models.TransactionCompleted:
			stats.Completed = row.Count
			stats.TotalRevenue = total
		case models.TransactionCancelled:
			stats.Cancelled = row.Count
			stats.CancelledAmount = total
		}
	}
	return stats, nil
}

// Range - Every transaction created in [from, to], newest first, with lines
func (r *TransactionRepository) Range(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.filtered(ctx, TransactionFilter{From: from, To: to}).
		Preload("LineItems", orderedLines).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

// Recent - The latest n transactions without lines
func (r *TransactionRepository) Recent(ctx context.Context, n int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(n).
		Find(&transactions).Error
	return transactions, err
}
