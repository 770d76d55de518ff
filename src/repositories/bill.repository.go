package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-ops/src/models"
)

type BillRepository struct {
	DB *gorm.DB
}

type BillFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (r *BillRepository) WithTx(tx *gorm.DB) *BillRepository {
	return &BillRepository{DB: tx}
}

// Get - Find by primary key or by bill_number, with lines
func (r *BillRepository) Get(ctx context.Context, ref string) (*models.Bill, error) {
	return r.get(r.DB.WithContext(ctx), ref)
}

// GetForUpdate - Same as Get with a row lock on the bill
func (r *BillRepository) GetForUpdate(ctx context.Context, ref string) (*models.Bill, error) {
	return r.get(r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ref)
}

func (r *BillRepository) get(db *gorm.DB, ref string) (*models.Bill, error) {
	var bill models.Bill
	query := db.
		Preload("Drugs", orderedLines).
		Preload("Procedures", orderedLines)
	if id, err := uuid.Parse(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("bill_number = ?", ref)
	}
	if err := query.First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// LatestNumber - Highest bill number starting with prefix, "" when none
func (r *BillRepository) LatestNumber(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.DB.WithContext(ctx).Model(&models.Bill{}).
		Where("bill_number LIKE ?", prefix+"%").
		Order("bill_number DESC").
		Limit(1).
		Pluck("bill_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

// Create - Insert the bill and its lines
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	db := r.DB.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(bill).Error; err != nil {
		return err
	}
	return r.insertLines(db, bill)
}

// Save - Update the bill row and replace its lines
func (r *BillRepository) Save(ctx context.Context, bill *models.Bill) error {
	db := r.DB.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(bill).Error; err != nil {
		return err
	}
	if err := r.deleteLines(db, bill.ID); err != nil {
		return err
	}
	return r.insertLines(db, bill)
}

// UpdateFields - Write selected columns without touching lines
func (r *BillRepository) UpdateFields(ctx context.Context, bill *models.Bill, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(bill).Omit(clause.Associations).Updates(fields).Error
}

// Delete - Remove the bill and its lines
func (r *BillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB.WithContext(ctx)
	if err := r.deleteLines(db, id); err != nil {
		return err
	}
	return db.Delete(&models.Bill{}, "id = ?", id).Error
}

// List - Bills newest first with pagination
func (r *BillRepository) List(ctx context.Context, filter BillFilter) ([]models.Bill, int64, error) {
	var bills []models.Bill
	var total int64

	query := r.DB.WithContext(ctx).Model(&models.Bill{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(bill_number) LIKE ? OR LOWER(patient_name) LIKE ? OR LOWER(patient_id) LIKE ?",
			like, like, like,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := query.
		Preload("Drugs", orderedLines).
		Preload("Procedures", orderedLines).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&bills).Error
	if err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

func (r *BillRepository) deleteLines(db *gorm.DB, billID uuid.UUID) error {
	if err := db.Where("bill_id = ?", billID).Delete(&models.BillDrugLine{}).Error; err != nil {
		return err
	}
	return db.Where("bill_id = ?", billID).Delete(&models.BillProcedureLine{}).Error
}

func (r *BillRepository) insertLines(db *gorm.DB, bill *models.Bill) error {
	for i := range bill.Drugs {
		bill.Drugs[i].ID = uuid.Nil
		bill.Drugs[i].BillID = bill.ID
		bill.Drugs[i].Position = i
	}
	for i := range bill.Procedures {
		bill.Procedures[i].ID = uuid.Nil
		bill.Procedures[i].BillID = bill.ID
		bill.Procedures[i].Position = i
	}
	if len(bill.Drugs) > 0 {
		if err := db.Create(&bill.Drugs).Error; err != nil {
			return err
		}
	}
	if len(bill.Procedures) > 0 {
		if err := db.Create(&bill.Procedures).Error; err != nil {
			return err
		}
	}
	return nil
}
