package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-ops/src/models"
)

type ProcedureRepository struct {
	DB *gorm.DB
}

func (r *ProcedureRepository) WithTx(tx *gorm.DB) *ProcedureRepository {
	return &ProcedureRepository{DB: tx}
}

func (r *ProcedureRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Procedure, error) {
	var procedure models.Procedure
	if err := r.DB.WithContext(ctx).First(&procedure, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &procedure, nil
}

// ListActive - Active procedures, optionally filtered by name or category
func (r *ProcedureRepository) ListActive(ctx context.Context, search string) ([]models.Procedure, error) {
	query := r.DB.WithContext(ctx).Where("is_active = ?", true)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", like, like)
	}

	var procedures []models.Procedure
	err := query.Order("category ASC, name ASC").Find(&procedures).Error
	return procedures, err
}

// NameTaken - Case-insensitive name check across the whole catalog
func (r *ProcedureRepository) NameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Procedure{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

func (r *ProcedureRepository) Create(ctx context.Context, procedure *models.Procedure) error {
	return r.DB.WithContext(ctx).Create(procedure).Error
}

func (r *ProcedureRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Procedure{}).Count(&count).Error
	return count, err
}

// Upsert - Insert the procedure unless one with the same name exists
func (r *ProcedureRepository) Upsert(ctx context.Context, procedure *models.Procedure) error {
	return r.DB.WithContext(ctx).
		Where("name = ?", procedure.Name).
		FirstOrCreate(procedure).Error
}
