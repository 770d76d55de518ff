package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-ops/src/models"
)

type AlertRepository struct {
	DB *gorm.DB
}

type AlertFilter struct {
	Severity         string
	Type             string
	UnreadOnly       bool
	IncludeDismissed bool
	Limit            int
}

type AlertStats struct {
	Critical int64 `json:"critical"`
	Warning  int64 `json:"warning"`
	Notice   int64 `json:"notice"`
	Total    int64 `json:"total"`
}

// ActiveKey identifies the single active alert slot of an item.
type ActiveKey struct {
	ItemID uuid.UUID
	Type   models.AlertType
}

const severityRank = "CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END"

// ActiveKeys - Set of (item, type) pairs that already have an active alert
func (r *AlertRepository) ActiveKeys(ctx context.Context) (map[ActiveKey]bool, error) {
	var rows []struct {
		InventoryItemID uuid.UUID
		Type            string
	}
	err := r.DB.WithContext(ctx).Model(&models.Alert{}).
		Select("inventory_item_id, type").
		Where("is_read = ? AND is_dismissed = ?", false, false).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make(map[ActiveKey]bool, len(rows))
	for _, row := range rows {
		keys[ActiveKey{ItemID: row.InventoryItemID, Type: models.AlertType(row.Type)}] = true
	}
	return keys, nil
}

// CreateIfAbsent - Insert unless an active alert for the same item and type
// exists. Returns false when the insert was skipped.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *models.Alert) (bool, error) {
	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(alert)
	return result.RowsAffected == 1, result.Error
}

// GetByID - Get one alert
func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := r.DB.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// MarkRead - Set is_read once, keeping the first read_at
func (r *AlertRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_read = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		}).Error
}

// Dismiss - Set is_dismissed once, keeping the first dismissed_at
func (r *AlertRepository) Dismiss(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND is_dismissed = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"is_dismissed": true,
			"dismissed_at": at,
			"updated_at":   at,
		}).Error
}

// List - Alerts ordered by severity rank, newest first
func (r *AlertRepository) List(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := r.DB.WithContext(ctx).Model(&models.Alert{})

	if !filter.IncludeDismissed {
		query = query.Where("is_dismissed = ?", false)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var alerts []models.Alert
	err := query.
		Order(severityRank).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

// Stats - Undismissed alerts grouped by severity
func (r *AlertRepository) Stats(ctx context.Context) (*AlertStats, error) {
	var rows []struct {
		Severity string
		Count    int64
	}
	err := r.DB.WithContext(ctx).Model(&models.Alert{}).
		Select("severity, COUNT(*) AS count").
		Where("is_dismissed = ?", false).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &AlertStats{}
	for _, row := range rows {
		switch models.Severity(row.Severity) {
		case models.SeverityCritical:
			stats.Critical = row.Count
		case models.SeverityWarning:
			stats.Warning = row.Count
		case models.SeverityNotice:
			stats.Notice = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}
