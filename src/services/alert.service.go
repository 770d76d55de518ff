package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinic-ops/src/apperror"
	"clinic-ops/src/metrics"
	"clinic-ops/src/models"
	"clinic-ops/src/notify"
	"clinic-ops/src/repositories"
)

// ExpiryWindows are the upper bounds, in days, of the three expiry tiers.
type ExpiryWindows struct {
	Critical int
	Warning  int
	Notice   int
}

var DefaultExpiryWindows = ExpiryWindows{Critical: 30, Warning: 60, Notice: 90}

type AlertService struct {
	Repo      *repositories.AlertRepository
	Inventory *repositories.InventoryRepository
	Notifier  notify.Notifier
	Windows   ExpiryWindows
	Log       *zap.Logger
	Now       func() time.Time
}

func (s *AlertService) now() time.Time {
	return clockOrDefault(s.Now)
}

func (s *AlertService) windows() ExpiryWindows {
	if s.Windows == (ExpiryWindows{}) {
		return DefaultExpiryWindows
	}
	return s.Windows
}

// Generate - Scan active items and create the alerts that are missing.
// Existing active alerts are never replaced, even when the item has since
// moved to another tier.
func (s *AlertService) Generate(ctx context.Context) ([]models.Alert, error) {
	now := s.now()

	items, err := s.Inventory.ActiveItems(ctx)
	if err != nil {
		return nil, storeError(err, "")
	}
	active, err := s.Repo.ActiveKeys(ctx)
	if err != nil {
		return nil, storeError(err, "")
	}

	created := []models.Alert{}
	for _, item := range items {
		for _, candidate := range s.Evaluate(item, now) {
			key := repositories.ActiveKey{ItemID: item.ID, Type: candidate.Type}
			if active[key] {
				continue
			}
			alert := candidate
			inserted, err := s.Repo.CreateIfAbsent(ctx, &alert)
			if err != nil {
				return created, storeError(err, "")
			}
			active[key] = true
			if !inserted {
				continue
			}
			created = append(created, alert)
			metrics.AlertsGenerated.WithLabelValues(string(alert.Type)).Inc()
		}
	}

	if len(created) > 0 {
		loggerOrNop(s.Log).Info("alerts generated", zap.Int("count", len(created)))
		s.notifyCritical(ctx, created)
	}
	return created, nil
}

// Evaluate returns the alerts an item warrants at now, at most one stock
// alert and one expiry alert.
func (s *AlertService) Evaluate(item models.InventoryItem, now time.Time) []models.Alert {
	var alerts []models.Alert
	build := func(t models.AlertType, sev models.Severity, msg string) models.Alert {
		return models.Alert{
			Type:            t,
			Severity:        sev,
			InventoryItemID: item.ID,
			ItemName:        item.ItemName,
			Message:         msg,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	switch {
	case item.Quantity == 0:
		alerts = append(alerts, build(models.AlertOutOfStock, models.SeverityCritical,
			fmt.Sprintf("%s is out of stock", item.ItemName)))
	case item.Quantity <= item.MinimumStock:
		alerts = append(alerts, build(models.AlertLowStock, models.SeverityWarning,
			fmt.Sprintf("%s is low on stock (%d remaining)", item.ItemName, item.Quantity)))
	}

	if item.ExpirationDate == nil || item.ExpirationDate.Before(now) {
		return alerts
	}
	days := DaysUntil(now, *item.ExpirationDate)
	w := s.windows()
	var t models.AlertType
	var sev models.Severity
	switch {
	case days <= w.Critical:
		t, sev = models.AlertExpiryCritical, models.SeverityCritical
	case days <= w.Warning:
		t, sev = models.AlertExpiryWarning, models.SeverityWarning
	case days <= w.Notice:
		t, sev = models.AlertExpiryNotice, models.SeverityNotice
	default:
		return alerts
	}
	alerts = append(alerts, build(t, sev, fmt.Sprintf("%s expires in %d days (%s)",
		item.ItemName, days, item.ExpirationDate.Format("2006-01-02"))))
	return alerts
}

// DaysUntil rounds the remaining time up to whole days.
func DaysUntil(now, at time.Time) int {
	return int(math.Ceil(at.Sub(now).Hours() / 24))
}

// StockChanged runs a scan after inventory writes. Failures are logged only.
func (s *AlertService) StockChanged(ctx context.Context) {
	if _, err := s.Generate(ctx); err != nil {
		loggerOrNop(s.Log).Error("alert regeneration failed", zap.Error(err))
	}
}

// MarkRead - Flag an alert as read
func (s *AlertService) MarkRead(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return nil, storeError(err, "Alert not found")
	}
	if err := s.Repo.MarkRead(ctx, id, s.now()); err != nil {
		return nil, storeError(err, "Alert not found")
	}
	alert, err := s.Repo.GetByID(ctx, id)
	return alert, storeError(err, "Alert not found")
}

// Dismiss - Flag an alert as dismissed; it need not be read first
func (s *AlertService) Dismiss(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return nil, storeError(err, "Alert not found")
	}
	if err := s.Repo.Dismiss(ctx, id, s.now()); err != nil {
		return nil, storeError(err, "Alert not found")
	}
	alert, err := s.Repo.GetByID(ctx, id)
	return alert, storeError(err, "Alert not found")
}

func (s *AlertService) List(ctx context.Context, filter repositories.AlertFilter) ([]models.Alert, error) {
	if filter.Severity != "" {
		switch models.Severity(filter.Severity) {
		case models.SeverityCritical, models.SeverityWarning, models.SeverityNotice:
		default:
			return nil, apperror.Validation("Invalid severity %q", filter.Severity)
		}
	}
	alerts, err := s.Repo.List(ctx, filter)
	return alerts, storeError(err, "")
}

func (s *AlertService) Stats(ctx context.Context) (*repositories.AlertStats, error) {
	stats, err := s.Repo.Stats(ctx)
	return stats, storeError(err, "")
}

func (s *AlertService) notifyCritical(ctx context.Context, created []models.Alert) {
	if s.Notifier == nil {
		return
	}
	var critical []models.Alert
	for _, a := range created {
		if a.Severity == models.SeverityCritical {
			critical = append(critical, a)
		}
	}
	if len(critical) == 0 {
		return
	}
	if err := s.Notifier.NotifyAlerts(ctx, critical); err != nil {
		loggerOrNop(s.Log).Warn("alert notification failed", zap.Error(err))
	}
}
