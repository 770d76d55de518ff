package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clinic-ops/src/models"
)

// Async delivers through Next on a separate goroutine with its own timeout.
// Failures are logged.
type Async struct {
	Next    Notifier
	Log     *zap.Logger
	Timeout time.Duration
}

func (a *Async) NotifyAlerts(_ context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	batch := append([]models.Alert(nil), alerts...)
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.Next.NotifyAlerts(ctx, batch); err != nil && a.Log != nil {
			a.Log.Warn("alert email failed", zap.Int("alerts", len(batch)), zap.Error(err))
		}
	}()
	return nil
}
