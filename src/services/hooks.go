package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ops/src/apperror"
)

// StockObserver is notified after a commit that changed stock quantity or an
// alert-relevant threshold. Implementations must not fail the caller.
type StockObserver interface {
	StockChanged(ctx context.Context)
}

// DefaultActor is recorded when no authenticated user is available.
const DefaultActor = "admin"

func notifyStockChanged(ctx context.Context, observers []StockObserver) {
	for _, o := range observers {
		o.StockChanged(ctx)
	}
}

func clockOrDefault(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

func loggerOrNop(log *zap.Logger) *zap.Logger {
	if log != nil {
		return log
	}
	return zap.NewNop()
}

func actorOrDefault(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return DefaultActor
	}
	return actor
}

// isUniqueViolation recognises duplicate-key failures from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeError converts gorm errors to typed application errors. Errors that
// are already typed pass through.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s", notFound)
	}
	return apperror.Internal(err, "database error")
}
