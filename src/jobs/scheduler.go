package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"clinic-ops/src/models"
)

// AlertScanner is the part of the alert service the scheduler drives.
type AlertScanner interface {
	Generate(ctx context.Context) ([]models.Alert, error)
}

type Scheduler struct {
	cron    *gocron.Scheduler
	scanner AlertScanner
	log     *zap.Logger
}

// NewScheduler registers the alert scan every interval (when positive) and
// once a day at dailyAt ("HH:MM", UTC, when not empty).
func NewScheduler(scanner AlertScanner, interval time.Duration, dailyAt string, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		scanner: scanner,
		log:     log,
	}
	s.cron.SingletonModeAll()

	if interval > 0 {
		if _, err := s.cron.Every(interval).Tag("alert-scan").Do(s.scan, "interval"); err != nil {
			return nil, err
		}
	}
	if dailyAt != "" {
		if _, err := s.cron.Every(1).Day().At(dailyAt).Tag("alert-scan-daily").Do(s.scan, "daily"); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) scan(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	created, err := s.scanner.Generate(ctx)
	if err != nil {
		s.log.Error("scheduled alert scan failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	s.log.Info("scheduled alert scan", zap.String("trigger", trigger), zap.Int("created", len(created)))
}

// Jobs reports the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Jobs())
}

func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
