package services

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	bookingSvc *BookingService
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(bookingSvc *BookingService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		bookingSvc: bookingSvc,
		logger:     logger,
	}
}

// Start schedules the background jobs and starts the scheduler
func (s *CronService) Start() error {
	// Cron format: second minute hour day month weekday.
	// Sweep expired holds every 30 seconds; the claim path also releases
	// stale holds inline, so a missed sweep is never user-visible.
	_, err := s.cron.AddFunc("*/30 * * * * *", s.releaseExpiredHoldsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule hold expiry sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) releaseExpiredHoldsJob() {
	s.bookingSvc.ReleaseExpiredHolds()
}
