package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
)

// ExpiryService cancels stale orders that were never paid, so abandoned
// checkouts do not linger as PENDING forever.
type ExpiryService struct {
	db        *gorm.DB
	maxAge    time.Duration
	scheduler gocron.Scheduler
}

// NewExpiryService constructs an ExpiryService.
func NewExpiryService(db *gorm.DB, maxAge time.Duration) *ExpiryService {
	return &ExpiryService{db: db, maxAge: maxAge}
}

// Start schedules the hourly expiry sweep.
func (s *ExpiryService) Start() {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Expiry] failed to create scheduler: %v", err)
		return
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.ExpireStaleOrders),
	)
	if err != nil {
		log.Printf("[Expiry] failed to schedule job: %v", err)
		return
	}

	s.scheduler = scheduler
	scheduler.Start()
	log.Printf("[Expiry] stale-order sweep scheduled (hourly, max age %s)", s.maxAge)
}

// Stop shuts the scheduler down.
func (s *ExpiryService) Stop() {
	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}

// ExpireStaleOrders cancels PENDING, unpaid orders older than the max age.
// Only PENDING orders qualify, so the sweep never touches terminal states.
func (s *ExpiryService) ExpireStaleOrders() {
	cutoff := time.Now().Add(-s.maxAge)

	result := s.db.Model(&models.Order{}).
		Where("status = ? AND payment_status IN ? AND placed_at < ?",
			models.OrderStatusPending,
			[]string{models.PaymentStatusPending, models.PaymentStatusFailed}, cutoff).
		Update("status", models.OrderStatusCancelled)

	if result.Error != nil {
		log.Printf("[Expiry] sweep failed: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("[Expiry] cancelled %d stale unpaid orders", result.RowsAffected)
	}
}
