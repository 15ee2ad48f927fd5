package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"placementhelper/internal/services"
)

// HealthChecker periodically probes the completion provider so the /health
// endpoint reflects provider state even when no user is active.
type HealthChecker struct {
	scheduler  gocron.Scheduler
	completion *services.CompletionService
	interval   time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(completion *services.CompletionService, interval time.Duration) (*HealthChecker, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &HealthChecker{
		scheduler:  scheduler,
		completion: completion,
		interval:   interval,
	}, nil
}

// Start schedules the periodic probe and runs the scheduler
func (h *HealthChecker) Start() error {
	_, err := h.scheduler.NewJob(
		gocron.DurationJob(h.interval),
		gocron.NewTask(h.probe),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule health probe: %w", err)
	}

	h.scheduler.Start()
	log.Printf("🏥 Provider health checks scheduled every %v", h.interval)
	return nil
}

func (h *HealthChecker) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.completion.CheckHealth(ctx); err != nil {
		log.Printf("⚠️ Provider health probe failed: %v", err)
	}
}

// Stop shuts the scheduler down
func (h *HealthChecker) Stop() {
	if err := h.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ Failed to shut down health scheduler: %v", err)
	}
}
