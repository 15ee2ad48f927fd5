package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/database"
	"placementhelper/internal/services"
)

// HealthHandler reports service, database and provider health
type HealthHandler struct {
	db         *database.MongoDB
	completion *services.CompletionService
	startTime  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB, completion *services.CompletionService) *HealthHandler {
	return &HealthHandler{
		db:         db,
		completion: completion,
		startTime:  time.Now(),
	}
}

// Health returns the overall service status
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "up"
	status := "healthy"
	httpStatus := fiber.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "down"
		status = "degraded"
		httpStatus = fiber.StatusServiceUnavailable
	}

	healthy, lastError, lastCheck := h.completion.Status()
	provider := fiber.Map{
		"healthy": healthy,
	}
	if lastError != "" {
		provider["last_error"] = lastError
	}
	if !lastCheck.IsZero() {
		provider["last_check"] = lastCheck.UTC().Format(time.RFC3339)
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"database":  dbStatus,
		"provider":  provider,
	})
}
