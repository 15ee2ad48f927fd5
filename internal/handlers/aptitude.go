package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/services"
)

// AptitudeHandler handles the aptitude question generator endpoints
type AptitudeHandler struct {
	aptitudeService *services.AptitudeService
}

// NewAptitudeHandler creates a new aptitude handler
func NewAptitudeHandler(aptitudeService *services.AptitudeService) *AptitudeHandler {
	return &AptitudeHandler{aptitudeService: aptitudeService}
}

// Topics returns the topic catalogue
// GET /api/aptitude/topics
func (h *AptitudeHandler) Topics(c *fiber.Ctx) error {
	topics := h.aptitudeService.Topics()
	return c.JSON(fiber.Map{
		"topics": topics,
		"min":    services.MinQuestions,
		"max":    services.MaxQuestions,
	})
}

// GenerateRequest is the request body for generating a practice set
type GenerateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Generate produces one practice question set
// POST /api/aptitude/generate
func (h *AptitudeHandler) Generate(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	if m := services.GetMetrics(); m != nil {
		m.ToolRequests.WithLabelValues("aptitude").Inc()
	}

	result, err := h.aptitudeService.Generate(c.Context(), userID, req.Topic, req.Count)
	if err != nil {
		if errors.Is(err, services.ErrQuotaExhausted) {
			return quotaExhaustedResponse(c)
		}
		if errors.Is(err, services.ErrUnknownTopic) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ Aptitude generation failed for %s: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Completion failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"topic":  req.Topic,
		"result": result,
	})
}
