package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/services"
)

// CalendarHandler handles the placement calendar endpoints
type CalendarHandler struct {
	calendarService *services.CalendarService
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendarService *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// CalendarEntryRequest is the request body for adding or completing an entry
type CalendarEntryRequest struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Company string `json:"company"`
}

// AddEntry schedules a company under a date
// POST /api/calendar/entries
func (h *CalendarHandler) AddEntry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req CalendarEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.calendarService.AddEntry(c.Context(), userID, req.Date, req.Company); err != nil {
		if errors.Is(err, services.ErrAlreadyScheduled) {
			// Non-fatal: the entry already exists, nothing was changed
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"warning": "Company already added for this date",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Printf("📅 Calendar entry added for %s: %s on %s", userID, req.Company, req.Date)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Company added to calendar",
	})
}

// MarkDone moves a company from pending to completed for a date
// POST /api/calendar/complete
func (h *CalendarHandler) MarkDone(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req CalendarEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.calendarService.MarkDone(c.Context(), userID, req.Date, req.Company); err != nil {
		log.Printf("❌ Failed to mark company done for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update calendar",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Company marked as completed",
	})
}

// Listing returns pending and completed entries grouped by date
// GET /api/calendar
func (h *CalendarHandler) Listing(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	pending, completed, err := h.calendarService.Listing(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load calendar for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load calendar",
		})
	}

	return c.JSON(fiber.Map{
		"pending":   pending,
		"completed": completed,
	})
}
