package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/models"
	"placementhelper/internal/services"
)

// StateHandler exposes the full per-user working state, so the client can
// restore all tool panes (last results, calendar, chat sidebar) after login.
type StateHandler struct {
	stateService *services.StateService
}

// NewStateHandler creates a new state handler
func NewStateHandler(stateService *services.StateService) *StateHandler {
	return &StateHandler{stateService: stateService}
}

// GetState returns a snapshot of the user's working state
// GET /api/state
func (h *StateHandler) GetState(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// Deep copy under the lock; the marshal below runs after it is released
	// and must not alias the live maps.
	var snapshot *models.UserState
	err := h.stateService.WithState(c.Context(), userID, func(st *models.UserState) error {
		snapshot = st.Clone()
		return nil
	})
	if err != nil {
		log.Printf("❌ Failed to load state for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load saved data",
		})
	}

	return c.JSON(snapshot)
}
