package handlers

import "github.com/gofiber/fiber/v2"

// quotaExhaustedResponse is the shared non-fatal provider-quota response.
// The client should keep the page usable and let the user retry later.
func quotaExhaustedResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":     "Completion quota exhausted. Please try again later.",
		"retryable": true,
	})
}
