package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/logging"
	"placementhelper/internal/services"
)

// ChatHandler handles the conversational assistant endpoints
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatMessageRequest is the request body for sending a chat message
type ChatMessageRequest struct {
	Session string `json:"session"` // empty starts a new session
	Message string `json:"message"`
}

// SendMessage sends one message and returns the assistant's reply
// POST /api/chat/message
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	if m := services.GetMetrics(); m != nil {
		m.ToolRequests.WithLabelValues("chat").Inc()
	}

	reply, session, err := h.chatService.SendMessage(c.Context(), userID, req.Session, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrBadSessionName) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, services.ErrQuotaExhausted) {
			return quotaExhaustedResponse(c)
		}
		log.Printf("❌ Chat completion failed for %s: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Chat completion failed: " + err.Error(),
		})
	}

	logging.WithUser(userID, "chat").Debug("completion returned", "session", session, "reply_len", len(reply))

	return c.JSON(fiber.Map{
		"session": session,
		"reply":   reply,
	})
}

// ListSessions returns the chat history sidebar
// GET /api/chat/sessions
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	sessions, err := h.chatService.ListSessions(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to list chat sessions for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat sessions",
		})
	}

	return c.JSON(fiber.Map{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns the full turn list of one named session
// GET /api/chat/session?name=...
func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	name := c.Query("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session name is required",
		})
	}

	turns, err := h.chatService.GetSession(c.Context(), userID, name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"name":  name,
		"turns": turns,
	})
}
