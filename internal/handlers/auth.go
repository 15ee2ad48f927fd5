package handlers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"placementhelper/internal/models"
	"placementhelper/internal/services"
	"placementhelper/pkg/auth"
)

// AuthHandler handles sign-up, sign-in and session teardown
type AuthHandler struct {
	jwtAuth      *auth.JWTAuth
	userService  *services.UserService
	stateService *services.StateService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtAuth *auth.JWTAuth, userService *services.UserService, stateService *services.StateService) *AuthHandler {
	return &AuthHandler{
		jwtAuth:      jwtAuth,
		userService:  userService,
		stateService: stateService,
	}
}

// CredentialsRequest is the request body for registration and login
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the response for successful authentication
type AuthResponse struct {
	AccessToken string              `json:"access_token"`
	User        models.UserResponse `json:"user"`
	ExpiresIn   int                 `json:"expires_in"` // seconds
}

// Register creates a new user account
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Valid email address is required",
		})
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx := context.Background()

	existingUser, _ := h.userService.GetUserByEmail(ctx, req.Email)
	if existingUser != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User with this email already exists",
		})
	}

	passwordHash, err := h.jwtAuth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		LastLoginAt:  time.Now(),
	}

	if err := h.userService.CreateUser(ctx, user); err != nil {
		log.Printf("❌ Failed to create user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	token, err := h.jwtAuth.GenerateToken(user.Email, user.Email)
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate authentication token",
		})
	}

	log.Printf("✅ User registered: %s", user.Email)

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		AccessToken: token,
		User:        user.ToResponse(),
		ExpiresIn:   int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}

// Login authenticates a user and hydrates their session state
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	ctx := context.Background()

	user, err := h.userService.GetUserByEmail(ctx, req.Email)
	if err != nil || user == nil {
		// Constant-time response to prevent email enumeration
		time.Sleep(200 * time.Millisecond)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	valid, err := h.jwtAuth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !valid {
		log.Printf("⚠️ Failed login attempt for user: %s", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	user.LastLoginAt = time.Now()
	if err := h.userService.UpdateLastLogin(ctx, user); err != nil {
		log.Printf("⚠️ Failed to update last login time: %v", err)
		// Non-critical, continue
	}

	// Hydrate session state before any tool becomes available. A missing
	// document is a new user, never a login failure.
	if _, err := h.stateService.Hydrate(ctx, user.Email); err != nil {
		log.Printf("❌ Failed to hydrate state for %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load saved data",
		})
	}

	token, err := h.jwtAuth.GenerateToken(user.Email, user.Email)
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate authentication token",
		})
	}

	log.Printf("✅ User logged in: %s", user.Email)

	return c.JSON(AuthResponse{
		AccessToken: token,
		User:        user.ToResponse(),
		ExpiresIn:   int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}

// Logout flushes and drops the in-memory session state
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if ok && userID != "" {
		if err := h.stateService.Drop(context.Background(), userID); err != nil {
			log.Printf("⚠️ Failed to flush state on logout for %s: %v", userID, err)
			// Non-critical, continue
		}
	}

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the currently authenticated user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *fiber.Ctx) error {
	email, ok := c.Locals("user_email").(string)
	if !ok || email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	user, err := h.userService.GetUserByEmail(context.Background(), email)
	if err != nil || user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user.ToResponse())
}
