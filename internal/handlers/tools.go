package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"placementhelper/internal/logging"
	"placementhelper/internal/services"
	"placementhelper/internal/utils"
)

// MaxUploadSize limits resume/JD uploads to 10MB
const MaxUploadSize = 10 * 1024 * 1024

// ToolsHandler handles the three resume/JD tools plus file text extraction
type ToolsHandler struct {
	reviewService *services.ReviewService
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(reviewService *services.ReviewService) *ToolsHandler {
	return &ToolsHandler{reviewService: reviewService}
}

// ReviewRequest is the request body shared by the three review tools
type ReviewRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
}

type reviewFn func(ctx context.Context, userID, resume, jd string) (string, error)

// Compare runs the resume-vs-JD comparator
// POST /api/tools/compare
func (h *ToolsHandler) Compare(c *fiber.Ctx) error {
	return h.runReview(c, "comparator", h.reviewService.Compare)
}

// ScoreATS runs the ATS compatibility scorer
// POST /api/tools/ats
func (h *ToolsHandler) ScoreATS(c *fiber.Ctx) error {
	return h.runReview(c, "ats", h.reviewService.ScoreATS)
}

// CoverLetter generates a cover letter
// POST /api/tools/cover-letter
func (h *ToolsHandler) CoverLetter(c *fiber.Ctx) error {
	return h.runReview(c, "cover_letter", h.reviewService.CoverLetter)
}

func (h *ToolsHandler) runReview(c *fiber.Ctx, tool string, fn reviewFn) error {
	userID := c.Locals("user_id").(string)

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Resume) == "" || strings.TrimSpace(req.JobDescription) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Both resume and job description are required",
		})
	}

	if m := services.GetMetrics(); m != nil {
		m.ToolRequests.WithLabelValues(tool).Inc()
	}

	result, err := fn(c.Context(), userID, req.Resume, req.JobDescription)
	if err != nil {
		if errors.Is(err, services.ErrQuotaExhausted) {
			return quotaExhaustedResponse(c)
		}
		log.Printf("❌ %s tool failed for %s: %v", tool, userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Completion failed: " + err.Error(),
		})
	}

	logging.WithUser(userID, tool).Debug("completion returned", "result_len", len(result))

	return c.JSON(fiber.Map{
		"result": result,
	})
}

// Extract extracts plain text from an uploaded .pdf or .txt file, so the
// client can prefill the resume/JD fields.
// POST /api/tools/extract (multipart, field "file")
func (h *ToolsHandler) Extract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File upload is required (multipart field \"file\")",
		})
	}

	if fileHeader.Size > MaxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File too large (max 10MB)",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	text, err := utils.ExtractText(fileHeader.Filename, data)
	if err != nil {
		log.Printf("⚠️ Text extraction failed for %s: %v", fileHeader.Filename, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"filename": fileHeader.Filename,
		"text":     text,
	})
}
