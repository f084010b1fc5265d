package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jiyashah21/meallink/internal/middleware"
	"github.com/jiyashah21/meallink/internal/models"
)

// FeedbackHandler manages feedback endpoints.
type FeedbackHandler struct {
	db *gorm.DB
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(db *gorm.DB) *FeedbackHandler {
	return &FeedbackHandler{db: db}
}

type feedbackRequest struct {
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

// Create records feedback from the authenticated user.
func (h *FeedbackHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Rating < 1 || req.Rating > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "rating must be between 1 and 5")
	}

	feedback := models.Feedback{
		UserID:  userID,
		Message: req.Message,
		Rating:  req.Rating,
	}

	if err := h.db.Create(&feedback).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": feedback})
}
