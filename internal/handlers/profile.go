package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jiyashah21/meallink/internal/middleware"
	"github.com/jiyashah21/meallink/internal/models"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the authenticated user's profile with a
// role-specific account summary.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	summary := fiber.Map{}

	switch user.Role {
	case models.RoleRestaurant:
		var total, claimed, expired int64
		if err := h.db.Model(&models.Donation{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
			return err
		}
		if err := h.db.Model(&models.Donation{}).Where("user_id = ? AND status = ?", userID, models.DonationClaimed).Count(&claimed).Error; err != nil {
			return err
		}
		if err := h.db.Model(&models.Donation{}).Where("user_id = ? AND status = ?", userID, models.DonationExpired).Count(&expired).Error; err != nil {
			return err
		}
		summary = fiber.Map{"total": total, "claimed": claimed, "expired": expired}

	case models.RoleNGO:
		var total, delivered int64
		if err := h.db.Model(&models.Claim{}).Where("ngo_id = ?", userID).Count(&total).Error; err != nil {
			return err
		}
		if err := h.db.Model(&models.Claim{}).Where("ngo_id = ? AND status = ?", userID, models.ClaimDelivered).Count(&delivered).Error; err != nil {
			return err
		}
		summary = fiber.Map{"total": total, "delivered": delivered}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"phone":    user.Phone,
			"location": user.Location,
			"role":     user.Role,
			"joined":   user.CreatedAt,
		},
		"account_summary": summary,
	})
}
