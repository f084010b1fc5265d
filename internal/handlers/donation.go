package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiyashah21/meallink/internal/middleware"
	"github.com/jiyashah21/meallink/internal/models"
	"github.com/jiyashah21/meallink/internal/services"
	"github.com/jiyashah21/meallink/internal/utils"
)

// DonationHandler manages donation endpoints.
type DonationHandler struct {
	db        *gorm.DB
	donations *services.DonationService
	telegram  *services.TelegramService
}

// NewDonationHandler constructs DonationHandler.
func NewDonationHandler(db *gorm.DB, donations *services.DonationService, telegram *services.TelegramService) *DonationHandler {
	return &DonationHandler{db: db, donations: donations, telegram: telegram}
}

type donationRequest struct {
	MealTitle  string `json:"meal_title"`
	FoodType   string `json:"food_type"`
	Quantity   int    `json:"quantity"`
	ExpiryTime string `json:"expiry_time"`
	Location   string `json:"location"`
	ImagePath  string `json:"image_path"`
}

func (r donationRequest) toInput() (services.DonationInput, error) {
	expiry, err := parseExpiry(r.ExpiryTime)
	if err != nil {
		return services.DonationInput{}, fiber.NewError(fiber.StatusBadRequest, "invalid expiry time")
	}

	return services.DonationInput{
		MealTitle:  r.MealTitle,
		FoodType:   r.FoodType,
		Quantity:   r.Quantity,
		ExpiryTime: expiry,
		Location:   r.Location,
		ImagePath:  r.ImagePath,
	}, nil
}

// parseExpiry accepts RFC3339 or the datetime-local format browsers send.
func parseExpiry(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", value, time.Local)
}

// Create lists a new donation for the authenticated restaurant.
func (h *DonationHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req donationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.MealTitle == "" {
		return fiber.NewError(fiber.StatusBadRequest, "meal title is required")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	donation, err := h.donations.Create(userID, input)
	if err != nil {
		return serviceError(err)
	}

	if h.telegram.Enabled() {
		go h.notifyNewDonation(*donation, userID)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": donation})
}

// Edit updates one of the authenticated restaurant's donations.
func (h *DonationHandler) Edit(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req donationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	donation, err := h.donations.Edit(donationID, userID, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": donation})
}

// ToggleStatus manually flips a donation between available and claimed.
func (h *DonationHandler) ToggleStatus(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	donation, err := h.donations.ToggleStatus(donationID, userID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": donation})
}

type claimRequest struct {
	Quantity int `json:"claim_qty"`
}

// Claim lets the authenticated NGO take portions from a donation.
func (h *DonationHandler) Claim(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	donationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	claim, err := h.donations.Claim(donationID, userID, req.Quantity)
	if err != nil {
		return serviceError(err)
	}

	if h.telegram.Enabled() {
		go h.notifyClaim(*claim, userID)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": claim})
}

// List returns available donations with filters, sorting and stats.
// Public: NGOs browse this before signing in.
func (h *DonationHandler) List(c *fiber.Ctx) error {
	opts := services.ListOptions{
		Search:   c.Query("search"),
		FoodType: c.Query("type"),
		SortBy:   c.Query("sortBy", services.SortExpiryAsc),
	}

	listings, stats, err := h.donations.ListAvailable(opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    listings,
		"stats":   stats,
	})
}

// ListMine returns the authenticated restaurant's donations with the
// status summary and claims overview for its dashboard.
func (h *DonationHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	donations, summary, err := h.donations.ListOwned(userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	overview, err := h.donations.ClaimsOverview(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"data":            donations,
		"summary":         summary,
		"claims_overview": overview,
	})
}

func (h *DonationHandler) notifyNewDonation(donation models.Donation, ownerID uuid.UUID) {
	var owner models.User
	if err := h.db.First(&owner, "id = ?", ownerID).Error; err != nil {
		log.Printf("[Donation] Failed to load owner for notification: %v", err)
		return
	}

	notification := services.DonationNotification{
		MealTitle:      donation.MealTitle,
		FoodType:       donation.FoodType,
		Quantity:       donation.Quantity,
		ExpiryTime:     donation.ExpiryTime,
		Location:       donation.Location,
		RestaurantName: owner.Name,
	}

	if err := h.telegram.NotifyNewDonation(notification); err != nil {
		log.Printf("[Donation] Telegram notification failed: %v", err)
	}
}

func (h *DonationHandler) notifyClaim(claim models.Claim, ngoID uuid.UUID) {
	var ngo models.User
	if err := h.db.First(&ngo, "id = ?", ngoID).Error; err != nil {
		log.Printf("[Claim] Failed to load NGO for notification: %v", err)
		return
	}

	donation, err := h.donations.Get(claim.DonationID)
	if err != nil {
		log.Printf("[Claim] Failed to load donation for notification: %v", err)
		return
	}

	notification := services.ClaimNotification{
		MealTitle:    donation.MealTitle,
		NgoName:      ngo.Name,
		Quantity:     claim.Quantity,
		RemainingQty: donation.Quantity,
		FullyClaimed: donation.Status == models.DonationClaimed,
	}

	if err := h.telegram.NotifyClaim(notification); err != nil {
		log.Printf("[Claim] Telegram notification failed: %v", err)
	}
}

// serviceError maps service sentinel errors to HTTP errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "donation not found")
	case errors.Is(err, services.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, "you do not own this donation")
	case errors.Is(err, services.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, "invalid quantity selected")
	case errors.Is(err, services.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, "donation is being claimed, try again")
	}
	return err
}
