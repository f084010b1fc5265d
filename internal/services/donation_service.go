package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiyashah21/meallink/internal/models"
)

// Service-level errors. Handlers translate these to HTTP statuses.
var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("not the owner")
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrConflict        = errors.New("donation is being claimed, try again")
)

// claimRetries bounds how many times a claim is retried when a
// concurrent claim changes the donation's quantity underneath it.
const claimRetries = 5

// DonationService owns the donation lifecycle: listing creation and
// edits, the manual status toggle, and the claim decrement. All
// mutations of a donation's quantity go through ClaimDonation so the
// quantity can never go negative.
type DonationService struct {
	db               *gorm.DB
	capClaimQuantity bool
	defaultImageURL  string
}

// NewDonationService constructs a DonationService.
func NewDonationService(db *gorm.DB, capClaimQuantity bool, defaultImageURL string) *DonationService {
	return &DonationService{
		db:               db,
		capClaimQuantity: capClaimQuantity,
		defaultImageURL:  defaultImageURL,
	}
}

// DonationInput carries the caller-editable donation fields.
type DonationInput struct {
	MealTitle  string
	FoodType   string
	Quantity   int
	ExpiryTime time.Time
	Location   string
	ImagePath  string
}

// Create lists a new donation for the given restaurant owner.
func (s *DonationService) Create(ownerID uuid.UUID, input DonationInput) (*models.Donation, error) {
	if input.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	donation := models.Donation{
		UserID:     ownerID,
		MealTitle:  input.MealTitle,
		FoodType:   input.FoodType,
		Quantity:   input.Quantity,
		ExpiryTime: input.ExpiryTime,
		Location:   input.Location,
		ImagePath:  input.ImagePath,
		Status:     models.DonationAvailable,
	}

	if err := s.db.Create(&donation).Error; err != nil {
		return nil, err
	}

	return &donation, nil
}

// Edit updates a donation's fields. Only the owning restaurant may
// edit; an empty ImagePath keeps the stored image.
func (s *DonationService) Edit(donationID, ownerID uuid.UUID, input DonationInput) (*models.Donation, error) {
	if input.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	donation, err := s.getOwned(donationID, ownerID)
	if err != nil {
		return nil, err
	}

	imagePath := donation.ImagePath
	if input.ImagePath != "" {
		imagePath = input.ImagePath
	}

	updates := map[string]interface{}{
		"meal_title":  input.MealTitle,
		"food_type":   input.FoodType,
		"quantity":    input.Quantity,
		"expiry_time": input.ExpiryTime,
		"location":    input.Location,
		"image_path":  imagePath,
	}

	if err := s.db.Model(donation).Updates(updates).Error; err != nil {
		return nil, err
	}

	return donation, nil
}

// ToggleStatus flips a donation between available and claimed without
// touching its quantity. It is a manual override for the owner and is
// allowed to contradict the quantity-implied status.
func (s *DonationService) ToggleStatus(donationID, ownerID uuid.UUID) (*models.Donation, error) {
	donation, err := s.getOwned(donationID, ownerID)
	if err != nil {
		return nil, err
	}

	newStatus := models.DonationClaimed
	if donation.Status != models.DonationAvailable {
		newStatus = models.DonationAvailable
	}

	if err := s.db.Model(donation).Update("status", newStatus).Error; err != nil {
		return nil, err
	}

	return donation, nil
}

// errStaleQuantity signals that a concurrent claim won the
// compare-and-swap; the caller retries with a fresh read.
var errStaleQuantity = errors.New("stale quantity read")

// Claim takes requestedQty portions of a donation for an NGO. A claim
// covering the remaining quantity (or more) zeroes the donation and
// marks it claimed; the recorded claim keeps the requested quantity
// verbatim unless capClaimQuantity is set. The donation update and the
// claim insert commit as one transaction, with a compare-and-swap on
// quantity guarding against concurrent claims.
func (s *DonationService) Claim(donationID, ngoID uuid.UUID, requestedQty int) (*models.Claim, error) {
	if requestedQty <= 0 {
		return nil, ErrInvalidQuantity
	}

	for attempt := 0; attempt < claimRetries; attempt++ {
		claim, err := s.tryClaim(donationID, ngoID, requestedQty)
		if errors.Is(err, errStaleQuantity) {
			continue
		}
		return claim, err
	}

	return nil, ErrConflict
}

func (s *DonationService) tryClaim(donationID, ngoID uuid.UUID, requestedQty int) (*models.Claim, error) {
	var claim models.Claim

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var donation models.Donation
		if err := tx.First(&donation, "id = ?", donationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		available := donation.Quantity
		updates := map[string]interface{}{}
		if requestedQty >= available {
			updates["quantity"] = 0
			updates["status"] = models.DonationClaimed
		} else {
			updates["quantity"] = available - requestedQty
			updates["status"] = models.DonationAvailable
		}

		res := tx.Model(&models.Donation{}).
			Where("id = ? AND quantity = ?", donationID, available).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleQuantity
		}

		recordedQty := requestedQty
		if s.capClaimQuantity && requestedQty > available {
			recordedQty = available
		}

		claim = models.Claim{
			DonationID: donationID,
			NgoID:      ngoID,
			Quantity:   recordedQty,
			Status:     models.ClaimPending,
			ClaimTime:  time.Now(),
		}

		return tx.Create(&claim).Error
	})
	if err != nil {
		return nil, err
	}

	return &claim, nil
}

// Get returns a donation by ID.
func (s *DonationService) Get(donationID uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	if err := s.db.First(&donation, "id = ?", donationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &donation, nil
}

func (s *DonationService) getOwned(donationID, ownerID uuid.UUID) (*models.Donation, error) {
	donation, err := s.Get(donationID)
	if err != nil {
		return nil, err
	}
	if donation.UserID != ownerID {
		return nil, ErrForbidden
	}
	return donation, nil
}

// Sort modes accepted by ListAvailable.
const (
	SortExpiryAsc    = "expiry_asc"
	SortExpiryDesc   = "expiry_desc"
	SortQuantityAsc  = "quantity_asc"
	SortQuantityDesc = "quantity_desc"
)

// ListOptions filters and orders the public donation listing.
type ListOptions struct {
	Search   string
	FoodType string
	SortBy   string
}

// DonationListing is one row of the public listing, joined with the
// restaurant's name and the quantity claimed against it today.
type DonationListing struct {
	DonationID     uuid.UUID `json:"donation_id"`
	RestaurantName string    `json:"restaurant_name"`
	MealTitle      string    `json:"meal_title"`
	FoodType       string    `json:"food_type"`
	Quantity       int       `json:"quantity"`
	ExpiryTime     time.Time `json:"expiry_time"`
	Location       string    `json:"restaurant_location"`
	ImagePath      string    `json:"image_path"`
	ClaimedToday   int       `json:"claimed_today"`
}

// ListingStats aggregates the filtered listing for the NGO dashboard.
type ListingStats struct {
	TotalBatches  int `json:"total_batches"`
	TotalPortions int `json:"total_portions"`
	ExpiringSoon  int `json:"expiring_soon"`
}

// ListAvailable returns available donations matching the filters,
// ordered per SortBy, each annotated with today's claimed total.
func (s *DonationService) ListAvailable(opts ListOptions) ([]DonationListing, ListingStats, error) {
	query := s.db.Table("donations").
		Select("donations.id AS donation_id, users.name AS restaurant_name, donations.meal_title, donations.food_type, donations.quantity, donations.expiry_time, donations.location, donations.image_path").
		Joins("JOIN users ON users.id = donations.user_id").
		Where("donations.status = ?", models.DonationAvailable)

	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(users.name) LIKE ? OR LOWER(donations.meal_title) LIKE ?", pattern, pattern)
	}

	if foodType := strings.TrimSpace(opts.FoodType); foodType != "" {
		query = query.Where("LOWER(donations.food_type) = ?", strings.ToLower(foodType))
	}

	switch opts.SortBy {
	case SortExpiryDesc:
		query = query.Order("donations.expiry_time DESC")
	case SortQuantityAsc:
		query = query.Order("donations.quantity ASC")
	case SortQuantityDesc:
		query = query.Order("donations.quantity DESC")
	default:
		query = query.Order("donations.expiry_time ASC")
	}

	var listings []DonationListing
	if err := query.Scan(&listings).Error; err != nil {
		return nil, ListingStats{}, err
	}

	claimedToday, err := s.claimedTodayByDonation()
	if err != nil {
		return nil, ListingStats{}, err
	}

	now := time.Now()
	stats := ListingStats{TotalBatches: len(listings)}
	for i := range listings {
		listings[i].ClaimedToday = claimedToday[listings[i].DonationID]
		if listings[i].ImagePath == "" {
			listings[i].ImagePath = s.defaultImageURL
		}
		stats.TotalPortions += listings[i].Quantity
		if !listings[i].ExpiryTime.IsZero() && listings[i].ExpiryTime.Before(now.Add(2*time.Hour)) {
			stats.ExpiringSoon++
		}
	}

	return listings, stats, nil
}

// claimedTodayByDonation sums claim quantities recorded on the current
// calendar date, keyed by donation.
func (s *DonationService) claimedTodayByDonation() (map[uuid.UUID]int, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []struct {
		DonationID uuid.UUID
		Total      int
	}
	err := s.db.Model(&models.Claim{}).
		Select("donation_id, SUM(quantity) AS total").
		Where("claim_time >= ? AND claim_time < ?", dayStart, dayEnd).
		Group("donation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		totals[row.DonationID] = row.Total
	}
	return totals, nil
}

// OwnerSummary counts a restaurant's donations by status.
type OwnerSummary struct {
	Available int64 `json:"available"`
	Claimed   int64 `json:"claimed"`
	Expired   int64 `json:"expired"`
}

// ListOwned returns a restaurant's own donations, newest first, with
// per-status counts for its dashboard.
func (s *DonationService) ListOwned(ownerID uuid.UUID, limit, offset int) ([]models.Donation, OwnerSummary, error) {
	var donations []models.Donation
	err := s.db.Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&donations).Error
	if err != nil {
		return nil, OwnerSummary{}, err
	}

	var summary OwnerSummary
	counts := []struct {
		status string
		dest   *int64
	}{
		{models.DonationAvailable, &summary.Available},
		{models.DonationClaimed, &summary.Claimed},
		{models.DonationExpired, &summary.Expired},
	}
	for _, c := range counts {
		if err := s.db.Model(&models.Donation{}).
			Where("user_id = ? AND status = ?", ownerID, c.status).
			Count(c.dest).Error; err != nil {
			return nil, OwnerSummary{}, err
		}
	}

	return donations, summary, nil
}

// ClaimOverviewRow is one claim against an owner's donations, joined
// with the claiming NGO's name.
type ClaimOverviewRow struct {
	MealTitle string    `json:"meal_title"`
	NgoName   string    `json:"ngo_name"`
	Quantity  int       `json:"quantity"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// ClaimsOverview lists every claim recorded against the owner's
// donations, oldest first.
func (s *DonationService) ClaimsOverview(ownerID uuid.UUID) ([]ClaimOverviewRow, error) {
	var rows []ClaimOverviewRow
	err := s.db.Table("claims").
		Select("donations.meal_title, users.name AS ngo_name, claims.quantity, claims.claim_time AS claimed_at").
		Joins("JOIN donations ON donations.id = claims.donation_id").
		Joins("JOIN users ON users.id = claims.ngo_id").
		Where("donations.user_id = ?", ownerID).
		Order("claims.claim_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
