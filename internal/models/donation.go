package models

import (
	"time"

	"github.com/google/uuid"
)

// Donation status values. Expired is part of the schema but no
// operation sets it; expiry is advisory only.
const (
	DonationAvailable = "available"
	DonationClaimed   = "claimed"
	DonationExpired   = "expired"
)

// Donation is a listed batch of surplus food. The owner is immutable
// for the donation's lifetime; quantity counts remaining portions and
// never goes below zero.
type Donation struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User     `json:"user,omitempty"`
	MealTitle  string    `json:"meal_title"`
	FoodType   string    `json:"food_type"`
	Quantity   int       `json:"quantity"`
	ExpiryTime time.Time `json:"expiry_time"`
	Location   string    `json:"location"`
	ImagePath  string    `json:"image_path"`
	Status     string    `gorm:"index;default:available" json:"status"`

	Claims []Claim `gorm:"foreignKey:DonationID" json:"claims,omitempty"`
}
