package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim status values. Claims are created pending; nothing in the
// current flows marks them delivered.
const (
	ClaimPending   = "pending"
	ClaimDelivered = "delivered"
)

// Claim records one NGO taking some quantity from a donation. The
// stored quantity is what the NGO asked for, which can exceed what was
// actually left on the donation at claim time.
type Claim struct {
	BaseModel
	DonationID uuid.UUID `gorm:"type:uuid;index" json:"donation_id"`
	Donation   *Donation `json:"donation,omitempty"`
	NgoID      uuid.UUID `gorm:"type:uuid;index" json:"ngo_id"`
	Ngo        *User     `gorm:"foreignKey:NgoID" json:"ngo,omitempty"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Status     string    `gorm:"default:pending" json:"status"`
	ClaimTime  time.Time `gorm:"index" json:"claim_time"`
}
