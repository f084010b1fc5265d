package models

import "github.com/google/uuid"

// Feedback is an append-only rating and message left by any user.
type Feedback struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User    *User     `json:"user,omitempty"`
	Message string    `gorm:"type:text" json:"message"`
	Rating  int       `json:"rating"`
}
