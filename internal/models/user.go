package models

// User roles. A role is fixed at registration and gates which
// operations a user may perform.
const (
	RoleRestaurant = "restaurant"
	RoleNGO        = "ngo"
	RoleAdmin      = "admin"
)

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleRestaurant, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account: a restaurant listing surplus
// food, an NGO claiming it, or an admin.
type User struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"index" json:"role"`
	Phone        string `gorm:"uniqueIndex" json:"phone"`
	Location     string `json:"location"`

	Donations []Donation `gorm:"foreignKey:UserID" json:"donations,omitempty"`
	Claims    []Claim    `gorm:"foreignKey:NgoID" json:"claims,omitempty"`
}
