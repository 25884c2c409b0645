package models

// Admin is a staff account allowed to approve doctor registrations. Admins
// are provisioned from configuration at start-up, never via the public API.
type Admin struct {
	BaseModel

	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
}
