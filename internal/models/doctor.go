package models

import "gorm.io/datatypes"

// Doctor describes a doctor account. Contact verification (IsVerified) and
// administrative approval (IsApproved) are independent flags: a doctor must
// clear both before login succeeds.
type Doctor struct {
	BaseModel

	Name      string  `gorm:"not null" json:"name"`
	Specialty string  `json:"specialty"`
	Title     string  `json:"title"`
	Email     *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone     *string `gorm:"uniqueIndex" json:"phone,omitempty"`

	Password string `gorm:"not null" json:"-"`
	Avatar   string `json:"avatar,omitempty"`

	// WorkingHours holds the consultation schedule as free-form JSON.
	WorkingHours datatypes.JSON `json:"working_hours,omitempty"`
	// Documents lists public URLs of uploaded verification documents.
	Documents datatypes.JSON `json:"documents,omitempty"`

	IsVerified bool `gorm:"default:false" json:"is_verified"`
	IsApproved bool `gorm:"default:false" json:"is_approved"`

	VerificationCodeHash string `json:"-"`

	PendingEmail *string `json:"-"`
	PendingPhone *string `json:"-"`
}

func (d *Doctor) AccountID() string     { return d.ID }
func (d *Doctor) Kind() AccountKind     { return KindDoctor }
func (d *Doctor) ContactEmail() string  { return deref(d.Email) }
func (d *Doctor) ContactPhone() string  { return deref(d.Phone) }
func (d *Doctor) PasswordHash() string  { return d.Password }
func (d *Doctor) Verified() bool        { return d.IsVerified }
