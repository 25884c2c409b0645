package models

// Patient describes a patient account. Email and phone are nullable so the
// unique indexes only bind rows that actually carry the contact value; at
// least one of the two is required at registration time.
type Patient struct {
	BaseModel

	Name  string  `gorm:"not null" json:"name"`
	Email *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone *string `gorm:"uniqueIndex" json:"phone,omitempty"`

	Password string `gorm:"not null" json:"-"`
	Avatar   string `json:"avatar,omitempty"`

	IsVerified bool `gorm:"default:false" json:"is_verified"`

	// Digest of the pending six digit code; empty once verification succeeds.
	VerificationCodeHash string `json:"-"`

	// Contact-change staging. Applied only after a code round-trip.
	PendingEmail *string `json:"-"`
	PendingPhone *string `json:"-"`
}

func (p *Patient) AccountID() string     { return p.ID }
func (p *Patient) Kind() AccountKind     { return KindPatient }
func (p *Patient) ContactEmail() string  { return deref(p.Email) }
func (p *Patient) ContactPhone() string  { return deref(p.Phone) }
func (p *Patient) PasswordHash() string  { return p.Password }
func (p *Patient) Verified() bool        { return p.IsVerified }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
