package models

// AccountKind distinguishes the two credential lifecycles sharing one contract.
type AccountKind string

const (
	KindPatient AccountKind = "patient"
	KindDoctor  AccountKind = "doctor"
)

// Roles embedded in issued bearer tokens.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Account is the view of a credential record shared by patients and doctors.
// The identity service operates on this interface so both kinds run through
// the same register/login/verify state machine.
type Account interface {
	AccountID() string
	Kind() AccountKind
	ContactEmail() string
	ContactPhone() string
	PasswordHash() string
	Verified() bool
}
