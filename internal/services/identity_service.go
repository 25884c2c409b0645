package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	iauth "github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/pkg/crypto"
	apperrors "github.com/medconnecthq/medconnect/pkg/errors"
	"github.com/medconnecthq/medconnect/pkg/metrics"
)

const minPasswordLength = 8

var (
	// ErrContactRequired indicates neither email nor phone was supplied.
	ErrContactRequired = apperrors.NewBadRequest("at least one of email or phone is required")
	// ErrPasswordTooShort rejects weak credentials before any store mutation.
	ErrPasswordTooShort = apperrors.NewBadRequest("password must be at least 8 characters long")
	// ErrContactTaken indicates the email or phone is already registered for this account kind.
	ErrContactTaken = apperrors.NewConflict("email or phone already registered")
	// ErrAccountNotFound indicates no account matches the identifier.
	ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
	// ErrInvalidCode rejects a verification code that does not match the stored one.
	ErrInvalidCode = apperrors.New("INVALID_CODE", "Invalid verification code", http.StatusBadRequest)
	// ErrDoctorNotApproved blocks doctor logins that still await admin review.
	ErrDoctorNotApproved = apperrors.New("PENDING_APPROVAL", "Account is pending admin approval", http.StatusForbidden)
)

// dummyHash is compared against when no account matches a login identifier so
// the miss path costs the same as a real password check.
var dummyHash, _ = crypto.HashPassword("medconnect-timing-equalizer")

// Dispatcher delivers verification codes and notices over email or SMS.
type Dispatcher interface {
	Dispatch(ctx context.Context, email, phone, subject, body string) error
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// IdentityOption customises the IdentityService.
type IdentityOption func(*IdentityService)

// WithIdentityClock injects a custom time source.
func WithIdentityClock(clock func() time.Time) IdentityOption {
	return func(s *IdentityService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// IdentityService implements the credential lifecycle for patients, doctors,
// and the admin approval path: registration, login, verification code
// issuance and consumption, and contact changes.
type IdentityService struct {
	db         *gorm.DB
	jwt        *iauth.JWTService
	dispatcher Dispatcher
	now        func() time.Time
}

// NewIdentityService constructs an IdentityService with the provided collaborators.
func NewIdentityService(db *gorm.DB, jwt *iauth.JWTService, dispatcher Dispatcher, opts ...IdentityOption) (*IdentityService, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("identity service: jwt service is required")
	}
	if dispatcher == nil {
		return nil, errors.New("identity service: dispatcher is required")
	}

	service := &IdentityService{
		db:         db,
		jwt:        jwt,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RegisterPatientInput describes the fields accepted when registering a patient.
type RegisterPatientInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// RegisterPatient creates an unverified patient account and dispatches a six
// digit verification code via the preferred contact channel.
func (s *IdentityService) RegisterPatient(ctx context.Context, input RegisterPatientInput) (*models.Patient, error) {
	ctx = ensureContext(ctx)

	email, phone, err := normaliseContact(input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// Pre-check is an optimisation only; the unique indexes are the authority.
	var count int64
	if err := scopeContact(s.db.WithContext(ctx).Model(&models.Patient{}), email, phone).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("identity service: check existing patient: %w", err)
	}
	if count > 0 {
		return nil, ErrContactTaken
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity service: hash password: %w", err)
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("identity service: generate code: %w", err)
	}

	patient := &models.Patient{
		Name:                 strings.TrimSpace(input.Name),
		Email:                optional(email),
		Phone:                optional(phone),
		Password:             hashed,
		IsVerified:           false,
		VerificationCodeHash: crypto.HashToken(code),
	}

	if err := s.db.WithContext(ctx).Create(patient).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrContactTaken
		}
		return nil, fmt.Errorf("identity service: create patient: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, email, phone, "Verify Your Account",
		fmt.Sprintf("Your verification code is: %s", code)); err != nil {
		return nil, apperrors.ErrUpstream.WithInternal(err)
	}

	return patient, nil
}

// RegisterDoctorInput describes the fields accepted when registering a doctor.
// DocumentURLs carry the already-uploaded verification documents.
type RegisterDoctorInput struct {
	Name         string
	Specialty    string
	Title        string
	Email        string
	Phone        string
	Password     string
	DocumentURLs []string
}

// RegisterDoctor creates a doctor account awaiting both contact verification
// and admin approval.
func (s *IdentityService) RegisterDoctor(ctx context.Context, input RegisterDoctorInput) (*models.Doctor, error) {
	ctx = ensureContext(ctx)

	email, phone, err := normaliseContact(input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var count int64
	if err := scopeContact(s.db.WithContext(ctx).Model(&models.Doctor{}), email, phone).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("identity service: check existing doctor: %w", err)
	}
	if count > 0 {
		return nil, ErrContactTaken
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity service: hash password: %w", err)
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("identity service: generate code: %w", err)
	}

	documents, err := encodeStringList(input.DocumentURLs)
	if err != nil {
		return nil, fmt.Errorf("identity service: encode documents: %w", err)
	}

	doctor := &models.Doctor{
		Name:                 strings.TrimSpace(input.Name),
		Specialty:            strings.TrimSpace(input.Specialty),
		Title:                strings.TrimSpace(input.Title),
		Email:                optional(email),
		Phone:                optional(phone),
		Password:             hashed,
		Documents:            documents,
		IsVerified:           false,
		IsApproved:           false,
		VerificationCodeHash: crypto.HashToken(code),
	}

	if err := s.db.WithContext(ctx).Create(doctor).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrContactTaken
		}
		return nil, fmt.Errorf("identity service: create doctor: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, email, phone, "Verify Your Account",
		fmt.Sprintf("Your verification code is: %s", code)); err != nil {
		return nil, apperrors.ErrUpstream.WithInternal(err)
	}

	return doctor, nil
}

// Login authenticates an account of the given kind by email or phone and
// returns a signed role-bound token. The error for an unknown identifier and
// a wrong password is identical so responses cannot enumerate accounts.
func (s *IdentityService) Login(ctx context.Context, kind models.AccountKind, identifier, password string) (string, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", apperrors.ErrInvalidCredentials
	}

	account, err := s.findByIdentifier(ctx, kind, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Equalise timing with the found path.
			crypto.VerifyPassword(dummyHash, password)
			metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
			return "", apperrors.ErrInvalidCredentials
		}
		return "", err
	}

	// Verification gates come before the password comparison so the ordering
	// never reveals which check failed first.
	if !account.Verified() {
		metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
		return "", apperrors.ErrAccountNotVerified
	}
	if doctor, ok := account.(*models.Doctor); ok && !doctor.IsApproved {
		metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
		return "", ErrDoctorNotApproved
	}

	if !crypto.VerifyPassword(account.PasswordHash(), password) {
		metrics.AuthAttempts.WithLabelValues(string(kind), "failure").Inc()
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: account.AccountID(),
		Role:   string(kind),
	})
	if err != nil {
		return "", fmt.Errorf("identity service: issue token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues(string(kind), "success").Inc()
	return token, nil
}

// LoginAdmin authenticates an administrator and issues a role=admin token.
func (s *IdentityService) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", apperrors.ErrInvalidCredentials
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).First(&admin, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.VerifyPassword(dummyHash, password)
		metrics.AuthAttempts.WithLabelValues(models.RoleAdmin, "failure").Inc()
		return "", apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("identity service: load admin: %w", err)
	}

	if !crypto.VerifyPassword(admin.Password, password) {
		metrics.AuthAttempts.WithLabelValues(models.RoleAdmin, "failure").Inc()
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: admin.ID,
		Role:   models.RoleAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("identity service: issue admin token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues(models.RoleAdmin, "success").Inc()
	return token, nil
}

// VerifyAccount consumes a pending verification code, flipping the account to
// verified exactly once. A second submission of the same code fails because
// the stored digest is cleared on success.
func (s *IdentityService) VerifyAccount(ctx context.Context, kind models.AccountKind, identifier, code string) error {
	ctx = ensureContext(ctx)

	canonical, err := normaliseCode(code)
	if err != nil {
		metrics.VerificationAttempts.WithLabelValues(string(kind), "failure").Inc()
		return ErrInvalidCode
	}

	account, err := s.findByIdentifier(ctx, kind, strings.TrimSpace(identifier))
	if err != nil {
		return err
	}

	var (
		storedHash string
		model      any
	)
	switch a := account.(type) {
	case *models.Patient:
		storedHash = a.VerificationCodeHash
		model = a
	case *models.Doctor:
		storedHash = a.VerificationCodeHash
		model = a
	}

	if !crypto.VerifyTokenHash(storedHash, canonical) {
		metrics.VerificationAttempts.WithLabelValues(string(kind), "failure").Inc()
		return ErrInvalidCode
	}

	updates := map[string]any{
		"is_verified":            true,
		"verification_code_hash": "",
	}
	if err := s.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return fmt.Errorf("identity service: mark verified: %w", err)
	}

	metrics.VerificationAttempts.WithLabelValues(string(kind), "success").Inc()
	return nil
}

// ApproveDoctor marks a doctor as approved by an administrator and notifies
// the doctor by email when one is on file.
func (s *IdentityService) ApproveDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	ctx = ensureContext(ctx)

	var doctor models.Doctor
	err := s.db.WithContext(ctx).First(&doctor, "id = ?", strings.TrimSpace(doctorID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: load doctor: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&doctor).Update("is_approved", true).Error; err != nil {
		return nil, fmt.Errorf("identity service: approve doctor: %w", err)
	}
	doctor.IsApproved = true

	if email := doctor.ContactEmail(); email != "" {
		if err := s.dispatcher.SendEmail(ctx, email, "Account Verified",
			"Your account has been successfully verified."); err != nil {
			return nil, apperrors.ErrUpstream.WithInternal(err)
		}
	}

	return &doctor, nil
}

// findByIdentifier loads an account of the given kind whose email or phone
// equals the identifier.
func (s *IdentityService) findByIdentifier(ctx context.Context, kind models.AccountKind, identifier string) (models.Account, error) {
	if identifier == "" {
		return nil, ErrAccountNotFound
	}

	switch kind {
	case models.KindPatient:
		var patient models.Patient
		err := s.db.WithContext(ctx).
			Where("email = ? OR phone = ?", strings.ToLower(identifier), identifier).
			First(&patient).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("identity service: find patient: %w", err)
		}
		return &patient, nil
	case models.KindDoctor:
		var doctor models.Doctor
		err := s.db.WithContext(ctx).
			Where("email = ? OR phone = ?", strings.ToLower(identifier), identifier).
			First(&doctor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("identity service: find doctor: %w", err)
		}
		return &doctor, nil
	default:
		return nil, fmt.Errorf("identity service: unknown account kind %q", kind)
	}
}

// normaliseContact trims and lowercases contact fields, requiring at least one.
func normaliseContact(email, phone string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return "", "", ErrContactRequired
	}
	return email, phone, nil
}

// normaliseCode reduces a submitted code to its canonical six digit decimal
// form, enforcing strict numeric equality regardless of input formatting.
func normaliseCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	n, err := strconv.Atoi(code)
	if err != nil {
		return "", err
	}
	if n < 100000 || n > 999999 {
		return "", fmt.Errorf("code out of range: %d", n)
	}
	return strconv.Itoa(n), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scopeContact(query *gorm.DB, email, phone string) *gorm.DB {
	switch {
	case email != "" && phone != "":
		return query.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		return query.Where("email = ?", email)
	default:
		return query.Where("phone = ?", phone)
	}
}

func encodeStringList(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

func decodeStringList(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}
