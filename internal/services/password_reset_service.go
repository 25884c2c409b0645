package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/pkg/crypto"
	apperrors "github.com/medconnecthq/medconnect/pkg/errors"
	"github.com/medconnecthq/medconnect/pkg/metrics"
)

const (
	defaultPatientResetTTL = time.Hour
	defaultDoctorResetTTL  = 15 * time.Minute
	defaultResetTokenBytes = 32
)

// ErrResetInvalidOrExpired rejects unknown, used, or expired reset tokens.
var ErrResetInvalidOrExpired = apperrors.New("RESET_INVALID_OR_EXPIRED", "Invalid or expired token", http.StatusBadRequest)

// ResetOption customises the PasswordResetService.
type ResetOption func(*PasswordResetService)

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) ResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResetTTL overrides the token lifetime for an account kind.
func WithResetTTL(kind models.AccountKind, d time.Duration) ResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.ttl[kind] = d
		}
	}
}

// PasswordResetService issues and consumes opaque password reset tokens for
// both account kinds. Tokens are stored hashed and carry a per-kind expiry;
// an expired token is treated as absent.
type PasswordResetService struct {
	db          *gorm.DB
	dispatcher  Dispatcher
	ttl         map[models.AccountKind]time.Duration
	tokenLength int
	now         func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService with the provided collaborators.
func NewPasswordResetService(db *gorm.DB, dispatcher Dispatcher, opts ...ResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if dispatcher == nil {
		return nil, errors.New("password reset service: dispatcher is required")
	}

	service := &PasswordResetService{
		db:         db,
		dispatcher: dispatcher,
		ttl: map[models.AccountKind]time.Duration{
			models.KindPatient: defaultPatientResetTTL,
			models.KindDoctor:  defaultDoctorResetTTL,
		},
		tokenLength: defaultResetTokenBytes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Request issues a reset token for the account matching the identifier and
// dispatches it via the account's available contact channel. Any previous
// token for the account is superseded.
func (s *PasswordResetService) Request(ctx context.Context, kind models.AccountKind, identifier string) error {
	ctx = ensureContext(ctx)

	account, err := s.findAccount(ctx, kind, strings.TrimSpace(identifier))
	if err != nil {
		return err
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return fmt.Errorf("password reset service: generate token: %w", err)
	}

	now := s.now()
	record := models.PasswordResetToken{
		AccountKind: kind,
		AccountID:   account.AccountID(),
		TokenHash:   crypto.HashToken(token),
		ExpiresAt:   now.Add(s.ttl[kind]),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_kind = ? AND account_id = ?", kind, account.AccountID()).
			Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("password reset service: store token: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, account.ContactEmail(), account.ContactPhone(),
		"Reset Your Password", fmt.Sprintf("Your reset token: %s", token)); err != nil {
		metrics.PasswordResets.WithLabelValues("request", "failure").Inc()
		return apperrors.ErrUpstream.WithInternal(err)
	}

	metrics.PasswordResets.WithLabelValues("request", "success").Inc()
	return nil
}

// Verify checks that a token exists, is unused, and has not expired, without
// consuming it.
func (s *PasswordResetService) Verify(ctx context.Context, token string) error {
	ctx = ensureContext(ctx)

	_, err := s.lookup(ctx, token)
	return err
}

// Consume replaces the account password and invalidates the token.
func (s *PasswordResetService) Consume(ctx context.Context, token, newPassword string) error {
	ctx = ensureContext(ctx)

	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	record, err := s.lookup(ctx, token)
	if err != nil {
		metrics.PasswordResets.WithLabelValues("consume", "failure").Inc()
		return err
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("password reset service: hash password: %w", err)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var result *gorm.DB
		switch record.AccountKind {
		case models.KindPatient:
			result = tx.Model(&models.Patient{}).Where("id = ?", record.AccountID).Update("password", hashed)
		case models.KindDoctor:
			result = tx.Model(&models.Doctor{}).Where("id = ?", record.AccountID).Update("password", hashed)
		default:
			return fmt.Errorf("unknown account kind %q", record.AccountKind)
		}
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		return tx.Model(record).Update("used_at", now).Error
	})
	if err != nil {
		return fmt.Errorf("password reset service: consume token: %w", err)
	}

	metrics.PasswordResets.WithLabelValues("consume", "success").Inc()
	return nil
}

// lookup resolves a plaintext token to its stored record, enforcing expiry
// and single use.
func (s *PasswordResetService) lookup(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrResetInvalidOrExpired
	}

	var record models.PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(token)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("password reset service: find token: %w", err)
	}

	if record.UsedAt != nil || record.ExpiresAt.Before(s.now()) {
		return nil, ErrResetInvalidOrExpired
	}
	return &record, nil
}

// PurgeExpired removes used and expired reset tokens; called by the
// maintenance cleaner.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset service: purge tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// findAccount resolves the identifier within the account kind.
func (s *PasswordResetService) findAccount(ctx context.Context, kind models.AccountKind, identifier string) (models.Account, error) {
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
			return nil, fmt.Errorf("password reset service: find patient: %w", err)
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
			return nil, fmt.Errorf("password reset service: find doctor: %w", err)
		}
		return &doctor, nil
	default:
		return nil, fmt.Errorf("password reset service: unknown account kind %q", kind)
	}
}
