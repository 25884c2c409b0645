package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/pkg/crypto"
	apperrors "github.com/medconnecthq/medconnect/pkg/errors"
)

// ErrNoPendingChange indicates a confirmation arrived without a prior request.
var ErrNoPendingChange = apperrors.NewBadRequest("no pending contact change")

// RequestContactChange stages a new email or phone for the account and sends
// a six digit confirmation code to the new contact. The live contact is only
// overwritten after ConfirmContactChange succeeds.
func (s *IdentityService) RequestContactChange(ctx context.Context, kind models.AccountKind, accountID, newEmail, newPhone string) error {
	ctx = ensureContext(ctx)

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	newPhone = strings.TrimSpace(newPhone)
	if newEmail == "" && newPhone == "" {
		return apperrors.NewBadRequest("no new contact provided")
	}

	model, err := s.loadByID(ctx, kind, accountID)
	if err != nil {
		return err
	}

	if err := s.checkContactAvailable(ctx, kind, accountID, newEmail, newPhone); err != nil {
		return err
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("identity service: generate code: %w", err)
	}

	updates := map[string]any{
		"verification_code_hash": crypto.HashToken(code),
		"pending_email":          optional(newEmail),
		"pending_phone":          optional(newPhone),
	}
	if err := s.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return fmt.Errorf("identity service: stage contact change: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, newEmail, newPhone, "Confirm Your New Contact",
		fmt.Sprintf("Your verification code is: %s", code)); err != nil {
		return apperrors.ErrUpstream.WithInternal(err)
	}

	return nil
}

// ConfirmContactChange applies the staged contact after the code matches.
// When the caller repeats the new contact values they must equal the staged
// ones. Uniqueness is re-checked right before the overwrite.
func (s *IdentityService) ConfirmContactChange(ctx context.Context, kind models.AccountKind, accountID, newEmail, newPhone, code string) error {
	ctx = ensureContext(ctx)

	canonical, err := normaliseCode(code)
	if err != nil {
		return ErrInvalidCode
	}

	model, err := s.loadByID(ctx, kind, accountID)
	if err != nil {
		return err
	}

	var codeHash string
	var pendingEmail, pendingPhone *string
	switch a := model.(type) {
	case *models.Patient:
		codeHash, pendingEmail, pendingPhone = a.VerificationCodeHash, a.PendingEmail, a.PendingPhone
	case *models.Doctor:
		codeHash, pendingEmail, pendingPhone = a.VerificationCodeHash, a.PendingEmail, a.PendingPhone
	}

	if pendingEmail == nil && pendingPhone == nil {
		return ErrNoPendingChange
	}
	if !crypto.VerifyTokenHash(codeHash, canonical) {
		return ErrInvalidCode
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	newPhone = strings.TrimSpace(newPhone)
	if newEmail != "" && newEmail != strDeref(pendingEmail) {
		return apperrors.NewBadRequest("contact does not match the pending change")
	}
	if newPhone != "" && newPhone != strDeref(pendingPhone) {
		return apperrors.NewBadRequest("contact does not match the pending change")
	}

	if err := s.checkContactAvailable(ctx, kind, accountID, strDeref(pendingEmail), strDeref(pendingPhone)); err != nil {
		return err
	}

	updates := map[string]any{
		"verification_code_hash": "",
		"pending_email":          nil,
		"pending_phone":          nil,
	}
	if pendingEmail != nil {
		updates["email"] = *pendingEmail
	}
	if pendingPhone != nil {
		updates["phone"] = *pendingPhone
	}

	if err := s.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrContactTaken
		}
		return fmt.Errorf("identity service: apply contact change: %w", err)
	}

	return nil
}

// loadByID fetches the concrete account row for the kind.
func (s *IdentityService) loadByID(ctx context.Context, kind models.AccountKind, accountID string) (any, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrAccountNotFound
	}

	switch kind {
	case models.KindPatient:
		var patient models.Patient
		err := s.db.WithContext(ctx).First(&patient, "id = ?", accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("identity service: load patient: %w", err)
		}
		return &patient, nil
	case models.KindDoctor:
		var doctor models.Doctor
		err := s.db.WithContext(ctx).First(&doctor, "id = ?", accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("identity service: load doctor: %w", err)
		}
		return &doctor, nil
	default:
		return nil, fmt.Errorf("identity service: unknown account kind %q", kind)
	}
}

// checkContactAvailable rejects a contact already held by another account of
// the same kind.
func (s *IdentityService) checkContactAvailable(ctx context.Context, kind models.AccountKind, excludeID, email, phone string) error {
	if email == "" && phone == "" {
		return nil
	}

	var query *gorm.DB
	switch kind {
	case models.KindPatient:
		query = s.db.WithContext(ctx).Model(&models.Patient{})
	case models.KindDoctor:
		query = s.db.WithContext(ctx).Model(&models.Doctor{})
	default:
		return fmt.Errorf("identity service: unknown account kind %q", kind)
	}

	var count int64
	if err := scopeContact(query, email, phone).Where("id <> ?", excludeID).Count(&count).Error; err != nil {
		return fmt.Errorf("identity service: check contact availability: %w", err)
	}
	if count > 0 {
		return ErrContactTaken
	}
	return nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
