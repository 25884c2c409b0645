package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/internal/database"
	"github.com/medconnecthq/medconnect/internal/database/testutil"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/pkg/crypto"
	apperrors "github.com/medconnecthq/medconnect/pkg/errors"
)

type recordedMessage struct {
	Email   string
	Phone   string
	Subject string
	Body    string
}

// fakeDispatcher records outbound messages so tests can read the plaintext
// codes that are otherwise only stored as digests.
type fakeDispatcher struct {
	mu       sync.Mutex
	messages []recordedMessage
	fail     bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, email, phone, subject, body string) error {
	if f.fail {
		return errors.New("dispatch failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, recordedMessage{Email: email, Phone: phone, Subject: subject, Body: body})
	return nil
}

func (f *fakeDispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	return f.Dispatch(ctx, to, "", subject, body)
}

func (f *fakeDispatcher) SendSMS(ctx context.Context, to, body string) error {
	return f.Dispatch(ctx, "", to, "", body)
}

func (f *fakeDispatcher) last(t *testing.T) recordedMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

// lastCode extracts the six digit code from the most recent message body.
func (f *fakeDispatcher) lastCode(t *testing.T) string {
	t.Helper()
	body := f.last(t).Body
	idx := strings.LastIndex(body, ": ")
	require.Greater(t, idx, 0, "no code in message body %q", body)
	return body[idx+2:]
}

func newTestIdentity(t *testing.T, db *gorm.DB, opts ...IdentityOption) (*IdentityService, *iauth.JWTService, *fakeDispatcher) {
	t.Helper()

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "medconnect"})
	require.NoError(t, err)

	dispatcher := &fakeDispatcher{}
	svc, err := NewIdentityService(db, jwt, dispatcher, opts...)
	require.NoError(t, err)
	return svc, jwt, dispatcher
}

func appCode(err error) string {
	return apperrors.FromError(err).Code
}

func TestRegisterPatientStoresHashedSecrets(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)

	patient, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.False(t, patient.IsVerified)
	require.Equal(t, "alice@example.com", patient.ContactEmail())
	require.NotEqual(t, "password123", patient.Password)
	require.NotEmpty(t, patient.VerificationCodeHash)

	code := dispatcher.lastCode(t)
	require.Len(t, code, 6)
	require.Equal(t, crypto.HashToken(code), patient.VerificationCodeHash)
	require.Equal(t, "alice@example.com", dispatcher.last(t).Email)
}

func TestRegisterPatientRequiresContact(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, _ := newTestIdentity(t, db)

	_, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Password: "password123",
	})
	require.ErrorIs(t, err, ErrContactRequired)
}

func TestRegisterPatientShortPasswordLeavesStoreUntouched(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)

	_, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	require.ErrorIs(t, err, ErrPasswordTooShort)

	var count int64
	require.NoError(t, db.Model(&models.Patient{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, dispatcher.messages)
}

func TestRegisterPatientDuplicateContactConflicts(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, _ := newTestIdentity(t, db)

	_, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Imposter",
		Email:    "alice@example.com",
		Password: "password456",
	})
	require.ErrorIs(t, err, ErrContactTaken)

	var count int64
	require.NoError(t, db.Model(&models.Patient{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterPatientDispatchFailureSurfaces(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)
	dispatcher.fail = true

	_, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	require.Equal(t, "UPSTREAM_ERROR", appCode(err))
}

func TestLoginUnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)

	_, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAccount(context.Background(), models.KindPatient, "alice@example.com", dispatcher.lastCode(t)))

	_, unknownErr := svc.Login(context.Background(), models.KindPatient, "nobody@example.com", "password123")
	_, wrongErr := svc.Login(context.Background(), models.KindPatient, "alice@example.com", "not-the-password")

	require.ErrorIs(t, unknownErr, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, apperrors.ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestPatientLifecycleRegisterVerifyLogin(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, jwt, dispatcher := newTestIdentity(t, db)
	ctx := context.Background()

	patient, err := svc.RegisterPatient(ctx, RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	// Login before verification is forbidden.
	_, err = svc.Login(ctx, models.KindPatient, "alice@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrAccountNotVerified)

	code := dispatcher.lastCode(t)
	require.NoError(t, svc.VerifyAccount(ctx, models.KindPatient, "alice@example.com", code))

	token, err := svc.Login(ctx, models.KindPatient, "alice@example.com", "password123")
	require.NoError(t, err)

	claims, err := jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, patient.ID, claims.UserID)
	require.Equal(t, models.RolePatient, claims.Role)

	// The code is consumed; a second submission fails.
	err = svc.VerifyAccount(ctx, models.KindPatient, "alice@example.com", code)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyAccountRejectsMalformedCodes(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, _ := newTestIdentity(t, db)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, RegisterPatientInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "abcdef", "000001"} {
		require.ErrorIs(t, svc.VerifyAccount(ctx, models.KindPatient, "alice@example.com", code), ErrInvalidCode)
	}
}

func TestDoctorLoginRequiresApproval(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)
	ctx := context.Background()

	doctor, err := svc.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:      "Dr. Bob",
		Specialty: "Cardiology",
		Email:     "bob@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)
	require.False(t, doctor.IsApproved)

	require.NoError(t, svc.VerifyAccount(ctx, models.KindDoctor, "bob@example.com", dispatcher.lastCode(t)))

	// Contact verified, still awaiting the admin.
	_, err = svc.Login(ctx, models.KindDoctor, "bob@example.com", "password123")
	require.ErrorIs(t, err, ErrDoctorNotApproved)

	approved, err := svc.ApproveDoctor(ctx, doctor.ID)
	require.NoError(t, err)
	require.True(t, approved.IsApproved)

	token, err := svc.Login(ctx, models.KindDoctor, "bob@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The approval notice went to the doctor's email.
	require.Equal(t, "bob@example.com", dispatcher.last(t).Email)
}

func TestApproveDoctorUnknownID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, _ := newTestIdentity(t, db)

	_, err := svc.ApproveDoctor(context.Background(), "3f2a36a1-21d0-4f9e-86f0-000000000000")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestLoginByPhoneIdentifier(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _, dispatcher := newTestIdentity(t, db)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, RegisterPatientInput{
		Name:     "Carol",
		Phone:    "+15550001111",
		Password: "password123",
	})
	require.NoError(t, err)

	// The code went out via SMS.
	require.Equal(t, "+15550001111", dispatcher.last(t).Phone)

	require.NoError(t, svc.VerifyAccount(ctx, models.KindPatient, "+15550001111", dispatcher.lastCode(t)))

	token, err := svc.Login(ctx, models.KindPatient, "+15550001111", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestLoginAdmin(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, jwt, _ := newTestIdentity(t, db)
	ctx := context.Background()

	require.NoError(t, database.SeedAdmin(db, database.AdminSeed{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "admin-password",
	}))

	token, err := svc.LoginAdmin(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)

	claims, err := jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.LoginAdmin(ctx, "root@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.LoginAdmin(ctx, "ghost@example.com", "admin-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
