package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/medconnecthq/medconnect/internal/database/testutil"
	"github.com/medconnecthq/medconnect/internal/models"
)

func TestUpdatePatientPartialFields(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	identity, _, dispatcher := newTestIdentity(t, db)
	patient := registerVerifiedPatient(t, identity, dispatcher, "alice@example.com")

	svc, err := NewProfileService(db)
	require.NoError(t, err)
	ctx := context.Background()

	name := "Alice Cooper"
	updated, err := svc.UpdatePatient(ctx, patient.ID, UpdatePatientInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", updated.Name)
	require.Equal(t, "alice@example.com", updated.ContactEmail())

	avatar := "/uploads/abc.png"
	updated, err = svc.UpdatePatient(ctx, patient.ID, UpdatePatientInput{Avatar: &avatar})
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", updated.Name)
	require.Equal(t, "/uploads/abc.png", updated.Avatar)
}

func TestUpdatePatientUnknownID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewProfileService(db)
	require.NoError(t, err)

	name := "Nobody"
	_, err = svc.UpdatePatient(context.Background(), "9f2a36a1-21d0-4f9e-86f0-000000000000", UpdatePatientInput{Name: &name})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateDoctorProfileAndWorkingHours(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	identity, _, dispatcher := newTestIdentity(t, db)
	ctx := context.Background()

	doctor, err := identity.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:     "Dr. Bob",
		Email:    "bob@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	_ = dispatcher.lastCode(t)

	svc, err := NewProfileService(db)
	require.NoError(t, err)

	specialty := "Dermatology"
	title := "Consultant"
	hours := datatypes.JSON(`{"mon":["09:00","17:00"]}`)

	updated, err := svc.UpdateDoctor(ctx, doctor.ID, UpdateDoctorInput{
		Specialty:    &specialty,
		Title:        &title,
		WorkingHours: hours,
	})
	require.NoError(t, err)
	require.Equal(t, "Dermatology", updated.Specialty)
	require.Equal(t, "Consultant", updated.Title)
	require.JSONEq(t, `{"mon":["09:00","17:00"]}`, string(updated.WorkingHours))
	require.Equal(t, "Dr. Bob", updated.Name)
}

func TestAppendDoctorDocuments(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	identity, _, _ := newTestIdentity(t, db)
	ctx := context.Background()

	doctor, err := identity.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:         "Dr. Bob",
		Email:        "bob@example.com",
		Password:     "password123",
		DocumentURLs: []string{"/uploads/license.pdf"},
	})
	require.NoError(t, err)

	svc, err := NewProfileService(db)
	require.NoError(t, err)

	updated, err := svc.AppendDoctorDocuments(ctx, doctor.ID, []string{"/uploads/diploma.pdf", "/uploads/id.pdf"})
	require.NoError(t, err)

	var urls []string
	require.NoError(t, json.Unmarshal(updated.Documents, &urls))
	require.Equal(t, []string{"/uploads/license.pdf", "/uploads/diploma.pdf", "/uploads/id.pdf"}, urls)
}

func TestListPendingDoctors(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	identity, _, dispatcher := newTestIdentity(t, db)
	ctx := context.Background()

	pending, err := identity.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:     "Dr. Waiting",
		Email:    "waiting@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NoError(t, identity.VerifyAccount(ctx, models.KindDoctor, "waiting@example.com", dispatcher.lastCode(t)))

	// Unverified doctors do not show up for review.
	_, err = identity.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:     "Dr. Unverified",
		Email:    "unverified@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	svc, err := NewProfileService(db)
	require.NoError(t, err)

	doctors, err := svc.ListPendingDoctors(ctx, 0)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	require.Equal(t, pending.ID, doctors[0].ID)

	doctors, err = svc.ListPendingDoctors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, doctors, 1)

	_, err = identity.ApproveDoctor(ctx, pending.ID)
	require.NoError(t, err)

	doctors, err = svc.ListPendingDoctors(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, doctors)
}
