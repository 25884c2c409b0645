package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/models"
)

// ProfileService reads and updates account profile data. Credential and
// contact fields are out of its reach; those flow through IdentityService.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// GetPatient returns the patient row for the id.
func (s *ProfileService) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	ctx = ensureContext(ctx)

	var patient models.Patient
	err := s.db.WithContext(ctx).First(&patient, "id = ?", strings.TrimSpace(patientID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load patient: %w", err)
	}
	return &patient, nil
}

// GetDoctor returns the doctor row for the id.
func (s *ProfileService) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	ctx = ensureContext(ctx)

	var doctor models.Doctor
	err := s.db.WithContext(ctx).First(&doctor, "id = ?", strings.TrimSpace(doctorID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load doctor: %w", err)
	}
	return &doctor, nil
}

// UpdatePatientInput carries the mutable patient profile fields. Nil pointers
// leave the stored value untouched.
type UpdatePatientInput struct {
	Name   *string
	Avatar *string
}

// UpdatePatient applies a partial profile update and returns the fresh row.
func (s *ProfileService) UpdatePatient(ctx context.Context, patientID string, input UpdatePatientInput) (*models.Patient, error) {
	ctx = ensureContext(ctx)

	patient, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if len(updates) == 0 {
		return patient, nil
	}

	if err := s.db.WithContext(ctx).Model(patient).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile service: update patient: %w", err)
	}
	return s.GetPatient(ctx, patientID)
}

// UpdateDoctorInput carries the mutable doctor profile fields. Nil pointers
// leave the stored value untouched.
type UpdateDoctorInput struct {
	Name         *string
	Specialty    *string
	Title        *string
	Avatar       *string
	WorkingHours datatypes.JSON
}

// UpdateDoctor applies a partial profile update and returns the fresh row.
func (s *ProfileService) UpdateDoctor(ctx context.Context, doctorID string, input UpdateDoctorInput) (*models.Doctor, error) {
	ctx = ensureContext(ctx)

	doctor, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Specialty != nil {
		updates["specialty"] = strings.TrimSpace(*input.Specialty)
	}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if input.WorkingHours != nil {
		updates["working_hours"] = input.WorkingHours
	}
	if len(updates) == 0 {
		return doctor, nil
	}

	if err := s.db.WithContext(ctx).Model(doctor).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile service: update doctor: %w", err)
	}
	return s.GetDoctor(ctx, doctorID)
}

// AppendDoctorDocuments merges newly uploaded document URLs into the doctor's
// document list and returns the fresh row.
func (s *ProfileService) AppendDoctorDocuments(ctx context.Context, doctorID string, urls []string) (*models.Doctor, error) {
	ctx = ensureContext(ctx)

	if len(urls) == 0 {
		return s.GetDoctor(ctx, doctorID)
	}

	doctor, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	existing, err := decodeStringList(doctor.Documents)
	if err != nil {
		return nil, fmt.Errorf("profile service: decode documents: %w", err)
	}

	merged, err := encodeStringList(append(existing, urls...))
	if err != nil {
		return nil, fmt.Errorf("profile service: encode documents: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(doctor).Update("documents", merged).Error; err != nil {
		return nil, fmt.Errorf("profile service: update documents: %w", err)
	}
	return s.GetDoctor(ctx, doctorID)
}

// ListPendingDoctors returns doctors that verified their contact but still
// await admin approval, oldest first. A limit <= 0 returns all rows.
func (s *ProfileService) ListPendingDoctors(ctx context.Context, limit int) ([]models.Doctor, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Where("is_verified = ? AND is_approved = ?", true, false).
		Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var doctors []models.Doctor
	if err := query.Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("profile service: list pending doctors: %w", err)
	}
	return doctors, nil
}
