package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Patient{},
		&models.Doctor{},
		&models.Admin{},
		&models.PasswordResetToken{},
	)
}

// AdminSeed describes the administrator account provisioned at start-up.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin ensures the configured administrator account exists. The password
// is only applied on first creation; an existing row is left untouched.
func SeedAdmin(db *gorm.DB, seed AdminSeed) error {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(seed.Password) == "" {
		return errors.New("seed admin: password is required")
	}

	hashed, err := crypto.HashPassword(seed.Password)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Name:     strings.TrimSpace(seed.Name),
		Email:    email,
		Password: hashed,
	}
	return db.Where(models.Admin{Email: email}).Attrs(admin).FirstOrCreate(&models.Admin{}).Error
}
