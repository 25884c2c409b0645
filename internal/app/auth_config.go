package app

import (
	"time"

	"github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/internal/database"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	roleTTL := make(map[string]time.Duration, 3)
	if c.JWT.PatientTTL > 0 {
		roleTTL[models.RolePatient] = c.JWT.PatientTTL
	}
	if c.JWT.DoctorTTL > 0 {
		roleTTL[models.RoleDoctor] = c.JWT.DoctorTTL
	}
	if c.JWT.AdminTTL > 0 {
		roleTTL[models.RoleAdmin] = c.JWT.AdminTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
		RoleTTL:        roleTTL,
	}
}

// AdminSeed converts AuthConfig into the administrator seed record.
func (c AuthConfig) AdminSeed() database.AdminSeed {
	return database.AdminSeed{
		Name:     c.Admin.Name,
		Email:    c.Admin.Email,
		Password: c.Admin.Password,
	}
}

// ResetOptions converts AuthConfig into PasswordResetService options.
func (c AuthConfig) ResetOptions() []services.ResetOption {
	opts := make([]services.ResetOption, 0, 2)
	if c.Reset.PatientTokenTTL > 0 {
		opts = append(opts, services.WithResetTTL(models.KindPatient, c.Reset.PatientTokenTTL))
	}
	if c.Reset.DoctorTokenTTL > 0 {
		opts = append(opts, services.WithResetTTL(models.KindDoctor, c.Reset.DoctorTokenTTL))
	}
	return opts
}
