package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medconnecthq/medconnect/internal/models"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://app.medconnect.example"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 50, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "medconnect", cfg.Database.Name)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "medconnect-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 45*time.Minute, cfg.Auth.JWT.PatientTTL)
	require.Equal(t, 90*time.Minute, cfg.Auth.JWT.DoctorTTL)
	require.Equal(t, 20*time.Minute, cfg.Auth.JWT.AdminTTL)
	require.Equal(t, "root@example.com", cfg.Auth.Admin.Email)
	require.Equal(t, 2*time.Hour, cfg.Auth.Reset.PatientTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.Auth.Reset.DoctorTokenTTL)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.True(t, cfg.SMS.Enabled)
	require.Equal(t, "https://sms.example.com/send", cfg.SMS.URL)
	require.Equal(t, "MedConnect", cfg.SMS.Sender)
	require.Equal(t, 5*time.Second, cfg.SMS.Timeout)

	require.Equal(t, "/var/lib/medconnect/uploads", cfg.Storage.Dir)
	require.Equal(t, "https://cdn.medconnect.example/uploads", cfg.Storage.BaseURL)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.Schedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 100, cfg.Server.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/medconnect.sqlite", cfg.Database.Path)

	require.Equal(t, time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, time.Hour, cfg.Auth.JWT.PatientTTL)
	require.Equal(t, 2*time.Hour, cfg.Auth.JWT.DoctorTTL)
	require.Equal(t, time.Hour, cfg.Auth.JWT.AdminTTL)
	require.Equal(t, time.Hour, cfg.Auth.Reset.PatientTokenTTL)
	require.Equal(t, 15*time.Minute, cfg.Auth.Reset.DoctorTokenTTL)

	require.False(t, cfg.Email.SMTP.Enabled)
	require.False(t, cfg.SMS.Enabled)

	require.Equal(t, "./data/uploads", cfg.Storage.Dir)
	require.Equal(t, "/uploads", cfg.Storage.BaseURL)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.Schedule)
}

func TestJWTServiceConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret:     "secret",
				Issuer:     "medconnect",
				TTL:        time.Hour,
				PatientTTL: time.Hour,
				DoctorTTL:  2 * time.Hour,
				AdminTTL:   30 * time.Minute,
			},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, "secret", jwtCfg.Secret)
	require.Equal(t, "medconnect", jwtCfg.Issuer)
	require.Equal(t, time.Hour, jwtCfg.AccessTokenTTL)
	require.Equal(t, time.Hour, jwtCfg.RoleTTL[models.RolePatient])
	require.Equal(t, 2*time.Hour, jwtCfg.RoleTTL[models.RoleDoctor])
	require.Equal(t, 30*time.Minute, jwtCfg.RoleTTL[models.RoleAdmin])
}

func TestJWTServiceConfigFallsBackToDefaultTTL(t *testing.T) {
	cfg := Config{Auth: AuthConfig{JWT: JWTSettings{Secret: "secret"}}}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, time.Hour, jwtCfg.AccessTokenTTL)
	require.Empty(t, jwtCfg.RoleTTL)
}

func TestAdminSeedAdapter(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			Admin: AdminSettings{Name: "Root", Email: "root@example.com", Password: "pw"},
		},
	}

	seed := cfg.Auth.AdminSeed()
	require.Equal(t, "Root", seed.Name)
	require.Equal(t, "root@example.com", seed.Email)
	require.Equal(t, "pw", seed.Password)
}
