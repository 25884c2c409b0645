package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the MedConnect backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	SMS         SMSConfig         `mapstructure:"sms"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds request volume per client IP and path.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT   JWTSettings   `mapstructure:"jwt"`
	Admin AdminSettings `mapstructure:"admin"`
	Reset ResetSettings `mapstructure:"reset"`
}

// JWTSettings configures JWT access tokens. PatientTTL/DoctorTTL/AdminTTL
// override the base TTL per role when set.
type JWTSettings struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	TTL        time.Duration `mapstructure:"access_token_ttl"`
	PatientTTL time.Duration `mapstructure:"patient_token_ttl"`
	DoctorTTL  time.Duration `mapstructure:"doctor_token_ttl"`
	AdminTTL   time.Duration `mapstructure:"admin_token_ttl"`
}

// AdminSettings describes the administrator account seeded at start-up.
type AdminSettings struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// ResetSettings bounds password reset token lifetimes per account kind.
type ResetSettings struct {
	PatientTokenTTL time.Duration `mapstructure:"patient_token_ttl"`
	DoctorTokenTTL  time.Duration `mapstructure:"doctor_token_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMSConfig defines the outbound SMS gateway settings.
type SMSConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Sender  string        `mapstructure:"sender"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig locates the upload directory and its public URL prefix.
type StorageConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background cleanup of expired reset tokens.
type MaintenanceConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("MEDCONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/medconnect.sqlite")

	v.SetDefault("auth.jwt.issuer", "medconnect")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")
	v.SetDefault("auth.jwt.patient_token_ttl", "1h")
	v.SetDefault("auth.jwt.doctor_token_ttl", "2h")
	v.SetDefault("auth.jwt.admin_token_ttl", "1h")
	v.SetDefault("auth.reset.patient_token_ttl", "1h")
	v.SetDefault("auth.reset.doctor_token_ttl", "15m")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.timeout", "10s")

	v.SetDefault("storage.dir", "./data/uploads")
	v.SetDefault("storage.base_url", "/uploads")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
