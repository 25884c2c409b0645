package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/api"
	"github.com/medconnecthq/medconnect/internal/app"
	"github.com/medconnecthq/medconnect/internal/app/maintenance"
	iauth "github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/internal/database"
	"github.com/medconnecthq/medconnect/internal/notify"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/internal/storage"
	"github.com/medconnecthq/medconnect/pkg/logger"
	"github.com/medconnecthq/medconnect/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("medconnect-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	smsSender, err := notify.NewGatewaySender(cfg.SMS.GatewaySettings())
	if err != nil {
		return fmt.Errorf("initialise sms gateway: %w", err)
	}

	dispatcher := notify.NewDispatcher(mailer, smsSender)

	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("initialise file store: %w", err)
	}

	identitySvc, err := services.NewIdentityService(db, jwtService, dispatcher)
	if err != nil {
		return fmt.Errorf("initialise identity service: %w", err)
	}

	profileSvc, err := services.NewProfileService(db)
	if err != nil {
		return fmt.Errorf("initialise profile service: %w", err)
	}

	resetSvc, err := services.NewPasswordResetService(db, dispatcher, cfg.Auth.ResetOptions()...)
	if err != nil {
		return fmt.Errorf("initialise password reset service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		cleaner := maintenance.NewCleaner(resetSvc, maintenance.WithTokenSchedule(cfg.Maintenance.Schedule))
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			stopCtx := cleaner.Stop()
			if err := cleaner.RunOnce(stopCtx); err != nil {
				log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			}
		}()
	}

	router, err := api.NewRouter(jwtService, cfg, api.Dependencies{
		Identity: identitySvc,
		Profiles: profileSvc,
		Resets:   resetSvc,
		Store:    store,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.Options()

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	if err := database.SeedAdmin(db, cfg.Auth.AdminSeed()); err != nil {
		return nil, fmt.Errorf("seed admin account: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("obtain database handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
