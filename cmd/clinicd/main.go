package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/medira/clinic-server/internal/cleanup"
	"github.com/medira/clinic-server/internal/config"
	httpserver "github.com/medira/clinic-server/internal/http"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/internal/notification"
	"github.com/medira/clinic-server/internal/offline"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/ratelimit"
	"github.com/medira/clinic-server/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.DBConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	if cfg.MigrationsEnabled {
		if err := repository.RunMigrations(db, cfg.MigrationsDir); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations up to date")
	}

	// Repositories
	usersRepo := repository.NewUsersRepository(db)
	credsRepo := repository.NewCredentialsRepository(db)
	profilesRepo := repository.NewProfilesRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	codesRepo := repository.NewCodesRepository(db)
	totpSecretsRepo := repository.NewTOTPSecretsRepository(db)
	patientsRepo := repository.NewPatientsRepository(db)
	appointmentsRepo := repository.NewAppointmentsRepository(db)
	invoicesRepo := repository.NewInvoicesRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)

	// Rate limiting: one shared store, one limiter per purpose.
	var limitStore ratelimit.Store
	var memStore *ratelimit.MemoryStore
	if cfg.HasRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		limitStore = ratelimit.NewRedisStore(redis.NewClient(opts), "ratelimit")
		logger.Info("rate limiting backed by redis")
	} else {
		memStore = ratelimit.NewMemoryStore()
		memStore.StartSweeper(cfg.RateLimit.SweepInterval)
		defer memStore.Stop()
		limitStore = memStore
	}
	limiters := map[string]*ratelimit.Limiter{
		"login": ratelimit.New(ratelimit.Config{
			Interval:    cfg.RateLimit.LoginWindow,
			MaxRequests: cfg.RateLimit.LoginMaxRequests,
			Prefix:      "login",
		}, limitStore, logger),
		"otp-send": ratelimit.New(ratelimit.Config{
			Interval:    cfg.RateLimit.OTPSendWindow,
			MaxRequests: cfg.RateLimit.OTPSendMaxRequests,
			Prefix:      "otp-send",
		}, limitStore, logger),
		"otp-verify": ratelimit.New(ratelimit.Config{
			Interval:    cfg.RateLimit.OTPVerifyWindow,
			MaxRequests: cfg.RateLimit.OTPVerifyMaxRequests,
			Prefix:      "otp-verify",
		}, limitStore, logger),
	}

	// Services
	passwordPolicy := auth.DefaultPasswordPolicy()
	passwordService := auth.NewPasswordService(db, usersRepo, credsRepo, passwordPolicy)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		SessionTTL: cfg.SessionTTL,
	}, sessionsRepo)
	gate := auth.NewGate(sessionsRepo, profilesRepo, logger)
	shareLinkService := auth.NewShareLinkService([]byte(cfg.ShareLinkSecret), "medira-clinic", cfg.ShareLinkTTL)

	var emailService *notification.EmailService
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	}

	var whatsappClient *notification.WhatsAppClient
	if cfg.HasWhatsApp() {
		whatsappClient = notification.NewWhatsAppClient(notification.WhatsAppConfig{
			BaseURL:          cfg.WhatsAppBaseURL,
			PhoneNumberID:    cfg.WhatsAppPhoneNumberID,
			AccessToken:      cfg.WhatsAppAccessToken,
			CodeTTL:          cfg.OTPCodeTTL,
			ReminderTemplate: cfg.WhatsAppReminderTemplate,
		})
		logger.Info("whatsapp messaging enabled")
	}

	sendLog := notification.NewLog(200)

	var codeSender auth.CodeSender
	if whatsappClient != nil {
		codeSender = whatsappClient
	} else {
		codeSender = logSender{logger: logger}
		logger.Warn("whatsapp not configured, login codes are logged instead of sent")
	}
	otpService := auth.NewOTPService(auth.OTPConfig{
		CodeTTL: cfg.OTPCodeTTL,
	}, codesRepo, usersRepo, patientsRepo, codeSender)

	var totpService *auth.TOTPService
	if cfg.HasTOTP() {
		encryptionKey, err := hex.DecodeString(cfg.TOTPEncryptionKey)
		if err != nil || len(encryptionKey) != 32 {
			logger.Error("TOTP_ENCRYPTION_KEY must be 64-char hex (32 bytes)")
			os.Exit(1)
		}
		totpService = auth.NewTOTPService(auth.TOTPConfig{
			Issuer:        cfg.TOTPIssuer,
			EncryptionKey: encryptionKey,
		}, totpSecretsRepo, usersRepo)
		logger.Info("two-step verification enabled")
	}

	// Offline bill buffer with its drainer.
	var offlineQueue *offline.Queue
	var drainer *offline.Drainer
	if cfg.OfflineQueuePath != "" {
		offlineQueue, err = offline.Open(cfg.OfflineQueuePath)
		if err != nil {
			logger.Error("failed to open offline queue", "error", err, "path", cfg.OfflineQueuePath)
			os.Exit(1)
		}
		defer offlineQueue.Close()

		drainer = offline.NewDrainer(offlineQueue, db, invoicesRepo, logger, offline.DrainerConfig{
			Schedule: cfg.OfflineDrainEvery,
		})
		drainer.Start()
		defer drainer.Stop()
		logger.Info("offline bill queue enabled", "path", cfg.OfflineQueuePath)
	}

	// Expired session and code sweep.
	cleaner := cleanup.New(sessionsRepo, codesRepo, logger, cfg.CleanupSchedule)
	cleaner.Start()
	defer cleaner.Stop()

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:           logger,
		DB:               db,
		Gate:             gate,
		PasswordService:  passwordService,
		SessionService:   sessionService,
		OTPService:       otpService,
		TOTPService:      totpService,
		ShareLinkService: shareLinkService,
		UsersRepo:        usersRepo,
		ProfilesRepo:     profilesRepo,
		PatientsRepo:     patientsRepo,
		AppointmentsRepo: appointmentsRepo,
		InvoicesRepo:     invoicesRepo,
		InventoryRepo:    inventoryRepo,
		WhatsApp:         whatsappClient,
		Email:            emailService,
		SendLog:          sendLog,
		OfflineQueue:     offlineQueue,
		Limiters:         limiters,
		RateLimit:        cfg.RateLimit,
		SecurityHeaders:  cfg.SecurityHeaders,
		MaxRequestBody:   cfg.MaxRequestBodySize,
		CookieConfig:     cookieConfig,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// logSender is the development fallback when WhatsApp is not
// configured.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) SendOTP(ctx context.Context, phone, code string) error {
	s.logger.Info("login code issued", "phone", phone, "code", code)
	return nil
}
