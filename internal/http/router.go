package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medira/clinic-server/internal/config"
	"github.com/medira/clinic-server/internal/http/features/admin"
	"github.com/medira/clinic-server/internal/http/features/appointments"
	"github.com/medira/clinic-server/internal/http/features/billing"
	"github.com/medira/clinic-server/internal/http/features/me"
	"github.com/medira/clinic-server/internal/http/features/notifications"
	"github.com/medira/clinic-server/internal/http/features/otp"
	"github.com/medira/clinic-server/internal/http/features/password"
	"github.com/medira/clinic-server/internal/http/features/patients"
	"github.com/medira/clinic-server/internal/http/features/pharmacy"
	"github.com/medira/clinic-server/internal/http/features/session"
	"github.com/medira/clinic-server/internal/http/features/totp"
	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/internal/notification"
	"github.com/medira/clinic-server/internal/offline"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/ratelimit"
	"github.com/medira/clinic-server/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger
	DB     *sql.DB

	Gate             *auth.Gate
	PasswordService  *auth.PasswordService
	SessionService   *auth.SessionService
	OTPService       *auth.OTPService
	TOTPService      *auth.TOTPService // nil disables two-step verification routes
	ShareLinkService *auth.ShareLinkService

	UsersRepo        *repository.UsersRepository
	ProfilesRepo     *repository.ProfilesRepository
	PatientsRepo     *repository.PatientsRepository
	AppointmentsRepo *repository.AppointmentsRepository
	InvoicesRepo     *repository.InvoicesRepository
	InventoryRepo    *repository.InventoryRepository

	WhatsApp     *notification.WhatsAppClient
	Email        *notification.EmailService
	SendLog      *notification.Log
	OfflineQueue *offline.Queue

	// Limiters are the identity-keyed limiters by name: login,
	// otp-send, otp-verify.
	Limiters map[string]*ratelimit.Limiter

	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	MaxRequestBody  int64
	CookieConfig    httputil.CookieConfig
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ipLimit := middleware.NoRateLimit()
	if cfg.RateLimit.Enabled {
		ipLimit = middleware.IPRateLimit(middleware.IPRateLimitConfig{
			Requests: cfg.RateLimit.IPRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
	}

	staffOnly := middleware.Authenticate(cfg.Gate, domain.RoleAdmin, domain.RoleDoctor, domain.RolePharmacist)
	adminOnly := middleware.Authenticate(cfg.Gate, domain.RoleAdmin)
	deskRoles := middleware.Authenticate(cfg.Gate, domain.RoleAdmin, domain.RoleDoctor)
	billingRoles := middleware.Authenticate(cfg.Gate, domain.RoleAdmin, domain.RolePharmacist)
	patientOnly := middleware.Authenticate(cfg.Gate, domain.RolePatient)
	anyRole := middleware.Authenticate(cfg.Gate)

	// Authentication
	passwordHandler := password.NewHandler(cfg.Logger, cfg.PasswordService, cfg.SessionService, cfg.TOTPService, cfg.Limiters["login"], cfg.CookieConfig)
	otpHandler := otp.NewHandler(cfg.Logger, cfg.OTPService, cfg.SessionService, cfg.Limiters["otp-send"], cfg.Limiters["otp-verify"], cfg.CookieConfig)
	sessionHandler := session.NewHandler(cfg.Logger, cfg.SessionService, cfg.CookieConfig)
	r.Group(func(r chi.Router) {
		r.Use(ipLimit)
		r.Post("/v1/auth/login", passwordHandler.Login)
		r.Post("/v1/auth/otp/request", otpHandler.RequestCode)
		r.Post("/v1/auth/otp/verify", otpHandler.VerifyCode)
	})
	r.Post("/v1/auth/logout", sessionHandler.Logout)
	r.With(anyRole).Post("/v1/auth/logout/all", sessionHandler.LogoutAll)

	if cfg.TOTPService != nil {
		totpHandler := totp.NewHandler(cfg.Logger, cfg.TOTPService)
		r.Group(func(r chi.Router) {
			r.Use(staffOnly)
			r.Post("/v1/auth/totp/setup", totpHandler.Setup)
			r.Post("/v1/auth/totp/enable", totpHandler.Enable)
			r.Post("/v1/auth/totp/disable", totpHandler.Disable)
		})
	}

	// Profile
	meHandler := me.NewHandler()
	r.With(anyRole).Get("/v1/me", meHandler.Get)
	r.With(staffOnly).Post("/v1/me/password", passwordHandler.ChangePassword)

	// Patient records
	patientsHandler := patients.NewHandler(cfg.Logger, cfg.PatientsRepo)
	billingHandler := billing.NewHandler(cfg.Logger, cfg.DB, cfg.InvoicesRepo, cfg.PatientsRepo, cfg.ShareLinkService, cfg.OfflineQueue, cfg.Email, cfg.SendLog)
	r.Group(func(r chi.Router) {
		r.Use(deskRoles)
		r.Post("/v1/patients", patientsHandler.Create)
		r.Get("/v1/patients", patientsHandler.Search)
		r.Get("/v1/patients/{id}", patientsHandler.Get)
		r.Put("/v1/patients/{id}", patientsHandler.Update)
		r.Get("/v1/patients/{id}/invoices", billingHandler.Statement)
	})

	// Appointments
	apptHandler := appointments.NewHandler(cfg.Logger, cfg.AppointmentsRepo, cfg.PatientsRepo, cfg.UsersRepo, cfg.ProfilesRepo, cfg.WhatsApp, cfg.Email, cfg.SendLog)
	r.With(anyRole).Get("/v1/doctors", apptHandler.Doctors)
	r.With(middleware.Authenticate(cfg.Gate, domain.RoleAdmin, domain.RoleDoctor, domain.RolePatient)).
		Post("/v1/appointments", apptHandler.Book)
	r.With(deskRoles).Get("/v1/appointments/day", apptHandler.DayList)
	r.With(patientOnly).Get("/v1/appointments/mine", apptHandler.Mine)
	r.With(middleware.Authenticate(cfg.Gate, domain.RoleAdmin, domain.RoleDoctor, domain.RolePatient)).
		Post("/v1/appointments/{id}/cancel", apptHandler.Cancel)
	r.With(deskRoles).Post("/v1/appointments/{id}/complete", apptHandler.Complete)
	r.With(adminOnly).Post("/v1/appointments/{id}/remind", apptHandler.Remind)

	// Billing
	r.Group(func(r chi.Router) {
		r.Use(billingRoles)
		r.Post("/v1/invoices", billingHandler.Create)
		r.Post("/v1/invoices/sync", billingHandler.Sync)
		r.Post("/v1/invoices/{id}/pay", billingHandler.Pay)
		r.Post("/v1/invoices/{id}/share", billingHandler.Share)
	})
	r.With(patientOnly).Get("/v1/invoices/mine", billingHandler.Mine)
	r.With(anyRole).Get("/v1/invoices/{id}", billingHandler.Get)
	r.With(adminOnly).Get("/v1/ledger", billingHandler.Ledger)
	r.Get("/v1/public/invoices/{token}", billingHandler.PublicDownload)

	// Pharmacy
	pharmacyHandler := pharmacy.NewHandler(cfg.Logger, cfg.DB, cfg.InventoryRepo)
	r.Group(func(r chi.Router) {
		r.Use(billingRoles)
		r.Put("/v1/stock", pharmacyHandler.UpsertStock)
		r.Get("/v1/stock/low", pharmacyHandler.LowStock)
		r.Get("/v1/stock/expiring", pharmacyHandler.Expiring)
	})
	r.With(middleware.Authenticate(cfg.Gate, domain.RolePharmacist)).
		Post("/v1/dispense", pharmacyHandler.Dispense)

	// Notification send history
	notificationsHandler := notifications.NewHandler(cfg.Logger, cfg.SendLog)
	r.With(adminOnly).Get("/v1/notifications", notificationsHandler.List)

	// Administration
	adminHandler := admin.NewHandler(cfg.Logger, cfg.PasswordService, cfg.SessionService, cfg.UsersRepo, cfg.ProfilesRepo, cfg.Limiters)
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/v1/admin/users", adminHandler.CreateStaff)
		r.Post("/v1/admin/users/{id}/activate", adminHandler.Activate)
		r.Post("/v1/admin/users/{id}/deactivate", adminHandler.Deactivate)
		r.Post("/v1/admin/ratelimit/reset", adminHandler.ResetLimit)
	})

	return r
}
