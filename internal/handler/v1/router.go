package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	CORS       config.CORSConfig
	RateLimit  config.RateLimitConfig
	JWT        *auth.JWTManager
	Metrics    *metrics.Collector
	Log        *zap.Logger
	Production bool
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		Recovery(cfg.Log),
		RequestID(),
		AccessLog(cfg.Log),
		Metrics(cfg.Metrics),
		CORS(cfg.CORS),
		NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize).Middleware(),
	)

	authPerMinute := max(cfg.RateLimit.AuthRequestsPerMinute, 1)
	loginLimit := NewRateLimiter(rate.Every(time.Minute/time.Duration(authPerMinute)), authPerMinute).Middleware()

	api := r.Group("/api/v1")

	api.GET("/health", h.Health)
	api.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api.POST("/patients/register", loginLimit, h.RegisterPatient)
	api.POST("/patients/login", loginLimit, h.PatientLogin)
	api.POST("/admin/login", loginLimit, h.AdminLogin)
	api.POST("/auth/refresh", loginLimit, h.Refresh)

	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/available", h.ListAvailableDoctors)
	api.GET("/doctors/specialties", h.ListSpecialties)

	authenticated := api.Group("", Authenticate(cfg.JWT))

	patients := authenticated.Group("", RequireRole(domain.RolePatient))
	{
		patients.GET("/patients/me", h.GetMyProfile)
		patients.PUT("/patients/me", h.UpdateMyProfile)

		patients.POST("/appointments", h.CreateAppointment)
		patients.GET("/appointments/mine", h.MyAppointments)
		patients.GET("/appointments/availability", h.CheckAvailability)
		patients.GET("/appointments/:id", h.GetAppointment)
		patients.PUT("/appointments/:id", h.UpdateAppointment)
		patients.DELETE("/appointments/:id", h.CancelAppointment)
	}

	admin := authenticated.Group("/admin", RequireRole(domain.RoleAdmin))
	{
		admin.GET("/dashboard/stats", h.DashboardStats)

		admin.GET("/patients", h.AdminListPatients)
		admin.GET("/patients-select", h.AdminPatientsForSelect)
		admin.PUT("/patients/:id", h.AdminUpdatePatient)
		admin.DELETE("/patients/:id", h.AdminDeactivatePatient)

		admin.GET("/doctors", h.AdminListDoctors)
		admin.GET("/doctors-select", h.AdminDoctorsForSelect)
		admin.POST("/doctors", h.AdminCreateDoctor)
		admin.PUT("/doctors/:id", h.AdminUpdateDoctor)

		admin.GET("/appointments", h.AdminListAppointments)
		admin.POST("/appointments", h.AdminCreateAppointment)
		admin.GET("/appointments/:id", h.GetAppointment)
		admin.PUT("/appointments/:id", h.UpdateAppointment)
		admin.DELETE("/appointments/:id", h.CancelAppointment)

		admin.GET("/reports", h.Report)
		admin.GET("/activity", h.RecentActivity)
	}

	return r
}
