package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/handler/v1"
	mongorepo "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/repository/mongo"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/cache"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/mongodb"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/tracer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const metricsNamespace = "clinicbook"

// App owns every long-lived resource of the API process.
type App struct {
	cfg *config.Config
	log *zap.Logger

	db       *gorm.DB
	mongo    *mongo.Client
	redis    *redis.Client
	tp       *sdktrace.TracerProvider
	activity *service.ActivityService
	server   *http.Server
}

// New connects to every configured backend and wires the HTTP server. On
// error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	app := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			app.Close(context.Background())
		}
	}()

	app.tp, err = tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("initialising tracer: %w", err)
	}

	m := metrics.NewCollector(metricsNamespace, prometheus.DefaultRegisterer)

	app.db, err = database.Connect(cfg.Database, log, m)
	if err != nil {
		return nil, err
	}

	checks := map[string]v1.HealthChecker{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := app.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var activityRepo service.ActivityRepository
	if cfg.Mongo.Enabled {
		app.mongo, err = mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		repo := mongorepo.NewActivityRepository(app.mongo, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn("activity indexes not created", zap.Error(err))
		}
		activityRepo = repo
		checks["mongo"] = func(ctx context.Context) error { return app.mongo.Ping(ctx, nil) }
	} else {
		log.Info("mongo disabled; activity entries go to the structured log")
	}

	var statsCache service.StatsCache
	if cfg.Redis.Enabled {
		app.redis, err = cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		statsCache = cache.NewStore(app.redis)
		checks["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}

	loc := cfg.Clinic.Location()
	jwtManager := auth.NewJWTManager(cfg.JWT)

	appointmentRepo := postgres.NewAppointmentRepository(app.db, loc)
	patientRepo := postgres.NewPatientRepository(app.db)
	doctorRepo := postgres.NewDoctorRepository(app.db)
	adminRepo := postgres.NewAdminRepository(app.db)
	reportRepo := postgres.NewReportRepository(app.db)

	app.activity = service.NewActivityService(activityRepo, m, log)
	validator := service.NewSlotValidator(doctorRepo, patientRepo, service.NewSlotPolicy(cfg.Clinic))

	h := v1.NewHandler(v1.Services{
		Appointments: service.NewAppointmentService(appointmentRepo, validator, app.activity, m, log),
		Patients:     service.NewPatientService(patientRepo, app.activity, m, log),
		Doctors:      service.NewDoctorService(doctorRepo, app.activity, log),
		Auth:         service.NewAuthService(patientRepo, adminRepo, jwtManager, app.activity, m, log),
		Dashboard:    service.NewDashboardService(reportRepo, statsCache, cfg.Redis.StatsTTL, loc, log),
		Activity:     app.activity,
	}, checks, loc, cfg.App.Version, log)

	router := v1.NewRouter(h, v1.RouterConfig{
		CORS:       cfg.CORS,
		RateLimit:  cfg.RateLimit,
		JWT:        jwtManager,
		Metrics:    m,
		Log:        log,
		Production: cfg.App.IsProduction(),
	})

	app.server = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// Close flushes the activity worker and releases every connection.
func (a *App) Close(ctx context.Context) {
	if a.activity != nil {
		a.activity.Shutdown()
	}
	if a.tp != nil {
		if err := a.tp.Shutdown(ctx); err != nil {
			a.log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// MigrateDatabase connects to postgres and applies the schema.
func MigrateDatabase(cfg *config.Config, log *zap.Logger) error {
	m := metrics.NewCollector(metricsNamespace, prometheus.NewRegistry())
	db, err := database.Connect(cfg.Database, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	return database.Migrate(db, log)
}

// CreateAdmin provisions an admin account directly against postgres.
func CreateAdmin(ctx context.Context, cfg *config.Config, log *zap.Logger, username, password, fullName, email string) error {
	m := metrics.NewCollector(metricsNamespace, prometheus.NewRegistry())
	db, err := database.Connect(cfg.Database, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	activity := service.NewActivityService(nil, m, log)
	defer activity.Shutdown()

	svc := service.NewAuthService(postgres.NewPatientRepository(db), postgres.NewAdminRepository(db),
		auth.NewJWTManager(cfg.JWT), activity, m, log)
	a, err := svc.CreateAdmin(ctx, username, password, fullName, email)
	if err != nil {
		return err
	}
	log.Info("admin created", zap.String("admin_id", a.ID.String()), zap.String("username", a.Username))
	return nil
}
