package v1

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService interface {
	Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Detail, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, page, pageSize int) (*appointment.PagedAppointments, error)
	List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error)
	CheckAvailability(ctx context.Context, doctorID uuid.UUID, startTime string) (*service.Availability, error)
}

type PatientService interface {
	Register(ctx context.Context, cmd *patient.RegisterPatientCommand, actor domain.Actor) (*patient.Patient, error)
	Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error)
	Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, actor domain.Actor) (*patient.Patient, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor domain.Actor) error
	List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error)
	ListForSelect(ctx context.Context) ([]*patient.Patient, error)
}

type DoctorService interface {
	List(ctx context.Context, specialty string) ([]*doctor.Doctor, error)
	ListAvailable(ctx context.Context, specialty string) ([]*doctor.Doctor, error)
	ListSpecialties(ctx context.Context) ([]string, error)
	Search(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error)
	ListForSelect(ctx context.Context) ([]*doctor.Doctor, error)
	Create(ctx context.Context, cmd *doctor.CreateDoctorCommand, actor domain.Actor) (*doctor.Doctor, error)
	Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand, actor domain.Actor) (*doctor.Doctor, error)
}

type AuthService interface {
	PatientLogin(ctx context.Context, email, password string, actor domain.Actor) (*domain.TokenPair, error)
	AdminLogin(ctx context.Context, username, password string, actor domain.Actor) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

type DashboardService interface {
	Stats(ctx context.Context) (*report.Stats, error)
	Report(ctx context.Context, typ report.Type, start, end string) (*report.Report, error)
}

type ActivityService interface {
	Recent(ctx context.Context, limit int, entryType string) ([]*domain.ActivityLog, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

type Handler struct {
	appointments AppointmentService
	patients     PatientService
	doctors      DoctorService
	auth         AuthService
	dashboard    DashboardService
	activity     ActivityService
	checks       map[string]HealthChecker
	loc          *time.Location
	version      string
	log          *zap.Logger
}

type Services struct {
	Appointments AppointmentService
	Patients     PatientService
	Doctors      DoctorService
	Auth         AuthService
	Dashboard    DashboardService
	Activity     ActivityService
}

func NewHandler(svcs Services, checks map[string]HealthChecker, loc *time.Location, version string, log *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		appointments: svcs.Appointments,
		patients:     svcs.Patients,
		doctors:      svcs.Doctors,
		auth:         svcs.Auth,
		dashboard:    svcs.Dashboard,
		activity:     svcs.Activity,
		checks:       checks,
		loc:          loc,
		version:      version,
		log:          log,
	}
}
