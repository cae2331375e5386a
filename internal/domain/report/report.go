package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointmentsBySpecialty Type = "appointments_by_specialty"
	TypePatientActivity         Type = "patient_activity"
	TypeDoctorPerformance       Type = "doctor_performance"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeAppointmentsBySpecialty, TypePatientActivity, TypeDoctorPerformance:
		return true
	}
	return false
}

var ErrInvalidRange = errors.New("start date must not be after end date")

// Stats is the admin dashboard summary.
type Stats struct {
	ActivePatients      int64               `json:"active_patients"`
	Doctors             int64               `json:"doctors"`
	Appointments        int64               `json:"appointments"`
	TodayAppointments   int64               `json:"today_appointments"`
	PendingAppointments int64               `json:"pending_appointments"`
	Recent              []RecentAppointment `json:"recent_appointments"`
	GeneratedAt         time.Time           `json:"generated_at"`
}

type RecentAppointment struct {
	ID          uuid.UUID `json:"id" gorm:"column:id"`
	PatientName string    `json:"patient_name" gorm:"column:patient_name"`
	DoctorName  string    `json:"doctor_name" gorm:"column:doctor_name"`
	Specialty   string    `json:"specialty" gorm:"column:specialty"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"column:scheduled_at"`
	Status      string    `json:"status" gorm:"column:status"`
}

type SpecialtyRow struct {
	Specialty      string  `json:"specialty" gorm:"column:specialty"`
	Appointments   int64   `json:"appointments" gorm:"column:appointments"`
	AvgLeadMinutes float64 `json:"avg_lead_minutes" gorm:"column:avg_lead_minutes"`
}

type PatientActivityRow struct {
	PatientID       uuid.UUID  `json:"patient_id" gorm:"column:patient_id"`
	Name            string     `json:"name" gorm:"column:name"`
	Email           string     `json:"email" gorm:"column:email"`
	Appointments    int64      `json:"appointments" gorm:"column:appointments"`
	LastAppointment *time.Time `json:"last_appointment,omitempty" gorm:"column:last_appointment"`
}

type DoctorPerformanceRow struct {
	DoctorID     uuid.UUID `json:"doctor_id" gorm:"column:doctor_id"`
	Name         string    `json:"name" gorm:"column:name"`
	Specialty    string    `json:"specialty" gorm:"column:specialty"`
	Appointments int64     `json:"appointments" gorm:"column:appointments"`
	Completed    int64     `json:"completed" gorm:"column:completed"`
}

// Report is one generated report. Rows holds a slice of the row type
// matching Type.
type Report struct {
	Type  Type      `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Rows  any       `json:"rows"`
}

// Repository runs the aggregate queries. Ranges are [from, to).
type Repository interface {
	Counts(ctx context.Context, dayStart, dayEnd time.Time) (*Stats, error)
	RecentAppointments(ctx context.Context, limit int) ([]RecentAppointment, error)
	AppointmentsBySpecialty(ctx context.Context, from, to time.Time) ([]SpecialtyRow, error)
	PatientActivity(ctx context.Context, from, to time.Time, limit int) ([]PatientActivityRow, error)
	DoctorPerformance(ctx context.Context, from, to time.Time) ([]DoctorPerformanceRow, error)
}
