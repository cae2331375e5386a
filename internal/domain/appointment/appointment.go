package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	pendiente → confirmada → completada
//	pendiente → completada
//	pendiente → cancelada
//	confirmada → cancelada
type Status string

const (
	StatusPending   Status = "pendiente"
	StatusConfirmed Status = "confirmada"
	StatusCompleted Status = "completada"
	StatusCancelled Status = "cancelada"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	ScheduledAt time.Time `gorm:"column:scheduled_at;not null;index"`
	Reason      string    `gorm:"column:reason;type:text;not null"`
	Status      Status    `gorm:"column:status;type:varchar(20);not null;default:'pendiente';index"`

	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (Appointment) TableName() string {
	return "clinic.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the appointment to newStatus. Setting the current status
// again is a no-op.
func (a *Appointment) TransitionTo(newStatus Status) error {
	if newStatus == a.Status {
		return nil
	}
	if !newStatus.IsValid() || !a.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}
	if newStatus == StatusCancelled {
		now := time.Now()
		a.CancelledAt = &now
	}
	a.Status = newStatus
	return nil
}

func (a *Appointment) Cancel() error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	return a.TransitionTo(StatusCancelled)
}

// Conflicts reports whether two start times collide: same calendar day in loc
// and strictly closer than window.
func Conflicts(a, b time.Time, window time.Duration, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by || am != bm || ad != bd {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff < window
}

// DayBounds returns [start of day, start of next day) for t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Detail is the read model used by listings: the appointment joined with
// patient and doctor names.
type Detail struct {
	Appointment

	PatientFirstName string `gorm:"column:patient_first_name"`
	PatientLastName  string `gorm:"column:patient_last_name"`
	PatientPhone     string `gorm:"column:patient_phone"`
	PatientEmail     string `gorm:"column:patient_email"`
	DoctorName       string `gorm:"column:doctor_name"`
	Specialty        string `gorm:"column:specialty"`
	DoctorEmail      string `gorm:"column:doctor_email"`
}

type CreateAppointmentCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartTime string
	Reason    string
}

// UpdateAppointmentCommand applies a partial update. Nil fields are kept.
type UpdateAppointmentCommand struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	StartTime *string
	Reason    *string
	Status    *Status
}

func (c *UpdateAppointmentCommand) IsEmpty() bool {
	return c.PatientID == nil && c.DoctorID == nil && c.StartTime == nil && c.Reason == nil && c.Status == nil
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	// Date restricts results to one calendar day in the clinic timezone.
	Date     *time.Time
	Page     int
	PageSize int
}

type PagedAppointments struct {
	Appointments []*Detail
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
