package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// GetForUpdate reads the appointment and row-locks it until the
	// enclosing transaction ends. Only meaningful inside Transaction or
	// WithSlotLock.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save writes every mutable column of an existing appointment.
	Save(ctx context.Context, a *Appointment) error

	// UpdateStatus writes only reason, status and cancelled_at. The slot
	// columns are left untouched.
	UpdateStatus(ctx context.Context, a *Appointment) error

	// ListActiveForDoctor returns non-cancelled appointments of the doctor
	// starting in [from, to), skipping excludeID when set.
	ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*Appointment, error)

	// ListActiveForPatient is the patient-side counterpart of ListActiveForDoctor.
	ListActiveForPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*Appointment, error)

	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// WithSlotLock runs fn in a transaction that holds exclusive locks on the
	// doctor and the patient, so conflict checks and the write are atomic with
	// respect to other bookings for either of them.
	WithSlotLock(ctx context.Context, doctorID, patientID uuid.UUID, fn func(tx Repository) error) error
}
