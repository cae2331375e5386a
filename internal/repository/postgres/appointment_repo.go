package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppointmentRepository struct {
	db  *gorm.DB
	loc *time.Location
}

// NewAppointmentRepository returns a repository that evaluates calendar-day
// filters in loc.
func NewAppointmentRepository(db *gorm.DB, loc *time.Location) *AppointmentRepository {
	return &AppointmentRepository{db: db, loc: loc}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appointment.ErrDoctorConflict
		}
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error) {
	var d appointment.Detail
	err := r.detailQuery(ctx).Where("a.id = ?", id).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching appointment detail: %w", err)
	}
	return &d, nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.PatientID != nil {
			db = db.Where("a.patient_id = ?", *q.PatientID)
		}
		if q.DoctorID != nil {
			db = db.Where("a.doctor_id = ?", *q.DoctorID)
		}
		if q.Status != nil {
			db = db.Where("a.status = ?", *q.Status)
		}
		if q.Date != nil {
			from, to := appointment.DayBounds(*q.Date, r.loc)
			db = db.Where("a.scheduled_at >= ? AND a.scheduled_at < ?", from, to)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Table("clinic.appointments AS a").Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	rows := make([]*appointment.Detail, 0, q.PageSize)
	err := r.detailQuery(ctx).
		Scopes(filter).
		Order("a.scheduled_at DESC").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &appointment.PagedAppointments{
		Appointments: rows,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(a).
		Select("patient_id", "doctor_id", "scheduled_at", "reason", "status", "cancelled_at", "updated_at").
		Updates(a)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return appointment.ErrDoctorConflict
		}
		return fmt.Errorf("updating appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(a).
		Select("reason", "status", "cancelled_at", "updated_at").
		Updates(a)
	if res.Error != nil {
		return fmt.Errorf("updating appointment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	return r.listActive(ctx, "doctor_id", doctorID, from, to, excludeID)
}

func (r *AppointmentRepository) ListActiveForPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	return r.listActive(ctx, "patient_id", patientID, from, to, excludeID)
}

func (r *AppointmentRepository) listActive(ctx context.Context, column string, id uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Where("status <> ?", appointment.StatusCancelled).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var rows []*appointment.Appointment
	if err := query.Order("scheduled_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing active appointments by %s: %w", column, err)
	}
	return rows, nil
}

// WithSlotLock serializes bookings per doctor and per patient with
// transaction-scoped advisory locks. Keys are taken in sorted order so two
// transactions never wait on each other in opposite orders.
func (r *AppointmentRepository) WithSlotLock(ctx context.Context, doctorID, patientID uuid.UUID, fn func(tx appointment.Repository) error) error {
	keys := []string{"doctor:" + doctorID.String(), "patient:" + patientID.String()}
	slices.Sort(keys)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error; err != nil {
				return fmt.Errorf("acquiring slot lock %s: %w", key, err)
			}
		}
		return fn(&AppointmentRepository{db: tx, loc: r.loc})
	})
}

func (r *AppointmentRepository) Transaction(ctx context.Context, fn func(tx appointment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AppointmentRepository{db: tx, loc: r.loc})
	})
}

func (r *AppointmentRepository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("clinic.appointments AS a").
		Select(`a.*,
			p.first_name AS patient_first_name,
			p.last_name AS patient_last_name,
			p.phone AS patient_phone,
			p.email AS patient_email,
			d.name AS doctor_name,
			d.specialty AS specialty,
			d.email AS doctor_email`).
		Joins("JOIN clinic.patients p ON p.id = a.patient_id").
		Joins("JOIN clinic.doctors d ON d.id = a.doctor_id")
}
