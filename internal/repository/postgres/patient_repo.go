package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*patient.Patient, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *PatientRepository) first(ctx context.Context, cond string, arg any) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where(cond, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	updates := map[string]any{}
	if cmd.FirstName != nil {
		updates["first_name"] = *cmd.FirstName
	}
	if cmd.LastName != nil {
		updates["last_name"] = *cmd.LastName
	}
	if cmd.BirthDate != nil {
		updates["birth_date"] = *cmd.BirthDate
	}
	if cmd.Gender != nil {
		updates["gender"] = *cmd.Gender
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, patient.ErrPatientAlreadyExists
			}
			return nil, fmt.Errorf("updating patient: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrPatientNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *PatientRepository) SetStatus(ctx context.Context, p *patient.Patient) error {
	res := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("id = ?", p.ID).Update("status", p.Status)
	if res.Error != nil {
		return fmt.Errorf("setting patient status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) UpdateLoginState(ctx context.Context, id uuid.UUID, state domain.LoginState) error {
	return updateLoginState(ctx, r.db, &patient.Patient{}, id, state)
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.Search != "" {
			like := "%" + q.Search + "%"
			db = db.Where("(p.first_name || ' ' || p.last_name) ILIKE ? OR p.email ILIKE ? OR p.phone ILIKE ?", like, like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Table("clinic.patients AS p").Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	rows := make([]*patient.Summary, 0, q.PageSize)
	err := r.db.WithContext(ctx).
		Table("clinic.patients AS p").
		Select("p.*, (SELECT COUNT(*) FROM clinic.appointments a WHERE a.patient_id = p.id) AS total_appointments").
		Scopes(filter).
		Order("p.created_at DESC").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}

	return &patient.PagedPatients{
		Patients:   rows,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

func (r *PatientRepository) ListActive(ctx context.Context) ([]*patient.Patient, error) {
	var rows []*patient.Patient
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.AccountActive).
		Order("first_name, last_name").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing active patients: %w", err)
	}
	return rows, nil
}

func (r *PatientRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("LOWER(email) = LOWER(?)", email)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking patient email: %w", err)
	}
	return n > 0, nil
}

// updateLoginState writes the lockout columns shared by every account table.
func updateLoginState(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, state domain.LoginState) error {
	err := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(map[string]any{
		"failed_login_count": state.FailedLoginCount,
		"locked_until":       state.LockedUntil,
		"last_login_at":      state.LastLoginAt,
	}).Error
	if err != nil {
		return fmt.Errorf("updating login state: %w", err)
	}
	return nil
}

var _ appointment.Repository = (*AppointmentRepository)(nil)
var _ patient.Repository = (*PatientRepository)(nil)
