package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

var _ doctor.Repository = (*DoctorRepository)(nil)

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return doctor.ErrDoctorAlreadyExists
		}
		return fmt.Errorf("inserting doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, doctor.ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching doctor: %w", err)
	}
	return &d, nil
}

func (r *DoctorRepository) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	updates := map[string]any{}
	if cmd.Name != nil {
		updates["name"] = *cmd.Name
	}
	if cmd.Specialty != nil {
		updates["specialty"] = *cmd.Specialty
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, doctor.ErrDoctorAlreadyExists
			}
			return nil, fmt.Errorf("updating doctor: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, doctor.ErrDoctorNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *DoctorRepository) ListAll(ctx context.Context, specialty string) ([]*doctor.Doctor, error) {
	query := r.db.WithContext(ctx).Order("name")
	if specialty != "" {
		query = query.Where("specialty = ?", specialty)
	}
	var rows []*doctor.Doctor
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	return rows, nil
}

func (r *DoctorRepository) ListSpecialties(ctx context.Context) ([]string, error) {
	var specialties []string
	err := r.db.WithContext(ctx).
		Model(&doctor.Doctor{}).
		Distinct("specialty").
		Order("specialty").
		Pluck("specialty", &specialties).Error
	if err != nil {
		return nil, fmt.Errorf("listing specialties: %w", err)
	}
	return specialties, nil
}

func (r *DoctorRepository) Search(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.Specialty != "" {
			db = db.Where("d.specialty = ?", q.Specialty)
		}
		if q.Search != "" {
			like := "%" + q.Search + "%"
			db = db.Where("d.name ILIKE ? OR d.email ILIKE ?", like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Table("clinic.doctors AS d").Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting doctors: %w", err)
	}

	rows := make([]*doctor.Summary, 0, q.PageSize)
	err := r.db.WithContext(ctx).
		Table("clinic.doctors AS d").
		Select("d.*, (SELECT COUNT(*) FROM clinic.appointments a WHERE a.doctor_id = d.id) AS total_appointments").
		Scopes(filter).
		Order("d.name").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("searching doctors: %w", err)
	}

	return &doctor.PagedDoctors{
		Doctors:    rows,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}
