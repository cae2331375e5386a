package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

var _ domain.AdminRepository = (*AdminRepository)(nil)

func (r *AdminRepository) Create(ctx context.Context, a *domain.Admin) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAdminAlreadyExists
		}
		return fmt.Errorf("inserting admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *AdminRepository) first(ctx context.Context, cond string, arg any) (*domain.Admin, error) {
	var a domain.Admin
	err := r.db.WithContext(ctx).Where(cond, arg).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching admin: %w", err)
	}
	return &a, nil
}

func (r *AdminRepository) UpdateLoginState(ctx context.Context, id uuid.UUID, state domain.LoginState) error {
	return updateLoginState(ctx, r.db, &domain.Admin{}, id, state)
}
