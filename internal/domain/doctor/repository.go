package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error

	// GetByID returns ErrDoctorNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdateDoctorCommand) (*Doctor, error)

	// ListAll returns doctors ordered by name, optionally restricted to a specialty.
	ListAll(ctx context.Context, specialty string) ([]*Doctor, error)

	ListSpecialties(ctx context.Context) ([]string, error)

	// Search returns a paginated, filtered list with appointment counts.
	Search(ctx context.Context, q *ListDoctorsQuery) (*PagedDoctors, error)
}
