package patient

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on duplicate email.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetByEmail(ctx context.Context, email string) (*Patient, error)

	// Update applies partial updates to an existing patient record.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdatePatientCommand) (*Patient, error)

	// SetStatus changes the account status; patients are never physically deleted.
	SetStatus(ctx context.Context, p *Patient) error

	// UpdateLoginState persists failed-attempt counters, lock and last login.
	UpdateLoginState(ctx context.Context, id uuid.UUID, state domain.LoginState) error

	// List returns a paginated, filtered list of patients with appointment counts.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// ListActive returns every active patient ordered by name, for form selects.
	ListActive(ctx context.Context) ([]*Patient, error)

	// ExistsByEmail checks for uniqueness without fetching the full record.
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}
