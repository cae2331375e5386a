package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type PatientService struct {
	repo        patient.Repository
	activitySvc *ActivityService
	metrics     *metrics.Collector
	log         *zap.Logger
	hashCost    int
}

func NewPatientService(repo patient.Repository, activitySvc *ActivityService, m *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:        repo,
		activitySvc: activitySvc,
		metrics:     m,
		log:         log,
		hashCost:    bcrypt.DefaultCost,
	}
}

// Register creates an active patient account.
func (s *PatientService) Register(ctx context.Context, cmd *patient.RegisterPatientCommand, actor domain.Actor) (*patient.Patient, error) {
	if err := validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	email := normalizeEmail(cmd.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email, nil)
	if err != nil {
		s.log.Error("failed to check email uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	p := &patient.Patient{
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		BirthDate:    cmd.BirthDate,
		Gender:       cmd.Gender,
		Phone:        strings.TrimSpace(cmd.Phone),
		Email:        email,
		PasswordHash: string(hash),
		Status:       domain.AccountActive,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PatientsRegisteredTotal.Inc()
	actor.ID = p.ID
	actor.Role = domain.RolePatient
	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
	})

	s.log.Info("patient registered", zap.String("patient_id", p.ID.String()))
	return p, nil
}

func (s *PatientService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error) {
	if actor.IsPatient() && actor.ID != id {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// Update changes profile fields. Email stays unique.
func (s *PatientService) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, actor domain.Actor) (*patient.Patient, error) {
	if actor.IsPatient() && actor.ID != id {
		return nil, ErrForbidden
	}
	if err := validateUpdateCommand(cmd); err != nil {
		return nil, err
	}

	if cmd.Email != nil {
		email := normalizeEmail(*cmd.Email)
		cmd.Email = &email
		exists, err := s.repo.ExistsByEmail(ctx, email, &id)
		if err != nil {
			return nil, fmt.Errorf("checking uniqueness: %w", err)
		}
		if exists {
			return nil, patient.ErrPatientAlreadyExists
		}
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})
	return p, nil
}

// Deactivate soft-deletes a patient. Their appointments are kept.
func (s *PatientService) Deactivate(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.Deactivate(); err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, p); err != nil {
		return fmt.Errorf("deactivating patient: %w", err)
	}

	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})
	return nil
}

func (s *PatientService) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)
	q.Search = strings.TrimSpace(q.Search)
	return s.repo.List(ctx, q)
}

func (s *PatientService) ListForSelect(ctx context.Context) ([]*patient.Patient, error) {
	return s.repo.ListActive(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterCommand(cmd *patient.RegisterPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		errs = append(errs, "phone is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(cmd.Email)); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(cmd.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if cmd.Gender != "" && !cmd.Gender.IsValid() {
		errs = append(errs, patient.ErrInvalidGender.Error())
	}
	if cmd.BirthDate != nil && cmd.BirthDate.After(time.Now()) {
		errs = append(errs, patient.ErrInvalidBirthDate.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateUpdateCommand(cmd *patient.UpdatePatientCommand) error {
	var errs []string

	if cmd.FirstName != nil && strings.TrimSpace(*cmd.FirstName) == "" {
		errs = append(errs, "first_name cannot be empty")
	}
	if cmd.LastName != nil && strings.TrimSpace(*cmd.LastName) == "" {
		errs = append(errs, "last_name cannot be empty")
	}
	if cmd.Phone != nil && strings.TrimSpace(*cmd.Phone) == "" {
		errs = append(errs, "phone cannot be empty")
	}
	if cmd.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*cmd.Email)); err != nil {
			errs = append(errs, "email is invalid")
		}
	}
	if cmd.Gender != nil && !cmd.Gender.IsValid() {
		errs = append(errs, patient.ErrInvalidGender.Error())
	}
	if cmd.BirthDate != nil && cmd.BirthDate.After(time.Now()) {
		errs = append(errs, patient.ErrInvalidBirthDate.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
