package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DoctorService struct {
	repo        doctor.Repository
	activitySvc *ActivityService
	log         *zap.Logger
}

func NewDoctorService(repo doctor.Repository, activitySvc *ActivityService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, activitySvc: activitySvc, log: log}
}

// List returns every doctor, or only those of specialty when set.
func (s *DoctorService) List(ctx context.Context, specialty string) ([]*doctor.Doctor, error) {
	return s.repo.ListAll(ctx, strings.TrimSpace(specialty))
}

// ListAvailable is List with a mandatory specialty.
func (s *DoctorService) ListAvailable(ctx context.Context, specialty string) ([]*doctor.Doctor, error) {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return nil, doctor.ErrSpecialtyRequired
	}
	return s.repo.ListAll(ctx, specialty)
}

func (s *DoctorService) ListSpecialties(ctx context.Context) ([]string, error) {
	return s.repo.ListSpecialties(ctx)
}

func (s *DoctorService) Search(ctx context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)
	q.Search = strings.TrimSpace(q.Search)
	q.Specialty = strings.TrimSpace(q.Specialty)
	return s.repo.Search(ctx, q)
}

func (s *DoctorService) ListForSelect(ctx context.Context) ([]*doctor.Doctor, error) {
	return s.repo.ListAll(ctx, "")
}

func (s *DoctorService) Create(ctx context.Context, cmd *doctor.CreateDoctorCommand, actor domain.Actor) (*doctor.Doctor, error) {
	var errs []string
	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Specialty) == "" {
		errs = append(errs, doctor.ErrSpecialtyRequired.Error())
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(cmd.Email)); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	d := &doctor.Doctor{
		Name:      strings.TrimSpace(cmd.Name),
		Specialty: strings.TrimSpace(cmd.Specialty),
		Email:     normalizeEmail(cmd.Email),
		Phone:     strings.TrimSpace(cmd.Phone),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
	})
	s.log.Info("doctor created", zap.String("doctor_id", d.ID.String()), zap.String("specialty", d.Specialty))
	return d, nil
}

func (s *DoctorService) Update(ctx context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand, actor domain.Actor) (*doctor.Doctor, error) {
	var errs []string
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		errs = append(errs, "name cannot be empty")
	}
	if cmd.Specialty != nil && strings.TrimSpace(*cmd.Specialty) == "" {
		errs = append(errs, doctor.ErrSpecialtyRequired.Error())
	}
	if cmd.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*cmd.Email)); err != nil {
			errs = append(errs, "email is invalid")
		}
		email := normalizeEmail(*cmd.Email)
		cmd.Email = &email
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	d, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, fmt.Errorf("updating doctor: %w", err)
	}

	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "doctor",
		ResourceID:   id.String(),
	})
	return d, nil
}
