package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AppointmentService struct {
	repo        appointment.Repository
	validator   *SlotValidator
	activitySvc *ActivityService
	metrics     *metrics.Collector
	tracer      trace.Tracer
	log         *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	validator *SlotValidator,
	activitySvc *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		validator:   validator,
		activitySvc: activitySvc,
		metrics:     m,
		tracer:      otel.Tracer("clinicbook/service/appointment"),
		log:         log,
	}
}

// Schedule books a new appointment in status pendiente. Conflict checks and
// the insert run under the doctor and patient slot locks.
func (s *AppointmentService) Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Schedule", trace.WithAttributes(
		attribute.String("doctor.id", cmd.DoctorID.String()),
		attribute.String("patient.id", cmd.PatientID.String()),
	))
	defer span.End()

	if actor.IsPatient() && cmd.PatientID != actor.ID {
		return nil, ErrForbidden
	}

	slot, err := s.validator.Precheck(ctx, SlotRequest{
		DoctorID:  cmd.DoctorID,
		PatientID: cmd.PatientID,
		StartTime: cmd.StartTime,
		Reason:    cmd.Reason,
	})
	if err != nil {
		return nil, s.rejected(span, err)
	}

	a := &appointment.Appointment{
		PatientID:   slot.PatientID,
		DoctorID:    slot.DoctorID,
		ScheduledAt: slot.StartTime,
		Reason:      slot.Reason,
		Status:      appointment.StatusPending,
	}

	err = s.repo.WithSlotLock(ctx, slot.DoctorID, slot.PatientID, func(tx appointment.Repository) error {
		if err := s.validator.CheckConflicts(ctx, tx, slot); err != nil {
			return err
		}
		return tx.Create(ctx, a)
	})
	if err != nil {
		return nil, s.rejected(span, err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details: map[string]any{
			"doctor_id":    a.DoctorID.String(),
			"patient_id":   a.PatientID.String(),
			"scheduled_at": a.ScheduledAt,
		},
	})

	s.log.Info("appointment scheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID.String()),
		zap.Time("scheduled_at", a.ScheduledAt),
	)

	return a, nil
}

// Update applies a partial update. Changing the doctor, patient or start time
// re-runs the slot validator excluding the appointment itself; a status-only
// change is checked against the status machine alone. Either way the row is
// re-read under lock before it is written.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Update", trace.WithAttributes(
		attribute.String("appointment.id", id.String()),
	))
	defer span.End()

	if cmd.IsEmpty() {
		return nil, appointment.Reject(appointment.KindInvalidInput, "no fields to update")
	}
	if cmd.Reason != nil && strings.TrimSpace(*cmd.Reason) == "" {
		return nil, appointment.Reject(appointment.KindInvalidInput, "reason cannot be empty")
	}

	var start *time.Time
	if cmd.StartTime != nil {
		t, err := s.validator.ParseStartTime(*cmd.StartTime)
		if err != nil {
			return nil, s.rejected(span, err)
		}
		start = &t
	}

	for attempt := 1; ; attempt++ {
		a, rescheduled, err := s.update(ctx, id, cmd, start, actor)
		if errors.Is(err, errStaleRead) {
			if attempt < updateAttempts {
				continue
			}
			err = appointment.ErrConcurrentModification
		}
		if err != nil {
			return nil, s.rejected(span, err)
		}
		s.recordUpdate(ctx, a, actor, rescheduled)
		return a, nil
	}
}

// errStaleRead means the row changed between the unlocked read that planned
// an update and the locked read that applies it.
var errStaleRead = errors.New("appointment changed while updating")

const updateAttempts = 3

type updatePlan struct {
	doctorID   uuid.UUID
	patientID  uuid.UUID
	start      time.Time
	reschedule bool
}

func planUpdate(a *appointment.Appointment, cmd *appointment.UpdateAppointmentCommand, start *time.Time) updatePlan {
	p := updatePlan{doctorID: a.DoctorID, patientID: a.PatientID, start: a.ScheduledAt}
	if cmd.DoctorID != nil {
		p.doctorID = *cmd.DoctorID
	}
	if cmd.PatientID != nil {
		p.patientID = *cmd.PatientID
	}
	if start != nil {
		p.start = *start
	}
	p.reschedule = p.doctorID != a.DoctorID || p.patientID != a.PatientID || !p.start.Equal(a.ScheduledAt)
	return p
}

func (p updatePlan) same(o updatePlan) bool {
	return p.doctorID == o.doctorID && p.patientID == o.patientID &&
		p.start.Equal(o.start) && p.reschedule == o.reschedule
}

func authorizeUpdate(a *appointment.Appointment, cmd *appointment.UpdateAppointmentCommand, actor domain.Actor) error {
	if !actor.IsPatient() {
		return nil
	}
	if a.PatientID != actor.ID {
		return ErrForbidden
	}
	if cmd.Status != nil || (cmd.PatientID != nil && *cmd.PatientID != actor.ID) {
		return ErrForbidden
	}
	return nil
}

func applyStatusAndReason(a *appointment.Appointment, cmd *appointment.UpdateAppointmentCommand) error {
	if cmd.Status != nil {
		if err := a.TransitionTo(*cmd.Status); err != nil {
			return err
		}
	}
	if cmd.Reason != nil {
		a.Reason = strings.TrimSpace(*cmd.Reason)
	}
	return nil
}

// update plans from an unlocked read, then applies the command to a row
// locked inside the transaction. A plan that no longer matches the locked
// row yields errStaleRead.
func (s *AppointmentService) update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, start *time.Time, actor domain.Actor) (*appointment.Appointment, bool, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := authorizeUpdate(current, cmd, actor); err != nil {
		return nil, false, err
	}
	plan := planUpdate(current, cmd, start)

	var out *appointment.Appointment
	if !plan.reschedule {
		err = s.repo.Transaction(ctx, func(tx appointment.Repository) error {
			a, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !planUpdate(a, cmd, start).same(plan) {
				return errStaleRead
			}
			if err := authorizeUpdate(a, cmd, actor); err != nil {
				return err
			}
			if err := applyStatusAndReason(a, cmd); err != nil {
				return err
			}
			if err := tx.UpdateStatus(ctx, a); err != nil {
				return err
			}
			out = a
			return nil
		})
		return out, false, err
	}

	if current.Status.IsTerminal() {
		return nil, false, appointment.ErrInvalidStatusTransition
	}

	reason := current.Reason
	if cmd.Reason != nil {
		reason = strings.TrimSpace(*cmd.Reason)
	}
	slot, err := s.validator.Precheck(ctx, SlotRequest{
		DoctorID:  plan.doctorID,
		PatientID: plan.patientID,
		StartTime: plan.start.Format(time.RFC3339),
		Reason:    reason,
		ExcludeID: &id,
	})
	if err != nil {
		return nil, false, err
	}

	err = s.repo.WithSlotLock(ctx, slot.DoctorID, slot.PatientID, func(tx appointment.Repository) error {
		a, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !planUpdate(a, cmd, start).same(plan) {
			return errStaleRead
		}
		if err := authorizeUpdate(a, cmd, actor); err != nil {
			return err
		}
		if a.Status.IsTerminal() {
			return appointment.ErrInvalidStatusTransition
		}
		if err := applyStatusAndReason(a, cmd); err != nil {
			return err
		}
		a.DoctorID = slot.DoctorID
		a.PatientID = slot.PatientID
		a.ScheduledAt = slot.StartTime

		if a.Status != appointment.StatusCancelled {
			if err := s.validator.CheckConflicts(ctx, tx, slot); err != nil {
				return err
			}
		}
		if err := tx.Save(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, true, err
}

// Cancel soft-deletes the appointment by moving it to cancelada.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := s.repo.Transaction(ctx, func(tx appointment.Repository) error {
		a, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor.IsPatient() && a.PatientID != actor.ID {
			return ErrForbidden
		}
		if err := a.Cancel(); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, a); err != nil {
			return fmt.Errorf("cancelling appointment: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(out.Status)).Inc()
	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionCancel,
		ResourceType: "appointment",
		ResourceID:   out.ID.String(),
	})

	return out, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsPatient() && d.PatientID != actor.ID {
		return nil, ErrForbidden
	}
	return d, nil
}

// ListForPatient returns the patient's own appointments, newest first.
func (s *AppointmentService) ListForPatient(ctx context.Context, patientID uuid.UUID, page, pageSize int) (*appointment.PagedAppointments, error) {
	q := &appointment.ListAppointmentsQuery{PatientID: &patientID, Page: page, PageSize: pageSize}
	return s.List(ctx, q)
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, appointment.Reject(appointment.KindInvalidInput, "invalid status %q", *q.Status)
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)

	res, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return res, nil
}

// CheckAvailability reports whether the doctor can take the slot.
func (s *AppointmentService) CheckAvailability(ctx context.Context, doctorID uuid.UUID, startTime string) (*Availability, error) {
	return s.validator.Availability(ctx, s.repo, doctorID, startTime)
}

func (s *AppointmentService) recordUpdate(ctx context.Context, a *appointment.Appointment, actor domain.Actor, rescheduled bool) {
	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details: map[string]any{
			"status":      string(a.Status),
			"rescheduled": rescheduled,
		},
	})
}

// rejected counts slot rejections and marks the span before returning err.
func (s *AppointmentService) rejected(span trace.Span, err error) error {
	if kind := appointment.KindOf(err); kind != "" {
		s.metrics.SlotRejectionsTotal.WithLabelValues(string(kind)).Inc()
		span.SetAttributes(attribute.String("slot.rejection", string(kind)))
		return err
	}
	if errors.Is(err, ErrForbidden) ||
		errors.Is(err, appointment.ErrAppointmentNotFound) ||
		errors.Is(err, appointment.ErrInvalidStatusTransition) ||
		errors.Is(err, appointment.ErrConcurrentModification) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error("appointment write failed", zap.Error(err))
	return err
}
