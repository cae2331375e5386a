package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/google/uuid"
)

// SlotPolicy holds the clinic rules a slot is checked against.
type SlotPolicy struct {
	Location       *time.Location
	OpeningHour    int
	ClosingHour    int
	ConflictWindow time.Duration
}

func NewSlotPolicy(cfg config.ClinicConfig) SlotPolicy {
	return SlotPolicy{
		Location:       cfg.Location(),
		OpeningHour:    cfg.OpeningHour,
		ClosingHour:    cfg.ClosingHour,
		ConflictWindow: cfg.ConflictWindow,
	}
}

// Accepted start-time layouts, tried in order after RFC 3339.
var startTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// SlotRequest is a proposed booking. ExcludeID is set when rescheduling.
type SlotRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	StartTime string
	Reason    string
	ExcludeID *uuid.UUID
}

// Slot is an accepted, normalized request.
type Slot struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	StartTime time.Time
	Reason    string
	ExcludeID *uuid.UUID
}

type SlotValidator struct {
	doctors  doctor.Repository
	patients patient.Repository
	policy   SlotPolicy
	now      func() time.Time
}

func NewSlotValidator(doctors doctor.Repository, patients patient.Repository, policy SlotPolicy) *SlotValidator {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &SlotValidator{doctors: doctors, patients: patients, policy: policy, now: time.Now}
}

// Validate runs every check against appointments read through repo.
func (v *SlotValidator) Validate(ctx context.Context, repo appointment.Repository, req SlotRequest) (*Slot, error) {
	slot, err := v.Precheck(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := v.CheckConflicts(ctx, repo, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// Precheck runs the checks that do not read appointments: required fields,
// parsing, past date, business hours and the doctor and patient lookups.
func (v *SlotValidator) Precheck(ctx context.Context, req SlotRequest) (*Slot, error) {
	reason := strings.TrimSpace(req.Reason)
	var missing []string
	if req.DoctorID == uuid.Nil {
		missing = append(missing, "doctor_id")
	}
	if req.PatientID == uuid.Nil {
		missing = append(missing, "patient_id")
	}
	if strings.TrimSpace(req.StartTime) == "" {
		missing = append(missing, "start_time")
	}
	if reason == "" {
		missing = append(missing, "reason")
	}
	if len(missing) > 0 {
		return nil, appointment.Reject(appointment.KindInvalidInput, "missing required fields: %s", strings.Join(missing, ", "))
	}

	start, err := v.ParseStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}

	if err := v.checkTime(start); err != nil {
		return nil, err
	}

	if _, err := v.doctors.GetByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil, appointment.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("looking up doctor: %w", err)
	}

	p, err := v.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return nil, appointment.ErrPatientNotFound
		}
		return nil, fmt.Errorf("looking up patient: %w", err)
	}
	if !p.IsActive() {
		return nil, appointment.ErrPatientNotFound
	}

	return &Slot{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartTime: start,
		Reason:    reason,
		ExcludeID: req.ExcludeID,
	}, nil
}

// CheckConflicts rejects the slot when the doctor, then the patient, already
// has a non-cancelled appointment that conflicts with it. Call it inside
// Repository.WithSlotLock with the transactional repository.
func (v *SlotValidator) CheckConflicts(ctx context.Context, repo appointment.Repository, slot *Slot) error {
	conflict, err := v.doctorHasConflict(ctx, repo, slot.DoctorID, slot.StartTime, slot.ExcludeID)
	if err != nil {
		return err
	}
	if conflict {
		return appointment.ErrDoctorConflict
	}

	from, to := appointment.DayBounds(slot.StartTime, v.policy.Location)
	existing, err := repo.ListActiveForPatient(ctx, slot.PatientID, from, to, slot.ExcludeID)
	if err != nil {
		return fmt.Errorf("listing patient appointments: %w", err)
	}
	if v.anyConflict(existing, slot.StartTime) {
		return appointment.ErrPatientConflict
	}
	return nil
}

// ParseStartTime accepts RFC 3339 or a local wall-clock time in the clinic
// timezone and truncates to the minute.
func (v *SlotValidator) ParseStartTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(v.policy.Location).Truncate(time.Minute), nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, v.policy.Location); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, appointment.Reject(appointment.KindInvalidInput, "invalid start time %q", raw)
}

func (v *SlotValidator) checkTime(start time.Time) error {
	if start.Before(v.now()) {
		return appointment.ErrScheduledInPast
	}
	hour := start.In(v.policy.Location).Hour()
	if hour < v.policy.OpeningHour || hour > v.policy.ClosingHour {
		return appointment.Reject(appointment.KindOutOfHours,
			"appointments must be between %02d:00 and %02d:59", v.policy.OpeningHour, v.policy.ClosingHour)
	}
	return nil
}

func (v *SlotValidator) doctorHasConflict(ctx context.Context, repo appointment.Repository, doctorID uuid.UUID, start time.Time, excludeID *uuid.UUID) (bool, error) {
	from, to := appointment.DayBounds(start, v.policy.Location)
	existing, err := repo.ListActiveForDoctor(ctx, doctorID, from, to, excludeID)
	if err != nil {
		return false, fmt.Errorf("listing doctor appointments: %w", err)
	}
	return v.anyConflict(existing, start), nil
}

func (v *SlotValidator) anyConflict(existing []*appointment.Appointment, start time.Time) bool {
	for _, a := range existing {
		if a.Status == appointment.StatusCancelled {
			continue
		}
		if appointment.Conflicts(a.ScheduledAt, start, v.policy.ConflictWindow, v.policy.Location) {
			return true
		}
	}
	return false
}

// Availability answers whether a doctor can take a slot. Reason is the
// rejection kind when Available is false.
type Availability struct {
	DoctorID  uuid.UUID
	StartTime time.Time
	Available bool
	Reason    appointment.Kind
	Message   string
}

// Availability checks parsing, time rules, the doctor lookup and doctor
// conflicts. Time-rule and conflict failures are reported in the result;
// malformed input and unknown doctors are returned as errors.
func (v *SlotValidator) Availability(ctx context.Context, repo appointment.Repository, doctorID uuid.UUID, raw string) (*Availability, error) {
	if doctorID == uuid.Nil {
		return nil, appointment.Reject(appointment.KindInvalidInput, "missing required fields: doctor_id")
	}
	start, err := v.ParseStartTime(raw)
	if err != nil {
		return nil, err
	}
	if _, err := v.doctors.GetByID(ctx, doctorID); err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil, appointment.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("looking up doctor: %w", err)
	}

	res := &Availability{DoctorID: doctorID, StartTime: start, Available: true}
	if err := v.checkTime(start); err != nil {
		res.Available = false
		res.Reason = appointment.KindOf(err)
		res.Message = err.Error()
		return res, nil
	}

	conflict, err := v.doctorHasConflict(ctx, repo, doctorID, start, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		res.Available = false
		res.Reason = appointment.KindDoctorConflict
		res.Message = appointment.ErrDoctorConflict.Error()
	}
	return res, nil
}
