package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrConcurrentModification  = errors.New("appointment was modified concurrently, retry the request")
)

// Kind classifies why a slot was rejected.
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindPastDate        Kind = "PAST_DATE"
	KindOutOfHours      Kind = "OUT_OF_HOURS"
	KindNotFound        Kind = "NOT_FOUND"
	KindDoctorConflict  Kind = "DOCTOR_CONFLICT"
	KindPatientConflict Kind = "PATIENT_CONFLICT"
)

// Rejection is returned when a proposed slot cannot be booked. errors.Is
// matches on Kind and, when the target sets one, on Subject.
type Rejection struct {
	Kind    Kind
	Subject string
	Reason  string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	if t.Kind != r.Kind {
		return false
	}
	return t.Subject == "" || t.Subject == r.Subject
}

var (
	ErrInvalidInput       = &Rejection{Kind: KindInvalidInput, Reason: "invalid appointment request"}
	ErrScheduledInPast    = &Rejection{Kind: KindPastDate, Reason: "cannot schedule appointment in the past"}
	ErrOutOfHours         = &Rejection{Kind: KindOutOfHours, Reason: "appointment is outside business hours"}
	ErrDoctorNotFound     = &Rejection{Kind: KindNotFound, Subject: "doctor", Reason: "doctor not found"}
	ErrPatientNotFound    = &Rejection{Kind: KindNotFound, Subject: "patient", Reason: "patient not found or inactive"}
	ErrDoctorConflict     = &Rejection{Kind: KindDoctorConflict, Reason: "the doctor already has an appointment within that time window"}
	ErrPatientConflict    = &Rejection{Kind: KindPatientConflict, Reason: "the patient already has an appointment within that time window"}
	errAnyNotFoundSubject = &Rejection{Kind: KindNotFound}
)

// Reject builds a Rejection of kind with a formatted reason.
func Reject(kind Kind, format string, args ...any) error {
	return &Rejection{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NOT_FOUND rejection for any subject.
func IsNotFound(err error) bool {
	return errors.Is(err, errAnyNotFoundSubject)
}

// KindOf returns the rejection kind of err, or "" when err is not a rejection.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return ""
}
