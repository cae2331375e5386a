package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/google/uuid"
)

type registerPatientRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	BirthDate *string `json:"birth_date"`
	Gender    string  `json:"gender" binding:"omitempty,oneof=M F O"`
	Phone     string  `json:"phone" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
}

type updatePatientRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	BirthDate *string `json:"birth_date"`
	Gender    *string `json:"gender"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

type patientLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Slot fields are validated by the service so every failure carries a
// rejection code.
type createAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	StartTime string `json:"start_time"`
	Reason    string `json:"reason"`
}

type updateAppointmentRequest struct {
	DoctorID  *string `json:"doctor_id"`
	PatientID *string `json:"patient_id"`
	StartTime *string `json:"start_time"`
	Reason    *string `json:"reason"`
	Status    *string `json:"status"`
}

type createDoctorRequest struct {
	Name      string `json:"name" binding:"required"`
	Specialty string `json:"specialty" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
}

type updateDoctorRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type appointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	StartTime   time.Time  `json:"start_time"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
	DoctorName   string `json:"doctor_name,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		StartTime:   a.ScheduledAt,
		Reason:      a.Reason,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		CancelledAt: a.CancelledAt,
	}
}

func toAppointmentDetailResponse(d *appointment.Detail) appointmentResponse {
	res := toAppointmentResponse(&d.Appointment)
	res.PatientName = d.PatientFirstName + " " + d.PatientLastName
	res.PatientPhone = d.PatientPhone
	res.PatientEmail = d.PatientEmail
	res.DoctorName = d.DoctorName
	res.Specialty = d.Specialty
	return res
}

type patientResponse struct {
	ID                uuid.UUID `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	BirthDate         *string   `json:"birth_date,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	TotalAppointments *int64    `json:"total_appointments,omitempty"`
}

func toPatientResponse(p *patient.Patient) patientResponse {
	res := patientResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    string(p.Gender),
		Phone:     p.Phone,
		Email:     p.Email,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format(time.DateOnly)
		res.BirthDate = &s
	}
	return res
}

type doctorResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Specialty         string    `json:"specialty"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	TotalAppointments *int64    `json:"total_appointments,omitempty"`
}

func toDoctorResponse(d *doctor.Doctor) doctorResponse {
	return doctorResponse{ID: d.ID, Name: d.Name, Specialty: d.Specialty, Email: d.Email, Phone: d.Phone}
}

func toDoctorResponses(ds []*doctor.Doctor) []doctorResponse {
	out := make([]doctorResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDoctorResponse(d))
	}
	return out
}

type pagedResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type availabilityResponse struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Message   string    `json:"message,omitempty"`
}
