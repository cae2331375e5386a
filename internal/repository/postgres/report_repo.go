package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ report.Repository = (*ReportRepository)(nil)

func (r *ReportRepository) Counts(ctx context.Context, dayStart, dayEnd time.Time) (*report.Stats, error) {
	var row struct {
		ActivePatients      int64
		Doctors             int64
		Appointments        int64
		TodayAppointments   int64
		PendingAppointments int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM clinic.patients WHERE status = @active) AS active_patients,
			(SELECT COUNT(*) FROM clinic.doctors) AS doctors,
			(SELECT COUNT(*) FROM clinic.appointments WHERE status <> @cancelled) AS appointments,
			(SELECT COUNT(*) FROM clinic.appointments
				WHERE status <> @cancelled AND scheduled_at >= @from AND scheduled_at < @to) AS today_appointments,
			(SELECT COUNT(*) FROM clinic.appointments WHERE status = @pending) AS pending_appointments`,
		map[string]any{
			"active":    domain.AccountActive,
			"cancelled": appointment.StatusCancelled,
			"pending":   appointment.StatusPending,
			"from":      dayStart,
			"to":        dayEnd,
		}).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("counting stats: %w", err)
	}

	return &report.Stats{
		ActivePatients:      row.ActivePatients,
		Doctors:             row.Doctors,
		Appointments:        row.Appointments,
		TodayAppointments:   row.TodayAppointments,
		PendingAppointments: row.PendingAppointments,
	}, nil
}

func (r *ReportRepository) RecentAppointments(ctx context.Context, limit int) ([]report.RecentAppointment, error) {
	rows := make([]report.RecentAppointment, 0, limit)
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.id, p.first_name || ' ' || p.last_name AS patient_name,
			d.name AS doctor_name, d.specialty, a.scheduled_at, a.status
		FROM clinic.appointments a
		JOIN clinic.patients p ON p.id = a.patient_id
		JOIN clinic.doctors d ON d.id = a.doctor_id
		WHERE a.status <> ?
		ORDER BY a.created_at DESC
		LIMIT ?`, appointment.StatusCancelled, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent appointments: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) AppointmentsBySpecialty(ctx context.Context, from, to time.Time) ([]report.SpecialtyRow, error) {
	var rows []report.SpecialtyRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.specialty,
			COUNT(a.id) AS appointments,
			COALESCE(AVG(EXTRACT(EPOCH FROM (a.scheduled_at - a.created_at)) / 60), 0) AS avg_lead_minutes
		FROM clinic.appointments a
		JOIN clinic.doctors d ON d.id = a.doctor_id
		WHERE a.scheduled_at >= ? AND a.scheduled_at < ? AND a.status <> ?
		GROUP BY d.specialty
		ORDER BY appointments DESC, d.specialty`, from, to, appointment.StatusCancelled).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("appointments by specialty: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) PatientActivity(ctx context.Context, from, to time.Time, limit int) ([]report.PatientActivityRow, error) {
	var rows []report.PatientActivityRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id AS patient_id,
			p.first_name || ' ' || p.last_name AS name,
			p.email,
			COUNT(a.id) AS appointments,
			MAX(a.scheduled_at) AS last_appointment
		FROM clinic.patients p
		JOIN clinic.appointments a ON a.patient_id = p.id
		WHERE a.scheduled_at >= ? AND a.scheduled_at < ?
		GROUP BY p.id, p.first_name, p.last_name, p.email
		ORDER BY appointments DESC, last_appointment DESC
		LIMIT ?`, from, to, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("patient activity: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) DoctorPerformance(ctx context.Context, from, to time.Time) ([]report.DoctorPerformanceRow, error) {
	var rows []report.DoctorPerformanceRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.id AS doctor_id, d.name, d.specialty,
			COUNT(a.id) AS appointments,
			COUNT(a.id) FILTER (WHERE a.status = ?) AS completed
		FROM clinic.doctors d
		LEFT JOIN clinic.appointments a
			ON a.doctor_id = d.id AND a.scheduled_at >= ? AND a.scheduled_at < ?
		GROUP BY d.id, d.name, d.specialty
		ORDER BY appointments DESC, d.name`, appointment.StatusCompleted, from, to).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("doctor performance: %w", err)
	}
	return rows, nil
}
