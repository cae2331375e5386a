package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("clinicbook_test", prometheus.NewRegistry())
}

func newTestActivity(t *testing.T, m *metrics.Collector) *ActivityService {
	t.Helper()
	svc := NewActivityService(nil, m, zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc
}

// memAppointments is an in-memory appointment.Repository. Transaction and
// WithSlotLock serialize callers on a single mutex.
type memAppointments struct {
	mu       sync.Mutex
	slotLock sync.Mutex
	items    map[uuid.UUID]*appointment.Appointment

	doctorScans atomic.Int32
}

func newMemAppointments() *memAppointments {
	return &memAppointments{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointments) GetForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r *memAppointments) GetDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &appointment.Detail{Appointment: *a}, nil
}

func (r *memAppointments) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Detail
	for _, a := range r.items {
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		out = append(out, &appointment.Detail{Appointment: *a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   int64(len(out)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages(int64(len(out)), q.PageSize),
	}, nil
}

func (r *memAppointments) Save(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *memAppointments) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[a.ID]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	stored.Reason = a.Reason
	stored.Status = a.Status
	stored.CancelledAt = a.CancelledAt
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (r *memAppointments) ListActiveForDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	r.doctorScans.Add(1)
	return r.listActive(func(a *appointment.Appointment) bool { return a.DoctorID == doctorID }, from, to, excludeID), nil
}

func (r *memAppointments) ListActiveForPatient(_ context.Context, patientID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*appointment.Appointment, error) {
	return r.listActive(func(a *appointment.Appointment) bool { return a.PatientID == patientID }, from, to, excludeID), nil
}

func (r *memAppointments) listActive(match func(*appointment.Appointment) bool, from, to time.Time, excludeID *uuid.UUID) []*appointment.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.items {
		if !match(a) || a.Status == appointment.StatusCancelled {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (r *memAppointments) Transaction(_ context.Context, fn func(tx appointment.Repository) error) error {
	r.slotLock.Lock()
	defer r.slotLock.Unlock()
	return fn(r)
}

func (r *memAppointments) WithSlotLock(_ context.Context, _, _ uuid.UUID, fn func(tx appointment.Repository) error) error {
	r.slotLock.Lock()
	defer r.slotLock.Unlock()
	return fn(r)
}

func (r *memAppointments) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memDoctors struct {
	mu    sync.Mutex
	items map[uuid.UUID]*doctor.Doctor
}

func newMemDoctors(ds ...*doctor.Doctor) *memDoctors {
	r := &memDoctors{items: make(map[uuid.UUID]*doctor.Doctor)}
	for _, d := range ds {
		r.items[d.ID] = d
	}
	return r
}

func (r *memDoctors) Create(_ context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Email == d.Email {
			return doctor.ErrDoctorAlreadyExists
		}
	}
	d.ID = uuid.New()
	r.items[d.ID] = d
	return nil
}

func (r *memDoctors) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (r *memDoctors) Update(_ context.Context, id uuid.UUID, cmd *doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	if cmd.Name != nil {
		d.Name = *cmd.Name
	}
	if cmd.Specialty != nil {
		d.Specialty = *cmd.Specialty
	}
	if cmd.Email != nil {
		d.Email = *cmd.Email
	}
	if cmd.Phone != nil {
		d.Phone = *cmd.Phone
	}
	return d, nil
}

func (r *memDoctors) ListAll(_ context.Context, specialty string) ([]*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*doctor.Doctor
	for _, d := range r.items {
		if specialty == "" || strings.EqualFold(d.Specialty, specialty) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memDoctors) ListSpecialties(ctx context.Context) ([]string, error) {
	ds, _ := r.ListAll(ctx, "")
	seen := map[string]bool{}
	var out []string
	for _, d := range ds {
		if !seen[d.Specialty] {
			seen[d.Specialty] = true
			out = append(out, d.Specialty)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memDoctors) Search(_ context.Context, q *doctor.ListDoctorsQuery) (*doctor.PagedDoctors, error) {
	return &doctor.PagedDoctors{Page: q.Page, PageSize: q.PageSize}, nil
}

type memPatients struct {
	mu    sync.Mutex
	items map[uuid.UUID]*patient.Patient
}

func newMemPatients(ps ...*patient.Patient) *memPatients {
	r := &memPatients{items: make(map[uuid.UUID]*patient.Patient)}
	for _, p := range ps {
		r.items[p.ID] = p
	}
	return r
}

func (r *memPatients) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	r.items[p.ID] = p
	return nil
}

func (r *memPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPatients) GetByEmail(_ context.Context, email string) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *memPatients) Update(_ context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.LastName != nil {
		p.LastName = *cmd.LastName
	}
	if cmd.Phone != nil {
		p.Phone = *cmd.Phone
	}
	if cmd.Email != nil {
		p.Email = *cmd.Email
	}
	cp := *p
	return &cp, nil
}

func (r *memPatients) SetStatus(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[p.ID]
	if !ok {
		return patient.ErrPatientNotFound
	}
	stored.Status = p.Status
	return nil
}

func (r *memPatients) UpdateLoginState(_ context.Context, id uuid.UUID, state domain.LoginState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return patient.ErrPatientNotFound
	}
	p.LoginState = state
	return nil
}

func (r *memPatients) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	return &patient.PagedPatients{Page: q.Page, PageSize: q.PageSize}, nil
}

func (r *memPatients) ListActive(_ context.Context) ([]*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*patient.Patient
	for _, p := range r.items {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPatients) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type memAdmins struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Admin
}

func newMemAdmins(as ...*domain.Admin) *memAdmins {
	r := &memAdmins{items: make(map[uuid.UUID]*domain.Admin)}
	for _, a := range as {
		r.items[a.ID] = a
	}
	return r
}

func (r *memAdmins) Create(_ context.Context, a *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Username == a.Username {
			return domain.ErrAdminAlreadyExists
		}
	}
	a.ID = uuid.New()
	r.items[a.ID] = a
	return nil
}

func (r *memAdmins) GetByID(_ context.Context, id uuid.UUID) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAdmins) GetByUsername(_ context.Context, username string) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAdminNotFound
}

func (r *memAdmins) UpdateLoginState(_ context.Context, id uuid.UUID, state domain.LoginState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrAdminNotFound
	}
	a.LoginState = state
	return nil
}

type stubReports struct {
	counts    atomic.Int32
	stats     report.Stats
	recent    []report.RecentAppointment
	lastFrom  time.Time
	lastTo    time.Time
	specialty []report.SpecialtyRow
}

func (r *stubReports) Counts(_ context.Context, _, _ time.Time) (*report.Stats, error) {
	r.counts.Add(1)
	s := r.stats
	return &s, nil
}

func (r *stubReports) RecentAppointments(_ context.Context, limit int) ([]report.RecentAppointment, error) {
	if len(r.recent) > limit {
		return r.recent[:limit], nil
	}
	return r.recent, nil
}

func (r *stubReports) AppointmentsBySpecialty(_ context.Context, from, to time.Time) ([]report.SpecialtyRow, error) {
	r.lastFrom, r.lastTo = from, to
	return r.specialty, nil
}

func (r *stubReports) PatientActivity(_ context.Context, from, to time.Time, _ int) ([]report.PatientActivityRow, error) {
	r.lastFrom, r.lastTo = from, to
	return nil, nil
}

func (r *stubReports) DoctorPerformance(_ context.Context, from, to time.Time) ([]report.DoctorPerformanceRow, error) {
	r.lastFrom, r.lastTo = from, to
	return nil, nil
}

// memCache stores values as-is; GetJSON copies through a type switch on the
// one type the dashboard caches.
type memCache struct {
	mu     sync.Mutex
	values map[string]report.Stats
	ttls   map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{values: map[string]report.Stats{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*dest.(*report.Stats) = v
	return true, nil
}

func (c *memCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = *value.(*report.Stats)
	c.ttls[key] = ttl
	return nil
}
