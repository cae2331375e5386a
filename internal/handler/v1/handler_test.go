package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAppointments answers every call with err, recording the last command.
type stubAppointments struct {
	AppointmentService

	mu        sync.Mutex
	err       error
	scheduled *appointment.CreateAppointmentCommand
	updated   *appointment.UpdateAppointmentCommand
	avail     *service.Availability
}

func (s *stubAppointments) Schedule(_ context.Context, cmd *appointment.CreateAppointmentCommand, _ domain.Actor) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &appointment.Appointment{
		ID:          uuid.New(),
		PatientID:   cmd.PatientID,
		DoctorID:    cmd.DoctorID,
		ScheduledAt: time.Date(2030, 3, 12, 16, 0, 0, 0, time.UTC),
		Reason:      cmd.Reason,
		Status:      appointment.StatusPending,
	}, nil
}

func (s *stubAppointments) Update(_ context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, _ domain.Actor) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &appointment.Appointment{ID: id, Status: appointment.StatusConfirmed}, nil
}

func (s *stubAppointments) CheckAvailability(_ context.Context, doctorID uuid.UUID, _ string) (*service.Availability, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.avail
	res.DoctorID = doctorID
	return &res, nil
}

type stubDoctors struct {
	DoctorService
}

func (stubDoctors) ListSpecialties(context.Context) ([]string, error) {
	return []string{"Cardiología"}, nil
}

func (stubDoctors) ListAvailable(_ context.Context, specialty string) ([]*doctor.Doctor, error) {
	if specialty == "" {
		return nil, doctor.ErrSpecialtyRequired
	}
	return []*doctor.Doctor{{ID: uuid.New(), Name: "Dra. Ruiz", Specialty: specialty}}, nil
}

type testServer struct {
	router       http.Handler
	jwt          *auth.JWTManager
	appointments *stubAppointments
}

func newTestServer(t *testing.T, rl config.RateLimitConfig, checks map[string]HealthChecker) *testServer {
	t.Helper()

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "clinicbook-test",
	})
	appts := &stubAppointments{}
	h := NewHandler(Services{
		Appointments: appts,
		Doctors:      stubDoctors{},
	}, checks, time.UTC, "test", zap.NewNop())

	router := NewRouter(h, RouterConfig{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}},
		RateLimit: rl,
		JWT:       jwtManager,
		Metrics:   metrics.NewCollector("clinicbook_test", prometheus.NewRegistry()),
		Log:       zap.NewNop(),
	})
	return &testServer{router: router, jwt: jwtManager, appointments: appts}
}

func defaultServer(t *testing.T) *testServer {
	return newTestServer(t, config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000, AuthRequestsPerMinute: 1000}, nil)
}

func (s *testServer) token(t *testing.T, role domain.Role, id uuid.UUID) string {
	t.Helper()
	pair, err := s.jwt.GenerateTokenPair(&domain.Claims{UserID: id, Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestCreateAppointmentStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"accepted", nil, http.StatusOK, ""},
		{"invalid input", appointment.Reject(appointment.KindInvalidInput, "missing required fields: reason"), http.StatusBadRequest, "INVALID_INPUT"},
		{"past date", appointment.ErrScheduledInPast, http.StatusBadRequest, "PAST_DATE"},
		{"out of hours", appointment.ErrOutOfHours, http.StatusBadRequest, "OUT_OF_HOURS"},
		{"doctor missing", appointment.ErrDoctorNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"patient missing", appointment.ErrPatientNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"doctor conflict", appointment.ErrDoctorConflict, http.StatusBadRequest, "DOCTOR_CONFLICT"},
		{"patient conflict", appointment.ErrPatientConflict, http.StatusBadRequest, "PATIENT_CONFLICT"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := defaultServer(t)
			srv.appointments.err = tt.err
			token := srv.token(t, domain.RolePatient, uuid.New())

			w := srv.do(http.MethodPost, "/api/v1/appointments", token, map[string]string{
				"doctor_id":  uuid.NewString(),
				"start_time": "2030-03-12T10:00",
				"reason":     "Consulta",
			})

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode == "" {
				var res struct {
					Data appointmentResponse `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				assert.Equal(t, "pendiente", res.Data.Status)
				return
			}
			res := decodeError(t, w)
			assert.Equal(t, tt.wantCode, res.Code)
			if tt.wantCode == "INTERNAL" {
				assert.NotContains(t, res.Error, "connection reset")
			}
		})
	}
}

func TestCreateAppointmentUsesTokenPatient(t *testing.T) {
	srv := defaultServer(t)
	me := uuid.New()

	w := srv.do(http.MethodPost, "/api/v1/appointments", srv.token(t, domain.RolePatient, me), map[string]string{
		"doctor_id":  uuid.NewString(),
		"patient_id": uuid.NewString(),
		"start_time": "2030-03-12T10:00",
		"reason":     "Consulta",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me, srv.appointments.scheduled.PatientID)
}

func TestCreateAppointmentBadInput(t *testing.T) {
	srv := defaultServer(t)
	token := srv.token(t, domain.RolePatient, uuid.New())

	w := srv.do(http.MethodPost, "/api/v1/appointments", token, `{"doctor_id": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)

	w = srv.do(http.MethodPost, "/api/v1/appointments", token, map[string]string{"doctor_id": "doc-7", "start_time": "2030-03-12T10:00", "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
	assert.Nil(t, srv.appointments.scheduled, "service must not be called")
}

func TestUpdateAppointmentRejectsUnknownStatus(t *testing.T) {
	srv := defaultServer(t)
	token := srv.token(t, domain.RoleAdmin, uuid.New())

	w := srv.do(http.MethodPut, "/api/v1/admin/appointments/"+uuid.NewString(), token, map[string]string{"status": "archivada"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, srv.appointments.updated)

	w = srv.do(http.MethodPut, "/api/v1/admin/appointments/not-a-uuid", token, map[string]string{"status": "confirmada"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodPut, "/api/v1/admin/appointments/"+uuid.NewString(), token, map[string]string{"status": "confirmada"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, srv.appointments.updated.Status)
	assert.Equal(t, appointment.StatusConfirmed, *srv.appointments.updated.Status)

	srv.appointments.err = appointment.ErrInvalidStatusTransition
	w = srv.do(http.MethodPut, "/api/v1/admin/appointments/"+uuid.NewString(), token, map[string]string{"status": "pendiente"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Code)

	srv.appointments.err = appointment.ErrAppointmentNotFound
	w = srv.do(http.MethodPut, "/api/v1/admin/appointments/"+uuid.NewString(), token, map[string]string{"status": "confirmada"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv.appointments.err = appointment.ErrConcurrentModification
	w = srv.do(http.MethodPut, "/api/v1/admin/appointments/"+uuid.NewString(), token, map[string]string{"status": "confirmada"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONCURRENT_UPDATE", decodeError(t, w).Code)
}

func TestAuthenticationAndRoles(t *testing.T) {
	srv := defaultServer(t)
	patientToken := srv.token(t, domain.RolePatient, uuid.New())
	adminToken := srv.token(t, domain.RoleAdmin, uuid.New())

	w := srv.do(http.MethodGet, "/api/v1/appointments/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/appointments/mine", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPost, "/api/v1/appointments", adminToken, map[string]string{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/admin/dashboard/stats", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	pair, err := srv.jwt.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RolePatient})
	require.NoError(t, err)
	w = srv.do(http.MethodGet, "/api/v1/appointments/mine", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are not bearer tokens")
}

func TestCheckAvailability(t *testing.T) {
	srv := defaultServer(t)
	srv.appointments.avail = &service.Availability{Available: false, Reason: appointment.KindDoctorConflict, Message: "taken"}
	doctorID := uuid.New()

	w := srv.do(http.MethodGet, "/api/v1/appointments/availability?doctor_id="+doctorID.String()+"&datetime=2030-03-12T10:30",
		srv.token(t, domain.RolePatient, uuid.New()), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data availabilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Data.Available)
	assert.Equal(t, "DOCTOR_CONFLICT", res.Data.Reason)
	assert.Equal(t, doctorID, res.Data.DoctorID)
}

func TestPublicDoctorRoutes(t *testing.T) {
	srv := defaultServer(t)

	w := srv.do(http.MethodGet, "/api/v1/doctors/available", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/doctors/available?specialty=Cardiolog%C3%ADa", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidationDetails(t *testing.T) {
	srv := defaultServer(t)

	w := srv.do(http.MethodPost, "/api/v1/patients/register", "", map[string]string{"email": "nope", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	res := decodeError(t, w)
	assert.Equal(t, "INVALID_INPUT", res.Code)
	assert.Contains(t, res.Details, "email must be a valid email")
	assert.Contains(t, res.Details, "password must be at least 8 characters")
	assert.Contains(t, res.Details, "first_name is required")
}

func TestRateLimiterReturns429AfterBurst(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2, AuthRequestsPerMinute: 1000}, nil)

	for i := 0; i < 2; i++ {
		w := srv.do(http.MethodGet, "/api/v1/doctors/specialties", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := srv.do(http.MethodGet, "/api/v1/doctors/specialties", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
}

func TestRateLimiterKeysByClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, config.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 100, AuthRequestsPerMinute: 10},
		map[string]HealthChecker{"postgres": func(context.Context) error { return nil }})
	w := healthy.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := newTestServer(t, config.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 100, AuthRequestsPerMinute: 10},
		map[string]HealthChecker{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
	w = degraded.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var res healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "degraded", res.Status)
	assert.Equal(t, "ok", res.Checks["postgres"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := defaultServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/specialties", nil)
	req.Header.Set(headerRequestID, "req-42")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(headerRequestID))
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "first_name", snakeCase("FirstName"))
	assert.Equal(t, "email", snakeCase("Email"))
	assert.Equal(t, "refresh_token", snakeCase("RefreshToken"))
}
