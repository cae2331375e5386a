package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// account is the part of a patient or admin the login flow needs.
type account struct {
	claims *domain.Claims
	hash   string
	active bool
	state  *domain.LoginState
}

type AuthService struct {
	patients    patient.Repository
	admins      domain.AdminRepository
	jwtManager  *auth.JWTManager
	activitySvc *ActivityService
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	patients patient.Repository,
	admins domain.AdminRepository,
	jwtManager *auth.JWTManager,
	activitySvc *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		patients:    patients,
		admins:      admins,
		jwtManager:  jwtManager,
		activitySvc: activitySvc,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

func (s *AuthService) PatientLogin(ctx context.Context, email, password string, actor domain.Actor) (*domain.TokenPair, error) {
	p, err := s.patients.GetByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, patient.ErrPatientNotFound) {
		return nil, fmt.Errorf("looking up patient: %w", err)
	}

	var acc *account
	if p != nil {
		acc = &account{
			claims: &domain.Claims{UserID: p.ID, Email: p.Email, Role: domain.RolePatient},
			hash:   p.PasswordHash,
			active: p.IsActive(),
			state:  &p.LoginState,
		}
	}

	return s.login(ctx, domain.RolePatient, acc, password, actor, func(state domain.LoginState) error {
		return s.patients.UpdateLoginState(ctx, p.ID, state)
	})
}

func (s *AuthService) AdminLogin(ctx context.Context, username, password string, actor domain.Actor) (*domain.TokenPair, error) {
	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, domain.ErrAdminNotFound) {
		return nil, fmt.Errorf("looking up admin: %w", err)
	}

	var acc *account
	if a != nil {
		acc = &account{
			claims: &domain.Claims{UserID: a.ID, Email: a.Email, Role: domain.RoleAdmin},
			hash:   a.PasswordHash,
			active: a.IsActive(),
			state:  &a.LoginState,
		}
	}

	return s.login(ctx, domain.RoleAdmin, acc, password, actor, func(state domain.LoginState) error {
		return s.admins.UpdateLoginState(ctx, a.ID, state)
	})
}

func (s *AuthService) login(ctx context.Context, r domain.Role, acc *account, password string, actor domain.Actor, save func(domain.LoginState) error) (*domain.TokenPair, error) {
	role := string(r)
	if acc == nil {
		// Hash anyway so unknown identities take as long as wrong passwords.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		s.metrics.LoginsTotal.WithLabelValues(role, "unknown").Inc()
		return nil, ErrInvalidCredentials
	}

	if !acc.active {
		s.metrics.LoginsTotal.WithLabelValues(role, "inactive").Inc()
		return nil, ErrAccountInactive
	}
	if acc.state.IsLocked() {
		s.metrics.LoginsTotal.WithLabelValues(role, "locked").Inc()
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.hash), []byte(password)); err != nil {
		acc.state.RecordLogin(false, s.now())
		if err := save(*acc.state); err != nil {
			s.log.Error("failed to record login attempt", zap.Error(err))
		}
		s.metrics.LoginsTotal.WithLabelValues(role, "failed").Inc()
		s.log.Warn("failed login attempt",
			zap.String("user_id", acc.claims.UserID.String()),
			zap.String("role", role),
			zap.String("ip", actor.IP),
		)
		return nil, ErrInvalidCredentials
	}

	acc.state.RecordLogin(true, s.now())
	if err := save(*acc.state); err != nil {
		s.log.Error("failed to record login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(acc.claims)
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.metrics.LoginsTotal.WithLabelValues(role, "success").Inc()
	actor.ID = acc.claims.UserID
	actor.Role = r
	s.activitySvc.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       domain.ActionLogin,
		ResourceType: role,
		ResourceID:   acc.claims.UserID.String(),
	})

	s.log.Info("user logged in",
		zap.String("user_id", acc.claims.UserID.String()),
		zap.String("role", role),
		zap.String("ip", actor.IP),
	)

	return pair, nil
}

// Refresh issues a new pair given a valid refresh token, provided the
// account is still active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	switch claims.Role {
	case domain.RolePatient:
		p, err := s.patients.GetByID(ctx, claims.UserID)
		if err != nil || !p.IsActive() {
			return nil, ErrInvalidCredentials
		}
		claims.Email = p.Email
	case domain.RoleAdmin:
		a, err := s.admins.GetByID(ctx, claims.UserID)
		if err != nil || !a.IsActive() {
			return nil, ErrInvalidCredentials
		}
		claims.Email = a.Email
	default:
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claims)
}

// CreateAdmin provisions an admin account. Used by the CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password, fullName, email string) (*domain.Admin, error) {
	var errs []string
	username = strings.TrimSpace(username)
	if username == "" {
		errs = append(errs, "username is required")
	}
	if len(password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(fullName) == "" {
		errs = append(errs, "full_name is required")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	a := &domain.Admin{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		Email:        normalizeEmail(email),
		Role:         domain.RoleAdmin,
		Status:       domain.AccountActive,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
