package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"go.uber.org/zap"
)

const (
	statsCacheKey      = "clinicbook:dashboard:stats"
	recentAppointments = 5
	topPatients        = 20
)

// StatsCache is a JSON value cache. A miss returns false with a nil error.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type DashboardService struct {
	repo  report.Repository
	cache StatsCache // nil disables caching
	ttl   time.Duration
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

func NewDashboardService(repo report.Repository, cache StatsCache, ttl time.Duration, loc *time.Location, log *zap.Logger) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, loc: loc, log: log, now: time.Now}
}

// Stats returns the dashboard summary, served from cache when fresh.
// Cache failures fall through to the database.
func (s *DashboardService) Stats(ctx context.Context) (*report.Stats, error) {
	if s.cache != nil {
		var cached report.Stats
		hit, err := s.cache.GetJSON(ctx, statsCacheKey, &cached)
		if err != nil {
			s.log.Warn("stats cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	dayStart, dayEnd := appointment.DayBounds(s.now(), s.loc)
	stats, err := s.repo.Counts(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("counting dashboard stats: %w", err)
	}
	recent, err := s.repo.RecentAppointments(ctx, recentAppointments)
	if err != nil {
		return nil, fmt.Errorf("listing recent appointments: %w", err)
	}
	stats.Recent = recent
	stats.GeneratedAt = s.now().UTC()

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.ttl); err != nil {
			s.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Report generates typ over the dates start..end (YYYY-MM-DD, end inclusive).
// Empty dates default to the last 30 days.
func (s *DashboardService) Report(ctx context.Context, typ report.Type, start, end string) (*report.Report, error) {
	if !typ.IsValid() {
		return nil, ErrUnknownReport
	}

	from, to, err := s.reportRange(start, end)
	if err != nil {
		return nil, err
	}

	r := &report.Report{Type: typ, Start: from, End: to.AddDate(0, 0, -1)}
	switch typ {
	case report.TypeAppointmentsBySpecialty:
		r.Rows, err = s.repo.AppointmentsBySpecialty(ctx, from, to)
	case report.TypePatientActivity:
		r.Rows, err = s.repo.PatientActivity(ctx, from, to, topPatients)
	case report.TypeDoctorPerformance:
		r.Rows, err = s.repo.DoctorPerformance(ctx, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("generating %s report: %w", typ, err)
	}
	return r, nil
}

func (s *DashboardService) reportRange(start, end string) (time.Time, time.Time, error) {
	today, _ := appointment.DayBounds(s.now(), s.loc)

	to := today.AddDate(0, 0, 1)
	if end != "" {
		t, err := time.ParseInLocation(time.DateOnly, end, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Fields: []string{"end_date must be YYYY-MM-DD"}}
		}
		to = t.AddDate(0, 0, 1)
	}

	from := to.AddDate(0, 0, -30)
	if start != "" {
		t, err := time.ParseInLocation(time.DateOnly, start, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Fields: []string{"start_date must be YYYY-MM-DD"}}
		}
		from = t
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, report.ErrInvalidRange
	}
	return from, to, nil
}
