package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDashboard(repo *stubReports, cache StatsCache) *DashboardService {
	svc := NewDashboardService(repo, cache, 5*time.Minute, clinicLoc, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestStatsAreCached(t *testing.T) {
	repo := &stubReports{
		stats: report.Stats{ActivePatients: 12, Doctors: 3, Appointments: 40, TodayAppointments: 2, PendingAppointments: 5},
		recent: []report.RecentAppointment{
			{PatientName: "Ana"}, {PatientName: "Luis"}, {PatientName: "Eva"},
			{PatientName: "Raúl"}, {PatientName: "Sofía"}, {PatientName: "Iván"},
		},
	}
	cache := newMemCache()
	svc := newTestDashboard(repo, cache)

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, first.ActivePatients)
	assert.Len(t, first.Recent, 5)
	assert.Equal(t, 5*time.Minute, cache.ttls[statsCacheKey])

	second, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ActivePatients, second.ActivePatients)
	assert.EqualValues(t, 1, repo.counts.Load(), "second call is served from cache")
}

func TestStatsWithoutCache(t *testing.T) {
	repo := &stubReports{}
	svc := newTestDashboard(repo, nil)

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)
	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.counts.Load())
}

func TestReportRanges(t *testing.T) {
	repo := &stubReports{specialty: []report.SpecialtyRow{{Specialty: "Cardiología", Appointments: 4}}}
	svc := newTestDashboard(repo, nil)
	ctx := context.Background()

	r, err := svc.Report(ctx, report.TypeAppointmentsBySpecialty, "2030-03-01", "2030-03-10")
	require.NoError(t, err)
	assert.True(t, repo.lastFrom.Equal(time.Date(2030, 3, 1, 0, 0, 0, 0, clinicLoc)))
	assert.True(t, repo.lastTo.Equal(time.Date(2030, 3, 11, 0, 0, 0, 0, clinicLoc)), "end date is inclusive")
	assert.True(t, r.End.Equal(time.Date(2030, 3, 10, 0, 0, 0, 0, clinicLoc)))
	assert.Equal(t, repo.specialty, r.Rows)

	_, err = svc.Report(ctx, report.TypeDoctorPerformance, "", "")
	require.NoError(t, err)
	assert.True(t, repo.lastTo.Equal(time.Date(2030, 3, 12, 0, 0, 0, 0, clinicLoc)), "defaults end with today")
	assert.True(t, repo.lastFrom.Equal(time.Date(2030, 2, 10, 0, 0, 0, 0, clinicLoc)), "defaults span 30 days")

	_, err = svc.Report(ctx, report.Type("revenue"), "", "")
	assert.ErrorIs(t, err, ErrUnknownReport)

	_, err = svc.Report(ctx, report.TypePatientActivity, "2030-03-10", "2030-03-01")
	assert.ErrorIs(t, err, report.ErrInvalidRange)

	_, err = svc.Report(ctx, report.TypePatientActivity, "03/01/2030", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
