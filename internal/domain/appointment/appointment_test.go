package appointment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPending, Status("archivada"), false},
		{StatusConfirmed, StatusConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			a := &Appointment{Status: tt.from}
			err := a.TransitionTo(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, a.Status)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)
			assert.Equal(t, tt.from, a.Status)
		})
	}
}

func TestCancelStampsTime(t *testing.T) {
	a := &Appointment{Status: StatusConfirmed}
	require.NoError(t, a.Cancel())
	assert.Equal(t, StatusCancelled, a.Status)
	require.NotNil(t, a.CancelledAt)

	assert.ErrorIs(t, a.Cancel(), ErrInvalidStatusTransition, "cancelling twice")
}

func TestConflicts(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	base := time.Date(2030, 3, 12, 10, 0, 0, 0, loc)

	tests := []struct {
		name  string
		other time.Time
		want  bool
	}{
		{"same time", base, true},
		{"30 minutes later", base.Add(30 * time.Minute), true},
		{"30 minutes earlier", base.Add(-30 * time.Minute), true},
		{"59 minutes later", base.Add(59 * time.Minute), true},
		{"exactly one hour later", base.Add(time.Hour), false},
		{"exactly one hour earlier", base.Add(-time.Hour), false},
		{"next day same time", base.AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conflicts(base, tt.other, time.Hour, loc))
			assert.Equal(t, tt.want, Conflicts(tt.other, base, time.Hour, loc))
		})
	}
}

func TestConflictsUsesClinicCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	// 23:30 and 00:10 local are 40 minutes apart but on different days.
	late := time.Date(2030, 3, 12, 23, 30, 0, 0, loc)
	early := time.Date(2030, 3, 13, 0, 10, 0, 0, loc)
	assert.False(t, Conflicts(late, early, time.Hour, loc))

	// The same instants are one UTC day, which must not matter.
	assert.True(t, Conflicts(late.UTC(), early.UTC(), time.Hour, time.UTC))
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	start, end := DayBounds(time.Date(2030, 3, 12, 18, 45, 0, 0, loc), loc)
	assert.Equal(t, time.Date(2030, 3, 12, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2030, 3, 13, 0, 0, 0, 0, loc), end)
}

func TestRejectionMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrDoctorNotFound)

	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.NotErrorIs(t, err, ErrPatientNotFound)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(ErrPatientNotFound))
	assert.False(t, IsNotFound(ErrDoctorConflict))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindOutOfHours, KindOf(Reject(KindOutOfHours, "closed at %d", 19)))
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))

	assert.ErrorIs(t, Reject(KindPastDate, "yesterday"), ErrScheduledInPast)
}
