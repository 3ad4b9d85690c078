package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/calendar"
	"taskDesk/internal/config"
	"taskDesk/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := task.ParseDate(s)
	require.NoError(t, err)
	return d
}

// MockHolidays - holiday source mock
type MockHolidays struct {
	mock.Mock
}

func (m *MockHolidays) Lookup(ctx context.Context, d time.Time) (string, bool, error) {
	args := m.Called(ctx, d)
	return args.String(0), args.Bool(1), args.Error(2)
}

var _ calendar.Holidays = (*MockHolidays)(nil)

func TestCheckDate(t *testing.T) {
	ctx := context.Background()
	holidays := calendar.NewStatic(
		calendar.Holiday{Date: day(t, "2025-10-20"), Name: "Diwali"},
		calendar.Holiday{Date: day(t, "2025-10-21"), Name: "Diwali Holiday"},
		calendar.Holiday{Date: day(t, "2025-10-27"), Name: "Bhai Dooj"},
	)
	checker := calendar.NewChecker(holidays, 365)

	tests := []struct {
		name     string
		date     string
		expected calendar.Verdict
	}{
		{
			name:     "working day passes",
			date:     "2025-07-07",
			expected: calendar.Verdict{OriginalDate: "2025-07-07"},
		},
		{
			name: "sunday shifts to monday",
			date: "2025-07-06",
			expected: calendar.Verdict{
				NeedsShift:    true,
				Reason:        "Sunday",
				OriginalDate:  "2025-07-06",
				SuggestedDate: "2025-07-07",
				Message:       "Jul 06, 2025 is Sunday. Shift to Jul 07, 2025?",
			},
		},
		{
			name: "consecutive holidays are skipped",
			date: "2025-10-20",
			expected: calendar.Verdict{
				NeedsShift:    true,
				Reason:        "Diwali",
				OriginalDate:  "2025-10-20",
				SuggestedDate: "2025-10-22",
				Message:       "Oct 20, 2025 is Diwali. Shift to Oct 22, 2025?",
			},
		},
		{
			name: "sunday followed by holiday",
			date: "2025-10-26",
			expected: calendar.Verdict{
				NeedsShift:    true,
				Reason:        "Sunday",
				OriginalDate:  "2025-10-26",
				SuggestedDate: "2025-10-28",
				Message:       "Oct 26, 2025 is Sunday. Shift to Oct 28, 2025?",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := checker.CheckDate(ctx, day(t, tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, verdict)
		})
	}
}

func TestCheckDate_Idempotent(t *testing.T) {
	ctx := context.Background()
	checker := calendar.NewChecker(calendar.NewStatic(
		calendar.Holiday{Date: day(t, "2025-08-15"), Name: "Independence Day"},
	), 365)

	for _, d := range []string{"2025-08-15", "2025-07-06", "2025-07-07"} {
		first, err := checker.CheckDate(ctx, day(t, d))
		require.NoError(t, err)
		second, err := checker.CheckDate(ctx, day(t, d))
		require.NoError(t, err)
		assert.Equal(t, first, second, d)
	}
}

func TestCheckDate_EverySundayNeedsShift(t *testing.T) {
	ctx := context.Background()
	checker := calendar.NewChecker(nil, 365)

	sunday := day(t, "2025-01-05")
	for i := 0; i < 104; i++ {
		d := sunday.AddDate(0, 0, 7*i)
		verdict, err := checker.CheckDate(ctx, d)
		require.NoError(t, err)
		assert.True(t, verdict.NeedsShift)
		assert.Equal(t, calendar.ReasonSunday, verdict.Reason)
		assert.Equal(t, task.FormatDate(d.AddDate(0, 0, 1)), verdict.SuggestedDate)
	}
}

func TestCheckDate_IgnoresTimeOfDay(t *testing.T) {
	checker := calendar.NewChecker(nil, 365)
	late := time.Date(2025, 7, 6, 23, 59, 0, 0, time.UTC)

	verdict, err := checker.CheckDate(context.Background(), late)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-06", verdict.OriginalDate)
	assert.True(t, verdict.NeedsShift)
}

func TestCheckDate_SearchCapExhausted(t *testing.T) {
	m := new(MockHolidays)
	m.On("Lookup", mock.Anything, mock.Anything).Return("Closed", true, nil)

	checker := calendar.NewChecker(m, 10)
	_, err := checker.CheckDate(context.Background(), day(t, "2025-07-07"))

	require.Error(t, err)
	assert.Equal(t, apperr.CodeServiceUnavailable, apperr.CodeOf(err))
}

func TestCheckDate_SourceFailure(t *testing.T) {
	m := new(MockHolidays)
	m.On("Lookup", mock.Anything, mock.Anything).Return("", false, errors.New("db down"))

	checker := calendar.NewChecker(m, 365)
	_, err := checker.CheckDate(context.Background(), day(t, "2025-07-07"))

	require.Error(t, err)
	assert.Equal(t, apperr.CodeServiceUnavailable, apperr.CodeOf(err))
	m.AssertExpectations(t)
}

func TestCheckDate_SundayNeverHitsSource(t *testing.T) {
	m := new(MockHolidays)
	monday := day(t, "2025-07-07")
	m.On("Lookup", mock.Anything, monday).Return("", false, nil).Once()

	checker := calendar.NewChecker(m, 365)
	verdict, err := checker.CheckDate(context.Background(), day(t, "2025-07-06"))

	require.NoError(t, err)
	assert.Equal(t, "2025-07-07", verdict.SuggestedDate)
	m.AssertExpectations(t)
}

func TestStaticFromConfig(t *testing.T) {
	static, err := calendar.StaticFromConfig([]config.HolidayConfig{
		{Date: "2025-12-25", Name: "Christmas"},
	})
	require.NoError(t, err)

	name, ok, err := static.Lookup(context.Background(), day(t, "2025-12-25"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Christmas", name)

	_, err = calendar.StaticFromConfig([]config.HolidayConfig{{Date: "25/12/2025"}})
	assert.Error(t, err)
}

func TestVerdictDates(t *testing.T) {
	v := calendar.Verdict{NeedsShift: true, OriginalDate: "2025-07-06", SuggestedDate: "2025-07-07"}

	orig, err := v.Original()
	require.NoError(t, err)
	sugg, err := v.Suggested()
	require.NoError(t, err)
	assert.Equal(t, 1, task.DaysBetween(orig, sugg))
}
