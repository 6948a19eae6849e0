package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDateRange_SingleDay(t *testing.T) {
	dr, err := NewDateRange(date(2025, 10, 6), date(2025, 10, 6))
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Days())
}

func TestNewDateRange_NormalizesToUTCMidnight(t *testing.T) {
	lima := time.FixedZone("America/Lima", -5*3600)
	start := time.Date(2025, 10, 6, 23, 45, 12, 0, lima)

	dr, err := NewDateRange(start, start.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, time.UTC, dr.Start.Location())
	assert.Zero(t, dr.Start.Hour())
	assert.Zero(t, dr.Start.Minute())
}

func TestNewDateRange_RejectsInvertedRange(t *testing.T) {
	_, err := NewDateRange(date(2025, 10, 8), date(2025, 10, 6))
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrCodeValidationDateRangeInverted, appErr.Code)
}

func TestNewDateRange_RejectsOversizedRange(t *testing.T) {
	// 31 calendar days inclusive, one past the cap.
	_, err := NewDateRange(date(2025, 10, 1), date(2025, 10, 31))
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrCodeValidationDateRangeTooLong, appErr.Code)
	assert.Equal(t, 31, appErr.Details["days"])
	assert.Equal(t, MaxForecastDays, appErr.Details["max_days"])
}

func TestNewDateRange_AcceptsMaximumSpan(t *testing.T) {
	dr, err := NewDateRange(date(2025, 10, 1), date(2025, 10, 30))
	require.NoError(t, err)
	assert.Equal(t, MaxForecastDays, dr.Days())
}

func TestDateRangeEachDay(t *testing.T) {
	dr, err := NewDateRange(date(2025, 10, 6), date(2025, 10, 8))
	require.NoError(t, err)

	var seen []time.Time
	require.NoError(t, dr.EachDay(func(day time.Time) error {
		seen = append(seen, day)
		return nil
	}))

	require.Len(t, seen, 3)
	assert.Equal(t, date(2025, 10, 6), seen[0])
	assert.Equal(t, date(2025, 10, 8), seen[2])
}

func TestDateRangeEachDay_StopsOnError(t *testing.T) {
	dr, err := NewDateRange(date(2025, 10, 6), date(2025, 10, 10))
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = dr.EachDay(func(time.Time) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
