// Package types defines the canonical domain types shared by every layer of
// the rainparade service: geographic points, date ranges, forecast values,
// recommendations, and the application error taxonomy.
//
// All entities here are request-scoped value objects. Nothing in this package
// holds state that outlives a single forecast request.
package types

import "time"

// GeoPoint is an immutable geographic coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// DateRange is an inclusive calendar date range. Start and End are stored as
// UTC midnight timestamps; callers construct ranges via NewDateRange which
// normalizes and validates them.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// MaxForecastDays is the longest span (inclusive) a single forecast request
// may cover. Requests beyond the cap are rejected, never truncated.
const MaxForecastDays = 30

// DateOnly is the wire format for calendar dates.
const DateOnly = "2006-01-02"

// NewDateRange builds a DateRange from two calendar dates, normalizing both
// to UTC midnight. It returns a validation AppError when the range is
// inverted or spans more than MaxForecastDays days.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := truncateToDay(start)
	e := truncateToDay(end)

	if e.Before(s) {
		return DateRange{}, NewAppError(ErrCodeValidationDateRangeInverted,
			"end date must not be before start date", nil)
	}
	if days := spanDays(s, e); days > MaxForecastDays {
		return DateRange{}, NewAppErrorWithDetails(ErrCodeValidationDateRangeTooLong,
			"date range exceeds the maximum forecast span", nil,
			map[string]any{"days": days, "max_days": MaxForecastDays})
	}
	return DateRange{Start: s, End: e}, nil
}

// Days returns the number of calendar days covered by the range, inclusive.
// A range with Start == End covers exactly one day.
func (r DateRange) Days() int {
	return spanDays(r.Start, r.End)
}

// EachDay calls fn for every calendar day in the range, in chronological
// order. It stops and returns the first non-nil error from fn.
func (r DateRange) EachDay(fn func(day time.Time) error) error {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func spanDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// Address is the result of a reverse-geocode lookup.
type Address struct {
	State       string `json:"state"`
	Region      string `json:"region"`
	District    string `json:"district"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}
