package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - A calendar day (leave is always booked in whole days)
// =============================================================================

const DateLayout = "2006-01-02"

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) TimePoint { return NewTimePoint(t.Year(), t.Month(), t.Day()) }

func Today() TimePoint { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, &InvalidInputError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return DateOf(t), nil
}

func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a public or institutional non-working day.
type Holiday struct {
	ID        string
	Date      TimePoint
	Name      string
	Recurring bool // same month/day every year
}

// HolidaySet is the precomputed set of holiday dates for a range of years.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...TimePoint) HolidaySet {
	hs := make(HolidaySet, len(dates))
	for _, d := range dates {
		hs.Add(d)
	}
	return hs
}

func (hs HolidaySet) Add(d TimePoint) { hs[d.String()] = struct{}{} }

func (hs HolidaySet) Contains(d TimePoint) bool {
	_, ok := hs[d.String()]
	return ok
}

// IsWorkday reports whether d is neither a weekend day nor a holiday.
func (tp TimePoint) IsWorkday(holidays HolidaySet) bool {
	if tp.IsWeekend() {
		return false
	}
	return !holidays.Contains(tp)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}
func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
