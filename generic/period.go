package generic

// =============================================================================
// PERIOD - An inclusive range of days
// =============================================================================

// Period is the closed interval [Start, End] a leave covers.
//
// Examples:
//   - Annual leave 2024-01-01..2024-01-31
//   - The before-part of a split: [existing.Start, proposed.Start-1]
type Period struct {
	Start TimePoint
	End   TimePoint
}

func NewPeriod(start, end TimePoint) Period { return Period{Start: start, End: end} }

// Validate rejects periods whose end is before their start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &InvalidInputError{Field: "dates", Reason: "start and end dates are required"}
	}
	if p.End.Before(p.Start) {
		return &InvalidInputError{Field: "end_date", Reason: "end date is before start date"}
	}
	return nil
}

// IsEmpty is true when End is before Start.
func (p Period) IsEmpty() bool { return p.End.Before(p.Start) }

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps uses the inclusive test: other.End >= p.Start AND other.Start <= p.End.
func (p Period) Overlaps(other Period) bool {
	return other.End.AfterOrEqual(p.Start) && other.Start.BeforeOrEqual(p.End)
}

// StrictlyInside is true when p starts after and ends before outer.
func (p Period) StrictlyInside(outer Period) bool {
	return p.Start.After(outer.Start) && p.End.Before(outer.End)
}

// Covers is true when p contains or equals inner.
func (p Period) Covers(inner Period) bool {
	return p.Start.BeforeOrEqual(inner.Start) && p.End.AfterOrEqual(inner.End)
}

func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// CalendarDays counts every day in the period, 0 when empty.
func (p Period) CalendarDays() int {
	if p.IsEmpty() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
