package generic

import (
	"context"
	"fmt"
)

// =============================================================================
// CALENDAR - Working-day arithmetic over a precomputed holiday set
// =============================================================================

// HolidaySource loads holidays whose date falls in [from, to]. Recurring
// holidays are returned regardless of their stored year.
type HolidaySource interface {
	ListHolidays(ctx context.Context, from, to TimePoint) ([]Holiday, error)
}

// Calendar answers working-day questions. Weekends are Saturday and Sunday.
type Calendar struct {
	Source HolidaySource
}

func NewCalendar(source HolidaySource) *Calendar {
	return &Calendar{Source: source}
}

// WorkingDaysBetween counts the days in [start, end] that are neither
// weekend days nor holidays. It is 0 when end is before start.
func WorkingDaysBetween(start, end TimePoint, holidays HolidaySet) int {
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday(holidays) {
			count++
		}
	}
	return count
}

// NextWorkingDay returns the first working day strictly after date.
func NextWorkingDay(date TimePoint, holidays HolidaySet) TimePoint {
	next := date.AddDays(1)
	for !next.IsWorkday(holidays) {
		next = next.AddDays(1)
	}
	return next
}

// HolidaySetForYears builds the holiday set covering yearStart..yearEnd.
// Recurring holidays are expanded into every year of the range.
func (c *Calendar) HolidaySetForYears(ctx context.Context, yearStart, yearEnd int) (HolidaySet, error) {
	hs := NewHolidaySet()
	if c == nil || c.Source == nil {
		return hs, nil
	}
	if yearEnd < yearStart {
		yearStart, yearEnd = yearEnd, yearStart
	}
	holidays, err := c.Source.ListHolidays(ctx, StartOfYear(yearStart), EndOfYear(yearEnd))
	if err != nil {
		return nil, fmt.Errorf("load holidays %d-%d: %w", yearStart, yearEnd, err)
	}
	for _, h := range holidays {
		if !h.Recurring {
			hs.Add(h.Date)
			continue
		}
		for y := yearStart; y <= yearEnd; y++ {
			hs.Add(NewTimePoint(y, h.Date.Month(), h.Date.Day()))
		}
	}
	return hs, nil
}

// WorkingDays counts working days in a period, loading holidays for the
// years the period spans.
func (c *Calendar) WorkingDays(ctx context.Context, p Period) (int, error) {
	if p.IsEmpty() {
		return 0, nil
	}
	hs, err := c.HolidaySetForYears(ctx, p.Start.Year(), p.End.Year())
	if err != nil {
		return 0, err
	}
	return WorkingDaysBetween(p.Start, p.End, hs), nil
}

// ReturnDate is the first working day after a leave ends.
func (c *Calendar) ReturnDate(ctx context.Context, end TimePoint) (TimePoint, error) {
	// a run of holidays can push the return into the next year
	hs, err := c.HolidaySetForYears(ctx, end.Year(), end.Year()+1)
	if err != nil {
		return TimePoint{}, err
	}
	return NextWorkingDay(end, hs), nil
}
