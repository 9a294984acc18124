package timeoff

import (
	"context"
	"fmt"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// REPORTS - Read-only views over leave records
// =============================================================================

// Inconsistency is an annual leave whose stored day count no longer
// matches the calendar, typically after a holiday was added.
type Inconsistency struct {
	Record     LeaveRecord
	Recomputed int
}

// InconsistentAnnualLeaves recomputes the working days of every Active
// annual leave starting in year.
func (s *Service) InconsistentAnnualLeaves(ctx context.Context, year int) ([]Inconsistency, error) {
	holidays, err := s.Calendar.HolidaySetForYears(ctx, year, year+1)
	if err != nil {
		return nil, err
	}
	window := generic.NewPeriod(generic.StartOfYear(year), generic.EndOfYear(year))
	records, err := s.Store.ListRecords(ctx, RecordFilter{Type: s.Types.Annual(), StartsWithin: &window, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	var out []Inconsistency
	for _, rec := range records {
		n := generic.WorkingDaysBetween(rec.Start, rec.End, holidays)
		if !rec.Days.Equal(generic.DaysInt(n)) {
			out = append(out, Inconsistency{Record: rec, Recomputed: n})
		}
	}
	return out, nil
}

// OnLeaveOn lists the Active leave covering date.
func (s *Service) OnLeaveOn(ctx context.Context, date generic.TimePoint) ([]LeaveRecord, error) {
	day := generic.NewPeriod(date, date)
	return s.Store.ListRecords(ctx, RecordFilter{Overlapping: &day, ActiveOnly: true})
}

// UpcomingLeaves lists Active leave starting within [from, from+days).
func (s *Service) UpcomingLeaves(ctx context.Context, from generic.TimePoint, days int) ([]LeaveRecord, error) {
	if days <= 0 {
		return nil, &generic.InvalidInputError{Field: "days", Reason: "must be positive"}
	}
	window := generic.NewPeriod(from, from.AddDays(days-1))
	return s.Store.ListRecords(ctx, RecordFilter{StartsWithin: &window, ActiveOnly: true})
}

type DocumentFilter string

const (
	DocumentsAll       DocumentFilter = "all"
	DocumentsMissing   DocumentFilter = "missing"
	DocumentsJustified DocumentFilter = "justified"
)

// DocumentedLeaves lists Active leave of the types that require a
// supporting document, filtered by whether one is attached.
func (s *Service) DocumentedLeaves(ctx context.Context, filter DocumentFilter) ([]LeaveRecord, error) {
	switch filter {
	case "", DocumentsAll, DocumentsMissing, DocumentsJustified:
	default:
		return nil, &generic.InvalidInputError{Field: "filter", Reason: fmt.Sprintf("unknown filter %q", filter)}
	}

	var out []LeaveRecord
	for _, cfg := range s.Types.All() {
		if !cfg.RequiresDocument {
			continue
		}
		records, err := s.Store.ListRecords(ctx, RecordFilter{Type: cfg.Name, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			switch {
			case filter == DocumentsMissing && rec.DocumentID != "":
			case filter == DocumentsJustified && rec.DocumentID == "":
			default:
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// EmployeeLeaves lists every leave record of one employee.
func (s *Service) EmployeeLeaves(ctx context.Context, id generic.EmployeeID) ([]LeaveRecord, error) {
	if _, err := s.Store.GetEmployee(ctx, id); err != nil {
		return nil, fmt.Errorf("employee %s: %w", id, err)
	}
	return s.Store.ListRecords(ctx, RecordFilter{EmployeeID: id})
}
