package timeoff

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// Onboard saves a new employee and its initial buckets in one transaction.
// Allotments that are not positive are skipped.
func (s *Service) Onboard(ctx context.Context, emp Employee, initial map[int]decimal.Decimal) (*Employee, error) {
	if strings.TrimSpace(emp.Name) == "" {
		return nil, &generic.InvalidInputError{Field: "name", Reason: "required"}
	}
	if emp.Status == "" {
		emp.Status = EmployeeActive
	}
	for year, days := range initial {
		if days.IsNegative() {
			return nil, &generic.InvalidInputError{Field: "initial_balances", Reason: fmt.Sprintf("%d is negative", year)}
		}
	}

	err := s.Store.WithTx(ctx, func(store Store) error {
		if err := store.SaveEmployee(ctx, &emp); err != nil {
			return fmt.Errorf("save employee: %w", err)
		}
		for _, year := range sortedYears(initial) {
			days := initial[year]
			if !days.IsPositive() {
				continue
			}
			b := generic.BalanceBucket{EmployeeID: emp.ID, Year: year, Remaining: days, Status: generic.BucketActive}
			if err := store.CreateBucket(ctx, &b); err != nil {
				return fmt.Errorf("bucket %d: %w", year, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// UpdateEmployee changes display fields. Status is changed with Archive/Restore.
func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) (*Employee, error) {
	current, err := s.Store.GetEmployee(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", emp.ID, err)
	}
	if strings.TrimSpace(emp.Name) != "" {
		current.Name = emp.Name
	}
	if emp.Code != "" {
		current.Code = emp.Code
	}
	if emp.Email != "" {
		current.Email = emp.Email
	}
	if !emp.HiredOn.IsZero() {
		current.HiredOn = emp.HiredOn
	}
	if err := s.Store.SaveEmployee(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Archive takes the employee out of future rollovers.
func (s *Service) Archive(ctx context.Context, id generic.EmployeeID) error {
	return s.setEmployeeStatus(ctx, id, EmployeeArchived)
}

func (s *Service) Restore(ctx context.Context, id generic.EmployeeID) error {
	return s.setEmployeeStatus(ctx, id, EmployeeActive)
}

func (s *Service) setEmployeeStatus(ctx context.Context, id generic.EmployeeID, status EmployeeStatus) error {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return fmt.Errorf("employee %s: %w", id, err)
	}
	emp.Status = status
	return s.Store.SaveEmployee(ctx, emp)
}

// =============================================================================
// ADMINISTRATIVE BUCKET OPERATIONS
// =============================================================================

// ExpiredBuckets lists Expired buckets that still hold days.
func (s *Service) ExpiredBuckets(ctx context.Context) ([]BucketView, error) {
	views, err := s.Store.ListBucketsByStatus(ctx, generic.BucketExpired)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if v.Remaining.IsPositive() {
			out = append(out, v)
		}
	}
	return out, nil
}

// ClearBuckets zeroes the given Expired buckets in one transaction.
func (s *Service) ClearBuckets(ctx context.Context, ids []generic.BucketID) (int, error) {
	if len(ids) == 0 {
		return 0, &generic.InvalidInputError{Field: "bucket_ids", Reason: "required"}
	}
	seen := make(map[generic.BucketID]bool, len(ids))
	unique := make([]generic.BucketID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	err := s.Store.WithTx(ctx, func(store Store) error {
		for _, id := range unique {
			b, err := store.GetBucket(ctx, id)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", id, err)
			}
			if b.IsActive() {
				return &generic.InvalidInputError{Field: "bucket_ids", Reason: fmt.Sprintf("bucket %s (%d) is still active", id, b.Year)}
			}
			if err := store.SetBucketRemaining(ctx, id, decimal.Zero); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}

// OverrideBalances sets bucket values directly. Updates overwrite existing
// buckets; creations add buckets, Expired when older than F-2. An Expired
// bucket can only be lowered.
func (s *Service) OverrideBalances(ctx context.Context, employeeID generic.EmployeeID, updates map[generic.BucketID]decimal.Decimal, creations map[int]decimal.Decimal) error {
	for id, v := range updates {
		if v.IsNegative() {
			return &generic.InvalidInputError{Field: "updates", Reason: fmt.Sprintf("bucket %s would be negative", id)}
		}
	}
	for year, v := range creations {
		if v.IsNegative() {
			return &generic.InvalidInputError{Field: "creations", Reason: fmt.Sprintf("year %d would be negative", year)}
		}
	}

	return s.Store.WithTx(ctx, func(store Store) error {
		if _, err := store.GetEmployee(ctx, employeeID); err != nil {
			return fmt.Errorf("employee %s: %w", employeeID, err)
		}
		for id, v := range updates {
			b, err := store.GetBucket(ctx, id)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", id, err)
			}
			if b.EmployeeID != employeeID {
				return fmt.Errorf("bucket %s of employee %s: %w", id, employeeID, generic.ErrNotFound)
			}
			if !b.IsActive() && v.GreaterThan(b.Remaining) {
				return &generic.InvalidInputError{Field: "updates", Reason: fmt.Sprintf("bucket %s (%d) is expired and cannot be raised", id, b.Year)}
			}
			if err := store.SetBucketRemaining(ctx, id, v); err != nil {
				return err
			}
		}

		if len(creations) == 0 {
			return nil
		}
		fiscal, err := store.FiscalYear(ctx)
		if err != nil {
			return err
		}
		for _, year := range sortedYears(creations) {
			status := generic.BucketActive
			if year < fiscal-2 {
				status = generic.BucketExpired
			}
			b := generic.BalanceBucket{EmployeeID: employeeID, Year: year, Remaining: creations[year], Status: status}
			if err := store.CreateBucket(ctx, &b); err != nil {
				return fmt.Errorf("bucket %d: %w", year, err)
			}
		}
		return nil
	})
}

func sortedYears(m map[int]decimal.Decimal) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
