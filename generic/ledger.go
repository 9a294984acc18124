/*
ledger.go - Multi-year balance ledger

PURPOSE:
  The BalanceLedger keeps an employee's fiscal-year buckets consistent with
  leave taken and returned. It is the only code that moves days between an
  employee and their buckets during normal operation.

POLICY:
  1. DEBIT OLDEST-FIRST: older allotments are consumed before they expire
  2. CREDIT NEWEST-FIRST: returned days go to the newest buckets, each
     topped up to the cap; what is left over lands in the newest bucket
     even beyond the cap, so no day is ever lost
  3. ALL-OR-NOTHING: a debit larger than the Active total fails before
     touching any bucket

EXAMPLE FLOW:
  Buckets {2022: 5, 2023: 5}
  1. Debit(7)  -> {2022: 0, 2023: 3}
  2. Credit(7) -> {2022: 0, 2023: 10}   (newest first, cap 22)

EXPIRED BUCKETS:
  Expired buckets are invisible to the ledger. Their remaining days can
  only be zeroed by the administrative clear (timeoff.Service.ClearBuckets).

SEE ALSO:
  - store.go: BucketStore used for persistence
  - timeoff/service.go: Calls Debit/Credit inside store transactions
*/
package generic

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	Store BucketStore

	// Cap is the per-bucket ceiling used when crediting (the default
	// annual allotment).
	Cap decimal.Decimal
}

func NewBalanceLedger(store BucketStore, cap decimal.Decimal) *BalanceLedger {
	if !cap.IsPositive() {
		cap = DefaultAnnualAllotment
	}
	return &BalanceLedger{Store: store, Cap: cap}
}

// TotalActiveBalance sums remaining days over the employee's Active buckets.
func (l *BalanceLedger) TotalActiveBalance(ctx context.Context, employeeID EmployeeID) (decimal.Decimal, error) {
	buckets, err := l.Store.ListBuckets(ctx, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list buckets: %w", err)
	}
	return TotalActive(buckets), nil
}

// Debit takes days from the employee's Active buckets, oldest year first.
// Non-positive amounts are a no-op.
func (l *BalanceLedger) Debit(ctx context.Context, employeeID EmployeeID, days decimal.Decimal) error {
	if !days.IsPositive() {
		return nil
	}

	buckets, err := l.Store.ListBuckets(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}

	total := TotalActive(buckets)
	if total.LessThan(days) {
		return &InsufficientBalanceError{EmployeeID: employeeID, Available: total, Requested: days}
	}

	owed := days
	for _, b := range ActiveBuckets(buckets, true) {
		if Settled(owed) {
			break
		}
		take := decimal.Min(b.Remaining, owed)
		if !take.IsPositive() {
			continue
		}
		if err := l.Store.SetBucketRemaining(ctx, b.ID, b.Remaining.Sub(take)); err != nil {
			return fmt.Errorf("debit bucket %d: %w", b.Year, err)
		}
		owed = owed.Sub(take)
	}

	if !Settled(owed) {
		return &LedgerInconsistencyError{EmployeeID: employeeID, Unsettled: owed}
	}
	return nil
}

// Credit returns days to the employee's Active buckets, newest year first,
// topping each up to Cap. Any surplus goes to the newest Active bucket.
// With no Active bucket the credit is dropped.
func (l *BalanceLedger) Credit(ctx context.Context, employeeID EmployeeID, days decimal.Decimal) error {
	if !days.IsPositive() {
		return nil
	}

	buckets, err := l.Store.ListBuckets(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}

	active := ActiveBuckets(buckets, false)
	if len(active) == 0 {
		return nil
	}

	owed := days
	for i := range active {
		if Settled(owed) {
			break
		}
		add := decimal.Min(owed, l.Cap.Sub(active[i].Remaining))
		if !add.IsPositive() {
			continue
		}
		active[i].Remaining = active[i].Remaining.Add(add)
		if err := l.Store.SetBucketRemaining(ctx, active[i].ID, active[i].Remaining); err != nil {
			return fmt.Errorf("credit bucket %d: %w", active[i].Year, err)
		}
		owed = owed.Sub(add)
	}

	if !Settled(owed) {
		newest := active[0]
		if err := l.Store.SetBucketRemaining(ctx, newest.ID, newest.Remaining.Add(owed)); err != nil {
			return fmt.Errorf("credit overflow to bucket %d: %w", newest.Year, err)
		}
	}
	return nil
}

// DeductionPreview simulates Debit without writing. The result maps fiscal
// year to the days a Debit would take from that year's bucket.
func (l *BalanceLedger) DeductionPreview(ctx context.Context, employeeID EmployeeID, days decimal.Decimal) (map[int]decimal.Decimal, error) {
	preview := make(map[int]decimal.Decimal)
	if !days.IsPositive() {
		return preview, nil
	}

	buckets, err := l.Store.ListBuckets(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	owed := days
	for _, b := range ActiveBuckets(buckets, true) {
		if Settled(owed) {
			break
		}
		take := decimal.Min(b.Remaining, owed)
		if take.IsPositive() {
			preview[b.Year] = take
			owed = owed.Sub(take)
		}
	}
	return preview, nil
}

// DescribeDeduction renders a preview as "3 days from 2023 and 2 days from 2024".
func DescribeDeduction(preview map[int]decimal.Decimal) string {
	years := make([]int, 0, len(preview))
	for y := range preview {
		years = append(years, y)
	}
	sort.Ints(years)

	out := ""
	for i, y := range years {
		switch {
		case i == 0:
		case i == len(years)-1:
			out += " and "
		default:
			out += ", "
		}
		unit := "days"
		if preview[y].Equal(decimal.NewFromInt(1)) {
			unit = "day"
		}
		out += fmt.Sprintf("%s %s from %d", preview[y].String(), unit, y)
	}
	return out
}
