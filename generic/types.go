/*
Package generic provides the core balance ledger engine.

PURPOSE:
  This package contains the leave-agnostic types and algorithms for managing
  an employee's multi-year balance. It knows about fiscal-year buckets,
  dates and working days, but nothing about leave types or overlap rules:
  those live in the timeoff package.

KEY CONCEPTS IN THIS FILE (types.go):
  - BalanceBucket: One fiscal year's allotment for one employee
  - BucketStatus: Active buckets can be debited/credited, Expired cannot
  - Day amounts: decimal.Decimal everywhere, compared with Epsilon

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Type Safety: Distinct ID types prevent mixing employee/bucket IDs
  3. Non-negative: A bucket's remaining days never go below zero

USAGE:
  bucket := generic.BalanceBucket{
      EmployeeID: "emp-123",
      Year:       2024,
      Remaining:  generic.Days(22),
      Status:     generic.BucketActive,
  }

SEE ALSO:
  - ledger.go: Debit/Credit/DeductionPreview over buckets
  - calendar.go: Working-day counting
  - store.go: Bucket persistence interface
*/
package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY AMOUNTS
// =============================================================================

// Epsilon absorbs rounding noise when settling a debit or credit.
var Epsilon = decimal.NewFromFloat(0.001)

// DefaultAnnualAllotment is the per-bucket cap used when none is configured.
var DefaultAnnualAllotment = decimal.NewFromInt(22)

// Days builds a decimal day amount from a float literal.
func Days(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// DaysInt builds a decimal day amount from an integer.
func DaysInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// Settled reports whether an outstanding amount is small enough to stop at.
func Settled(owed decimal.Decimal) bool { return owed.LessThan(Epsilon) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type BucketID string

// =============================================================================
// BALANCE BUCKET - One fiscal year's allotment
// =============================================================================

type BucketStatus string

const (
	BucketActive  BucketStatus = "active"
	BucketExpired BucketStatus = "expired"
)

func (s BucketStatus) Valid() bool { return s == BucketActive || s == BucketExpired }

// BalanceBucket holds the remaining days of one fiscal year for one employee.
// Remaining is only changed by the ledger, an administrative override, or
// the administrative clear of an expired bucket.
type BalanceBucket struct {
	ID         BucketID
	EmployeeID EmployeeID
	Year       int
	Remaining  decimal.Decimal
	Status     BucketStatus
}

func (b BalanceBucket) IsActive() bool { return b.Status == BucketActive }

// ActiveBuckets filters buckets down to the Active ones and sorts them by
// year, ascending when oldestFirst is set and descending otherwise.
func ActiveBuckets(buckets []BalanceBucket, oldestFirst bool) []BalanceBucket {
	active := make([]BalanceBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if oldestFirst {
			return active[i].Year < active[j].Year
		}
		return active[i].Year > active[j].Year
	})
	return active
}

// TotalActive sums remaining days over Active buckets.
func TotalActive(buckets []BalanceBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		if b.IsActive() {
			total = total.Add(b.Remaining)
		}
	}
	return total
}
