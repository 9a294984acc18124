/*
store.go - Persistence interface for balance buckets

PURPOSE:
  Defines the interface between the balance ledger and the database.
  The ledger only needs to list an employee's buckets and rewrite a
  bucket's remaining days; bucket creation and status changes come from
  onboarding, rollover and administrative operations.

KEY INTERFACES:
  BucketStore: Bucket CRUD used by the ledger and the rollover

TRANSACTIONS:
  The BucketStore handed to the ledger may be a transactional view. The
  ledger never begins or commits anything itself: the caller (the leave
  service) owns the transaction boundary, see timeoff.TxStore.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite via database/sql
  - store/postgres/postgres.go: PostgreSQL via pgx
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level debit/credit rules using BucketStore
  - timeoff/store.go: The full leave store, which embeds BucketStore
*/
package generic

import (
	"context"

	"github.com/shopspring/decimal"
)

// BucketStore persists balance buckets.
type BucketStore interface {
	// ListBuckets returns every bucket of the employee ordered by year.
	ListBuckets(ctx context.Context, employeeID EmployeeID) ([]BalanceBucket, error)

	// GetBucket returns ErrNotFound when the id is unknown.
	GetBucket(ctx context.Context, id BucketID) (*BalanceBucket, error)

	// CreateBucket assigns the bucket ID. Returns ErrDuplicateBucket when
	// the employee already has a bucket for that year.
	CreateBucket(ctx context.Context, b *BalanceBucket) error

	// SetBucketRemaining overwrites the remaining days of a bucket.
	SetBucketRemaining(ctx context.Context, id BucketID, remaining decimal.Decimal) error

	// ExpireBucket marks the employee's bucket for year Expired. Missing
	// buckets are not an error.
	ExpireBucket(ctx context.Context, employeeID EmployeeID, year int) error
}
