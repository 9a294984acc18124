package timeoff

import (
	"context"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// STORE - Everything the leave service persists
// =============================================================================

// RecordFilter narrows ListRecords. Zero fields do not filter.
type RecordFilter struct {
	EmployeeID   generic.EmployeeID
	Type         LeaveType
	Overlapping  *generic.Period // records intersecting the period
	StartsWithin *generic.Period // records whose start falls in the period
	ActiveOnly   bool
}

// Store is the leave ledger's persistence contract.
type Store interface {
	generic.BucketStore
	generic.HolidaySource

	// ListBucketsByStatus joins buckets with their owner's display fields.
	ListBucketsByStatus(ctx context.Context, status generic.BucketStatus) ([]BucketView, error)

	// Leave records. InsertRecord assigns the ID. DeleteRecord removes the
	// record's document row too and returns ErrNotFound for unknown ids.
	GetRecord(ctx context.Context, id RecordID) (*LeaveRecord, error)
	InsertRecord(ctx context.Context, rec *LeaveRecord) error
	DeleteRecord(ctx context.Context, id RecordID) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]LeaveRecord, error)

	// FindOverlapping returns the employee's Active records intersecting
	// period, ordered by start date, skipping exclude.
	FindOverlapping(ctx context.Context, employeeID generic.EmployeeID, period generic.Period, exclude RecordID) ([]LeaveRecord, error)

	// Documents
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, recordID RecordID) (*Document, error)

	// Employees. SaveEmployee inserts or updates and assigns the ID.
	SaveEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context, status EmployeeStatus) ([]Employee, error)

	// Holidays
	SaveHoliday(ctx context.Context, h *generic.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error

	// FiscalYear is the current fiscal year; only AnnualRollover advances it.
	FiscalYear(ctx context.Context) (int, error)
	SetFiscalYear(ctx context.Context, year int) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
