// Package storetest is the behaviour every timeoff.TxStore implementation
// must share. Each store package runs it from its own tests:
//
//	func TestStoreContract(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) timeoff.TxStore { return newStore(t) })
//	}
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) timeoff.TxStore

// Run executes the contract against stores built by open.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s timeoff.TxStore)
	}{
		{"Buckets", testBuckets},
		{"DuplicateBucket", testDuplicateBucket},
		{"ExpireBucket", testExpireBucket},
		{"Records", testRecords},
		{"SameStartOrderedByCreation", testSameStartOrder},
		{"FindOverlapping", testFindOverlapping},
		{"DocumentsFollowRecords", testDocuments},
		{"Employees", testEmployees},
		{"Holidays", testHolidays},
		{"FiscalYear", testFiscalYear},
		{"RollbackOnError", testRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// =============================================================================
// FIXTURES
// =============================================================================

func employee(t *testing.T, s timeoff.Store, name string) generic.EmployeeID {
	t.Helper()
	e := timeoff.Employee{Code: "E-" + name, Name: name}
	require.NoError(t, s.SaveEmployee(context.Background(), &e))
	require.NotEmpty(t, e.ID)
	return e.ID
}

func bucket(t *testing.T, s timeoff.Store, emp generic.EmployeeID, year int, days int) generic.BalanceBucket {
	t.Helper()
	b := generic.BalanceBucket{EmployeeID: emp, Year: year, Remaining: generic.DaysInt(days), Status: generic.BucketActive}
	require.NoError(t, s.CreateBucket(context.Background(), &b))
	require.NotEmpty(t, b.ID)
	return b
}

func record(t *testing.T, s timeoff.Store, emp generic.EmployeeID, typ timeoff.LeaveType, start, end string) timeoff.LeaveRecord {
	t.Helper()
	rec := timeoff.LeaveRecord{
		EmployeeID: emp,
		Type:       typ,
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
		Days:       generic.DaysInt(1),
	}
	require.NoError(t, s.InsertRecord(context.Background(), &rec))
	require.NotEmpty(t, rec.ID)
	return rec
}

func ids(recs []timeoff.LeaveRecord) []timeoff.RecordID {
	out := make([]timeoff.RecordID, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// =============================================================================
// CONTRACT
// =============================================================================

func testBuckets(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	emp := employee(t, s, "alice")
	b2024 := bucket(t, s, emp, 2024, 22)
	bucket(t, s, emp, 2023, 5)

	require.NoError(t, s.SetBucketRemaining(ctx, b2024.ID, generic.Days(17.5)))

	buckets, err := s.ListBuckets(ctx, emp)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 2023, buckets[0].Year)
	assert.Equal(t, 2024, buckets[1].Year)
	assert.Equal(t, "17.5", buckets[1].Remaining.String())

	got, err := s.GetBucket(ctx, b2024.ID)
	require.NoError(t, err)
	assert.Equal(t, emp, got.EmployeeID)

	_, err = s.GetBucket(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.ErrorIs(t, s.SetBucketRemaining(ctx, "missing", generic.DaysInt(1)), generic.ErrNotFound)
	assert.ErrorIs(t, s.SetBucketRemaining(ctx, b2024.ID, generic.DaysInt(-1)), generic.ErrInvalidInput)
}

func testDuplicateBucket(t *testing.T, s timeoff.TxStore) {
	emp := employee(t, s, "alice")
	bucket(t, s, emp, 2024, 22)

	dup := generic.BalanceBucket{EmployeeID: emp, Year: 2024, Remaining: generic.DaysInt(1), Status: generic.BucketActive}
	err := s.CreateBucket(context.Background(), &dup)

	assert.ErrorIs(t, err, generic.ErrDuplicateBucket)
}

func testExpireBucket(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	emp := employee(t, s, "alice")
	bucket(t, s, emp, 2022, 3)
	bucket(t, s, emp, 2024, 22)

	require.NoError(t, s.ExpireBucket(ctx, emp, 2022))
	require.NoError(t, s.ExpireBucket(ctx, emp, 2019)) // no bucket, no error

	buckets, err := s.ListBuckets(ctx, emp)
	require.NoError(t, err)
	assert.Equal(t, generic.BucketExpired, buckets[0].Status)
	assert.Equal(t, generic.BucketActive, buckets[1].Status)

	expired, err := s.ListBucketsByStatus(ctx, generic.BucketExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "alice", expired[0].EmployeeName)
	assert.Equal(t, "E-alice", expired[0].EmployeeCode)
}

func testRecords(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	alice := employee(t, s, "alice")
	bob := employee(t, s, "bob")
	late := record(t, s, alice, timeoff.TypeAnnual, "2024-05-06", "2024-05-10")
	early := record(t, s, alice, timeoff.TypeSick, "2024-03-04", "2024-03-05")
	other := record(t, s, bob, timeoff.TypeAnnual, "2024-03-04", "2024-03-08")

	got, err := s.GetRecord(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", got.Start.String())
	assert.Equal(t, "2024-05-10", got.End.String())
	assert.Equal(t, timeoff.RecordActive, got.Status)
	assert.Equal(t, "1", got.Days.String())

	all, err := s.ListRecords(ctx, timeoff.RecordFilter{EmployeeID: alice})
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{early.ID, late.ID}, ids(all))

	annual, err := s.ListRecords(ctx, timeoff.RecordFilter{Type: timeoff.TypeAnnual})
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{other.ID, late.ID}, ids(annual))

	march := generic.NewPeriod(generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-03-31"))
	starting, err := s.ListRecords(ctx, timeoff.RecordFilter{StartsWithin: &march, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, starting, 2)

	onDay := generic.NewPeriod(generic.MustParseDate("2024-03-07"), generic.MustParseDate("2024-03-07"))
	onLeave, err := s.ListRecords(ctx, timeoff.RecordFilter{Overlapping: &onDay})
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{other.ID}, ids(onLeave))

	require.NoError(t, s.DeleteRecord(ctx, early.ID))
	_, err = s.GetRecord(ctx, early.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecord(ctx, early.ID), generic.ErrNotFound)
}

func testSameStartOrder(t *testing.T, s timeoff.TxStore) {
	// GIVEN: Two leaves on the same day, created half a second apart
	ctx := context.Background()
	alice := employee(t, s, "alice")
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := timeoff.LeaveRecord{
		EmployeeID: alice, Type: timeoff.TypeExceptional, Days: generic.DaysInt(1),
		Start: generic.MustParseDate("2024-03-04"), End: generic.MustParseDate("2024-03-04"),
		CreatedAt: created.Add(500 * time.Millisecond),
	}
	earlier := later
	earlier.Type = timeoff.TypeSick
	earlier.CreatedAt = created

	// WHEN: The later one is inserted first
	require.NoError(t, s.InsertRecord(ctx, &later))
	require.NoError(t, s.InsertRecord(ctx, &earlier))

	// THEN: Records come back by creation time, not by insertion order
	all, err := s.ListRecords(ctx, timeoff.RecordFilter{EmployeeID: alice})
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{earlier.ID, later.ID}, ids(all))

	day := generic.NewPeriod(generic.MustParseDate("2024-03-04"), generic.MustParseDate("2024-03-04"))
	found, err := s.FindOverlapping(ctx, alice, day, "")
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{earlier.ID, later.ID}, ids(found))
}

func testFindOverlapping(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	alice := employee(t, s, "alice")
	bob := employee(t, s, "bob")
	first := record(t, s, alice, timeoff.TypeAnnual, "2024-03-04", "2024-03-08")
	second := record(t, s, alice, timeoff.TypeAnnual, "2024-03-11", "2024-03-15")
	record(t, s, bob, timeoff.TypeAnnual, "2024-03-04", "2024-03-15")

	window := generic.NewPeriod(generic.MustParseDate("2024-03-08"), generic.MustParseDate("2024-03-11"))

	found, err := s.FindOverlapping(ctx, alice, window, "")
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{first.ID, second.ID}, ids(found))

	found, err = s.FindOverlapping(ctx, alice, window, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{second.ID}, ids(found))

	outside := generic.NewPeriod(generic.MustParseDate("2024-03-16"), generic.MustParseDate("2024-03-17"))
	found, err = s.FindOverlapping(ctx, alice, outside, "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func testDocuments(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	emp := employee(t, s, "alice")
	rec := record(t, s, emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")

	_, err := s.GetDocument(ctx, rec.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)

	doc := timeoff.Document{RecordID: rec.ID, Path: "/docs/cert.pdf"}
	require.NoError(t, s.SaveDocument(ctx, &doc))
	require.NotEmpty(t, doc.ID)

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.DocumentID)

	stored, err := s.GetDocument(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/cert.pdf", stored.Path)

	orphan := timeoff.Document{RecordID: "missing", Path: "/docs/x.pdf"}
	assert.ErrorIs(t, s.SaveDocument(ctx, &orphan), generic.ErrNotFound)

	require.NoError(t, s.DeleteRecord(ctx, rec.ID))
	_, err = s.GetDocument(ctx, rec.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func testEmployees(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	bob := employee(t, s, "bob")
	alice := employee(t, s, "alice")

	e, err := s.GetEmployee(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, timeoff.EmployeeActive, e.Status)

	e.Status = timeoff.EmployeeArchived
	e.HiredOn = generic.MustParseDate("2020-09-01")
	require.NoError(t, s.SaveEmployee(ctx, e))

	all, err := s.ListEmployees(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice, all[0].ID)
	assert.Equal(t, "2020-09-01", all[1].HiredOn.String())

	active, err := s.ListEmployees(ctx, timeoff.EmployeeActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, alice, active[0].ID)

	_, err = s.GetEmployee(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func testHolidays(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	labour := generic.Holiday{Date: generic.MustParseDate("2024-05-01"), Name: "Labour Day", Recurring: true}
	oneOff := generic.Holiday{Date: generic.MustParseDate("2024-04-10"), Name: "Eid al-Fitr"}
	require.NoError(t, s.SaveHoliday(ctx, &labour))
	require.NoError(t, s.SaveHoliday(ctx, &oneOff))

	in2025, err := s.ListHolidays(ctx, generic.StartOfYear(2025), generic.EndOfYear(2025))
	require.NoError(t, err)
	require.Len(t, in2025, 1)
	assert.Equal(t, "Labour Day", in2025[0].Name)

	in2024, err := s.ListHolidays(ctx, generic.StartOfYear(2024), generic.EndOfYear(2024))
	require.NoError(t, err)
	assert.Len(t, in2024, 2)

	require.NoError(t, s.DeleteHoliday(ctx, oneOff.ID))
	assert.ErrorIs(t, s.DeleteHoliday(ctx, oneOff.ID), generic.ErrNotFound)
}

func testFiscalYear(t *testing.T, s timeoff.TxStore) {
	ctx := context.Background()
	require.NoError(t, s.SetFiscalYear(ctx, 2031))

	year, err := s.FiscalYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2031, year)
}

func testRollback(t *testing.T, s timeoff.TxStore) {
	// GIVEN: An employee with one bucket
	ctx := context.Background()
	emp := employee(t, s, "alice")
	b := bucket(t, s, emp, 2024, 22)
	boom := errors.New("boom")

	// WHEN: A transaction writes, then fails
	err := s.WithTx(ctx, func(tx timeoff.Store) error {
		require.NoError(t, tx.SetBucketRemaining(ctx, b.ID, generic.DaysInt(10)))
		record(t, tx, emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08")
		require.NoError(t, tx.SetFiscalYear(ctx, 2099))
		return boom
	})

	// THEN: None of it is visible
	assert.ErrorIs(t, err, boom)
	got, err := s.GetBucket(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "22", got.Remaining.String())
	recs, err := s.ListRecords(ctx, timeoff.RecordFilter{EmployeeID: emp})
	require.NoError(t, err)
	assert.Empty(t, recs)
	year, err := s.FiscalYear(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, 2099, year)

	// AND: A successful transaction commits
	require.NoError(t, s.WithTx(ctx, func(tx timeoff.Store) error {
		return tx.SetBucketRemaining(ctx, b.ID, generic.DaysInt(10))
	}))
	got, err = s.GetBucket(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Remaining.String())
}
