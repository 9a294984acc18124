package timeoff_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*timeoff.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.SetFiscalYear(context.Background(), 2024))
	return timeoff.NewService(store, nil, generic.DefaultAnnualAllotment), store
}

func onboard(t *testing.T, svc *timeoff.Service, name string, balances map[int]int) generic.EmployeeID {
	t.Helper()
	initial := make(map[int]decimal.Decimal, len(balances))
	for year, days := range balances {
		initial[year] = generic.DaysInt(days)
	}
	emp, err := svc.Onboard(context.Background(), timeoff.Employee{Code: "E-" + name, Name: name}, initial)
	require.NoError(t, err)
	return emp.ID
}

func leave(emp generic.EmployeeID, typ timeoff.LeaveType, start, end string) timeoff.Proposal {
	return timeoff.Proposal{
		EmployeeID: emp,
		Type:       typ,
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
	}
}

func total(t *testing.T, svc *timeoff.Service, emp generic.EmployeeID) string {
	t.Helper()
	_, sum, err := svc.Balance(context.Background(), emp)
	require.NoError(t, err)
	return sum.String()
}

func remaining(t *testing.T, svc *timeoff.Service, emp generic.EmployeeID) map[int]string {
	t.Helper()
	buckets, _, err := svc.Balance(context.Background(), emp)
	require.NoError(t, err)
	out := make(map[int]string, len(buckets))
	for _, b := range buckets {
		out[b.Year] = b.Remaining.String()
	}
	return out
}

func leaves(t *testing.T, svc *timeoff.Service, emp generic.EmployeeID) []timeoff.LeaveRecord {
	t.Helper()
	recs, err := svc.EmployeeLeaves(context.Background(), emp)
	require.NoError(t, err)
	return recs
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_DebitsWorkingDays(t *testing.T) {
	// GIVEN: 3 days left in 2023 and 22 in 2024
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2023: 3, 2024: 22})

	// WHEN: Submitting annual leave Monday to Friday
	out, err := svc.Submit(context.Background(), leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))

	// THEN: Five days are debited oldest first
	require.NoError(t, err)
	require.Len(t, out.Created, 1)
	assert.Equal(t, "5", out.Created[0].Days.String())
	assert.Equal(t, timeoff.RecordActive, out.Created[0].Status)
	assert.Equal(t, map[int]string{2023: "0", 2024: "20"}, remaining(t, svc, emp))
}

func TestSubmit_ExplicitDaysWin(t *testing.T) {
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	p := leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-04")
	p.Days = generic.Days(0.5)
	_, err := svc.Submit(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "21.5", total(t, svc, emp))
}

func TestSubmit_SickLeaveDoesNotDeduct(t *testing.T) {
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	out, err := svc.Submit(context.Background(), leave(emp, timeoff.TypeSick, "2024-03-08", "2024-03-11"))

	require.NoError(t, err)
	assert.Equal(t, "4", out.Created[0].Days.String()) // calendar days
	assert.Equal(t, "22", total(t, svc, emp))
}

func TestSubmit_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	ctx := context.Background()

	tests := []struct {
		name string
		p    timeoff.Proposal
	}{
		{"weekend only", leave(emp, timeoff.TypeAnnual, "2024-03-09", "2024-03-10")},
		{"end before start", leave(emp, timeoff.TypeAnnual, "2024-03-08", "2024-03-04")},
		{"unknown type", leave(emp, "sabbatical", "2024-03-04", "2024-03-08")},
		{"missing employee id", leave("", timeoff.TypeAnnual, "2024-03-04", "2024-03-08")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.p)
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
		})
	}
	assert.Equal(t, "22", total(t, svc, emp))
}

func TestSubmit_UnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), leave("ghost", timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))

	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 4})

	_, err := svc.Submit(context.Background(), leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))

	var insufficient *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "4", insufficient.Available.String())
	assert.Empty(t, leaves(t, svc, emp))
}

func TestSubmit_ConfirmationChangesNothing(t *testing.T) {
	// GIVEN: Annual leave over two weeks
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	_, err := svc.Submit(context.Background(), leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)

	// WHEN: Submitting sick leave inside it
	_, err = svc.Submit(context.Background(), leave(emp, timeoff.TypeSick, "2024-03-06", "2024-03-08"))

	// THEN: A split is proposed and the ledger is untouched
	require.True(t, timeoff.IsConfirmation(err))
	assert.Len(t, leaves(t, svc, emp), 1)
	assert.Equal(t, "12", total(t, svc, emp))
}

// =============================================================================
// RESOLUTIONS
// =============================================================================

func TestExecuteSplit(t *testing.T) {
	// GIVEN: Annual leave 2024-03-04..15 (10 working days)
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)
	annualID := first.Created[0].ID

	// WHEN: Confirming a split by sick leave Wednesday..Friday
	out, err := svc.ExecuteSplit(ctx, leave(emp, timeoff.TypeSick, "2024-03-06", "2024-03-08"), annualID)

	// THEN: Three records replace the original, 7 annual days stay debited
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{annualID}, out.Removed)

	recs := leaves(t, svc, emp)
	require.Len(t, recs, 3)
	assert.Equal(t, timeoff.TypeAnnual, recs[0].Type)
	assert.Equal(t, "2024-03-05", recs[0].End.String())
	assert.Equal(t, "2", recs[0].Days.String())
	assert.Equal(t, timeoff.TypeSick, recs[1].Type)
	assert.Equal(t, timeoff.TypeAnnual, recs[2].Type)
	assert.Equal(t, "2024-03-09", recs[2].Start.String())
	assert.Equal(t, "5", recs[2].Days.String())
	assert.Equal(t, "15", total(t, svc, emp))
}

func TestExecuteReplace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))
	require.NoError(t, err)

	out, err := svc.ExecuteReplace(ctx, leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-08"), first.Created[0].ID)

	require.NoError(t, err)
	require.Len(t, out.Created, 1)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 1)
	assert.Equal(t, timeoff.TypeSick, recs[0].Type)
	assert.Equal(t, "22", total(t, svc, emp))
}

func TestExecuteTrim_End(t *testing.T) {
	// GIVEN: Annual leave 2024-03-04..15
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)

	// WHEN: Maternity leave starts on the 13th
	maternity := leave(emp, timeoff.TypeMaternity, "2024-03-13", "2024-03-22")
	out, err := svc.Execute(ctx, timeoff.ConfirmTrim, maternity, first.Created[0].ID, timeoff.TrimEnd)

	// THEN: The annual leave ends on the 12th with 7 working days
	require.NoError(t, err)
	require.Len(t, out.Created, 2)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-03-12", recs[0].End.String())
	assert.Equal(t, "7", recs[0].Days.String())
	assert.Equal(t, "15", total(t, svc, emp))
}

func TestExecuteTrim_WrongSideRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)

	maternity := leave(emp, timeoff.TypeMaternity, "2024-03-13", "2024-03-22")
	_, err = svc.ExecuteTrim(ctx, maternity, first.Created[0].ID, timeoff.TrimStart)

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.Len(t, leaves(t, svc, emp), 1)
	assert.Equal(t, "12", total(t, svc, emp))
}

func TestExecuteTrim_Start(t *testing.T) {
	// GIVEN: Annual leave 2024-03-04..15
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)

	// WHEN: Sick leave from the 1st to the 6th cuts its start
	out, err := svc.ExecuteTrim(ctx, leave(emp, timeoff.TypeSick, "2024-03-01", "2024-03-06"), first.Created[0].ID, timeoff.TrimStart)

	// THEN: The annual leave resumes on the 7th with 7 working days
	require.NoError(t, err)
	assert.Equal(t, []timeoff.RecordID{first.Created[0].ID}, out.Removed)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 2)
	assert.Equal(t, timeoff.TypeSick, recs[0].Type)
	assert.Equal(t, "6", recs[0].Days.String())
	assert.Equal(t, timeoff.TypeAnnual, recs[1].Type)
	assert.Equal(t, "2024-03-07", recs[1].Start.String())
	assert.Equal(t, "2024-03-15", recs[1].End.String())
	assert.Equal(t, "7", recs[1].Days.String())
	assert.Equal(t, "15", total(t, svc, emp))
}

func TestExecuteSplit_JanuarySickLeave(t *testing.T) {
	// GIVEN: All of January 2024 as annual leave (23 working days)
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2023: 5, 2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	require.Equal(t, "23", first.Created[0].Days.String())
	require.Equal(t, map[int]string{2023: "0", 2024: "4"}, remaining(t, svc, emp))

	// WHEN: Sick leave 01-10..01-15 splits it
	_, err = svc.ExecuteSplit(ctx, leave(emp, timeoff.TypeSick, "2024-01-10", "2024-01-15"), first.Created[0].ID)

	// THEN: Annual 01-01..09, sick 01-10..15, annual 01-16..31
	require.NoError(t, err)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 3)

	assert.Equal(t, timeoff.TypeAnnual, recs[0].Type)
	assert.Equal(t, "2024-01-01", recs[0].Start.String())
	assert.Equal(t, "2024-01-09", recs[0].End.String())
	assert.Equal(t, "7", recs[0].Days.String())

	assert.Equal(t, timeoff.TypeSick, recs[1].Type)
	assert.Equal(t, "2024-01-10", recs[1].Start.String())
	assert.Equal(t, "2024-01-15", recs[1].End.String())
	assert.Equal(t, "6", recs[1].Days.String())

	assert.Equal(t, timeoff.TypeAnnual, recs[2].Type)
	assert.Equal(t, "2024-01-16", recs[2].Start.String())
	assert.Equal(t, "2024-01-31", recs[2].End.String())
	assert.Equal(t, "12", recs[2].Days.String())

	// AND: 23 days came back newest first, then 7 + 12 went out oldest first
	assert.Equal(t, map[int]string{2023: "0", 2024: "8"}, remaining(t, svc, emp))
}

func TestExecuteSplit_RollsBackWhenADebitFails(t *testing.T) {
	// GIVEN: Sick leave configured to deduct, and 2 days left after a 10-day annual leave
	types := timeoff.DefaultTypes()
	for i := range types {
		if types[i].Name == timeoff.TypeSick {
			types[i].DeductsBalance = true
		}
	}
	registry, err := timeoff.NewRegistry(types...)
	require.NoError(t, err)
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SetFiscalYear(ctx, 2024))
	svc := timeoff.NewService(store, registry, generic.DefaultAnnualAllotment)

	emp := onboard(t, svc, "alice", map[int]int{2024: 12})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-15"))
	require.NoError(t, err)

	// WHEN: The split's sick leave asks for more than the credited balance
	sick := leave(emp, timeoff.TypeSick, "2024-03-06", "2024-03-08")
	sick.Days = generic.DaysInt(15)
	_, err = svc.ExecuteSplit(ctx, sick, first.Created[0].ID)

	// THEN: The credit of the original leave is undone with everything else
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 1)
	assert.Equal(t, first.Created[0].ID, recs[0].ID)
	assert.Equal(t, "2", total(t, svc, emp))
}

func TestExecute_UnknownKind(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Execute(context.Background(), "merge", timeoff.Proposal{}, "x", "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// DELETE AND MODIFY
// =============================================================================

func TestDelete_CreditsNewestFirst(t *testing.T) {
	// GIVEN: 7 days taken from {2023: 5, 2024: 22}
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2023: 5, 2024: 22})
	out, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-12"))
	require.NoError(t, err)
	require.Equal(t, map[int]string{2023: "0", 2024: "20"}, remaining(t, svc, emp))

	// WHEN: Deleting it
	_, err = svc.Delete(ctx, out.Created[0].ID)

	// THEN: 2024 is topped up to 22 first, the rest returns to 2023
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2023: "5", 2024: "22"}, remaining(t, svc, emp))
	assert.Empty(t, leaves(t, svc, emp))
}

func TestDelete_UnknownRecord(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestModify_RollsBackOnInsufficientBalance(t *testing.T) {
	// GIVEN: 5 days taken, 17 left
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))
	require.NoError(t, err)

	// WHEN: Replacing it with two months of leave
	p := leave(emp, timeoff.TypeAnnual, "2024-04-01", "2024-05-31")
	p.ReplacesID = first.Created[0].ID
	_, err = svc.Submit(ctx, p)

	// THEN: The credit of the old leave is rolled back with the failed debit
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
	recs := leaves(t, svc, emp)
	require.Len(t, recs, 1)
	assert.Equal(t, first.Created[0].ID, recs[0].ID)
	assert.Equal(t, "17", total(t, svc, emp))
}

func TestModify_OtherEmployeesRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice := onboard(t, svc, "alice", map[int]int{2024: 22})
	bob := onboard(t, svc, "bob", map[int]int{2024: 22})
	first, err := svc.Submit(ctx, leave(alice, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))
	require.NoError(t, err)

	p := leave(bob, timeoff.TypeAnnual, "2024-03-04", "2024-03-08")
	p.ReplacesID = first.Created[0].ID
	_, err = svc.Submit(ctx, p)

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.Equal(t, "17", total(t, svc, alice))
}

func TestSimpleSave_SkipsOverlapCheck(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})
	_, err := svc.Submit(ctx, leave(emp, timeoff.TypeAnnual, "2024-03-04", "2024-03-08"))
	require.NoError(t, err)

	_, err = svc.SimpleSave(ctx, leave(emp, timeoff.TypeExceptional, "2024-03-06", "2024-03-06"))

	require.NoError(t, err)
	assert.Len(t, leaves(t, svc, emp), 2)
}

// =============================================================================
// ANNUAL ROLLOVER
// =============================================================================

func TestAnnualRollover_TwiceAdvancesTwice(t *testing.T) {
	// GIVEN: Fiscal year 2024, one Active and one archived employee
	svc, store := newTestService(t)
	ctx := context.Background()
	alice := onboard(t, svc, "alice", map[int]int{2022: 1, 2023: 2, 2024: 3})
	bob := onboard(t, svc, "bob", map[int]int{2024: 10})
	require.NoError(t, svc.Archive(ctx, bob))

	// WHEN: Rolling over twice
	first, err := svc.AnnualRollover(ctx)
	require.NoError(t, err)
	second, err := svc.AnnualRollover(ctx)
	require.NoError(t, err)

	// THEN: Each call moves one year and grants the allotment
	assert.Equal(t, timeoff.RolloverResult{FromYear: 2024, ToYear: 2025, ExpiredYear: 2022, Employees: 1}, *first)
	assert.Equal(t, 2026, second.ToYear)
	year, err := store.FiscalYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2026, year)

	buckets, sum, err := svc.Balance(ctx, alice)
	require.NoError(t, err)
	require.Len(t, buckets, 5)
	assert.Equal(t, generic.BucketExpired, buckets[0].Status)
	assert.Equal(t, generic.BucketExpired, buckets[1].Status)
	assert.Equal(t, "47", sum.String()) // 3 + 22 + 22

	assert.Equal(t, map[int]string{2024: "10"}, remaining(t, svc, bob))
}

func TestAnnualRollover_AllOrNothing(t *testing.T) {
	// GIVEN: Bob already has a 2025 bucket
	svc, store := newTestService(t)
	ctx := context.Background()
	alice := onboard(t, svc, "alice", map[int]int{2024: 22})
	onboard(t, svc, "bob", map[int]int{2024: 22, 2025: 5})

	// WHEN: Rolling over
	_, err := svc.AnnualRollover(ctx)

	// THEN: Nothing changed, not even Alice's grant
	assert.ErrorIs(t, err, generic.ErrDuplicateBucket)
	year, err := store.FiscalYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, map[int]string{2024: "22"}, remaining(t, svc, alice))
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestSubmit_AttachesDocument(t *testing.T) {
	// GIVEN: A file attacher and a medical certificate on disk
	svc, store := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()
	svc.Attacher = timeoff.NewFileAttacher(filepath.Join(dir, "docs"), dir, store)
	src := filepath.Join(dir, "certificate.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	// WHEN: Submitting sick leave with the document
	p := leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")
	p.DocumentPath = src
	out, err := svc.Submit(ctx, p)

	// THEN: The document is stored and reported as justified
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	require.NotEmpty(t, out.Created[0].DocumentID)

	doc, err := store.GetDocument(ctx, out.Created[0].ID)
	require.NoError(t, err)
	assert.FileExists(t, doc.Path)
	assert.Contains(t, filepath.Base(doc.Path), "E-alice")

	justified, err := svc.DocumentedLeaves(ctx, timeoff.DocumentsJustified)
	require.NoError(t, err)
	assert.Len(t, justified, 1)

	// AND: Deleting the leave removes the stored file
	_, err = svc.Delete(ctx, out.Created[0].ID)
	require.NoError(t, err)
	assert.NoFileExists(t, doc.Path)
}

func TestSubmit_AttachmentFailureIsAWarning(t *testing.T) {
	// GIVEN: A document path that does not exist
	svc, store := newTestService(t)
	ctx := context.Background()
	inbox := t.TempDir()
	svc.Attacher = timeoff.NewFileAttacher(t.TempDir(), inbox, store)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	p := leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")
	p.DocumentPath = filepath.Join(inbox, "missing.pdf")

	// WHEN: Submitting
	out, err := svc.Submit(ctx, p)

	// THEN: The leave is saved and the failure reported
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Len(t, leaves(t, svc, emp), 1)

	missing, err := svc.DocumentedLeaves(ctx, timeoff.DocumentsMissing)
	require.NoError(t, err)
	assert.Len(t, missing, 1)
}

func TestSubmit_DocumentOutsideInboxIsNotCopied(t *testing.T) {
	// GIVEN: An inbox, and a file that sits next to it
	svc, store := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()
	inbox := filepath.Join(dir, "inbox")
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	secret := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("not a certificate"), 0o644))
	svc.Attacher = timeoff.NewFileAttacher(docs, inbox, store)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	for _, path := range []string{secret, "../secret.txt", inbox} {
		t.Run(path, func(t *testing.T) {
			// WHEN: Submitting sick leave pointing at it
			p := leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")
			p.DocumentPath = path
			out, err := svc.Submit(ctx, p)

			// THEN: The leave is saved, a warning is reported and nothing is copied
			require.NoError(t, err)
			require.Len(t, out.Warnings, 1)
			assert.Empty(t, out.Created[0].DocumentID)
			_, err = svc.Delete(ctx, out.Created[0].ID)
			require.NoError(t, err)
		})
	}
	assert.NoDirExists(t, docs)
}

func TestSubmit_DocumentRelativeToInbox(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	inbox := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "certificate.pdf"), []byte("%PDF"), 0o644))
	svc.Attacher = timeoff.NewFileAttacher(t.TempDir(), inbox, store)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	p := leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")
	p.DocumentPath = "certificate.pdf"
	out, err := svc.Submit(ctx, p)

	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.NotEmpty(t, out.Created[0].DocumentID)
}

func TestSubmit_NoAttacherConfigured(t *testing.T) {
	svc, _ := newTestService(t)
	emp := onboard(t, svc, "alice", map[int]int{2024: 22})

	p := leave(emp, timeoff.TypeSick, "2024-03-04", "2024-03-05")
	p.DocumentPath = "/tmp/whatever.pdf"
	out, err := svc.Submit(context.Background(), p)

	require.NoError(t, err)
	assert.Len(t, out.Warnings, 1)
}
