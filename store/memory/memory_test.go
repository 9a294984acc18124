package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/store/storetest"
	"github.com/warp/leave-ledger/timeoff"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) timeoff.TxStore { return memory.New() })
}

func TestWithTx_ReturnedRecordsAreCopies(t *testing.T) {
	// GIVEN: A stored record
	store := memory.New()
	ctx := context.Background()
	e := timeoff.Employee{Name: "alice"}
	require.NoError(t, store.SaveEmployee(ctx, &e))
	rec := timeoff.LeaveRecord{
		EmployeeID: e.ID,
		Type:       timeoff.TypeAnnual,
		Start:      generic.MustParseDate("2024-03-04"),
		End:        generic.MustParseDate("2024-03-08"),
		Days:       generic.DaysInt(5),
	}
	require.NoError(t, store.InsertRecord(ctx, &rec))

	// WHEN: Mutating what GetRecord returned
	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	got.Days = generic.DaysInt(1)

	// THEN: The store is unaffected
	again, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", again.Days.String())
}

func TestReset(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	e := timeoff.Employee{Name: "alice"}
	require.NoError(t, store.SaveEmployee(ctx, &e))
	require.NoError(t, store.SetFiscalYear(ctx, 2030))

	require.NoError(t, store.Reset(ctx))

	_, err := store.GetEmployee(ctx, e.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)
	year, err := store.FiscalYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Year(), year)
}
