/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Employees are created
	- Leave is debited from the right buckets
	- The rollover scenario rolls over

These tests run against the in-memory store.
*/
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/timeoff"
)

func setupScenarioHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(memory.New(), nil, nil)
}

func employeeByName(t *testing.T, h *Handler, name string) timeoff.Employee {
	t.Helper()
	employees, err := h.Store.ListEmployees(context.Background(), "")
	require.NoError(t, err)
	for _, e := range employees {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("employee %q not found", name)
	return timeoff.Employee{}
}

func bucketsByYear(t *testing.T, h *Handler, id generic.EmployeeID) map[int]float64 {
	t.Helper()
	buckets, _, err := h.Service.Balance(context.Background(), id)
	require.NoError(t, err)
	out := make(map[int]float64, len(buckets))
	for _, b := range buckets {
		out[b.Year] = b.Remaining.InexactFloat64()
	}
	return out
}

func TestScenario_SplitDemo(t *testing.T) {
	// GIVEN: The split-demo scenario
	h := setupScenarioHandler(t)
	ctx := context.Background()

	// WHEN: Loading it
	require.NoError(t, h.LoadScenarioByID(ctx, "split-demo"))

	// THEN: Alice's ten-day leave drained 2023
	alice := employeeByName(t, h, "Alice Martin")
	assert.Equal(t, map[int]float64{2023: 0, 2024: 22}, bucketsByYear(t, h, alice.ID))

	// AND: The advertised sick leave asks for a split
	_, err := h.Service.Submit(ctx, timeoff.Proposal{
		EmployeeID: alice.ID,
		Type:       timeoff.TypeSick,
		Start:      generic.MustParseDate("2024-03-06"),
		End:        generic.MustParseDate("2024-03-08"),
	})
	var confirm *timeoff.ConfirmationRequiredError
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, timeoff.ConfirmSplit, confirm.Kind)
}

func TestScenario_MultiYear(t *testing.T) {
	h := setupScenarioHandler(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "multi-year"))

	bob := employeeByName(t, h, "Bob Keller")
	assert.Equal(t, map[int]float64{2022: 0, 2023: 0, 2024: 20}, bucketsByYear(t, h, bob.ID))

	leaves, err := h.Service.EmployeeLeaves(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, leaves, 2)
}

func TestScenario_RolloverDemo(t *testing.T) {
	// GIVEN: The rollover scenario, with Eve archived
	h := setupScenarioHandler(t)
	ctx := context.Background()
	require.NoError(t, h.LoadScenarioByID(ctx, "rollover-demo"))

	// WHEN: Rolling over
	res, err := h.Service.AnnualRollover(ctx)
	require.NoError(t, err)

	// THEN: Only the two Active employees get 2025
	assert.Equal(t, 2024, res.FromYear)
	assert.Equal(t, 2022, res.ExpiredYear)
	assert.Equal(t, 2, res.Employees)

	carol := employeeByName(t, h, "Carol Diaz")
	buckets, total, err := h.Service.Balance(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, generic.BucketExpired, buckets[0].Status)
	assert.Equal(t, "56", total.String()) // 2022 expired with 3 left
	assert.True(t, buckets[0].Remaining.Equal(generic.DaysInt(3)))

	eve := employeeByName(t, h, "Eve Laurent")
	assert.NotContains(t, bucketsByYear(t, h, eve.ID), 2025)
}

func TestScenario_LoadResetsPreviousData(t *testing.T) {
	h := setupScenarioHandler(t)
	ctx := context.Background()
	require.NoError(t, h.LoadScenarioByID(ctx, "split-demo"))
	require.NoError(t, h.LoadScenarioByID(ctx, "multi-year"))

	employees, err := h.Store.ListEmployees(ctx, "")
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Bob Keller", employees[0].Name)
}

func TestScenario_UnknownID(t *testing.T) {
	h := setupScenarioHandler(t)
	router := NewRouter(h, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/load", strings.NewReader(`{"scenario_id":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	h := setupScenarioHandler(t)
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			require.NoError(t, h.LoadScenarioByID(context.Background(), s.ID))

			rec := httptest.NewRecorder()
			h.GetCurrentScenario(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios/current", nil))
			assert.Contains(t, rec.Body.String(), s.ID)
		})
	}
}
