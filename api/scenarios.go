/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees, buckets,
	holidays and leave through the service, so the ledger is exercised
	exactly as it is by the HTTP API.

AVAILABLE SCENARIOS:

	split-demo:     An annual leave ready to be split by a sick leave
	multi-year:     A debit spanning three buckets, oldest first
	rollover-demo:  Three-year window ready for the annual rollover

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Pin the fiscal year to 2024
 3. Add holidays
 4. Onboard employees with their initial buckets
 5. Submit leave

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "split-demo"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - timeoff/admin.go: Onboard
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioFiscalYear is the fiscal year every scenario starts in.
const ScenarioFiscalYear = 2024

var scenarios = []ScenarioDTO{
	{
		ID:          "split-demo",
		Name:        "Split Demo",
		Description: "Annual leave 2024-03-04..2024-03-15; submit sick leave 2024-03-06..2024-03-08 to see the split confirmation",
	},
	{
		ID:          "multi-year",
		Name:        "Multi-Year Debit",
		Description: "Ten working days debited from the 2022, 2023 and 2024 buckets, oldest first",
	},
	{
		ID:          "rollover-demo",
		Name:        "Annual Rollover",
		Description: "Three employees, one archived; trigger the rollover to open 2025 and expire 2022",
	},
}

var scenarioLoaders = map[string]func(ctx context.Context, h *Handler) error{
	"split-demo":    loadSplitDemo,
	"multi-year":    loadMultiYear,
	"rollover-demo": loadRolloverDemo,
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// LoadScenarioByID resets the store and loads the scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return &generic.InvalidInputError{Field: "scenario_id", Reason: fmt.Sprintf("unknown scenario %q", id)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.reset(ctx); err != nil {
		return err
	}
	if err := load(ctx, h); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	return nil
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return h.Store.SetFiscalYear(ctx, ScenarioFiscalYear)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSplitDemo(ctx context.Context, h *Handler) error {
	if err := addHolidays(ctx, h); err != nil {
		return err
	}
	alice, err := onboard(ctx, h, "E001", "Alice Martin", map[int]float64{2023: 10, 2024: 22})
	if err != nil {
		return err
	}
	return submit(ctx, h, alice, timeoff.TypeAnnual, "2024-03-04", "2024-03-15")
}

func loadMultiYear(ctx context.Context, h *Handler) error {
	if err := addHolidays(ctx, h); err != nil {
		return err
	}
	bob, err := onboard(ctx, h, "E002", "Bob Keller", map[int]float64{2022: 3, 2023: 5, 2024: 22})
	if err != nil {
		return err
	}
	if err := submit(ctx, h, bob, timeoff.TypeAnnual, "2024-07-01", "2024-07-12"); err != nil {
		return err
	}
	return submit(ctx, h, bob, timeoff.TypeExceptional, "2024-09-02", "2024-09-03")
}

func loadRolloverDemo(ctx context.Context, h *Handler) error {
	if err := addHolidays(ctx, h); err != nil {
		return err
	}
	carol, err := onboard(ctx, h, "E003", "Carol Diaz", map[int]float64{2022: 8, 2023: 12, 2024: 22})
	if err != nil {
		return err
	}
	if _, err := onboard(ctx, h, "E004", "Dan Okafor", map[int]float64{2023: 2, 2024: 15}); err != nil {
		return err
	}
	eve, err := onboard(ctx, h, "E005", "Eve Laurent", map[int]float64{2024: 10})
	if err != nil {
		return err
	}
	if err := h.Service.Archive(ctx, eve); err != nil {
		return err
	}
	return submit(ctx, h, carol, timeoff.TypeAnnual, "2024-08-05", "2024-08-09")
}

// =============================================================================
// HELPERS
// =============================================================================

func addHolidays(ctx context.Context, h *Handler) error {
	holidays := []generic.Holiday{
		{Date: generic.MustParseDate("2024-01-01"), Name: "New Year", Recurring: true},
		{Date: generic.MustParseDate("2024-05-01"), Name: "Labour Day", Recurring: true},
		{Date: generic.MustParseDate("2024-12-25"), Name: "Christmas", Recurring: true},
		{Date: generic.MustParseDate("2024-04-10"), Name: "Eid al-Fitr"},
	}
	for i := range holidays {
		if err := h.Store.SaveHoliday(ctx, &holidays[i]); err != nil {
			return fmt.Errorf("holiday %s: %w", holidays[i].Name, err)
		}
	}
	return nil
}

func onboard(ctx context.Context, h *Handler, code, name string, balances map[int]float64) (generic.EmployeeID, error) {
	initial := make(map[int]decimal.Decimal, len(balances))
	for year, v := range balances {
		initial[year] = decimal.NewFromFloat(v)
	}
	emp, err := h.Service.Onboard(ctx, timeoff.Employee{Code: code, Name: name}, initial)
	if err != nil {
		return "", fmt.Errorf("onboard %s: %w", name, err)
	}
	return emp.ID, nil
}

func submit(ctx context.Context, h *Handler, emp generic.EmployeeID, typ timeoff.LeaveType, start, end string) error {
	_, err := h.Service.Submit(ctx, timeoff.Proposal{
		EmployeeID: emp,
		Type:       typ,
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
	})
	if err != nil {
		return fmt.Errorf("submit %s %s..%s: %w", typ, start, end, err)
	}
	return nil
}
