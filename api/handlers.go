/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the leave service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to timeoff.Service.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List employees (?status=)
    POST   /api/employees                 Onboard with initial buckets
    GET    /api/employees/{id}/balance    Buckets and Active total
    GET    /api/employees/{id}/preview    Deduction preview (?days=)
    PUT    /api/employees/{id}/buckets    Manual bucket override

  Leaves:
    POST   /api/leaves                    Submit a leave
    PUT    /api/leaves/{id}               Modify (submit replacing {id})
    POST   /api/leaves/resolve            Confirm split, replace or trim
    DELETE /api/leaves/{id}               Delete and credit back

  Admin:
    POST   /api/admin/rollover            Annual rollover (async, ?sync=true)
    POST   /api/admin/buckets/clear       Zero Expired buckets

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call timeoff.Service (one store transaction per mutation)
  4. Serialize response
  5. Map errors with writeServiceError

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with a machine-readable code:
  - 400 invalid_input
  - 404 not_found
  - 409 confirmation_required, overlap_conflict, duplicate_bucket
  - 422 insufficient_balance
  - 500 ledger_inconsistency, internal

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/factory"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: the leave store plus Reset for
// demo scenarios.
type Store interface {
	timeoff.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Service *timeoff.Service
	Jobs    *JobQueue

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil service gets the stock leave types
// and the default allotment; a nil queue gets a fresh one, which the
// caller must Start for asynchronous rollovers.
func NewHandler(store Store, svc *timeoff.Service, jobs *JobQueue) *Handler {
	if svc == nil {
		svc = timeoff.NewService(store, nil, generic.DefaultAnnualAllotment)
	}
	if jobs == nil {
		jobs = NewJobQueue(0, 0)
	}
	return &Handler{Store: store, Service: svc, Jobs: jobs}
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees, optionally filtered by status.
// GET /api/employees?status=active|archived
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	status := timeoff.EmployeeStatus(r.URL.Query().Get("status"))
	switch status {
	case "", timeoff.EmployeeActive, timeoff.EmployeeArchived:
	default:
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "status must be active or archived", nil)
		return
	}

	employees, err := h.Store.ListEmployees(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee onboards an employee with its initial buckets.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp := timeoff.Employee{Code: req.Code, Name: req.Name, Email: req.Email}
	if req.HiredOn != "" {
		hired, err := parseDateField("hired_on", req.HiredOn)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		emp.HiredOn = hired
	}

	created, err := h.Service.Onboard(r.Context(), emp, decimalsByYear(req.InitialBalances))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*created))
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), employeeParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// UpdateEmployee changes display fields.
// PUT /api/employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp := timeoff.Employee{ID: employeeParam(r), Code: req.Code, Name: req.Name, Email: req.Email}
	if req.HiredOn != "" {
		hired, err := parseDateField("hired_on", req.HiredOn)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		emp.HiredOn = hired
	}

	updated, err := h.Service.UpdateEmployee(r.Context(), emp)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*updated))
}

// ArchiveEmployee excludes an employee from future rollovers.
// POST /api/employees/{id}/archive
func (h *Handler) ArchiveEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Archive(r.Context(), employeeParam(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(timeoff.EmployeeArchived)})
}

// RestoreEmployee reactivates an archived employee.
// POST /api/employees/{id}/restore
func (h *Handler) RestoreEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Restore(r.Context(), employeeParam(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(timeoff.EmployeeActive)})
}

// GetBalance returns the employee's buckets and Active total.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := employeeParam(r)

	buckets, total, err := h.Service.Balance(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	fiscal, err := h.Store.FiscalYear(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read fiscal year", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		EmployeeID: string(id),
		FiscalYear: fiscal,
		Total:      total.InexactFloat64(),
		Buckets:    sortedBucketDTOs(buckets),
	})
}

// PreviewDeduction simulates a debit without applying it.
// GET /api/employees/{id}/preview?days=5
func (h *Handler) PreviewDeduction(w http.ResponseWriter, r *http.Request) {
	days, err := decimal.NewFromString(r.URL.Query().Get("days"))
	if err != nil || !days.IsPositive() {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "days must be a positive number", nil)
		return
	}

	preview, err := h.Service.Preview(r.Context(), employeeParam(r), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Days:        days.InexactFloat64(),
		Deductions:  toDeductionsDTO(preview),
		Description: generic.DescribeDeduction(preview),
	})
}

// OverrideBuckets sets bucket values directly.
// PUT /api/employees/{id}/buckets
func (h *Handler) OverrideBuckets(w http.ResponseWriter, r *http.Request) {
	var req OverrideBucketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updates := make(map[generic.BucketID]decimal.Decimal, len(req.Updates))
	for id, v := range req.Updates {
		updates[generic.BucketID(id)] = decimal.NewFromFloat(v)
	}

	id := employeeParam(r)
	if err := h.Service.OverrideBalances(r.Context(), id, updates, decimalsByYear(req.Creations)); err != nil {
		writeServiceError(w, err)
		return
	}
	h.GetBalance(w, r)
}

// ListEmployeeLeaves returns every leave record of an employee.
// GET /api/employees/{id}/leaves
func (h *Handler) ListEmployeeLeaves(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.EmployeeLeaves(r.Context(), employeeParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// SubmitLeave saves a leave, or answers 409 with the resolution to confirm.
// POST /api/leaves
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.submit(w, r, req)
}

// ModifyLeave replaces an existing record with the submitted one.
// PUT /api/leaves/{id}
func (h *Handler) ModifyLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ReplacesID = chi.URLParam(r, "id")
	if req.EmployeeID == "" {
		existing, err := h.Service.GetRecord(r.Context(), timeoff.RecordID(req.ReplacesID))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		req.EmployeeID = string(existing.EmployeeID)
	}
	h.submit(w, r, req)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, req LeaveRequest) {
	p, err := req.toProposal()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.Service.Submit(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeDTO(out))
}

// ResolveLeave executes a confirmed split, replace or trim.
// POST /api/leaves/resolve
func (h *Handler) ResolveLeave(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ExistingID == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "existing_id is required", nil)
		return
	}
	p, err := req.Leave.toProposal()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out, err := h.Service.Execute(r.Context(),
		timeoff.ConfirmationKind(req.Kind), p, timeoff.RecordID(req.ExistingID), timeoff.TrimSide(req.Side))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeDTO(out))
}

// GetLeave returns a leave record with its return-to-work date.
// GET /api/leaves/{id}
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.Service.GetRecord(ctx, timeoff.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dto := toLeaveDTO(*rec)
	if ret, err := h.Service.ReturnDate(ctx, *rec); err == nil {
		dto.ReturnDate = ret.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteLeave removes a leave and credits its days back.
// DELETE /api/leaves/{id}
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Delete(r.Context(), timeoff.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeDTO(out))
}

// ListLeaveTypes returns the configured leave types.
// GET /api/leave-types
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.ToJSON(h.Service.Types))
}

// =============================================================================
// HOLIDAY AND CALENDAR ENDPOINTS
// =============================================================================

// ListHolidays returns the holidays of a year, recurring ones included.
// GET /api/holidays?year=2024
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := yearParam(r, "year")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if year == 0 {
		if year, err = h.Store.FiscalYear(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read fiscal year", err)
			return
		}
	}

	holidays, err := h.Store.ListHolidays(ctx, generic.StartOfYear(year), generic.EndOfYear(year))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "name is required", nil)
		return
	}
	date, err := parseDateField("date", req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	holiday := generic.Holiday{Date: date, Name: req.Name, Recurring: req.Recurring}
	if err := h.Store.SaveHoliday(r.Context(), &holiday); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// WorkingDays counts the working days of a date range.
// GET /api/calendar/working-days?start=2024-01-01&end=2024-01-31
func (h *Handler) WorkingDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, err := parseDateField("start", r.URL.Query().Get("start"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	end, err := parseDateField("end", r.URL.Query().Get("end"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	period := generic.NewPeriod(start, end)
	if err := period.Validate(); err != nil {
		writeServiceError(w, err)
		return
	}

	n, err := h.Service.Calendar.WorkingDays(ctx, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ret, err := h.Service.Calendar.ReturnDate(ctx, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkingDaysResponse{
		Start:       start.String(),
		End:         end.String(),
		WorkingDays: n,
		ReturnDate:  ret.String(),
	})
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// OnLeave lists the leave covering a date (default today).
// GET /api/reports/on-leave?date=2024-03-01
func (h *Handler) OnLeave(w http.ResponseWriter, r *http.Request) {
	date := generic.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := parseDateField("date", v)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		date = d
	}
	records, err := h.Service.OnLeaveOn(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// Upcoming lists leave starting in the next days (default 30).
// GET /api/reports/upcoming?days=30&from=2024-03-01
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := 30
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_input", "days must be an integer", nil)
			return
		}
		days = n
	}
	from := generic.Today()
	if v := q.Get("from"); v != "" {
		d, err := parseDateField("from", v)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		from = d
	}

	records, err := h.Service.UpcomingLeaves(r.Context(), from, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// Inconsistent lists annual leave whose day count no longer matches the
// calendar.
// GET /api/reports/inconsistent?year=2024
func (h *Handler) Inconsistent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := yearParam(r, "year")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if year == 0 {
		if year, err = h.Store.FiscalYear(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read fiscal year", err)
			return
		}
	}

	found, err := h.Service.InconsistentAnnualLeaves(ctx, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]InconsistencyDTO, len(found))
	for i, inc := range found {
		dtos[i] = InconsistencyDTO{Leave: toLeaveDTO(inc.Record), Recomputed: inc.Recomputed}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DocumentedLeaves lists leave of the types that need a supporting
// document.
// GET /api/reports/sick?filter=missing|justified|all
func (h *Handler) DocumentedLeaves(w http.ResponseWriter, r *http.Request) {
	filter := timeoff.DocumentFilter(r.URL.Query().Get("filter"))
	records, err := h.Service.DocumentedLeaves(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// GetFiscalYear returns the current fiscal year.
// GET /api/admin/fiscal-year
func (h *Handler) GetFiscalYear(w http.ResponseWriter, r *http.Request) {
	year, err := h.Store.FiscalYear(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read fiscal year", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"fiscal_year": year})
}

// TriggerRollover runs the annual rollover. It is queued and answered with
// 202 unless ?sync=true.
// POST /api/admin/rollover
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	run := func(ctx context.Context) (any, error) {
		res, err := h.Service.AnnualRollover(ctx)
		if err != nil {
			return nil, err
		}
		return toRolloverDTO(res), nil
	}

	if r.URL.Query().Get("sync") == "true" {
		job, err := h.Jobs.RunNow(r.Context(), JobAnnualRollover, run)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobDTO(job))
		return
	}

	job, err := h.Jobs.Enqueue(JobAnnualRollover, run)
	if errors.Is(err, ErrQueueFull) {
		writeErrorCode(w, http.StatusServiceUnavailable, "queue_full", "Too many queued jobs, retry later", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to enqueue rollover", err)
		return
	}
	w.Header().Set("Location", "/api/admin/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, toJobDTO(job))
}

// ListJobs returns recent background jobs, newest first.
// GET /api/admin/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	runs := h.Jobs.List()
	dtos := make([]JobDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toJobDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJob reports a background job.
// GET /api/admin/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	run, ok := h.Jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeErrorCode(w, http.StatusNotFound, "not_found", "Job not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(run))
}

// ListExpiredBuckets returns Expired buckets that still hold days.
// GET /api/admin/buckets/expired
func (h *Handler) ListExpiredBuckets(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ExpiredBuckets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]BucketDTO, len(views))
	for i, v := range views {
		dtos[i] = toBucketViewDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClearBuckets zeroes the given Expired buckets.
// POST /api/admin/buckets/clear
func (h *Handler) ClearBuckets(w http.ResponseWriter, r *http.Request) {
	var req ClearBucketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ids := make([]generic.BucketID, len(req.BucketIDs))
	for i, id := range req.BucketIDs {
		ids[i] = generic.BucketID(id)
	}

	n, err := h.Service.ClearBuckets(r.Context(), ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeParam(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}

// yearParam returns 0 when the parameter is absent.
func yearParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1 {
		return 0, &generic.InvalidInputError{Field: name, Reason: fmt.Sprintf("%q is not a year", v)}
	}
	return year, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// writeServiceError maps a leave-service error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		confirm      *timeoff.ConfirmationRequiredError
		conflict     *timeoff.OverlapConflictError
		insufficient *generic.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &confirm):
		writeErrorCode(w, http.StatusConflict, "confirmation_required", confirm.Message, ConfirmationDTO{
			Kind:     string(confirm.Kind),
			Side:     string(confirm.Side),
			Message:  confirm.Message,
			Conflict: toLeaveDTO(confirm.Conflict),
			Proposed: toLeaveRequest(confirm.Proposed),
		})
	case errors.As(err, &conflict):
		writeErrorCode(w, http.StatusConflict, "overlap_conflict", err.Error(), toLeaveDTO(conflict.Conflict))
	case errors.As(err, &insufficient):
		writeErrorCode(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), map[string]float64{
			"available": insufficient.Available.InexactFloat64(),
			"requested": insufficient.Requested.InexactFloat64(),
		})
	case errors.Is(err, generic.ErrInvalidInput):
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, generic.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, generic.ErrDuplicateBucket):
		writeErrorCode(w, http.StatusConflict, "duplicate_bucket", err.Error(), nil)
	case errors.Is(err, generic.ErrLedgerInconsistency):
		writeErrorCode(w, http.StatusInternalServerError, "ledger_inconsistency", err.Error(), nil)
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal", "Internal error", err.Error())
	}
}
