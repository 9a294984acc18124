package api

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// EMPLOYEE DTOs
// =============================================================================

type EmployeeDTO struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Status  string `json:"status"`
	HiredOn string `json:"hired_on,omitempty"`
}

// CreateEmployeeRequest onboards an employee. InitialBalances maps a year
// to its allotment.
type CreateEmployeeRequest struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	HiredOn         string          `json:"hired_on"`
	InitialBalances map[int]float64 `json:"initial_balances"`
}

type UpdateEmployeeRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	HiredOn string `json:"hired_on"`
}

type BucketDTO struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	Year         int     `json:"year"`
	Remaining    float64 `json:"remaining"`
	Status       string  `json:"status"`
	EmployeeName string  `json:"employee_name,omitempty"`
	EmployeeCode string  `json:"employee_code,omitempty"`
}

type BalanceResponse struct {
	EmployeeID string      `json:"employee_id"`
	FiscalYear int         `json:"fiscal_year"`
	Total      float64     `json:"total"`
	Buckets    []BucketDTO `json:"buckets"`
}

type PreviewResponse struct {
	Days        float64         `json:"days"`
	Deductions  map[int]float64 `json:"deductions"`
	Description string          `json:"description"`
}

// OverrideBucketsRequest sets bucket values directly.
type OverrideBucketsRequest struct {
	Updates   map[string]float64 `json:"updates"`   // bucket id -> remaining
	Creations map[int]float64    `json:"creations"` // year -> remaining
}

type ClearBucketsRequest struct {
	BucketIDs []string `json:"bucket_ids"`
}

// =============================================================================
// LEAVE DTOs
// =============================================================================

// LeaveRequest is a proposed leave. Days may be omitted; it is then
// derived from the dates.
type LeaveRequest struct {
	EmployeeID    string  `json:"employee_id"`
	Type          string  `json:"type"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Days          float64 `json:"days,omitempty"`
	SubstituteID  string  `json:"substitute_id,omitempty"`
	Justification string  `json:"justification,omitempty"`
	DocumentPath  string  `json:"document_path,omitempty"`
	ReplacesID    string  `json:"replaces_id,omitempty"`
}

// ResolveRequest confirms a resolution proposed in a 409 response.
type ResolveRequest struct {
	Kind       string       `json:"kind"` // split, replace, trim
	Side       string       `json:"side,omitempty"`
	ExistingID string       `json:"existing_id"`
	Leave      LeaveRequest `json:"leave"`
}

type LeaveDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	Type          string  `json:"type"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Days          float64 `json:"days"`
	Status        string  `json:"status"`
	SubstituteID  string  `json:"substitute_id,omitempty"`
	Justification string  `json:"justification,omitempty"`
	DocumentID    string  `json:"document_id,omitempty"`
	ReturnDate    string  `json:"return_date,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

type OutcomeDTO struct {
	Created  []LeaveDTO `json:"created"`
	Removed  []string   `json:"removed"`
	Warnings []string   `json:"warnings,omitempty"`
}

// ConfirmationDTO is the body detail of a confirmation_required response.
type ConfirmationDTO struct {
	Kind     string       `json:"kind"`
	Side     string       `json:"side,omitempty"`
	Message  string       `json:"message"`
	Conflict LeaveDTO     `json:"conflict"`
	Proposed LeaveRequest `json:"proposed"`
}

type InconsistencyDTO struct {
	Leave      LeaveDTO `json:"leave"`
	Recomputed int      `json:"recomputed_days"`
}

// =============================================================================
// CALENDAR AND ADMIN DTOs
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

type WorkingDaysResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	WorkingDays int    `json:"working_days"`
	ReturnDate  string `json:"return_date"`
}

type RolloverDTO struct {
	FromYear    int `json:"from_year"`
	ToYear      int `json:"to_year"`
	ExpiredYear int `json:"expired_year"`
	Employees   int `json:"employees"`
}

type JobDTO struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	QueuedAt   string `json:"queued_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
	Result     any    `json:"result,omitempty"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e timeoff.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:     string(e.ID),
		Code:   e.Code,
		Name:   e.Name,
		Email:  e.Email,
		Status: string(e.Status),
	}
	if !e.HiredOn.IsZero() {
		dto.HiredOn = e.HiredOn.String()
	}
	return dto
}

func toBucketDTO(b generic.BalanceBucket) BucketDTO {
	return BucketDTO{
		ID:         string(b.ID),
		EmployeeID: string(b.EmployeeID),
		Year:       b.Year,
		Remaining:  b.Remaining.InexactFloat64(),
		Status:     string(b.Status),
	}
}

func toBucketViewDTO(v timeoff.BucketView) BucketDTO {
	dto := toBucketDTO(v.BalanceBucket)
	dto.EmployeeName = v.EmployeeName
	dto.EmployeeCode = v.EmployeeCode
	return dto
}

func toLeaveDTO(rec timeoff.LeaveRecord) LeaveDTO {
	dto := LeaveDTO{
		ID:            string(rec.ID),
		EmployeeID:    string(rec.EmployeeID),
		Type:          string(rec.Type),
		Start:         rec.Start.String(),
		End:           rec.End.String(),
		Days:          rec.Days.InexactFloat64(),
		Status:        string(rec.Status),
		SubstituteID:  string(rec.SubstituteID),
		Justification: rec.Justification,
		DocumentID:    rec.DocumentID,
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toLeaveDTOs(recs []timeoff.LeaveRecord) []LeaveDTO {
	out := make([]LeaveDTO, len(recs))
	for i, rec := range recs {
		out[i] = toLeaveDTO(rec)
	}
	return out
}

func toOutcomeDTO(o *timeoff.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Created:  toLeaveDTOs(o.Created),
		Removed:  make([]string, len(o.Removed)),
		Warnings: o.Warnings,
	}
	for i, id := range o.Removed {
		dto.Removed[i] = string(id)
	}
	return dto
}

func toLeaveRequest(p timeoff.Proposal) LeaveRequest {
	return LeaveRequest{
		EmployeeID:    string(p.EmployeeID),
		Type:          string(p.Type),
		Start:         p.Start.String(),
		End:           p.End.String(),
		Days:          p.Days.InexactFloat64(),
		SubstituteID:  string(p.SubstituteID),
		Justification: p.Justification,
		DocumentPath:  p.DocumentPath,
		ReplacesID:    string(p.ReplacesID),
	}
}

// toProposal parses the dates of a LeaveRequest.
func (lr LeaveRequest) toProposal() (timeoff.Proposal, error) {
	start, err := parseDateField("start", lr.Start)
	if err != nil {
		return timeoff.Proposal{}, err
	}
	end, err := parseDateField("end", lr.End)
	if err != nil {
		return timeoff.Proposal{}, err
	}
	return timeoff.Proposal{
		EmployeeID:    generic.EmployeeID(lr.EmployeeID),
		Type:          timeoff.LeaveType(lr.Type),
		Start:         start,
		End:           end,
		Days:          decimal.NewFromFloat(lr.Days),
		SubstituteID:  generic.EmployeeID(lr.SubstituteID),
		Justification: lr.Justification,
		DocumentPath:  lr.DocumentPath,
		ReplacesID:    timeoff.RecordID(lr.ReplacesID),
	}, nil
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Date: h.Date.String(), Name: h.Name, Recurring: h.Recurring}
}

func toJobDTO(run JobRun) JobDTO {
	dto := JobDTO{
		ID:       run.ID,
		Type:     run.Type,
		Status:   string(run.Status),
		QueuedAt: run.QueuedAt.Format(time.RFC3339),
		Error:    run.Error,
		Result:   run.Result,
	}
	if !run.StartedAt.IsZero() {
		dto.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if !run.FinishedAt.IsZero() {
		dto.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return dto
}

func toDeductionsDTO(preview map[int]decimal.Decimal) map[int]float64 {
	out := make(map[int]float64, len(preview))
	for year, v := range preview {
		out[year] = v.InexactFloat64()
	}
	return out
}

func decimalsByYear(in map[int]float64) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(in))
	for year, v := range in {
		out[year] = decimal.NewFromFloat(v)
	}
	return out
}

func sortedBucketDTOs(buckets []generic.BalanceBucket) []BucketDTO {
	out := make([]BucketDTO, len(buckets))
	for i, b := range buckets {
		out[i] = toBucketDTO(b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func parseDateField(field, value string) (generic.TimePoint, error) {
	if value == "" {
		return generic.TimePoint{}, &generic.InvalidInputError{Field: field, Reason: "required"}
	}
	tp, err := generic.ParseDate(value)
	if err != nil {
		return generic.TimePoint{}, &generic.InvalidInputError{Field: field, Reason: "use YYYY-MM-DD"}
	}
	return tp, nil
}
