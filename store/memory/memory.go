// Package memory provides an in-memory timeoff.TxStore for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	buckets    map[generic.BucketID]generic.BalanceBucket
	records    map[timeoff.RecordID]timeoff.LeaveRecord
	documents  map[timeoff.RecordID]timeoff.Document
	employees  map[generic.EmployeeID]timeoff.Employee
	holidays   map[string]generic.Holiday
	fiscalYear int
}

var _ timeoff.TxStore = (*Memory)(nil)

// New returns an empty store whose fiscal year is the current calendar year.
func New() *Memory {
	return &Memory{st: newState(time.Now().Year())}
}

func newState(fiscalYear int) *state {
	return &state{
		buckets:    make(map[generic.BucketID]generic.BalanceBucket),
		records:    make(map[timeoff.RecordID]timeoff.LeaveRecord),
		documents:  make(map[timeoff.RecordID]timeoff.Document),
		employees:  make(map[generic.EmployeeID]timeoff.Employee),
		holidays:   make(map[string]generic.Holiday),
		fiscalYear: fiscalYear,
	}
}

// Reset drops every row and resets the fiscal year to the calendar year.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState(time.Now().Year())
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(timeoff.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()

	if err := fn(&view{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s *state) clone() *state {
	c := newState(s.fiscalYear)
	for k, v := range s.buckets {
		c.buckets[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	return c
}

// read and write run a view under the store lock.
func (m *Memory) read() (*view, func()) {
	m.mu.RLock()
	return &view{st: m.st}, m.mu.RUnlock
}

func (m *Memory) write() (*view, func()) {
	m.mu.Lock()
	return &view{st: m.st}, m.mu.Unlock
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (m *Memory) ListBuckets(ctx context.Context, id generic.EmployeeID) ([]generic.BalanceBucket, error) {
	v, done := m.read()
	defer done()
	return v.ListBuckets(ctx, id)
}

func (m *Memory) GetBucket(ctx context.Context, id generic.BucketID) (*generic.BalanceBucket, error) {
	v, done := m.read()
	defer done()
	return v.GetBucket(ctx, id)
}

func (m *Memory) CreateBucket(ctx context.Context, b *generic.BalanceBucket) error {
	v, done := m.write()
	defer done()
	return v.CreateBucket(ctx, b)
}

func (m *Memory) SetBucketRemaining(ctx context.Context, id generic.BucketID, remaining decimal.Decimal) error {
	v, done := m.write()
	defer done()
	return v.SetBucketRemaining(ctx, id, remaining)
}

func (m *Memory) ExpireBucket(ctx context.Context, id generic.EmployeeID, year int) error {
	v, done := m.write()
	defer done()
	return v.ExpireBucket(ctx, id, year)
}

func (m *Memory) ListBucketsByStatus(ctx context.Context, status generic.BucketStatus) ([]timeoff.BucketView, error) {
	v, done := m.read()
	defer done()
	return v.ListBucketsByStatus(ctx, status)
}

func (m *Memory) GetRecord(ctx context.Context, id timeoff.RecordID) (*timeoff.LeaveRecord, error) {
	v, done := m.read()
	defer done()
	return v.GetRecord(ctx, id)
}

func (m *Memory) InsertRecord(ctx context.Context, rec *timeoff.LeaveRecord) error {
	v, done := m.write()
	defer done()
	return v.InsertRecord(ctx, rec)
}

func (m *Memory) DeleteRecord(ctx context.Context, id timeoff.RecordID) error {
	v, done := m.write()
	defer done()
	return v.DeleteRecord(ctx, id)
}

func (m *Memory) ListRecords(ctx context.Context, f timeoff.RecordFilter) ([]timeoff.LeaveRecord, error) {
	v, done := m.read()
	defer done()
	return v.ListRecords(ctx, f)
}

func (m *Memory) FindOverlapping(ctx context.Context, id generic.EmployeeID, p generic.Period, exclude timeoff.RecordID) ([]timeoff.LeaveRecord, error) {
	v, done := m.read()
	defer done()
	return v.FindOverlapping(ctx, id, p, exclude)
}

func (m *Memory) SaveDocument(ctx context.Context, doc *timeoff.Document) error {
	v, done := m.write()
	defer done()
	return v.SaveDocument(ctx, doc)
}

func (m *Memory) GetDocument(ctx context.Context, id timeoff.RecordID) (*timeoff.Document, error) {
	v, done := m.read()
	defer done()
	return v.GetDocument(ctx, id)
}

func (m *Memory) SaveEmployee(ctx context.Context, e *timeoff.Employee) error {
	v, done := m.write()
	defer done()
	return v.SaveEmployee(ctx, e)
}

func (m *Memory) GetEmployee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	v, done := m.read()
	defer done()
	return v.GetEmployee(ctx, id)
}

func (m *Memory) ListEmployees(ctx context.Context, status timeoff.EmployeeStatus) ([]timeoff.Employee, error) {
	v, done := m.read()
	defer done()
	return v.ListEmployees(ctx, status)
}

func (m *Memory) SaveHoliday(ctx context.Context, h *generic.Holiday) error {
	v, done := m.write()
	defer done()
	return v.SaveHoliday(ctx, h)
}

func (m *Memory) DeleteHoliday(ctx context.Context, id string) error {
	v, done := m.write()
	defer done()
	return v.DeleteHoliday(ctx, id)
}

func (m *Memory) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	v, done := m.read()
	defer done()
	return v.ListHolidays(ctx, from, to)
}

func (m *Memory) FiscalYear(ctx context.Context) (int, error) {
	v, done := m.read()
	defer done()
	return v.FiscalYear(ctx)
}

func (m *Memory) SetFiscalYear(ctx context.Context, year int) error {
	v, done := m.write()
	defer done()
	return v.SetFiscalYear(ctx, year)
}

// =============================================================================
// VIEW - Unlocked implementation, shared by the store and its transactions
// =============================================================================

type view struct {
	st *state
}

func (v *view) ListBuckets(_ context.Context, id generic.EmployeeID) ([]generic.BalanceBucket, error) {
	var out []generic.BalanceBucket
	for _, b := range v.st.buckets {
		if b.EmployeeID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (v *view) GetBucket(_ context.Context, id generic.BucketID) (*generic.BalanceBucket, error) {
	b, ok := v.st.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, generic.ErrNotFound)
	}
	return &b, nil
}

func (v *view) CreateBucket(_ context.Context, b *generic.BalanceBucket) error {
	for _, existing := range v.st.buckets {
		if existing.EmployeeID == b.EmployeeID && existing.Year == b.Year {
			return generic.ErrDuplicateBucket
		}
	}
	if b.ID == "" {
		b.ID = generic.BucketID(uuid.NewString())
	}
	v.st.buckets[b.ID] = *b
	return nil
}

func (v *view) SetBucketRemaining(_ context.Context, id generic.BucketID, remaining decimal.Decimal) error {
	b, ok := v.st.buckets[id]
	if !ok {
		return fmt.Errorf("bucket %s: %w", id, generic.ErrNotFound)
	}
	if remaining.IsNegative() {
		return &generic.InvalidInputError{Field: "remaining", Reason: "must not be negative"}
	}
	b.Remaining = remaining
	v.st.buckets[id] = b
	return nil
}

func (v *view) ExpireBucket(_ context.Context, employeeID generic.EmployeeID, year int) error {
	for id, b := range v.st.buckets {
		if b.EmployeeID == employeeID && b.Year == year {
			b.Status = generic.BucketExpired
			v.st.buckets[id] = b
		}
	}
	return nil
}

func (v *view) ListBucketsByStatus(_ context.Context, status generic.BucketStatus) ([]timeoff.BucketView, error) {
	var out []timeoff.BucketView
	for _, b := range v.st.buckets {
		if b.Status != status {
			continue
		}
		emp := v.st.employees[b.EmployeeID]
		out = append(out, timeoff.BucketView{BalanceBucket: b, EmployeeName: emp.Name, EmployeeCode: emp.Code})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func (v *view) GetRecord(_ context.Context, id timeoff.RecordID) (*timeoff.LeaveRecord, error) {
	rec, ok := v.st.records[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	v.withDocument(&rec)
	return &rec, nil
}

func (v *view) withDocument(rec *timeoff.LeaveRecord) {
	if doc, ok := v.st.documents[rec.ID]; ok {
		rec.DocumentID = doc.ID
	}
}

func (v *view) InsertRecord(_ context.Context, rec *timeoff.LeaveRecord) error {
	if rec.ID == "" {
		rec.ID = timeoff.RecordID(uuid.NewString())
	}
	if rec.Status == "" {
		rec.Status = timeoff.RecordActive
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	v.st.records[rec.ID] = *rec
	return nil
}

func (v *view) DeleteRecord(_ context.Context, id timeoff.RecordID) error {
	if _, ok := v.st.records[id]; !ok {
		return generic.ErrNotFound
	}
	delete(v.st.records, id)
	delete(v.st.documents, id)
	return nil
}

func (v *view) ListRecords(_ context.Context, f timeoff.RecordFilter) ([]timeoff.LeaveRecord, error) {
	var out []timeoff.LeaveRecord
	for _, rec := range v.st.records {
		if f.EmployeeID != "" && rec.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		if f.ActiveOnly && rec.Status != timeoff.RecordActive {
			continue
		}
		if f.Overlapping != nil && !f.Overlapping.Overlaps(rec.Period()) {
			continue
		}
		if f.StartsWithin != nil && !f.StartsWithin.Contains(rec.Start) {
			continue
		}
		v.withDocument(&rec)
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (v *view) FindOverlapping(_ context.Context, employeeID generic.EmployeeID, p generic.Period, exclude timeoff.RecordID) ([]timeoff.LeaveRecord, error) {
	var out []timeoff.LeaveRecord
	for _, rec := range v.st.records {
		if rec.EmployeeID != employeeID || rec.Status != timeoff.RecordActive || rec.ID == exclude {
			continue
		}
		if p.Overlaps(rec.Period()) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []timeoff.LeaveRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Start.Equal(recs[j].Start) {
			return recs[i].Start.Before(recs[j].Start)
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}

func (v *view) SaveDocument(_ context.Context, doc *timeoff.Document) error {
	if _, ok := v.st.records[doc.RecordID]; !ok {
		return fmt.Errorf("leave %s: %w", doc.RecordID, generic.ErrNotFound)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	v.st.documents[doc.RecordID] = *doc
	return nil
}

func (v *view) GetDocument(_ context.Context, id timeoff.RecordID) (*timeoff.Document, error) {
	doc, ok := v.st.documents[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return &doc, nil
}

func (v *view) SaveEmployee(_ context.Context, e *timeoff.Employee) error {
	if e.ID == "" {
		e.ID = generic.EmployeeID(uuid.NewString())
	}
	if e.Status == "" {
		e.Status = timeoff.EmployeeActive
	}
	v.st.employees[e.ID] = *e
	return nil
}

func (v *view) GetEmployee(_ context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	e, ok := v.st.employees[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return &e, nil
}

func (v *view) ListEmployees(_ context.Context, status timeoff.EmployeeStatus) ([]timeoff.Employee, error) {
	var out []timeoff.Employee
	for _, e := range v.st.employees {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) SaveHoliday(_ context.Context, h *generic.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	v.st.holidays[h.ID] = *h
	return nil
}

func (v *view) DeleteHoliday(_ context.Context, id string) error {
	if _, ok := v.st.holidays[id]; !ok {
		return generic.ErrNotFound
	}
	delete(v.st.holidays, id)
	return nil
}

func (v *view) ListHolidays(_ context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	window := generic.NewPeriod(from, to)
	var out []generic.Holiday
	for _, h := range v.st.holidays {
		if h.Recurring || window.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v *view) FiscalYear(_ context.Context) (int, error) {
	return v.st.fiscalYear, nil
}

func (v *view) SetFiscalYear(_ context.Context, year int) error {
	v.st.fiscalYear = year
	return nil
}
