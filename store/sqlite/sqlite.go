/*
Package sqlite provides a SQLite-backed implementation of timeoff.TxStore.

PURPOSE:
  Persists balance buckets, leave records, supporting documents,
  employees, holidays and the fiscal year. The same schema runs on
  PostgreSQL (see store/postgres) with only placeholder differences.

KEY TABLES:
  employees:        Employee records (Active or Archived)
  balance_buckets:  One row per (employee, year), remaining days as TEXT
  leave_records:    Committed leave intervals, inclusive dates
  documents:        At most one supporting document per leave record
  holidays:         Public holidays; recurring ones repeat every year
  system_config:    Key/value settings, holds the fiscal year

INDEXES:
  - UNIQUE(employee_id, year) on balance_buckets: no duplicate year
  - idx_leave_records_employee_dates: overlap lookups (hot path)
  - idx_leave_records_start: on-leave and upcoming reports

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection. A transaction holds
  the write lock from BEGIN to COMMIT, so leave operations are serialized.

DECIMALS AND DATES:
  Day counts are stored as decimal strings and dates as YYYY-MM-DD, which
  sort lexically in date order.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timeoff.NewService(store, nil, generic.DefaultAnnualAllotment)

SEE ALSO:
  - timeoff/store.go: The contract implemented here
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// Store implements timeoff.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ timeoff.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: ":memory:" databases are per-connection
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		hired_on TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_status
		ON employees(status);

	CREATE TABLE IF NOT EXISTS balance_buckets (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		year INTEGER NOT NULL,
		remaining TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE(employee_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balance_buckets_status
		ON balance_buckets(status);

	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		substitute_id TEXT,
		justification TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Overlap lookups: employee + date range
	CREATE INDEX IF NOT EXISTS idx_leave_records_employee_dates
		ON leave_records(employee_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_records_start
		ON leave_records(start_date);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL UNIQUE REFERENCES leave_records(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		uploaded_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);

	CREATE TABLE IF NOT EXISTS system_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return seedFiscalYear(s.db)
}

func seedFiscalYear(db querier) error {
	_, err := db.ExecContext(context.Background(),
		`INSERT OR IGNORE INTO system_config (key, value) VALUES ('fiscal_year', ?)`,
		strconv.Itoa(time.Now().Year()))
	return err
}

// Reset deletes every row. Used by demo scenarios and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"documents", "leave_records", "balance_buckets", "holidays", "employees", "system_config"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return seedFiscalYear(s.db)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store timeoff.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) read() (*queries, func()) {
	s.mu.RLock()
	return &queries{q: s.db}, s.mu.RUnlock
}

func (s *Store) write() (*queries, func()) {
	s.mu.Lock()
	return &queries{q: s.db}, s.mu.Unlock
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (s *Store) ListBuckets(ctx context.Context, id generic.EmployeeID) ([]generic.BalanceBucket, error) {
	q, done := s.read()
	defer done()
	return q.ListBuckets(ctx, id)
}

func (s *Store) GetBucket(ctx context.Context, id generic.BucketID) (*generic.BalanceBucket, error) {
	q, done := s.read()
	defer done()
	return q.GetBucket(ctx, id)
}

func (s *Store) CreateBucket(ctx context.Context, b *generic.BalanceBucket) error {
	q, done := s.write()
	defer done()
	return q.CreateBucket(ctx, b)
}

func (s *Store) SetBucketRemaining(ctx context.Context, id generic.BucketID, remaining decimal.Decimal) error {
	q, done := s.write()
	defer done()
	return q.SetBucketRemaining(ctx, id, remaining)
}

func (s *Store) ExpireBucket(ctx context.Context, id generic.EmployeeID, year int) error {
	q, done := s.write()
	defer done()
	return q.ExpireBucket(ctx, id, year)
}

func (s *Store) ListBucketsByStatus(ctx context.Context, status generic.BucketStatus) ([]timeoff.BucketView, error) {
	q, done := s.read()
	defer done()
	return q.ListBucketsByStatus(ctx, status)
}

func (s *Store) GetRecord(ctx context.Context, id timeoff.RecordID) (*timeoff.LeaveRecord, error) {
	q, done := s.read()
	defer done()
	return q.GetRecord(ctx, id)
}

func (s *Store) InsertRecord(ctx context.Context, rec *timeoff.LeaveRecord) error {
	q, done := s.write()
	defer done()
	return q.InsertRecord(ctx, rec)
}

func (s *Store) DeleteRecord(ctx context.Context, id timeoff.RecordID) error {
	q, done := s.write()
	defer done()
	return q.DeleteRecord(ctx, id)
}

func (s *Store) ListRecords(ctx context.Context, f timeoff.RecordFilter) ([]timeoff.LeaveRecord, error) {
	q, done := s.read()
	defer done()
	return q.ListRecords(ctx, f)
}

func (s *Store) FindOverlapping(ctx context.Context, id generic.EmployeeID, p generic.Period, exclude timeoff.RecordID) ([]timeoff.LeaveRecord, error) {
	q, done := s.read()
	defer done()
	return q.FindOverlapping(ctx, id, p, exclude)
}

func (s *Store) SaveDocument(ctx context.Context, doc *timeoff.Document) error {
	q, done := s.write()
	defer done()
	return q.SaveDocument(ctx, doc)
}

func (s *Store) GetDocument(ctx context.Context, id timeoff.RecordID) (*timeoff.Document, error) {
	q, done := s.read()
	defer done()
	return q.GetDocument(ctx, id)
}

func (s *Store) SaveEmployee(ctx context.Context, e *timeoff.Employee) error {
	q, done := s.write()
	defer done()
	return q.SaveEmployee(ctx, e)
}

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	q, done := s.read()
	defer done()
	return q.GetEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context, status timeoff.EmployeeStatus) ([]timeoff.Employee, error) {
	q, done := s.read()
	defer done()
	return q.ListEmployees(ctx, status)
}

func (s *Store) SaveHoliday(ctx context.Context, h *generic.Holiday) error {
	q, done := s.write()
	defer done()
	return q.SaveHoliday(ctx, h)
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	q, done := s.write()
	defer done()
	return q.DeleteHoliday(ctx, id)
}

func (s *Store) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	q, done := s.read()
	defer done()
	return q.ListHolidays(ctx, from, to)
}

func (s *Store) FiscalYear(ctx context.Context) (int, error) {
	q, done := s.read()
	defer done()
	return q.FiscalYear(ctx)
}

func (s *Store) SetFiscalYear(ctx context.Context, year int) error {
	q, done := s.write()
	defer done()
	return q.SetFiscalYear(ctx, year)
}

// =============================================================================
// QUERIES - Shared by the store and its transactions
// =============================================================================

type queries struct {
	q querier
}

// -----------------------------------------------------------------------------
// Buckets
// -----------------------------------------------------------------------------

const bucketColumns = `id, employee_id, year, remaining, status`

func (qs *queries) ListBuckets(ctx context.Context, id generic.EmployeeID) ([]generic.BalanceBucket, error) {
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+bucketColumns+` FROM balance_buckets WHERE employee_id = ? ORDER BY year`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var out []generic.BalanceBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (qs *queries) GetBucket(ctx context.Context, id generic.BucketID) (*generic.BalanceBucket, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+bucketColumns+` FROM balance_buckets WHERE id = ?`, id)
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bucket %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (qs *queries) CreateBucket(ctx context.Context, b *generic.BalanceBucket) error {
	if b.ID == "" {
		b.ID = generic.BucketID(uuid.NewString())
	}
	if b.Status == "" {
		b.Status = generic.BucketActive
	}
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO balance_buckets (`+bucketColumns+`) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.EmployeeID, b.Year, b.Remaining.String(), b.Status)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateBucket
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (qs *queries) SetBucketRemaining(ctx context.Context, id generic.BucketID, remaining decimal.Decimal) error {
	if remaining.IsNegative() {
		return &generic.InvalidInputError{Field: "remaining", Reason: "must not be negative"}
	}
	res, err := qs.q.ExecContext(ctx,
		`UPDATE balance_buckets SET remaining = ? WHERE id = ?`, remaining.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update bucket: %w", err)
	}
	return expectRow(res, fmt.Sprintf("bucket %s", id))
}

func (qs *queries) ExpireBucket(ctx context.Context, id generic.EmployeeID, year int) error {
	_, err := qs.q.ExecContext(ctx,
		`UPDATE balance_buckets SET status = ? WHERE employee_id = ? AND year = ?`,
		generic.BucketExpired, id, year)
	if err != nil {
		return fmt.Errorf("failed to expire bucket: %w", err)
	}
	return nil
}

func (qs *queries) ListBucketsByStatus(ctx context.Context, status generic.BucketStatus) ([]timeoff.BucketView, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT b.id, b.employee_id, b.year, b.remaining, b.status, e.name, e.code
		FROM balance_buckets b
		JOIN employees e ON e.id = b.employee_id
		WHERE b.status = ?
		ORDER BY e.name, b.year`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var out []timeoff.BucketView
	for rows.Next() {
		var v timeoff.BucketView
		var remaining string
		if err := rows.Scan(&v.ID, &v.EmployeeID, &v.Year, &remaining, &v.Status, &v.EmployeeName, &v.EmployeeCode); err != nil {
			return nil, err
		}
		if v.Remaining, err = decimal.NewFromString(remaining); err != nil {
			return nil, fmt.Errorf("bucket %s remaining: %w", v.ID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Leave records
// -----------------------------------------------------------------------------

// createdAtLayout keeps every timestamp the same width so that ordering by
// the text column matches ordering by time.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordSelect = `
	SELECT r.id, r.employee_id, r.leave_type, r.start_date, r.end_date, r.days, r.status,
	       COALESCE(r.substitute_id, ''), r.justification, COALESCE(d.id, ''), r.created_at
	FROM leave_records r
	LEFT JOIN documents d ON d.record_id = r.id`

func (qs *queries) GetRecord(ctx context.Context, id timeoff.RecordID) (*timeoff.LeaveRecord, error) {
	row := qs.q.QueryRowContext(ctx, recordSelect+` WHERE r.id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (qs *queries) InsertRecord(ctx context.Context, rec *timeoff.LeaveRecord) error {
	if rec.ID == "" {
		rec.ID = timeoff.RecordID(uuid.NewString())
	}
	if rec.Status == "" {
		rec.Status = timeoff.RecordActive
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO leave_records
		(id, employee_id, leave_type, start_date, end_date, days, status, substitute_id, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EmployeeID, rec.Type, rec.Start.String(), rec.End.String(), rec.Days.String(),
		rec.Status, nullString(string(rec.SubstituteID)), rec.Justification,
		rec.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return fmt.Errorf("failed to insert leave record: %w", err)
	}
	return nil
}

func (qs *queries) DeleteRecord(ctx context.Context, id timeoff.RecordID) error {
	if _, err := qs.q.ExecContext(ctx, `DELETE FROM documents WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	res, err := qs.q.ExecContext(ctx, `DELETE FROM leave_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave record: %w", err)
	}
	return expectRow(res, fmt.Sprintf("leave %s", id))
}

func (qs *queries) ListRecords(ctx context.Context, f timeoff.RecordFilter) ([]timeoff.LeaveRecord, error) {
	var where []string
	var args []any
	if f.EmployeeID != "" {
		where = append(where, "r.employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Type != "" {
		where = append(where, "r.leave_type = ?")
		args = append(args, f.Type)
	}
	if f.ActiveOnly {
		where = append(where, "r.status = ?")
		args = append(args, timeoff.RecordActive)
	}
	if f.Overlapping != nil {
		where = append(where, "r.start_date <= ? AND r.end_date >= ?")
		args = append(args, f.Overlapping.End.String(), f.Overlapping.Start.String())
	}
	if f.StartsWithin != nil {
		where = append(where, "r.start_date BETWEEN ? AND ?")
		args = append(args, f.StartsWithin.Start.String(), f.StartsWithin.End.String())
	}

	query := recordSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.start_date, r.created_at"
	return qs.queryRecords(ctx, query, args...)
}

func (qs *queries) FindOverlapping(ctx context.Context, id generic.EmployeeID, p generic.Period, exclude timeoff.RecordID) ([]timeoff.LeaveRecord, error) {
	return qs.queryRecords(ctx, recordSelect+`
		WHERE r.employee_id = ? AND r.status = ? AND r.id <> ?
		  AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY r.start_date, r.created_at`,
		id, timeoff.RecordActive, exclude, p.End.String(), p.Start.String())
}

func (qs *queries) queryRecords(ctx context.Context, query string, args ...any) ([]timeoff.LeaveRecord, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	defer rows.Close()

	var out []timeoff.LeaveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

func (qs *queries) SaveDocument(ctx context.Context, doc *timeoff.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO documents (id, record_id, path, uploaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET id = excluded.id, path = excluded.path, uploaded_at = excluded.uploaded_at`,
		doc.ID, doc.RecordID, doc.Path, doc.UploadedAt.Format(time.RFC3339))
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("leave %s: %w", doc.RecordID, generic.ErrNotFound)
		}
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (qs *queries) GetDocument(ctx context.Context, id timeoff.RecordID) (*timeoff.Document, error) {
	var doc timeoff.Document
	var uploaded string
	err := qs.q.QueryRowContext(ctx,
		`SELECT id, record_id, path, uploaded_at FROM documents WHERE record_id = ?`, id,
	).Scan(&doc.ID, &doc.RecordID, &doc.Path, &uploaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.UploadedAt, _ = time.Parse(time.RFC3339, uploaded)
	return &doc, nil
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

func (qs *queries) SaveEmployee(ctx context.Context, e *timeoff.Employee) error {
	if e.ID == "" {
		e.ID = generic.EmployeeID(uuid.NewString())
	}
	if e.Status == "" {
		e.Status = timeoff.EmployeeActive
	}
	var hired sql.NullString
	if !e.HiredOn.IsZero() {
		hired = nullString(e.HiredOn.String())
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO employees (id, code, name, email, status, hired_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, name = excluded.name, email = excluded.email,
			status = excluded.status, hired_on = excluded.hired_on`,
		e.ID, e.Code, e.Name, e.Email, e.Status, hired, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

const employeeColumns = `id, code, name, email, status, COALESCE(hired_on, '')`

func (qs *queries) GetEmployee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (qs *queries) ListEmployees(ctx context.Context, status timeoff.EmployeeStatus) ([]timeoff.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name, id`

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []timeoff.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Holidays
// -----------------------------------------------------------------------------

func (qs *queries) SaveHoliday(ctx context.Context, h *generic.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, name = excluded.name, recurring = excluded.recurring`,
		h.ID, h.Date.String(), h.Name, h.Recurring, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.InvalidInputError{Field: "date", Reason: fmt.Sprintf("holiday %q already exists on %s", h.Name, h.Date)}
		}
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (qs *queries) DeleteHoliday(ctx context.Context, id string) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return expectRow(res, fmt.Sprintf("holiday %s", id))
}

// ListHolidays returns holidays dated within [from, to] plus every
// recurring holiday, whatever its stored year.
func (qs *queries) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT id, date, name, recurring FROM holidays
		WHERE recurring = 1 OR date BETWEEN ? AND ?
		ORDER BY date`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Fiscal year
// -----------------------------------------------------------------------------

func (qs *queries) FiscalYear(ctx context.Context) (int, error) {
	var value string
	err := qs.q.QueryRowContext(ctx, `SELECT value FROM system_config WHERE key = 'fiscal_year'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Now().Year(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read fiscal year: %w", err)
	}
	return strconv.Atoi(value)
}

func (qs *queries) SetFiscalYear(ctx context.Context, year int) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO system_config (key, value) VALUES ('fiscal_year', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(year))
	if err != nil {
		return fmt.Errorf("failed to set fiscal year: %w", err)
	}
	return nil
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanBucket(row scanner) (generic.BalanceBucket, error) {
	var b generic.BalanceBucket
	var remaining string
	if err := row.Scan(&b.ID, &b.EmployeeID, &b.Year, &remaining, &b.Status); err != nil {
		return b, err
	}
	var err error
	if b.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return b, fmt.Errorf("bucket %s remaining: %w", b.ID, err)
	}
	return b, nil
}

func scanRecord(row scanner) (timeoff.LeaveRecord, error) {
	var rec timeoff.LeaveRecord
	var start, end, days, created string
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Type, &start, &end, &days, &rec.Status,
		&rec.SubstituteID, &rec.Justification, &rec.DocumentID, &created)
	if err != nil {
		return rec, err
	}
	if rec.Start, err = generic.ParseDate(start); err != nil {
		return rec, err
	}
	if rec.End, err = generic.ParseDate(end); err != nil {
		return rec, err
	}
	if rec.Days, err = decimal.NewFromString(days); err != nil {
		return rec, fmt.Errorf("leave %s days: %w", rec.ID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}

func scanEmployee(row scanner) (timeoff.Employee, error) {
	var e timeoff.Employee
	var hired string
	if err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Email, &e.Status, &hired); err != nil {
		return e, err
	}
	if hired != "" {
		d, err := generic.ParseDate(hired)
		if err != nil {
			return e, err
		}
		e.HiredOn = d
	}
	return e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, generic.ErrNotFound)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
