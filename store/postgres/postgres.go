// Package postgres implements timeoff.TxStore on PostgreSQL through pgx.
//
// The schema mirrors store/sqlite. Leave transactions take a
// transaction-scoped advisory lock, so concurrent operations are applied
// one at a time the same way the SQLite store's mutex does.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// leaveLockKey is the pg_advisory_xact_lock key shared by all leave
// transactions.
const leaveLockKey = 7_220_001

type Store struct {
	pool *pgxpool.Pool
	queries
}

var _ timeoff.TxStore = (*Store)(nil)

// Connect opens a pool and migrates the schema.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s := &Store{pool: pool, queries: queries{q: pool}}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		hired_on DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS balance_buckets (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		year INTEGER NOT NULL,
		remaining NUMERIC(10,3) NOT NULL CHECK (remaining >= 0),
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE(employee_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		days NUMERIC(10,3) NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		substitute_id TEXT,
		justification TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_records_employee_dates
		ON leave_records(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL UNIQUE REFERENCES leave_records(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date DATE NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE(date, name)
	);

	CREATE TABLE IF NOT EXISTS system_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO system_config (key, value) VALUES ('fiscal_year', $1) ON CONFLICT (key) DO NOTHING`,
		fmt.Sprint(time.Now().Year()))
	return err
}

// Reset truncates every table. Used by tests.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE documents, leave_records, balance_buckets, holidays, employees, system_config`); err != nil {
		return err
	}
	return s.SetFiscalYear(ctx, time.Now().Year())
}

// WithTx executes fn within a transaction holding the leave lock.
func (s *Store) WithTx(ctx context.Context, fn func(timeoff.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, leaveLockKey); err != nil {
			return fmt.Errorf("acquire leave lock: %w", err)
		}
		return fn(&queries{q: tx})
	})
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	q querier
}

// =============================================================================
// BUCKETS
// =============================================================================

const bucketColumns = `id, employee_id, year, remaining::text, status`

func (qs *queries) ListBuckets(ctx context.Context, id generic.EmployeeID) ([]generic.BalanceBucket, error) {
	rows, err := qs.q.Query(ctx, `SELECT `+bucketColumns+` FROM balance_buckets WHERE employee_id = $1 ORDER BY year`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return collect(rows, scanBucket)
}

func (qs *queries) GetBucket(ctx context.Context, id generic.BucketID) (*generic.BalanceBucket, error) {
	b, err := scanBucket(qs.q.QueryRow(ctx, `SELECT `+bucketColumns+` FROM balance_buckets WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := qs.q.Exec(ctx,
		`INSERT INTO balance_buckets (id, employee_id, year, remaining, status) VALUES ($1, $2, $3, $4::text::numeric, $5)`,
		string(b.ID), string(b.EmployeeID), b.Year, b.Remaining.String(), string(b.Status))
	if isUniqueViolation(err) {
		return generic.ErrDuplicateBucket
	}
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (qs *queries) SetBucketRemaining(ctx context.Context, id generic.BucketID, remaining decimal.Decimal) error {
	if remaining.IsNegative() {
		return &generic.InvalidInputError{Field: "remaining", Reason: "must not be negative"}
	}
	tag, err := qs.q.Exec(ctx, `UPDATE balance_buckets SET remaining = $1::text::numeric WHERE id = $2`, remaining.String(), string(id))
	if err != nil {
		return fmt.Errorf("update bucket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bucket %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

func (qs *queries) ExpireBucket(ctx context.Context, id generic.EmployeeID, year int) error {
	_, err := qs.q.Exec(ctx, `UPDATE balance_buckets SET status = $1 WHERE employee_id = $2 AND year = $3`,
		string(generic.BucketExpired), string(id), year)
	return err
}

func (qs *queries) ListBucketsByStatus(ctx context.Context, status generic.BucketStatus) ([]timeoff.BucketView, error) {
	rows, err := qs.q.Query(ctx, `
		SELECT b.id, b.employee_id, b.year, b.remaining::text, b.status, e.name, e.code
		FROM balance_buckets b JOIN employees e ON e.id = b.employee_id
		WHERE b.status = $1
		ORDER BY e.name, b.year`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return collect(rows, func(row pgx.Row) (timeoff.BucketView, error) {
		var v timeoff.BucketView
		var id, emp, st, remaining string
		if err := row.Scan(&id, &emp, &v.Year, &remaining, &st, &v.EmployeeName, &v.EmployeeCode); err != nil {
			return v, err
		}
		v.ID, v.EmployeeID, v.Status = generic.BucketID(id), generic.EmployeeID(emp), generic.BucketStatus(st)
		var err error
		v.Remaining, err = decimal.NewFromString(remaining)
		return v, err
	})
}

func scanBucket(row pgx.Row) (generic.BalanceBucket, error) {
	var b generic.BalanceBucket
	var id, emp, status, remaining string
	if err := row.Scan(&id, &emp, &b.Year, &remaining, &status); err != nil {
		return b, err
	}
	b.ID, b.EmployeeID, b.Status = generic.BucketID(id), generic.EmployeeID(emp), generic.BucketStatus(status)
	var err error
	b.Remaining, err = decimal.NewFromString(remaining)
	return b, err
}

// =============================================================================
// LEAVE RECORDS
// =============================================================================

const recordSelect = `
	SELECT r.id, r.employee_id, r.leave_type, r.start_date, r.end_date, r.days::text, r.status,
	       COALESCE(r.substitute_id, ''), r.justification, COALESCE(d.id, ''), r.created_at
	FROM leave_records r
	LEFT JOIN documents d ON d.record_id = r.id`

func (qs *queries) GetRecord(ctx context.Context, id timeoff.RecordID) (*timeoff.LeaveRecord, error) {
	rec, err := scanRecord(qs.q.QueryRow(ctx, recordSelect+` WHERE r.id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
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
	var substitute *string
	if rec.SubstituteID != "" {
		s := string(rec.SubstituteID)
		substitute = &s
	}
	_, err := qs.q.Exec(ctx, `
		INSERT INTO leave_records
		(id, employee_id, leave_type, start_date, end_date, days, status, substitute_id, justification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9, $10)`,
		string(rec.ID), string(rec.EmployeeID), string(rec.Type), rec.Start.Time, rec.End.Time,
		rec.Days.String(), string(rec.Status), substitute, rec.Justification, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert leave record: %w", err)
	}
	return nil
}

func (qs *queries) DeleteRecord(ctx context.Context, id timeoff.RecordID) error {
	tag, err := qs.q.Exec(ctx, `DELETE FROM leave_records WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete leave record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leave %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

func (qs *queries) ListRecords(ctx context.Context, f timeoff.RecordFilter) ([]timeoff.LeaveRecord, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.EmployeeID != "" {
		where = append(where, "r.employee_id = "+arg(string(f.EmployeeID)))
	}
	if f.Type != "" {
		where = append(where, "r.leave_type = "+arg(string(f.Type)))
	}
	if f.ActiveOnly {
		where = append(where, "r.status = "+arg(string(timeoff.RecordActive)))
	}
	if f.Overlapping != nil {
		where = append(where, "r.start_date <= "+arg(f.Overlapping.End.Time)+" AND r.end_date >= "+arg(f.Overlapping.Start.Time))
	}
	if f.StartsWithin != nil {
		where = append(where, "r.start_date BETWEEN "+arg(f.StartsWithin.Start.Time)+" AND "+arg(f.StartsWithin.End.Time))
	}

	query := recordSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.start_date, r.created_at"

	rows, err := qs.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leave records: %w", err)
	}
	return collect(rows, scanRecord)
}

func (qs *queries) FindOverlapping(ctx context.Context, id generic.EmployeeID, p generic.Period, exclude timeoff.RecordID) ([]timeoff.LeaveRecord, error) {
	rows, err := qs.q.Query(ctx, recordSelect+`
		WHERE r.employee_id = $1 AND r.status = $2 AND r.id <> $3
		  AND r.start_date <= $4 AND r.end_date >= $5
		ORDER BY r.start_date, r.created_at`,
		string(id), string(timeoff.RecordActive), string(exclude), p.End.Time, p.Start.Time)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	return collect(rows, scanRecord)
}

func scanRecord(row pgx.Row) (timeoff.LeaveRecord, error) {
	var rec timeoff.LeaveRecord
	var id, emp, typ, status, substitute, days string
	var start, end time.Time
	err := row.Scan(&id, &emp, &typ, &start, &end, &days, &status, &substitute, &rec.Justification, &rec.DocumentID, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.ID, rec.EmployeeID, rec.Type = timeoff.RecordID(id), generic.EmployeeID(emp), timeoff.LeaveType(typ)
	rec.Status, rec.SubstituteID = timeoff.RecordStatus(status), generic.EmployeeID(substitute)
	rec.Start, rec.End = generic.DateOf(start), generic.DateOf(end)
	rec.Days, err = decimal.NewFromString(days)
	return rec, err
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (qs *queries) SaveDocument(ctx context.Context, doc *timeoff.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := qs.q.Exec(ctx, `
		INSERT INTO documents (id, record_id, path, uploaded_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_id) DO UPDATE SET id = EXCLUDED.id, path = EXCLUDED.path, uploaded_at = EXCLUDED.uploaded_at`,
		doc.ID, string(doc.RecordID), doc.Path, doc.UploadedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("leave %s: %w", doc.RecordID, generic.ErrNotFound)
	}
	return err
}

func (qs *queries) GetDocument(ctx context.Context, id timeoff.RecordID) (*timeoff.Document, error) {
	var doc timeoff.Document
	var recordID string
	err := qs.q.QueryRow(ctx, `SELECT id, record_id, path, uploaded_at FROM documents WHERE record_id = $1`, string(id)).
		Scan(&doc.ID, &recordID, &doc.Path, &doc.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.RecordID = timeoff.RecordID(recordID)
	return &doc, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (qs *queries) SaveEmployee(ctx context.Context, e *timeoff.Employee) error {
	if e.ID == "" {
		e.ID = generic.EmployeeID(uuid.NewString())
	}
	if e.Status == "" {
		e.Status = timeoff.EmployeeActive
	}
	var hired *time.Time
	if !e.HiredOn.IsZero() {
		hired = &e.HiredOn.Time
	}
	_, err := qs.q.Exec(ctx, `
		INSERT INTO employees (id, code, name, email, status, hired_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name, email = EXCLUDED.email,
			status = EXCLUDED.status, hired_on = EXCLUDED.hired_on`,
		string(e.ID), e.Code, e.Name, e.Email, string(e.Status), hired)
	return err
}

const employeeColumns = `id, code, name, email, status, hired_on`

func (qs *queries) GetEmployee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	e, err := scanEmployee(qs.q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (qs *queries) ListEmployees(ctx context.Context, status timeoff.EmployeeStatus) ([]timeoff.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE ($1 = '' OR status = $1) ORDER BY name, id`
	rows, err := qs.q.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return collect(rows, scanEmployee)
}

func scanEmployee(row pgx.Row) (timeoff.Employee, error) {
	var e timeoff.Employee
	var id, status string
	var hired *time.Time
	if err := row.Scan(&id, &e.Code, &e.Name, &e.Email, &status, &hired); err != nil {
		return e, err
	}
	e.ID, e.Status = generic.EmployeeID(id), timeoff.EmployeeStatus(status)
	if hired != nil {
		e.HiredOn = generic.DateOf(*hired)
	}
	return e, nil
}

// =============================================================================
// HOLIDAYS AND FISCAL YEAR
// =============================================================================

func (qs *queries) SaveHoliday(ctx context.Context, h *generic.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := qs.q.Exec(ctx, `
		INSERT INTO holidays (id, date, name, recurring) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET date = EXCLUDED.date, name = EXCLUDED.name, recurring = EXCLUDED.recurring`,
		h.ID, h.Date.Time, h.Name, h.Recurring)
	if isUniqueViolation(err) {
		return &generic.InvalidInputError{Field: "date", Reason: fmt.Sprintf("holiday %q already exists on %s", h.Name, h.Date)}
	}
	return err
}

func (qs *queries) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := qs.q.Exec(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holiday %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

func (qs *queries) ListHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	rows, err := qs.q.Query(ctx, `
		SELECT id, date, name, recurring FROM holidays
		WHERE recurring OR date BETWEEN $1 AND $2
		ORDER BY date`, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return collect(rows, func(row pgx.Row) (generic.Holiday, error) {
		var h generic.Holiday
		var date time.Time
		if err := row.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return h, err
		}
		h.Date = generic.DateOf(date)
		return h, nil
	})
}

func (qs *queries) FiscalYear(ctx context.Context) (int, error) {
	var year int
	err := qs.q.QueryRow(ctx, `SELECT value::int FROM system_config WHERE key = 'fiscal_year'`).Scan(&year)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Now().Year(), nil
	}
	return year, err
}

func (qs *queries) SetFiscalYear(ctx context.Context, year int) error {
	_, err := qs.q.Exec(ctx, `
		INSERT INTO system_config (key, value) VALUES ('fiscal_year', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, fmt.Sprint(year))
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
