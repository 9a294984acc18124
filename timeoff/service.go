/*
service.go - Transactional leave operations

PURPOSE:
  The Service composes balance-ledger debits/credits with leave-record
  inserts and deletes. Every public operation is ONE store transaction:
  if any step fails, every step before it is rolled back.

OPERATIONS:
  Submit          validate, classify overlaps, save when nothing conflicts
  SimpleSave      (modify: credit + delete old) then debit + insert new
  Delete          credit + delete
  ExecuteSplit    delete annual, insert proposal, insert before/after parts
  ExecuteReplace  delete annual, insert proposal
  ExecuteTrim     delete annual, insert proposal, insert the kept part
  AnnualRollover  new bucket for F+1, expire F-2, advance F

SIDE EFFECTS AFTER COMMIT:
  Attaching a supporting document and removing the files of deleted
  records happen after the transaction commits. A failure there is logged
  and reported in Outcome.Warnings; the leave operation still stands.

SEE ALSO:
  - resolver.go: Overlap classification
  - generic/ledger.go: Debit/Credit rules
  - store.go: TxStore contract
*/
package timeoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store    TxStore
	Types    *Registry
	Resolver *Resolver
	Calendar *generic.Calendar

	// Attacher stores supporting documents; nil disables attachments.
	Attacher DocumentAttacher

	// Allotment is the default annual allotment: the size of new rollover
	// buckets and the cap used when crediting.
	Allotment decimal.Decimal

	Logger *slog.Logger
}

func NewService(store TxStore, types *Registry, allotment decimal.Decimal) *Service {
	if types == nil {
		types = DefaultRegistry()
	}
	if !allotment.IsPositive() {
		allotment = generic.DefaultAnnualAllotment
	}
	return &Service{
		Store:     store,
		Types:     types,
		Resolver:  NewResolver(types),
		Calendar:  generic.NewCalendar(store),
		Allotment: allotment,
		Logger:    slog.Default(),
	}
}

// Outcome describes what a committed operation changed.
type Outcome struct {
	Created  []LeaveRecord
	Removed  []RecordID
	Warnings []string
}

// Ledger returns a balance ledger over the non-transactional store.
func (s *Service) Ledger() *generic.BalanceLedger {
	return generic.NewBalanceLedger(s.Store, s.Allotment)
}

// =============================================================================
// TRANSACTION SCOPE
// =============================================================================

type pendingAttachment struct {
	index int // into Outcome.Created
	path  string
}

// leaveTx carries the transactional view and the after-commit work of one
// operation.
type leaveTx struct {
	svc    *Service
	store  Store
	ledger *generic.BalanceLedger
	cal    *generic.Calendar
	out    *Outcome

	attach []pendingAttachment
	purge  []Document
}

func (s *Service) run(ctx context.Context, fn func(ctx context.Context, lt *leaveTx) error) (*Outcome, error) {
	// once begun, a leave transaction runs to commit or rollback
	ctx = context.WithoutCancel(ctx)

	var committed *leaveTx
	err := s.Store.WithTx(ctx, func(store Store) error {
		lt := &leaveTx{
			svc:    s,
			store:  store,
			ledger: generic.NewBalanceLedger(store, s.Allotment),
			cal:    generic.NewCalendar(store),
			out:    &Outcome{},
		}
		if err := fn(ctx, lt); err != nil {
			return err
		}
		committed = lt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, committed)
	return committed.out, nil
}

func (s *Service) afterCommit(ctx context.Context, lt *leaveTx) {
	for _, pa := range lt.attach {
		rec := &lt.out.Created[pa.index]
		if s.Attacher == nil {
			lt.out.Warnings = append(lt.out.Warnings, fmt.Sprintf("leave %s saved without its document: no document storage configured", rec.ID))
			continue
		}
		emp, err := s.Store.GetEmployee(ctx, rec.EmployeeID)
		if err != nil {
			emp = &Employee{ID: rec.EmployeeID}
		}
		doc, err := s.Attacher.Attach(ctx, *rec, *emp, pa.path)
		if err != nil {
			s.Logger.Warn("document attachment failed", "record", rec.ID, "path", pa.path, "err", err)
			lt.out.Warnings = append(lt.out.Warnings, fmt.Sprintf("leave %s saved, but its document could not be stored: %v", rec.ID, err))
			continue
		}
		rec.DocumentID = doc.ID
	}

	for _, doc := range lt.purge {
		if s.Attacher == nil {
			continue
		}
		if err := s.Attacher.Remove(ctx, doc); err != nil {
			s.Logger.Warn("document cleanup failed", "record", doc.RecordID, "path", doc.Path, "err", err)
			lt.out.Warnings = append(lt.out.Warnings, fmt.Sprintf("document %s of deleted leave %s was not removed: %v", doc.Path, doc.RecordID, err))
		}
	}
}

// prepare validates a proposal and fills in its day count when missing.
func (lt *leaveTx) prepare(ctx context.Context, p *Proposal) (TypeConfig, error) {
	if p.EmployeeID == "" {
		return TypeConfig{}, &generic.InvalidInputError{Field: "employee_id", Reason: "required"}
	}
	cfg, ok := lt.svc.Types.Lookup(p.Type)
	if !ok {
		return TypeConfig{}, &generic.InvalidInputError{Field: "type", Reason: fmt.Sprintf("unknown leave type %q", p.Type)}
	}
	if err := p.Period().Validate(); err != nil {
		return TypeConfig{}, err
	}
	if _, err := lt.store.GetEmployee(ctx, p.EmployeeID); err != nil {
		return TypeConfig{}, fmt.Errorf("employee %s: %w", p.EmployeeID, err)
	}

	if p.Days.IsNegative() {
		return TypeConfig{}, &generic.InvalidInputError{Field: "days", Reason: "must not be negative"}
	}
	if p.Days.IsZero() {
		days, err := lt.countDays(ctx, cfg, p.Period())
		if err != nil {
			return TypeConfig{}, err
		}
		if days == 0 {
			return TypeConfig{}, &generic.InvalidInputError{Field: "dates", Reason: "the leave covers no countable day"}
		}
		p.Days = generic.DaysInt(days)
	}
	return cfg, nil
}

func (lt *leaveTx) countDays(ctx context.Context, cfg TypeConfig, period generic.Period) (int, error) {
	if cfg.Counting == CountWorkingDays {
		return lt.cal.WorkingDays(ctx, period)
	}
	return period.CalendarDays(), nil
}

// remove credits a deducting record back, then deletes it.
func (lt *leaveTx) remove(ctx context.Context, rec LeaveRecord) error {
	doc, err := lt.store.GetDocument(ctx, rec.ID)
	if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return fmt.Errorf("load document of %s: %w", rec.ID, err)
	}

	if lt.svc.Types.Deducts(rec.Type) {
		if err := lt.ledger.Credit(ctx, rec.EmployeeID, rec.Days); err != nil {
			return fmt.Errorf("credit %s: %w", rec.ID, err)
		}
	}
	if err := lt.store.DeleteRecord(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete %s: %w", rec.ID, err)
	}

	lt.out.Removed = append(lt.out.Removed, rec.ID)
	if doc != nil {
		lt.purge = append(lt.purge, *doc)
	}
	return nil
}

// dropReplaced removes the record a modification supersedes.
func (lt *leaveTx) dropReplaced(ctx context.Context, p Proposal) error {
	if p.ReplacesID == "" {
		return nil
	}
	old, err := lt.store.GetRecord(ctx, p.ReplacesID)
	if err != nil {
		return fmt.Errorf("leave %s: %w", p.ReplacesID, err)
	}
	if old.EmployeeID != p.EmployeeID {
		return &generic.InvalidInputError{Field: "replaces_id", Reason: "belongs to another employee"}
	}
	return lt.remove(ctx, *old)
}

// insert debits a deducting proposal, then stores it.
func (lt *leaveTx) insert(ctx context.Context, p Proposal, cfg TypeConfig) error {
	if cfg.DeductsBalance {
		if err := lt.ledger.Debit(ctx, p.EmployeeID, p.Days); err != nil {
			return err
		}
	}

	rec := LeaveRecord{
		EmployeeID:    p.EmployeeID,
		Type:          p.Type,
		Start:         p.Start,
		End:           p.End,
		Days:          p.Days,
		Status:        RecordActive,
		SubstituteID:  p.SubstituteID,
		Justification: p.Justification,
	}
	if err := lt.store.InsertRecord(ctx, &rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec, err)
	}

	lt.out.Created = append(lt.out.Created, rec)
	if cfg.RequiresDocument && p.DocumentPath != "" {
		lt.attach = append(lt.attach, pendingAttachment{index: len(lt.out.Created) - 1, path: p.DocumentPath})
	}
	return nil
}

// insertAnnualPart stores what is left of an annual leave after a split or
// trim. The day count is recomputed; an empty part or one without any
// working day is skipped.
func (lt *leaveTx) insertAnnualPart(ctx context.Context, from LeaveRecord, period generic.Period) error {
	if period.IsEmpty() {
		return nil
	}
	days, err := lt.cal.WorkingDays(ctx, period)
	if err != nil {
		return err
	}
	if days == 0 {
		return nil
	}

	annual := lt.svc.Types.Annual()
	cfg, _ := lt.svc.Types.Lookup(annual)
	return lt.insert(ctx, Proposal{
		EmployeeID:    from.EmployeeID,
		Type:          annual,
		Start:         period.Start,
		End:           period.End,
		Days:          generic.DaysInt(days),
		SubstituteID:  from.SubstituteID,
		Justification: from.Justification,
	}, cfg)
}

// confirmed reloads the conflicting record and checks the resolution the
// caller confirmed still applies to the current state.
func (lt *leaveTx) confirmed(ctx context.Context, p Proposal, existingID RecordID, kind ConfirmationKind, side TrimSide) (*LeaveRecord, error) {
	existing, err := lt.store.GetRecord(ctx, existingID)
	if err != nil {
		return nil, fmt.Errorf("leave %s: %w", existingID, err)
	}

	overlaps, err := lt.store.FindOverlapping(ctx, p.EmployeeID, p.Period(), p.ReplacesID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}

	_, err = lt.svc.Resolver.Classify(p, overlaps)
	var ce *ConfirmationRequiredError
	if errors.As(err, &ce) && ce.Kind == kind && ce.Conflict.ID == existing.ID && ce.Side == side {
		return existing, nil
	}
	if errors.Is(err, ErrOverlapConflict) {
		return nil, err
	}
	return nil, &generic.InvalidInputError{
		Field:  "resolution",
		Reason: fmt.Sprintf("%s of leave %s does not apply to the current leave records", kind, existingID),
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Submit saves the proposal when it overlaps nothing. Otherwise it returns
// an *OverlapConflictError or a *ConfirmationRequiredError and changes nothing.
func (s *Service) Submit(ctx context.Context, p Proposal) (*Outcome, error) {
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		cfg, err := lt.prepare(ctx, &p)
		if err != nil {
			return err
		}
		overlaps, err := lt.store.FindOverlapping(ctx, p.EmployeeID, p.Period(), p.ReplacesID)
		if err != nil {
			return fmt.Errorf("find overlapping: %w", err)
		}
		if _, err := s.Resolver.Classify(p, overlaps); err != nil {
			return err
		}
		if err := lt.dropReplaced(ctx, p); err != nil {
			return err
		}
		return lt.insert(ctx, p, cfg)
	})
}

// SimpleSave stores the proposal without an overlap check, replacing
// p.ReplacesID when set.
func (s *Service) SimpleSave(ctx context.Context, p Proposal) (*Outcome, error) {
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		cfg, err := lt.prepare(ctx, &p)
		if err != nil {
			return err
		}
		if err := lt.dropReplaced(ctx, p); err != nil {
			return err
		}
		return lt.insert(ctx, p, cfg)
	})
}

// Delete removes a leave record, crediting its days back when it deducts.
func (s *Service) Delete(ctx context.Context, id RecordID) (*Outcome, error) {
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		rec, err := lt.store.GetRecord(ctx, id)
		if err != nil {
			return fmt.Errorf("leave %s: %w", id, err)
		}
		return lt.remove(ctx, *rec)
	})
}

// ExecuteSplit replaces an annual leave with the proposal plus the annual
// parts before and after it.
func (s *Service) ExecuteSplit(ctx context.Context, p Proposal, existingID RecordID) (*Outcome, error) {
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		cfg, err := lt.prepare(ctx, &p)
		if err != nil {
			return err
		}
		existing, err := lt.confirmed(ctx, p, existingID, ConfirmSplit, "")
		if err != nil {
			return err
		}
		if err := lt.dropReplaced(ctx, p); err != nil {
			return err
		}
		if err := lt.remove(ctx, *existing); err != nil {
			return err
		}
		if err := lt.insert(ctx, p, cfg); err != nil {
			return err
		}
		if err := lt.insertAnnualPart(ctx, *existing, generic.NewPeriod(existing.Start, p.Start.AddDays(-1))); err != nil {
			return err
		}
		return lt.insertAnnualPart(ctx, *existing, generic.NewPeriod(p.End.AddDays(1), existing.End))
	})
}

// ExecuteReplace replaces an annual leave entirely with the proposal.
func (s *Service) ExecuteReplace(ctx context.Context, p Proposal, existingID RecordID) (*Outcome, error) {
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		cfg, err := lt.prepare(ctx, &p)
		if err != nil {
			return err
		}
		existing, err := lt.confirmed(ctx, p, existingID, ConfirmReplace, "")
		if err != nil {
			return err
		}
		if err := lt.dropReplaced(ctx, p); err != nil {
			return err
		}
		if err := lt.remove(ctx, *existing); err != nil {
			return err
		}
		return lt.insert(ctx, p, cfg)
	})
}

// ExecuteTrim shortens an annual leave on the given side and stores the
// proposal in the freed days.
func (s *Service) ExecuteTrim(ctx context.Context, p Proposal, existingID RecordID, side TrimSide) (*Outcome, error) {
	if side != TrimStart && side != TrimEnd {
		return nil, &generic.InvalidInputError{Field: "side", Reason: fmt.Sprintf("must be %q or %q", TrimStart, TrimEnd)}
	}
	return s.run(ctx, func(ctx context.Context, lt *leaveTx) error {
		cfg, err := lt.prepare(ctx, &p)
		if err != nil {
			return err
		}
		existing, err := lt.confirmed(ctx, p, existingID, ConfirmTrim, side)
		if err != nil {
			return err
		}
		if err := lt.dropReplaced(ctx, p); err != nil {
			return err
		}
		if err := lt.remove(ctx, *existing); err != nil {
			return err
		}
		if err := lt.insert(ctx, p, cfg); err != nil {
			return err
		}
		if side == TrimEnd {
			return lt.insertAnnualPart(ctx, *existing, generic.NewPeriod(existing.Start, p.Start.AddDays(-1)))
		}
		return lt.insertAnnualPart(ctx, *existing, generic.NewPeriod(p.End.AddDays(1), existing.End))
	})
}

// Execute dispatches a confirmed resolution.
func (s *Service) Execute(ctx context.Context, kind ConfirmationKind, p Proposal, existingID RecordID, side TrimSide) (*Outcome, error) {
	switch kind {
	case ConfirmSplit:
		return s.ExecuteSplit(ctx, p, existingID)
	case ConfirmReplace:
		return s.ExecuteReplace(ctx, p, existingID)
	case ConfirmTrim:
		return s.ExecuteTrim(ctx, p, existingID, side)
	default:
		return nil, &generic.InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown resolution %q", kind)}
	}
}

// =============================================================================
// ANNUAL ROLLOVER
// =============================================================================

type RolloverResult struct {
	FromYear    int
	ToYear      int
	ExpiredYear int
	Employees   int
}

// AnnualRollover grants every Active employee a bucket for the next fiscal
// year, expires the buckets of year F-2 and advances the fiscal year. It is
// one transaction and is not idempotent: each call advances the year again.
func (s *Service) AnnualRollover(ctx context.Context) (*RolloverResult, error) {
	ctx = context.WithoutCancel(ctx)

	var result RolloverResult
	err := s.Store.WithTx(ctx, func(store Store) error {
		current, err := store.FiscalYear(ctx)
		if err != nil {
			return fmt.Errorf("read fiscal year: %w", err)
		}
		result = RolloverResult{FromYear: current, ToYear: current + 1, ExpiredYear: current - 2}

		employees, err := store.ListEmployees(ctx, EmployeeActive)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}

		for _, emp := range employees {
			bucket := generic.BalanceBucket{
				EmployeeID: emp.ID,
				Year:       result.ToYear,
				Remaining:  s.Allotment,
				Status:     generic.BucketActive,
			}
			if err := store.CreateBucket(ctx, &bucket); err != nil {
				return fmt.Errorf("grant %d to %s: %w", result.ToYear, emp.ID, err)
			}
			if err := store.ExpireBucket(ctx, emp.ID, result.ExpiredYear); err != nil {
				return fmt.Errorf("expire %d for %s: %w", result.ExpiredYear, emp.ID, err)
			}
		}
		result.Employees = len(employees)

		return store.SetFiscalYear(ctx, result.ToYear)
	})
	if err != nil {
		s.Logger.Error("annual rollover failed", "err", err)
		return nil, err
	}

	s.Logger.Info("annual rollover complete",
		"from", result.FromYear, "to", result.ToYear, "expired", result.ExpiredYear, "employees", result.Employees)
	return &result, nil
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the employee's buckets and their Active total.
func (s *Service) Balance(ctx context.Context, employeeID generic.EmployeeID) ([]generic.BalanceBucket, decimal.Decimal, error) {
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return nil, decimal.Zero, fmt.Errorf("employee %s: %w", employeeID, err)
	}
	buckets, err := s.Store.ListBuckets(ctx, employeeID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return buckets, generic.TotalActive(buckets), nil
}

// Preview simulates the debit of days.
func (s *Service) Preview(ctx context.Context, employeeID generic.EmployeeID, days decimal.Decimal) (map[int]decimal.Decimal, error) {
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("employee %s: %w", employeeID, err)
	}
	return s.Ledger().DeductionPreview(ctx, employeeID, days)
}

func (s *Service) GetRecord(ctx context.Context, id RecordID) (*LeaveRecord, error) {
	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leave %s: %w", id, err)
	}
	return rec, nil
}

// ReturnDate is the first working day after the leave ends.
func (s *Service) ReturnDate(ctx context.Context, rec LeaveRecord) (generic.TimePoint, error) {
	return s.Calendar.ReturnDate(ctx, rec.End)
}
