/*
resolver.go - Classifies a proposed leave against the leave it overlaps

PURPOSE:
  Decides, without touching the store, whether a proposal can be saved as
  is, must be rejected, or can be saved after the caller confirms one of
  three resolutions of an existing annual leave.

DECISION TABLE (single overlap, first match wins):
  existing   proposed           geometry                              outcome
  annual     annual             any                                   reject
  annual     SplitsAnnual       proposed strictly inside existing     split
  annual     ReplacesOnEqual    identical bounds                      replace
  annual     DisplacesAnnual    proposed covers existing              replace
  annual     DisplacesAnnual    existing.Start < p.Start <= existing.End  trim end
  annual     DisplacesAnnual    existing.Start <= p.End < existing.End    trim start
  anything else, or two or more overlaps                               reject

  No overlap at all is accepted directly.

SEE ALSO:
  - service.go: Execute* operations that commit a confirmed resolution
  - errors.go: OverlapConflictError, ConfirmationRequiredError
*/
package timeoff

type Action string

const (
	ActionAccept Action = "accept"
)

// Resolution is the non-error outcome of Classify.
type Resolution struct {
	Action Action
}

type Resolver struct {
	Types *Registry
}

func NewResolver(types *Registry) *Resolver {
	return &Resolver{Types: types}
}

// Classify returns ActionAccept when overlaps is empty. Otherwise it returns
// an *OverlapConflictError or a *ConfirmationRequiredError.
func (r *Resolver) Classify(proposed Proposal, overlaps []LeaveRecord) (Resolution, error) {
	if len(overlaps) == 0 {
		return Resolution{Action: ActionAccept}, nil
	}

	first := overlaps[0]
	if len(overlaps) > 1 {
		return Resolution{}, &OverlapConflictError{Conflict: first}
	}

	existing := first
	annual := r.Types.Annual()
	if existing.Type != annual {
		return Resolution{}, &OverlapConflictError{Conflict: existing}
	}
	if proposed.Type == annual {
		return Resolution{}, &OverlapConflictError{Conflict: existing, Reason: "annual leave cannot overlap annual leave"}
	}

	cfg, _ := r.Types.Lookup(proposed.Type)
	p := proposed.Period()
	e := existing.Period()

	confirm := func(kind ConfirmationKind, side TrimSide, msg string) (Resolution, error) {
		return Resolution{}, &ConfirmationRequiredError{
			Kind:     kind,
			Side:     side,
			Proposed: proposed,
			Conflict: existing,
			Message:  msg,
		}
	}

	switch {
	case cfg.SplitsAnnual && p.StrictlyInside(e):
		return confirm(ConfirmSplit, "", "this leave falls inside an annual leave; split the annual leave in two?")
	case cfg.ReplacesOnEqual && p.Equal(e):
		return confirm(ConfirmReplace, "", "an annual leave already covers these dates; replace it?")
	case cfg.DisplacesAnnual && p.Covers(e):
		return confirm(ConfirmReplace, "", "this leave covers an existing annual leave; replace it?")
	case cfg.DisplacesAnnual && e.Start.Before(p.Start) && p.Start.BeforeOrEqual(e.End):
		return confirm(ConfirmTrim, TrimEnd, "this leave overlaps the end of an annual leave; shorten the annual leave?")
	case cfg.DisplacesAnnual && e.Start.BeforeOrEqual(p.End) && p.End.Before(e.End):
		return confirm(ConfirmTrim, TrimStart, "this leave overlaps the start of an annual leave; shorten the annual leave?")
	}

	return Resolution{}, &OverlapConflictError{Conflict: existing}
}
