// Package timeoff implements leave records on top of the generic balance ledger.
// It owns leave types, the overlap resolver and the transactional leave service.
package timeoff

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveType string

const (
	TypeAnnual      LeaveType = "annual"
	TypeSick        LeaveType = "sick"
	TypeMaternity   LeaveType = "maternity"
	TypePaternity   LeaveType = "paternity"
	TypeExceptional LeaveType = "exceptional"
)

// Counting selects how a leave's day count is derived from its dates.
type Counting string

const (
	CountWorkingDays  Counting = "working_days"
	CountCalendarDays Counting = "calendar_days"
)

// TypeConfig describes how one leave type interacts with the ledger and
// with overlapping annual leave.
type TypeConfig struct {
	Name  LeaveType
	Label string

	// Annual marks the type that consumes and is displaced by the others.
	// Exactly one type in a registry is annual.
	Annual bool

	DeductsBalance   bool
	Counting         Counting
	RequiresDocument bool

	// SplitsAnnual: may be placed strictly inside an annual leave,
	// splitting it in two.
	SplitsAnnual bool
	// DisplacesAnnual: may replace an annual leave it covers, or trim the
	// part of one it overlaps.
	DisplacesAnnual bool
	// ReplacesOnEqual: may replace an annual leave with identical bounds.
	ReplacesOnEqual bool
}

// Registry is the set of configured leave types.
type Registry struct {
	types  map[LeaveType]TypeConfig
	annual LeaveType
}

// NewRegistry validates the configs and indexes them by name.
func NewRegistry(configs ...TypeConfig) (*Registry, error) {
	r := &Registry{types: make(map[LeaveType]TypeConfig, len(configs))}
	for _, c := range configs {
		if c.Name == "" {
			return nil, fmt.Errorf("leave type without a name")
		}
		if _, dup := r.types[c.Name]; dup {
			return nil, fmt.Errorf("leave type %q declared twice", c.Name)
		}
		if c.Counting == "" {
			c.Counting = CountCalendarDays
		}
		if c.Counting != CountWorkingDays && c.Counting != CountCalendarDays {
			return nil, fmt.Errorf("leave type %q: unknown counting %q", c.Name, c.Counting)
		}
		if c.Annual {
			if r.annual != "" {
				return nil, fmt.Errorf("leave types %q and %q are both annual", r.annual, c.Name)
			}
			r.annual = c.Name
		}
		r.types[c.Name] = c
	}
	if r.annual == "" {
		return nil, fmt.Errorf("no annual leave type configured")
	}
	return r, nil
}

// DefaultTypes is the stock configuration: annual leave deducts working
// days, the others count calendar days and leave the balance alone.
func DefaultTypes() []TypeConfig {
	return []TypeConfig{
		{Name: TypeAnnual, Label: "Annual leave", Annual: true, DeductsBalance: true, Counting: CountWorkingDays},
		{Name: TypeSick, Label: "Sick leave", Counting: CountCalendarDays, RequiresDocument: true,
			SplitsAnnual: true, DisplacesAnnual: true, ReplacesOnEqual: true},
		{Name: TypeMaternity, Label: "Maternity leave", Counting: CountCalendarDays,
			SplitsAnnual: true, DisplacesAnnual: true},
		{Name: TypePaternity, Label: "Paternity leave", Counting: CountCalendarDays, SplitsAnnual: true},
		{Name: TypeExceptional, Label: "Exceptional leave", Counting: CountCalendarDays},
	}
}

func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTypes()...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(t LeaveType) (TypeConfig, bool) {
	c, ok := r.types[t]
	return c, ok
}

// Annual returns the name of the annual leave type.
func (r *Registry) Annual() LeaveType { return r.annual }

func (r *Registry) IsAnnual(t LeaveType) bool { return t == r.annual }

func (r *Registry) Deducts(t LeaveType) bool { return r.types[t].DeductsBalance }

// All returns the configured types sorted by name.
func (r *Registry) All() []TypeConfig {
	out := make([]TypeConfig, 0, len(r.types))
	for _, c := range r.types {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// =============================================================================
// LEAVE RECORD
// =============================================================================

type RecordID string

type RecordStatus string

const (
	RecordActive    RecordStatus = "active"
	RecordCancelled RecordStatus = "cancelled"
)

// LeaveRecord is one committed leave interval. Start and End are inclusive.
type LeaveRecord struct {
	ID            RecordID
	EmployeeID    generic.EmployeeID
	Type          LeaveType
	Start         generic.TimePoint
	End           generic.TimePoint
	Days          decimal.Decimal
	Status        RecordStatus
	SubstituteID  generic.EmployeeID
	Justification string
	DocumentID    string // empty when no supporting document is attached
	CreatedAt     time.Time
}

func (r LeaveRecord) Period() generic.Period { return generic.NewPeriod(r.Start, r.End) }

func (r LeaveRecord) String() string {
	return fmt.Sprintf("%s %s..%s", r.Type, r.Start, r.End)
}

// Proposal is a leave not yet persisted. ReplacesID is set when the
// proposal modifies an existing record.
type Proposal struct {
	EmployeeID    generic.EmployeeID
	Type          LeaveType
	Start         generic.TimePoint
	End           generic.TimePoint
	Days          decimal.Decimal // zero means derive from the type's counting
	SubstituteID  generic.EmployeeID
	Justification string
	DocumentPath  string // source file to attach after commit
	ReplacesID    RecordID
}

func (p Proposal) Period() generic.Period { return generic.NewPeriod(p.Start, p.End) }

// =============================================================================
// EMPLOYEES AND DOCUMENTS
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeArchived EmployeeStatus = "archived"
)

type Employee struct {
	ID      generic.EmployeeID
	Code    string // registration number, used in stored document names
	Name    string
	Email   string
	Status  EmployeeStatus
	HiredOn generic.TimePoint
}

// Document is a supporting file attached to a leave record.
type Document struct {
	ID         string
	RecordID   RecordID
	Path       string
	UploadedAt time.Time
}

// BucketView is a bucket joined with its owner's display fields.
type BucketView struct {
	generic.BalanceBucket
	EmployeeName string
	EmployeeCode string
}
