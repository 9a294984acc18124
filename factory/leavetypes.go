/*
Package factory provides JSON to Go leave-type conversion.

PURPOSE:
  Converts JSON leave-type definitions into a timeoff.Registry, so the
  overlap rules of each type (split, replace, trim) are configured without
  code changes.

JSON SCHEMA:
  {
    "types": [
      {"name": "annual", "label": "Annual leave", "annual": true,
       "deducts_balance": true, "counting": "working_days"},
      {"name": "sick", "label": "Sick leave", "counting": "calendar_days",
       "requires_document": true,
       "splits_annual": true, "displaces_annual": true, "replaces_on_equal": true}
    ]
  }

DEFAULTS:
  - counting: calendar_days
  - label: the name
  - A file without the annual type is rejected by timeoff.NewRegistry.

USAGE:
  registry, err := factory.LoadLeaveTypes("./leave_types.json")
  svc := timeoff.NewService(store, registry, allotment)

SEE ALSO:
  - timeoff/types.go: TypeConfig and the stock types
  - timeoff/resolver.go: How the flags drive overlap resolution
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypesJSON is the document root.
type LeaveTypesJSON struct {
	Types []LeaveTypeJSON `json:"types"`
}

// LeaveTypeJSON is the JSON representation of one leave type.
type LeaveTypeJSON struct {
	Name             string `json:"name"`
	Label            string `json:"label,omitempty"`
	Annual           bool   `json:"annual,omitempty"`
	DeductsBalance   bool   `json:"deducts_balance,omitempty"`
	Counting         string `json:"counting,omitempty"` // working_days, calendar_days
	RequiresDocument bool   `json:"requires_document,omitempty"`
	SplitsAnnual     bool   `json:"splits_annual,omitempty"`
	DisplacesAnnual  bool   `json:"displaces_annual,omitempty"`
	ReplacesOnEqual  bool   `json:"replaces_on_equal,omitempty"`
}

// =============================================================================
// LEAVE TYPE FACTORY
// =============================================================================

// ParseLeaveTypes parses a JSON document into a registry.
func ParseLeaveTypes(data []byte) (*timeoff.Registry, error) {
	var doc LeaveTypesJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse leave types JSON: %w", err)
	}
	return FromJSON(doc)
}

// LoadLeaveTypes reads and parses a leave-types file.
func LoadLeaveTypes(path string) (*timeoff.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read leave types: %w", err)
	}
	return ParseLeaveTypes(data)
}

// FromJSON converts the document into validated TypeConfigs.
func FromJSON(doc LeaveTypesJSON) (*timeoff.Registry, error) {
	if len(doc.Types) == 0 {
		return nil, fmt.Errorf("no leave types defined")
	}

	configs := make([]timeoff.TypeConfig, 0, len(doc.Types))
	for i, tj := range doc.Types {
		cfg, err := parseType(tj)
		if err != nil {
			return nil, fmt.Errorf("types[%d]: %w", i, err)
		}
		configs = append(configs, cfg)
	}
	return timeoff.NewRegistry(configs...)
}

func parseType(tj LeaveTypeJSON) (timeoff.TypeConfig, error) {
	name := strings.TrimSpace(tj.Name)
	if name == "" {
		return timeoff.TypeConfig{}, fmt.Errorf("name is required")
	}
	counting, err := parseCounting(tj.Counting)
	if err != nil {
		return timeoff.TypeConfig{}, fmt.Errorf("%s: %w", name, err)
	}
	label := tj.Label
	if label == "" {
		label = name
	}
	if tj.Annual && (tj.SplitsAnnual || tj.DisplacesAnnual || tj.ReplacesOnEqual) {
		return timeoff.TypeConfig{}, fmt.Errorf("%s: the annual type cannot split, displace or replace itself", name)
	}

	return timeoff.TypeConfig{
		Name:             timeoff.LeaveType(name),
		Label:            label,
		Annual:           tj.Annual,
		DeductsBalance:   tj.DeductsBalance,
		Counting:         counting,
		RequiresDocument: tj.RequiresDocument,
		SplitsAnnual:     tj.SplitsAnnual,
		DisplacesAnnual:  tj.DisplacesAnnual,
		ReplacesOnEqual:  tj.ReplacesOnEqual,
	}, nil
}

func parseCounting(s string) (timeoff.Counting, error) {
	switch s {
	case "", "calendar_days", "calendar":
		return timeoff.CountCalendarDays, nil
	case "working_days", "working":
		return timeoff.CountWorkingDays, nil
	default:
		return "", fmt.Errorf("unknown counting %q", s)
	}
}

// ToJSON renders a registry back into its JSON document, e.g. to expose
// the active configuration over the API.
func ToJSON(r *timeoff.Registry) LeaveTypesJSON {
	var doc LeaveTypesJSON
	for _, c := range r.All() {
		doc.Types = append(doc.Types, LeaveTypeJSON{
			Name:             string(c.Name),
			Label:            c.Label,
			Annual:           c.Annual,
			DeductsBalance:   c.DeductsBalance,
			Counting:         string(c.Counting),
			RequiresDocument: c.RequiresDocument,
			SplitsAnnual:     c.SplitsAnnual,
			DisplacesAnnual:  c.DisplacesAnnual,
			ReplacesOnEqual:  c.ReplacesOnEqual,
		})
	}
	return doc
}
