package timeoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
)

func record(id string, typ LeaveType, start, end string) LeaveRecord {
	return LeaveRecord{
		ID:         RecordID(id),
		EmployeeID: "emp-1",
		Type:       typ,
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
		Status:     RecordActive,
	}
}

func proposal(typ LeaveType, start, end string) Proposal {
	return Proposal{
		EmployeeID: "emp-1",
		Type:       typ,
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
	}
}

// =============================================================================
// DECISION TABLE
// =============================================================================

func TestResolver_Classify(t *testing.T) {
	// Existing annual leave: two working weeks in March 2024
	annual := record("a-1", TypeAnnual, "2024-03-04", "2024-03-15")

	tests := []struct {
		name     string
		proposed Proposal
		overlaps []LeaveRecord
		kind     ConfirmationKind // empty with conflict=false means accept
		side     TrimSide
		conflict bool
	}{
		{name: "no overlap", proposed: proposal(TypeAnnual, "2024-04-01", "2024-04-05")},
		{name: "annual over annual", proposed: proposal(TypeAnnual, "2024-03-06", "2024-03-20"),
			overlaps: []LeaveRecord{annual}, conflict: true},
		{name: "sick inside splits", proposed: proposal(TypeSick, "2024-03-06", "2024-03-08"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmSplit},
		{name: "sick on identical bounds replaces", proposed: proposal(TypeSick, "2024-03-04", "2024-03-15"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmReplace},
		{name: "maternity covering replaces", proposed: proposal(TypeMaternity, "2024-03-01", "2024-03-31"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmReplace},
		{name: "maternity over the end trims end", proposed: proposal(TypeMaternity, "2024-03-13", "2024-03-22"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmTrim, side: TrimEnd},
		{name: "maternity over the start trims start", proposed: proposal(TypeMaternity, "2024-03-01", "2024-03-06"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmTrim, side: TrimStart},
		{name: "sick sharing only the start day trims start", proposed: proposal(TypeSick, "2024-03-04", "2024-03-05"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmTrim, side: TrimStart},
		{name: "paternity inside splits", proposed: proposal(TypePaternity, "2024-03-06", "2024-03-08"),
			overlaps: []LeaveRecord{annual}, kind: ConfirmSplit},
		{name: "paternity over the end is rejected", proposed: proposal(TypePaternity, "2024-03-13", "2024-03-22"),
			overlaps: []LeaveRecord{annual}, conflict: true},
		{name: "exceptional inside is rejected", proposed: proposal(TypeExceptional, "2024-03-06", "2024-03-08"),
			overlaps: []LeaveRecord{annual}, conflict: true},
		{name: "two overlaps are rejected", proposed: proposal(TypeSick, "2024-03-06", "2024-03-20"),
			overlaps: []LeaveRecord{annual, record("a-2", TypeAnnual, "2024-03-18", "2024-03-22")}, conflict: true},
		{name: "non-annual existing is rejected", proposed: proposal(TypeSick, "2024-03-06", "2024-03-08"),
			overlaps: []LeaveRecord{record("s-1", TypeSick, "2024-03-04", "2024-03-15")}, conflict: true},
	}

	resolver := NewResolver(DefaultRegistry())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolver.Classify(tt.proposed, tt.overlaps)

			switch {
			case tt.conflict:
				var oc *OverlapConflictError
				require.ErrorAs(t, err, &oc)
				assert.Equal(t, tt.overlaps[0].ID, oc.Conflict.ID)
			case tt.kind != "":
				var ce *ConfirmationRequiredError
				require.ErrorAs(t, err, &ce)
				assert.True(t, IsConfirmation(err))
				assert.Equal(t, tt.kind, ce.Kind)
				assert.Equal(t, tt.side, ce.Side)
				assert.Equal(t, tt.overlaps[0].ID, ce.Conflict.ID)
				assert.NotEmpty(t, ce.Message)
			default:
				require.NoError(t, err)
				assert.Equal(t, ActionAccept, res.Action)
			}
		})
	}
}

func TestResolver_ConfigurableFlags(t *testing.T) {
	// GIVEN: A registry where "training" may displace annual leave
	types, err := NewRegistry(
		TypeConfig{Name: TypeAnnual, Annual: true, DeductsBalance: true, Counting: CountWorkingDays},
		TypeConfig{Name: "training", Counting: CountCalendarDays, DisplacesAnnual: true},
	)
	require.NoError(t, err)
	resolver := NewResolver(types)
	annual := record("a-1", TypeAnnual, "2024-03-04", "2024-03-15")

	// WHEN: Training covers the end of the annual leave
	_, err = resolver.Classify(proposal("training", "2024-03-14", "2024-03-18"), []LeaveRecord{annual})

	// THEN: A trim is proposed
	var ce *ConfirmationRequiredError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ConfirmTrim, ce.Kind)
	assert.Equal(t, TrimEnd, ce.Side)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_Defaults(t *testing.T) {
	types := DefaultRegistry()

	assert.Equal(t, TypeAnnual, types.Annual())
	assert.True(t, types.IsAnnual(TypeAnnual))
	assert.True(t, types.Deducts(TypeAnnual))
	assert.False(t, types.Deducts(TypeSick))

	_, ok := types.Lookup("unpaid")
	assert.False(t, ok)
}
