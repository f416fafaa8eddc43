// Package flow holds the per-operator selection state and its step machine.
package flow

import (
	"errors"
	"fmt"

	"github.com/mohae/deepcopy"

	"github.com/compozy/groupops/engine/group"
)

var (
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrUnknownGroup      = errors.New("group not in snapshot")
	ErrUnknownBase       = errors.New("base name not in snapshot")
	ErrWrongKind         = errors.New("operation not valid for flow kind")
)

// Kind distinguishes the two batch flows.
type Kind string

const (
	KindAddPromote Kind = "add_promote"
	KindDemoteAll  Kind = "demote_all"
)

// Step is a closed set of wizard positions.
type Step string

const (
	StepSelectGroups             Step = "select_groups"
	StepWaitingSearchQuery       Step = "waiting_search_query"
	StepWaitingAdminNumbers      Step = "waiting_admin_numbers"
	StepSelectBaseNames          Step = "select_base_names"
	StepWaitingDemoteSearchQuery Step = "waiting_demote_search_query"
	StepSelectGroupsInBase       Step = "select_groups_in_base"
	StepConfirm                  Step = "confirm"
	StepExecuting                Step = "executing"
)

var transitions = map[Kind]map[Step][]Step{
	KindAddPromote: {
		StepSelectGroups:        {StepSelectGroups, StepWaitingSearchQuery, StepWaitingAdminNumbers},
		StepWaitingSearchQuery:  {StepSelectGroups},
		StepWaitingAdminNumbers: {StepWaitingAdminNumbers, StepConfirm},
		StepConfirm:             {StepExecuting},
	},
	KindDemoteAll: {
		StepSelectBaseNames:          {StepSelectBaseNames, StepWaitingDemoteSearchQuery, StepSelectGroupsInBase},
		StepWaitingDemoteSearchQuery: {StepSelectBaseNames},
		StepSelectGroupsInBase:       {StepSelectGroupsInBase, StepSelectBaseNames, StepConfirm},
		StepConfirm:                  {StepExecuting},
	},
}

// CanTransition reports whether kind allows moving from one step to another.
func CanTransition(kind Kind, from, to Step) bool {
	for _, s := range transitions[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

var listSteps = map[Kind][]Step{
	KindAddPromote: {StepSelectGroups},
	KindDemoteAll:  {StepSelectBaseNames, StepSelectGroupsInBase},
}

// Lists reports whether step shows a paginated list in this kind's flow.
func (k Kind) Lists(step Step) bool {
	for _, s := range listSteps[k] {
		if s == step {
			return true
		}
	}
	return false
}

// IsListStep reports whether step shows a paginated list in any flow.
func IsListStep(step Step) bool {
	return KindAddPromote.Lists(step) || KindDemoteAll.Lists(step)
}

// ParseStep validates a step name.
func ParseStep(s string) (Step, bool) {
	step := Step(s)
	switch step {
	case StepSelectGroups, StepWaitingSearchQuery, StepWaitingAdminNumbers,
		StepSelectBaseNames, StepWaitingDemoteSearchQuery, StepSelectGroupsInBase,
		StepConfirm, StepExecuting:
		return step, true
	}
	return "", false
}

// State is the in-progress wizard of one operator.
type State struct {
	Kind        Kind
	Step        Step
	SearchQuery string
	CurrentPage int
	Selected    *Selection

	// add_promote
	CandidateGroups []group.Group
	AdminNumbers    []string

	// demote_all
	Grouped          map[string][]group.Group
	OriginalGrouped  map[string][]group.Group
	SelectedBaseName string
	GroupsInBase     []group.Group

	ChatID    int64
	MessageID int
}

// NewAddPromote starts an add/promote flow over a group snapshot.
func NewAddPromote(groups []group.Group) *State {
	return &State{
		Kind:            KindAddPromote,
		Step:            StepSelectGroups,
		Selected:        NewSelection(),
		CandidateGroups: groups,
	}
}

// NewDemoteAll starts a demote flow, clustering groups by base name.
func NewDemoteAll(groups []group.Group) *State {
	grouped := group.GroupByBaseName(groups)
	original, ok := deepcopy.Copy(grouped).(map[string][]group.Group)
	if !ok {
		original = grouped
	}
	return &State{
		Kind:            KindDemoteAll,
		Step:            StepSelectBaseNames,
		Selected:        NewSelection(),
		Grouped:         grouped,
		OriginalGrouped: original,
	}
}

// Transition moves to step when the transition table allows it.
func (s *State) Transition(to Step) error {
	if !CanTransition(s.Kind, s.Step, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, s.Kind, s.Step, to)
	}
	s.Step = to
	return nil
}

// IsExecuting reports whether a batch owns this state.
func (s *State) IsExecuting() bool {
	return s.Step == StepExecuting
}

// VisibleGroups is the filtered candidate list of the current list step.
func (s *State) VisibleGroups() []group.Group {
	if s.Kind == KindDemoteAll {
		return s.GroupsInBase
	}
	return group.FilterByQuery(s.CandidateGroups, s.SearchQuery, group.ByName)
}

// VisibleBaseNames returns the sorted base names of the working copy.
func (s *State) VisibleBaseNames() []string {
	return group.SortedKeys(s.Grouped)
}

// SetSearch records a query, resets paging and returns to the list step.
// Demote flows re-derive the working copy from the original snapshot.
func (s *State) SetSearch(query string) error {
	target := StepSelectGroups
	if s.Kind == KindDemoteAll {
		target = StepSelectBaseNames
	}
	if err := s.Transition(target); err != nil {
		return err
	}
	s.SearchQuery = query
	s.CurrentPage = 0
	if s.Kind == KindDemoteAll {
		s.rebuildGrouped()
	}
	return nil
}

// ResetSearch clears the query and restores the full candidate set.
func (s *State) ResetSearch() {
	s.SearchQuery = ""
	s.CurrentPage = 0
	switch s.Step {
	case StepWaitingSearchQuery:
		s.Step = StepSelectGroups
	case StepWaitingDemoteSearchQuery:
		s.Step = StepSelectBaseNames
	}
	if s.Kind == KindDemoteAll {
		s.rebuildGrouped()
	}
}

func (s *State) rebuildGrouped() {
	keys := group.FilterByQuery(group.SortedKeys(s.OriginalGrouped), s.SearchQuery, func(k string) string { return k })
	grouped := make(map[string][]group.Group, len(keys))
	for _, k := range keys {
		grouped[k] = s.OriginalGrouped[k]
	}
	s.Grouped = grouped
}

// SelectBase enters a base name, sorting its groups and resetting selection.
func (s *State) SelectBase(name string) error {
	if s.Kind != KindDemoteAll {
		return ErrWrongKind
	}
	groups, ok := s.OriginalGrouped[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBase, name)
	}
	if err := s.Transition(StepSelectGroupsInBase); err != nil {
		return err
	}
	s.SelectedBaseName = name
	s.GroupsInBase = group.SortByName(groups)
	s.Selected.Clear()
	s.CurrentPage = 0
	return nil
}

// BackToBases leaves a base and returns to the base-name list.
func (s *State) BackToBases() error {
	if err := s.Transition(StepSelectBaseNames); err != nil {
		return err
	}
	s.SelectedBaseName = ""
	s.GroupsInBase = nil
	s.Selected.Clear()
	s.CurrentPage = 0
	return nil
}

// ToggleGroup flips a group id in the selection. Ids outside the relevant
// snapshot are rejected.
func (s *State) ToggleGroup(id string) (bool, error) {
	if _, ok := s.lookup(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownGroup, id)
	}
	return s.Selected.Toggle(id), nil
}

// SelectedGroups resolves the selection against the snapshot. Add/promote
// keeps selection order; demote keeps the sorted order of the base.
func (s *State) SelectedGroups() []group.Group {
	if s.Kind == KindDemoteAll {
		out := make([]group.Group, 0, s.Selected.Len())
		for _, g := range s.GroupsInBase {
			if s.Selected.Has(g.ID) {
				out = append(out, g)
			}
		}
		return out
	}
	out := make([]group.Group, 0, s.Selected.Len())
	for _, id := range s.Selected.IDs() {
		if g, ok := s.lookup(id); ok {
			out = append(out, g)
		}
	}
	return out
}

func (s *State) lookup(id string) (group.Group, bool) {
	pool := s.CandidateGroups
	if s.Kind == KindDemoteAll {
		pool = s.GroupsInBase
	}
	for _, g := range pool {
		if g.ID == id {
			return g, true
		}
	}
	return group.Group{}, false
}
