package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/groupops/engine/group"
)

func sampleGroups() []group.Group {
	return []group.Group{
		{ID: "g1", Name: "[AGODA] Sales", IsAdmin: true},
		{ID: "g2", Name: "[AGODA] Ops", IsAdmin: false},
		{ID: "g3", Name: "[AGODA] Finance", IsAdmin: true},
		{ID: "g4", Name: "AJ Marketing", IsAdmin: true},
	}
}

func TestTransitions(t *testing.T) {
	t.Run("Should allow the add/promote happy path", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		require.NoError(t, s.Transition(StepWaitingSearchQuery))
		require.NoError(t, s.Transition(StepSelectGroups))
		require.NoError(t, s.Transition(StepWaitingAdminNumbers))
		require.NoError(t, s.Transition(StepConfirm))
		require.NoError(t, s.Transition(StepExecuting))
		assert.True(t, s.IsExecuting())
	})

	t.Run("Should reject steps of the other flow kind", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		err := s.Transition(StepSelectGroupsInBase)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StepSelectGroups, s.Step)
	})

	t.Run("Should reject leaving executing", func(t *testing.T) {
		s := NewDemoteAll(sampleGroups())
		s.Step = StepExecuting
		assert.ErrorIs(t, s.Transition(StepSelectBaseNames), ErrInvalidTransition)
	})

	t.Run("Should skip confirm only through selection", func(t *testing.T) {
		assert.False(t, CanTransition(KindDemoteAll, StepSelectBaseNames, StepConfirm))
		assert.True(t, CanTransition(KindDemoteAll, StepSelectGroupsInBase, StepConfirm))
	})
}

func TestListSteps(t *testing.T) {
	t.Run("Should list only the selection steps of each kind", func(t *testing.T) {
		assert.True(t, KindAddPromote.Lists(StepSelectGroups))
		assert.False(t, KindAddPromote.Lists(StepSelectBaseNames))
		assert.True(t, KindDemoteAll.Lists(StepSelectBaseNames))
		assert.True(t, KindDemoteAll.Lists(StepSelectGroupsInBase))
		assert.False(t, KindDemoteAll.Lists(StepSelectGroups))
		for _, step := range []Step{StepConfirm, StepExecuting, StepWaitingSearchQuery, StepWaitingAdminNumbers} {
			assert.False(t, IsListStep(step), string(step))
		}
	})
}

func TestToggleGroup(t *testing.T) {
	t.Run("Should be idempotent when toggled twice", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		_, err := s.ToggleGroup("g1")
		require.NoError(t, err)
		before := s.Selected.IDs()
		on, err := s.ToggleGroup("g3")
		require.NoError(t, err)
		assert.True(t, on)
		on, err = s.ToggleGroup("g3")
		require.NoError(t, err)
		assert.False(t, on)
		assert.ElementsMatch(t, before, s.Selected.IDs())
	})

	t.Run("Should reject ids outside the snapshot", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		_, err := s.ToggleGroup("missing")
		assert.ErrorIs(t, err, ErrUnknownGroup)
		assert.Equal(t, 0, s.Selected.Len())
	})

	t.Run("Should keep selection order for add/promote", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		for _, id := range []string{"g4", "g1", "g3"} {
			_, err := s.ToggleGroup(id)
			require.NoError(t, err)
		}
		got := s.SelectedGroups()
		require.Len(t, got, 3)
		assert.Equal(t, []string{"g4", "g1", "g3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})
}

func TestDemoteFlow(t *testing.T) {
	t.Run("Should sort base groups and reset selection on entry", func(t *testing.T) {
		s := NewDemoteAll(sampleGroups())
		assert.Equal(t, []string{"AJ", "[AGODA]"}, s.VisibleBaseNames())
		require.NoError(t, s.SelectBase("[AGODA]"))
		assert.Equal(t, StepSelectGroupsInBase, s.Step)
		names := []string{}
		for _, g := range s.GroupsInBase {
			names = append(names, g.Name)
		}
		assert.Equal(t, []string{"[AGODA] Finance", "[AGODA] Ops", "[AGODA] Sales"}, names)

		_, err := s.ToggleGroup("g4")
		assert.ErrorIs(t, err, ErrUnknownGroup)
		_, err = s.ToggleGroup("g1")
		require.NoError(t, err)
		_, err = s.ToggleGroup("g3")
		require.NoError(t, err)
		selected := s.SelectedGroups()
		assert.Equal(t, "g3", selected[0].ID)
		assert.Equal(t, "g1", selected[1].ID)

		require.NoError(t, s.BackToBases())
		assert.Equal(t, 0, s.Selected.Len())
	})

	t.Run("Should filter base names from the original snapshot", func(t *testing.T) {
		s := NewDemoteAll(sampleGroups())
		require.NoError(t, s.Transition(StepWaitingDemoteSearchQuery))
		require.NoError(t, s.SetSearch("aj"))
		assert.Equal(t, []string{"AJ"}, s.VisibleBaseNames())
		assert.Len(t, s.OriginalGrouped, 2)

		require.NoError(t, s.Transition(StepWaitingDemoteSearchQuery))
		require.NoError(t, s.SetSearch("agoda"))
		assert.Equal(t, []string{"[AGODA]"}, s.VisibleBaseNames())

		s.ResetSearch()
		assert.Equal(t, []string{"AJ", "[AGODA]"}, s.VisibleBaseNames())
	})

	t.Run("Should keep the original snapshot independent of the working copy", func(t *testing.T) {
		s := NewDemoteAll(sampleGroups())
		s.Grouped["AJ"][0].Name = "mutated"
		assert.Equal(t, "AJ Marketing", s.OriginalGrouped["AJ"][0].Name)
	})
}

func TestSearch(t *testing.T) {
	t.Run("Should reset page and filter candidates", func(t *testing.T) {
		s := NewAddPromote(sampleGroups())
		s.CurrentPage = 3
		require.NoError(t, s.Transition(StepWaitingSearchQuery))
		require.NoError(t, s.SetSearch("sales"))
		assert.Equal(t, 0, s.CurrentPage)
		assert.Equal(t, StepSelectGroups, s.Step)
		assert.Len(t, s.VisibleGroups(), 1)
		s.ResetSearch()
		assert.Len(t, s.VisibleGroups(), 4)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("Should replace and clear per operator", func(t *testing.T) {
		store := NewMemoryStore()
		first := NewAddPromote(nil)
		second := NewDemoteAll(nil)
		store.Put(1, first)
		store.Put(1, second)
		got, ok := store.Get(1)
		require.True(t, ok)
		assert.Same(t, second, got)
		assert.Equal(t, 1, store.Len())
		store.Clear(1)
		_, ok = store.Get(1)
		assert.False(t, ok)
	})
}
