package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBaseName(t *testing.T) {
	cases := map[string]string{
		"[AGODA] Sales Team": "[AGODA]",
		"AJ Marketing":       "AJ",
		"[X]":                "[X]",
		"[open bracket only": "[open",
		"  Solo  ":           "Solo",
		"":                   "",
	}
	for in, want := range cases {
		t.Run("Should derive base name of "+in, func(t *testing.T) {
			assert.Equal(t, want, ExtractBaseName(in))
		})
	}
}

func TestGroupByBaseName(t *testing.T) {
	t.Run("Should cluster groups and keep input order", func(t *testing.T) {
		groups := []Group{
			{ID: "1", Name: "[AGODA] Sales"},
			{ID: "2", Name: "AJ Marketing"},
			{ID: "3", Name: "[AGODA] Ops"},
		}
		got := GroupByBaseName(groups)
		assert.Equal(t, []string{"AJ", "[AGODA]"}, SortedKeys(got))
		assert.Equal(t, []Group{groups[0], groups[2]}, got["[AGODA]"])
	})
}

func TestSortByName(t *testing.T) {
	t.Run("Should sort a copy without touching the input", func(t *testing.T) {
		in := []Group{{ID: "b", Name: "Beta"}, {ID: "a", Name: "Alpha"}}
		out := SortByName(in)
		assert.Equal(t, "Alpha", out[0].Name)
		assert.Equal(t, "Beta", in[0].Name)
	})
}

func TestFilterByQuery(t *testing.T) {
	items := []Group{{ID: "1", Name: "Alpha"}, {ID: "2", Name: "beta"}, {ID: "3", Name: "Gamma"}}

	t.Run("Should match case-insensitively", func(t *testing.T) {
		got := FilterByQuery(items, "A", ByName)
		assert.Len(t, got, 3)
		got = FilterByQuery(items, "BET", ByName)
		assert.Equal(t, []Group{items[1]}, got)
	})

	t.Run("Should return input unchanged for blank query", func(t *testing.T) {
		assert.Equal(t, items, FilterByQuery(items, "  ", ByName))
	})

	t.Run("Should restore the full set when re-derived from the snapshot", func(t *testing.T) {
		filtered := FilterByQuery(items, "gam", ByName)
		assert.Len(t, filtered, 1)
		assert.Equal(t, items, FilterByQuery(items, "", ByName))
	})
}

func TestRegularAdmins(t *testing.T) {
	t.Run("Should exclude owners", func(t *testing.T) {
		roster := []Admin{{Key: "o", Role: RoleOwner}, {Key: "a1", Role: RoleAdmin}, {Key: "a2", Role: RoleAdmin}}
		assert.Equal(t, []Admin{roster[1], roster[2]}, RegularAdmins(roster))
	})
}
