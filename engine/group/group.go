// Package group models remote messaging groups and derives the base-name
// clusters operators select from.
package group

import (
	"sort"
	"strings"
)

// Group is an immutable snapshot of a remote group.
type Group struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

// Role of a group administrator.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Admin is one entry of a group's admin roster.
type Admin struct {
	Key  string
	Role Role
}

// RegularAdmins returns the admins that may be demoted. Owners are never included.
func RegularAdmins(roster []Admin) []Admin {
	out := make([]Admin, 0, len(roster))
	for _, a := range roster {
		if a.Role == RoleAdmin {
			out = append(out, a)
		}
	}
	return out
}

// ExtractBaseName returns the grouping key of a display name: the bracketed
// prefix when the name starts with '[', otherwise the first word.
func ExtractBaseName(name string) string {
	trimmed := strings.TrimSpace(name)
	if strings.HasPrefix(trimmed, "[") {
		if end := strings.Index(trimmed, "]"); end > 0 {
			return trimmed[:end+1]
		}
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// GroupByBaseName clusters groups by ExtractBaseName, keeping input order
// inside each cluster.
func GroupByBaseName(groups []Group) map[string][]Group {
	out := make(map[string][]Group)
	for _, g := range groups {
		key := ExtractBaseName(g.Name)
		out[key] = append(out[key], g)
	}
	return out
}

// SortedKeys returns the map keys in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortByName returns a copy of groups ordered by name.
func SortByName(groups []Group) []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterByQuery keeps items whose key contains query, case-insensitively.
// A blank query returns items unchanged. Callers pass the original snapshot
// so that clearing a query always restores the full set.
func FilterByQuery[T any](items []T, query string, key func(T) string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(key(item)), q) {
			out = append(out, item)
		}
	}
	return out
}

// ByName is a FilterByQuery key for groups.
func ByName(g Group) string {
	return g.Name
}
