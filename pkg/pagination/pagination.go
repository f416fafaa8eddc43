// Package pagination computes page windows over ordered collections.
package pagination

// Page describes one window [StartIndex, EndIndex) of a collection.
type Page struct {
	StartIndex  int
	EndIndex    int
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
}

// New clamps page into the valid range and returns its window.
// A non-positive pageSize is treated as 1; negative inputs are treated as 0.
func New(page, totalItems, pageSize int) Page {
	if pageSize < 1 {
		pageSize = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	current := min(max(page, 0), totalPages-1)
	start := current * pageSize
	end := min(start+pageSize, totalItems)
	return Page{
		StartIndex:  start,
		EndIndex:    end,
		CurrentPage: current,
		TotalPages:  totalPages,
		HasPrev:     current > 0,
		HasNext:     current < totalPages-1,
	}
}

// Slice returns the portion of items covered by p.
func Slice[T any](items []T, p Page) []T {
	if p.StartIndex >= len(items) {
		return nil
	}
	return items[p.StartIndex:min(p.EndIndex, len(items))]
}
