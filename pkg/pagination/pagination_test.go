package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("Should return a single empty page for zero items", func(t *testing.T) {
		p := New(0, 0, 8)
		assert.Equal(t, Page{StartIndex: 0, EndIndex: 0, CurrentPage: 0, TotalPages: 1}, p)
	})

	t.Run("Should clamp page into range", func(t *testing.T) {
		p := New(10, 17, 8)
		assert.Equal(t, 2, p.CurrentPage)
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, 16, p.StartIndex)
		assert.Equal(t, 17, p.EndIndex)
		assert.True(t, p.HasPrev)
		assert.False(t, p.HasNext)

		p = New(-3, 17, 8)
		assert.Equal(t, 0, p.CurrentPage)
		assert.False(t, p.HasPrev)
		assert.True(t, p.HasNext)
	})

	t.Run("Should treat non-positive page size as one", func(t *testing.T) {
		p := New(2, 5, 0)
		assert.Equal(t, 5, p.TotalPages)
		assert.Equal(t, 2, p.StartIndex)
		assert.Equal(t, 3, p.EndIndex)
	})

	t.Run("Should partition items exactly across consecutive pages", func(t *testing.T) {
		for total := 0; total <= 40; total++ {
			for size := 1; size <= 9; size++ {
				next := 0
				first := New(0, total, size)
				for page := 0; page < first.TotalPages; page++ {
					p := New(page, total, size)
					assert.Equal(t, next, p.StartIndex, "total=%d size=%d page=%d", total, size, page)
					assert.LessOrEqual(t, p.EndIndex-p.StartIndex, size)
					next = p.EndIndex
				}
				assert.Equal(t, total, next, "total=%d size=%d", total, size)
			}
		}
	})
}

func TestSlice(t *testing.T) {
	t.Run("Should return the window of items", func(t *testing.T) {
		items := []string{"a", "b", "c", "d", "e"}
		assert.Equal(t, []string{"c", "d"}, Slice(items, New(1, len(items), 2)))
		assert.Equal(t, []string{"e"}, Slice(items, New(2, len(items), 2)))
		assert.Nil(t, Slice([]string{}, New(0, 0, 2)))
	})
}
