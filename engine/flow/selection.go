package flow

// Selection is a set of group ids that iterates in insertion order.
type Selection struct {
	order []string
	index map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

// Toggle adds id when absent and removes it when present. It returns
// whether id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.index[id]; ok {
		delete(s.index, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *Selection) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.order)
}

// IDs returns a copy of the selected ids in insertion order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Selection) Clear() {
	s.order = nil
	s.index = make(map[string]struct{})
}
