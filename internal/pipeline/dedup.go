package pipeline

import "github.com/elliotchance/orderedmap/v2"

// DedupSet is the set of digit-only numbers seen in one run, kept in
// first-seen order. It only grows.
type DedupSet struct {
	m *orderedmap.OrderedMap[string, struct{}]
}

// NewDedupSet returns an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{m: orderedmap.NewOrderedMap[string, struct{}]()}
}

// Has reports whether digits were seen before.
func (s *DedupSet) Has(digits string) bool {
	_, ok := s.m.Get(digits)
	return ok
}

// Add registers digits and reports whether they were new.
func (s *DedupSet) Add(digits string) bool {
	return s.m.Set(digits, struct{}{})
}

// Len returns the number of distinct entries.
func (s *DedupSet) Len() int {
	return s.m.Len()
}

// Keys returns the entries in first-seen order.
func (s *DedupSet) Keys() []string {
	return s.m.Keys()
}
