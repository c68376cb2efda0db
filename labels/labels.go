// Package labels - Ordered class-name sets for detection targets.
package labels

import (
	"strconv"

	"github.com/pkg/errors"
)

// Set ties a detection target to its full ordered list of class names.
// Class index i resolves to Names[i].
type Set struct {
	// Names in class-index order.
	Names []string
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewSet builds a set from an ordered name list.
func NewSet(names []string) *Set {
	s := &Set{Names: names}
	s.buildNameIndexMap()
	return s
}

func (s *Set) buildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Names))
	for i, n := range s.Names {
		s.nameToIdx[n] = i
	}
}

// Len returns the number of configured classes. A nil set has length zero.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Names)
}

// Name returns the class name for a given index. A nil or empty set resolves
// every index to its decimal string. An index outside a configured set is an
// error, never silently coerced.
func (s *Set) Name(idx int) (string, error) {
	if s.Len() == 0 {
		return strconv.Itoa(idx), nil
	}
	if idx < 0 || idx >= len(s.Names) {
		return "", errors.Errorf("label index %d out of range for %d configured classes", idx, len(s.Names))
	}
	return s.Names[idx], nil
}

// Index returns the class index for a given name.
func (s *Set) Index(name string) (int, error) {
	if s.Len() == 0 {
		return 0, errors.New("no classes configured")
	}
	idx, ok := s.nameToIdx[name]
	if !ok {
		return 0, errors.Errorf("class %q not configured", name)
	}
	return idx, nil
}
