package selection

import (
	"fmt"

	"cfpicker.dev/cli/internal/core/catalog"
)

// Mode is the selection capacity of a set
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeMultiple Mode = "multiple"
)

// NewMode creates a Mode with validation
func NewMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeSingle, ModeMultiple:
		return Mode(value), nil
	case "":
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("invalid selection mode: %s", value)
	}
}

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// Set is an ordered set of item keys. In single mode it holds at most one key.
// Category keys are never members.
type Set struct {
	mode  Mode
	keys  []catalog.Key
	index map[catalog.Key]int
}

// NewSet creates an empty set with the given mode
func NewSet(mode Mode) *Set {
	if mode != ModeMultiple {
		mode = ModeSingle
	}
	return &Set{
		mode:  mode,
		index: make(map[catalog.Key]int),
	}
}

// Mode returns the selection mode
func (s *Set) Mode() Mode {
	return s.mode
}

// Toggle flips membership of key and reports whether it is selected afterwards.
// In single mode selecting a key replaces the previous one.
func (s *Set) Toggle(key catalog.Key) (bool, error) {
	if key.IsZero() {
		return false, fmt.Errorf("cannot select an empty key")
	}
	if key.IsCategory() {
		return false, fmt.Errorf("categories cannot be selected: %s", key)
	}

	if s.Contains(key) {
		s.remove(key)
		return false, nil
	}

	if s.mode == ModeSingle {
		s.Clear()
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	return true, nil
}

// Contains reports membership of key
func (s *Set) Contains(key catalog.Key) bool {
	_, ok := s.index[key]
	return ok
}

// Keys returns a copy of the selected keys in selection order
func (s *Set) Keys() []catalog.Key {
	keys := make([]catalog.Key, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of selected keys
func (s *Set) Len() int {
	return len(s.keys)
}

// Clear removes all keys
func (s *Set) Clear() {
	s.keys = nil
	s.index = make(map[catalog.Key]int)
}

func (s *Set) remove(key catalog.Key) {
	i := s.index[key]
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.keys); j++ {
		s.index[s.keys[j]] = j
	}
}
