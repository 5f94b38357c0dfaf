// Package menu holds the boot menu entries and the current selection.
package menu

import (
	"neoboot/internal/bootcfg"
)

// Entry is one selectable boot target.
type Entry struct {
	Name     string
	Selected bool
	// Config is the configuration the entry came from, if any.
	Config *bootcfg.Table
	// Disk and Partition locate the partition the entry came from; both are
	// -1 for configuration entries.
	Disk      int
	Partition int
}

// FromConfig reports whether the entry was built from the configuration.
func (e Entry) FromConfig() bool {
	return e.Config != nil
}

// State is the list of entries with exactly one of them selected whenever
// the list is non-empty.
type State struct {
	entries  []Entry
	selected int
}

// New returns a State over entries with the first one selected.
func New(entries []Entry) *State {
	s := &State{entries: append([]Entry(nil), entries...)}
	s.Select(0)
	return s
}

// Add appends an entry. The selection does not move.
func (s *State) Add(e Entry) {
	e.Selected = false
	s.entries = append(s.entries, e)
	if len(s.entries) == 1 {
		s.Select(0)
	}
}

// Len returns the number of entries.
func (s *State) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries.
func (s *State) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// SelectedIndex returns the index of the selected entry. It is 0 for an
// empty menu.
func (s *State) SelectedIndex() int {
	return s.selected
}

// Selected returns the selected entry.
func (s *State) Selected() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[s.selected], true
}

// Select moves the selection to i, clamped to the valid range.
func (s *State) Select(i int) {
	if len(s.entries) == 0 {
		s.selected = 0
		return
	}
	i = max(0, min(i, len(s.entries)-1))
	for j := range s.entries {
		s.entries[j].Selected = j == i
	}
	s.selected = i
}

// Up moves the selection one entry up and reports whether it moved.
func (s *State) Up() bool {
	if s.selected == 0 {
		return false
	}
	s.Select(s.selected - 1)
	return true
}

// Down moves the selection one entry down and reports whether it moved.
func (s *State) Down() bool {
	if s.selected >= len(s.entries)-1 {
		return false
	}
	s.Select(s.selected + 1)
	return true
}
