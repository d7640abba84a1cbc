package ingest

import (
	"errors"
	"fmt"
)

// Role is the position of a file in the hierarchy pipeline.
type Role string

const (
	RoleProgram     Role = "program"
	RoleActivity    Role = "activity"
	RoleSubActivity Role = "sub_activity"
)

// Roles returns the three roles in hierarchy order.
func Roles() []Role {
	return []Role{RoleProgram, RoleActivity, RoleSubActivity}
}

// ErrUnknownRole is returned by ParseRole.
var ErrUnknownRole = errors.New("unknown slot")

// ParseRole converts a slot name into a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// SlotNames maps each role to the exact file name it accepts.
type SlotNames struct {
	Program     string
	Activity    string
	SubActivity string
}

// DefaultSlotNames returns the names produced by the budgeting system export.
func DefaultSlotNames() SlotNames {
	return SlotNames{
		Program:     "data_program.json",
		Activity:    "data_kegiatan.json",
		SubActivity: "data_sub_kegiatan.json",
	}
}

func (n SlotNames) of(r Role) string {
	switch r {
	case RoleProgram:
		return n.Program
	case RoleActivity:
		return n.Activity
	default:
		return n.SubActivity
	}
}

// SlotEntry is one filled slot.
type SlotEntry struct {
	Role Role
	File *File
}

// Slots holds at most one file per hierarchy role.
type Slots struct {
	names  SlotNames
	byName map[string]Role
	files  map[Role]*File
}

// NewSlots creates an empty slot map accepting the given names.
func NewSlots(names SlotNames) *Slots {
	s := &Slots{
		names:  names,
		byName: make(map[string]Role),
		files:  make(map[Role]*File),
	}
	for _, r := range Roles() {
		s.byName[names.of(r)] = r
	}
	return s
}

// Add stores f in the slot its name designates, replacing any earlier file
// with that name.
//
// RETURNS:
//   - The role the file was stored under.
//   - A *RejectError (RejectMIME or RejectName) when the file is refused.
func (s *Slots) Add(f *File) (Role, error) {
	if err := checkMIME(f); err != nil {
		return "", err
	}

	role, ok := s.byName[f.Name]
	if !ok {
		return "", &RejectError{Kind: RejectName, File: f.Name, Expected: s.Expected()}
	}

	s.files[role] = f
	return role, nil
}

// Remove clears a slot. It reports whether the slot was filled.
func (s *Slots) Remove(r Role) bool {
	_, ok := s.files[r]
	delete(s.files, r)
	return ok
}

// Get returns the file in a slot, or nil.
func (s *Slots) Get(r Role) *File {
	return s.files[r]
}

// Ready reports whether all three slots are filled.
func (s *Slots) Ready() bool {
	for _, r := range Roles() {
		if s.files[r] == nil {
			return false
		}
	}
	return true
}

// Entries returns the filled slots in hierarchy order.
func (s *Slots) Entries() []SlotEntry {
	var out []SlotEntry
	for _, r := range Roles() {
		if f := s.files[r]; f != nil {
			out = append(out, SlotEntry{Role: r, File: f})
		}
	}
	return out
}

// Missing returns the file names of the empty slots.
func (s *Slots) Missing() []string {
	var out []string
	for _, r := range Roles() {
		if s.files[r] == nil {
			out = append(out, s.names.of(r))
		}
	}
	return out
}

// Expected returns the three accepted file names.
func (s *Slots) Expected() []string {
	out := make([]string, 0, 3)
	for _, r := range Roles() {
		out = append(out, s.names.of(r))
	}
	return out
}
