// Package names interns strings into small, stable integer identifiers.
//
// All other packages in this module refer to circuit names — device names,
// pin names and reserved keywords alike — by ID rather than by string, so
// that a single integer comparison suffices wherever identity matters.
package names

import (
	"fmt"
)

// ID identifies an interned string. IDs are assigned densely from zero in
// order of first lookup and remain stable for the lifetime of the Table
// that issued them.
type ID int

// NoID is the sentinel returned by Query for an unknown string.
const NoID ID = -1

// RangeError reports a negative ID passed to Table.Name.
type RangeError struct {
	ID ID
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("names: id %d is negative", int(e.ID))
}

// Keywords lists the reserved vocabulary in the exact order Table assigns
// IDs to them when constructed with NewWithKeywords, so that keyword
// recognition collapses to a single bounds check (invariant I5).
var Keywords = []string{
	"CIRCUIT", "DEVICES", "CONNECT", "MONITOR", "END",
	"CLOCK", "SWITCH", "AND", "NAND", "OR", "NOR", "XOR", "NOT", "DTYPE",
}

// Table is a dual hash-map/slice interning table: O(1) string-to-ID and
// ID-to-string lookup with stable identifiers (invariant I1).
//
// A Table is not safe for concurrent use. The simulation pipeline is
// single-threaded end to end (spec §5) and owns one Table for its whole
// lifetime.
type Table struct {
	byString map[string]ID
	byID     []string
}

// New returns an empty Table.
func New() *Table {
	return &Table{byString: make(map[string]ID)}
}

// NewWithKeywords returns a Table with Keywords pre-interned, so that their
// IDs occupy the fixed prefix [0, len(Keywords)).
func NewWithKeywords() *Table {
	t := New()
	t.InternMany(Keywords)
	return t
}

// Intern returns the ID for s, assigning a fresh one if s is unknown.
func (t *Table) Intern(s string) ID {
	if id, ok := t.byString[s]; ok {
		return id
	}
	id := ID(len(t.byID))
	t.byString[s] = id
	t.byID = append(t.byID, s)
	return id
}

// InternMany interns every string in ss, preserving order.
func (t *Table) InternMany(ss []string) []ID {
	ids := make([]ID, len(ss))
	for i, s := range ss {
		ids[i] = t.Intern(s)
	}
	return ids
}

// Query returns the ID of s, or NoID if s was never interned. Query never
// mutates the Table.
func (t *Table) Query(s string) ID {
	if id, ok := t.byString[s]; ok {
		return id
	}
	return NoID
}

// Name returns the string for id. An id at or beyond the number of interned
// strings returns "" with a nil error — the "absent sentinel" of spec §4.1 —
// since every name the scanner ever interns is non-empty. A negative id
// fails with a *RangeError instead, matching the spec's "TypeMismatch for a
// non-integer, RangeError for id < 0" split: Go's static typing on ID makes
// the TypeMismatch case unreachable, so only RangeError survives.
func (t *Table) Name(id ID) (string, error) {
	if id < 0 {
		return "", &RangeError{ID: id}
	}
	if int(id) >= len(t.byID) {
		return "", nil
	}
	return t.byID[id], nil
}

// IsKeyword reports whether id names a reserved keyword (invariant I5).
func IsKeyword(id ID) bool {
	return id >= 0 && int(id) < len(Keywords)
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	return len(t.byID)
}
