// Package visibility implements V: the MVCC visibility check X consults
// before projecting a candidate row. The real host's
// buffer manager, tuple headers, and visibility map are external
// collaborators; this package models the contract and a reference
// in-memory implementation usable by tests and the demo CLI, grounded on
// datalog/storage/matcher.go's per-candidate-row filter pattern.
package visibility

import (
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// Snapshot is the minimal MVCC snapshot contract: a row is visible to
// this snapshot if its creating transaction is at or before Xmax and not
// itself one of the in-flight exceptions.
type Snapshot struct {
	Xmax       uint64
	InProgress map[uint64]bool
}

func (s Snapshot) sees(xmin uint64) bool {
	if xmin > s.Xmax {
		return false
	}
	return !s.InProgress[xmin]
}

// TupleHeader is the per-row metadata a real heap page stores; Deleted
// rows (xmax set and committed) are never visible regardless of xmin.
// Values carries the tuple's decoded field values, the same slot-deformed
// form a real heap access method would return, letting a HeapFilter's
// residual be evaluated against the row once it is known visible.
type TupleHeader struct {
	Xmin    uint64
	Xmax    uint64
	Deleted bool
	Values  map[schema.FieldName]any
}

// Value implements algebra.RowValues over a tuple's decoded fields.
func (h TupleHeader) Value(field schema.FieldName) (any, bool) {
	v, ok := h.Values[field]
	return v, ok
}

// Heap is the storage collaborator V reads tuple headers from. A row-id
// pointing to a recycled page returns ok=false, not an error.
type Heap interface {
	Fetch(row index.RowID) (TupleHeader, bool)
	// AllVisible reports whether row's page is marked all-visible in the
	// relation's visibility map, letting ExecIfVisible skip the tuple
	// header check entirely.
	AllVisible(row index.RowID) bool
}

// Checker is V's contract: With binds one heap to one snapshot.
type Checker struct {
	heap     Heap
	snapshot Snapshot
}

// With builds a Checker for one scan's duration.
func With(heap Heap, snapshot Snapshot) Checker {
	return Checker{heap: heap, snapshot: snapshot}
}

// ExecIfVisible locks (conceptually — Heap is expected to handle its own
// locking) the tuple, applies the snapshot's visibility rules, and if
// visible invokes onHit with the tuple header. onHit reports its own
// ok, letting a caller decline the row after inspecting its values (e.g.
// a HeapFilter residual that the row doesn't satisfy) without V needing
// to know anything about that predicate. ExecIfVisible returns ok=false
// without distinguishing "not visible", "row-id points at a recycled
// page", and "onHit declined" — none of these are errors.
func (c Checker) ExecIfVisible(row index.RowID, onHit func(TupleHeader) (any, bool)) (any, bool) {
	if c.heap.AllVisible(row) {
		header, ok := c.heap.Fetch(row)
		if !ok {
			return nil, false
		}
		return onHit(header)
	}
	header, ok := c.heap.Fetch(row)
	if !ok {
		return nil, false
	}
	if header.Deleted {
		return nil, false
	}
	if !c.snapshot.sees(header.Xmin) {
		return nil, false
	}
	return onHit(header)
}
