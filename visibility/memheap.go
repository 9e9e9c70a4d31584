package visibility

import (
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// MemHeap is a reference Heap for tests and the demo CLI: a plain map
// keyed by RowID, with an explicit all-visible set. It is not meant to
// model real buffer-manager locking, only the Heap contract's shape.
type MemHeap struct {
	rows       map[index.RowID]TupleHeader
	allVisible map[index.RowID]bool
}

// NewMemHeap builds an empty reference heap.
func NewMemHeap() *MemHeap {
	return &MemHeap{rows: make(map[index.RowID]TupleHeader), allVisible: make(map[index.RowID]bool)}
}

// Insert records row as visible from xmin onward, with no stored field
// values (use InsertWithValues when a test needs heap-residual evaluation
// to see real column data).
func (h *MemHeap) Insert(row index.RowID, xmin uint64) {
	h.rows[row] = TupleHeader{Xmin: xmin}
}

// InsertWithValues records row as visible from xmin onward, carrying
// values for HeapFilter residual evaluation.
func (h *MemHeap) InsertWithValues(row index.RowID, xmin uint64, values map[schema.FieldName]any) {
	h.rows[row] = TupleHeader{Xmin: xmin, Values: values}
}

// Delete marks row as deleted as of xmax.
func (h *MemHeap) Delete(row index.RowID, xmax uint64) {
	t := h.rows[row]
	t.Xmax = xmax
	t.Deleted = true
	h.rows[row] = t
}

// MarkAllVisible flags row's page as all-visible, skipping the snapshot
// check in Checker.ExecIfVisible.
func (h *MemHeap) MarkAllVisible(row index.RowID) { h.allVisible[row] = true }

// Recycle removes row entirely, simulating a page reused for something
// else — ExecIfVisible must treat this as "not visible", not an error.
func (h *MemHeap) Recycle(row index.RowID) { delete(h.rows, row) }

func (h *MemHeap) Fetch(row index.RowID) (TupleHeader, bool) {
	t, ok := h.rows[row]
	return t, ok
}

func (h *MemHeap) AllVisible(row index.RowID) bool { return h.allVisible[row] }
