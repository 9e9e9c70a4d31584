package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

func TestExecIfVisibleSeesCommittedRow(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.Insert(row, 10)

	c := With(heap, Snapshot{Xmax: 20})
	out, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h.Xmin, true })
	require.True(t, ok)
	assert.Equal(t, uint64(10), out)
}

func TestExecIfVisibleHidesFutureRow(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.Insert(row, 30)

	c := With(heap, Snapshot{Xmax: 20})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h, true })
	assert.False(t, ok)
}

func TestExecIfVisibleHidesInProgressRow(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.Insert(row, 15)

	c := With(heap, Snapshot{Xmax: 20, InProgress: map[uint64]bool{15: true}})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h, true })
	assert.False(t, ok)
}

func TestExecIfVisibleHidesDeletedRow(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.Insert(row, 10)
	heap.Delete(row, 15)

	c := With(heap, Snapshot{Xmax: 20})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h, true })
	assert.False(t, ok)
}

func TestExecIfVisibleRecycledPageReturnsNoneWithoutError(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 9, Offset: 9}
	heap.Recycle(row) // never inserted: simulates a recycled page

	c := With(heap, Snapshot{Xmax: 20})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h, true })
	assert.False(t, ok)
}

func TestExecIfVisibleHonorsOnHitDecline(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.InsertWithValues(row, 10, map[schema.FieldName]any{"price": 10.0})

	c := With(heap, Snapshot{Xmax: 20})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) {
		price, _ := h.Value("price")
		return nil, price.(float64) > 20
	})
	assert.False(t, ok, "onHit declining a visible row must still report ok=false")
}

func TestExecIfVisibleAllVisibleFastPathSkipsSnapshot(t *testing.T) {
	heap := NewMemHeap()
	row := index.RowID{Block: 1, Offset: 1}
	heap.Insert(row, 999) // would normally be invisible to this snapshot
	heap.MarkAllVisible(row)

	c := With(heap, Snapshot{Xmax: 20})
	_, ok := c.ExecIfVisible(row, func(h TupleHeader) (any, bool) { return h, true })
	assert.True(t, ok, "an all-visible page bypasses the snapshot check entirely")
}
