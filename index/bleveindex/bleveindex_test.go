package bleveindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

func testSchema(t *testing.T) *schema.Handle {
	h, err := schema.Open(1, []schema.SearchField{
		{Name: "title", Type: schema.TypeStr, IsFast: true, Stored: true},
		{Name: "rating", Type: schema.TypeI64, IsFast: true, Stored: true},
	})
	require.NoError(t, err)
	return h
}

func TestPutAndIterCollect(t *testing.T) {
	ix, err := Open(testSchema(t))
	require.NoError(t, err)

	require.NoError(t, ix.Put(index.RowID{Block: 1, Offset: 1}, map[string]any{"title": "the quick fox", "rating": int64(5)}))
	require.NoError(t, ix.Put(index.RowID{Block: 1, Offset: 2}, map[string]any{"title": "a slow turtle", "rating": int64(2)}))

	reader, err := ix.Open(context.Background(), algebra.FieldedQuery{Field: "title", Inner: algebra.Term{Value: "fox"}}, true, index.MvccPolicy{Kind: index.Snapshot})
	require.NoError(t, err)
	defer reader.Close()

	stream, err := reader.IterCollect(context.Background(), 10)
	require.NoError(t, err)
	defer stream.Close()

	hit, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, index.RowID{Block: 1, Offset: 1}, hit.RowID)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEstimateSelectivity(t *testing.T) {
	ix, err := Open(testSchema(t))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		title := "fox"
		if i%2 == 0 {
			title = "turtle"
		}
		require.NoError(t, ix.Put(index.RowID{Block: 1, Offset: uint16(i)}, map[string]any{"title": title, "rating": int64(i)}))
	}
	sel, err := ix.EstimateSelectivity(algebra.FieldedQuery{Field: "title", Inner: algebra.Term{Value: "fox"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sel, 0.01)
}

func TestIterTopNOrdersByFastField(t *testing.T) {
	ix, err := Open(testSchema(t))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, ix.Put(index.RowID{Block: 1, Offset: uint16(i)}, map[string]any{"title": "fox", "rating": int64(i)}))
	}
	reader, err := ix.Open(context.Background(), algebra.FieldedQuery{Field: "title", Inner: algebra.Term{Value: "fox"}}, false, index.MvccPolicy{Kind: index.Snapshot})
	require.NoError(t, err)
	defer reader.Close()

	stream, err := reader.IterTopN(context.Background(), 3, []index.OrderBy{
		{Feature: index.Feature{Field: "rating"}, Direction: index.Descending},
	})
	require.NoError(t, err)
	defer stream.Close()

	var rows []index.RowID
	for {
		hit, ok, err := stream.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, hit.RowID)
	}
	require.Len(t, rows, 3)
	assert.Equal(t, uint16(4), rows[0].Offset)
}

func TestBuildQueryTreeWithEstimates(t *testing.T) {
	ix, err := Open(testSchema(t))
	require.NoError(t, err)
	require.NoError(t, ix.Put(index.RowID{Block: 1, Offset: 1}, map[string]any{"title": "fox", "rating": int64(1)}))

	q := algebra.Boolean{Must: []algebra.SearchQueryInput{
		algebra.FieldedQuery{Field: "title", Inner: algebra.Term{Value: "fox"}},
	}}
	tree, err := ix.BuildQueryTreeWithEstimates(q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tree.EstimatedHits)
	require.Len(t, tree.Children, 1)
}
