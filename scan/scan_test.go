package scan

import (
	"context"
	"testing"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/paradedb-core/searchcore/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	hits []index.Hit
	pos  int
}

func (s *fakeStream) Next(ctx context.Context) (index.Hit, bool, error) {
	if s.pos >= len(s.hits) {
		return index.Hit{}, false, nil
	}
	h := s.hits[s.pos]
	s.pos++
	return h, true, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeReader struct {
	hits []index.Hit
}

func (r *fakeReader) IterCollect(ctx context.Context, limit int) (index.Stream, error) {
	return &fakeStream{hits: r.hits}, nil
}

func (r *fakeReader) IterTopN(ctx context.Context, n int, orderBy []index.OrderBy) (index.Stream, error) {
	hits := r.hits
	if n < len(hits) {
		hits = hits[:n]
	}
	return &fakeStream{hits: hits}, nil
}

func (r *fakeReader) SnippetGenerator(field schema.FieldName, query algebra.SearchQueryInput) (index.Generator, error) {
	return nil, nil
}

func (r *fakeReader) Close() error { return nil }

type fakeIndex struct {
	reader *fakeReader
	schema *schema.Handle
}

func (f *fakeIndex) Open(ctx context.Context, query algebra.SearchQueryInput, needScores bool, visibility index.MvccPolicy) (index.Reader, error) {
	return f.reader, nil
}

func (f *fakeIndex) EstimateSelectivity(query algebra.SearchQueryInput) (float64, error) {
	return 0.5, nil
}

func (f *fakeIndex) BuildQueryTreeWithEstimates(query algebra.SearchQueryInput) (index.PrintableTree, error) {
	return index.PrintableTree{Label: "fake"}, nil
}

func (f *fakeIndex) Schema() *schema.Handle { return f.schema }

type fakeHeap struct {
	headers map[index.RowID]visibility.TupleHeader
}

func (h *fakeHeap) Fetch(row index.RowID) (visibility.TupleHeader, bool) {
	hdr, ok := h.headers[row]
	return hdr, ok
}

func (h *fakeHeap) AllVisible(row index.RowID) bool { return false }

func TestDriverLifecycleNormal(t *testing.T) {
	rowA := index.RowID{Block: 1}
	rowB := index.RowID{Block: 2}
	idx := &fakeIndex{reader: &fakeReader{hits: []index.Hit{
		{RowID: rowA, Score: 1.5},
		{RowID: rowB, Score: 0.3},
	}}}
	heap := &fakeHeap{headers: map[index.RowID]visibility.TupleHeader{
		rowA: {Xmin: 1},
		rowB: {Xmin: 1},
	}}

	priv := PrivateData{
		Query:          algebra.All{},
		ExecMethodType: MethodNormal,
		NeedScore:      true,
		TargetList:     []Column{{OutputName: "score", IsScore: true}},
	}
	d := NewDriver(idx, heap, priv, Options{})
	require.NoError(t, d.Begin(visibility.Snapshot{Xmax: 10}, false))
	require.NoError(t, d.InitSearchReader(context.Background(), nil))
	assert.Equal(t, Open, d.State())

	row, err := d.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, float32(1.5), row["score"])

	row, err = d.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, float32(0.3), row["score"])

	row, err = d.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Equal(t, Exhausted, d.State())
	assert.Equal(t, 2, d.RowsEmitted())

	require.NoError(t, d.End())
	assert.Equal(t, Ended, d.State())
}

func TestDriverSkipsInvisibleRows(t *testing.T) {
	visible := index.RowID{Block: 1}
	deleted := index.RowID{Block: 2}
	idx := &fakeIndex{reader: &fakeReader{hits: []index.Hit{
		{RowID: deleted, Score: 1},
		{RowID: visible, Score: 1},
	}}}
	heap := &fakeHeap{headers: map[index.RowID]visibility.TupleHeader{
		deleted: {Xmin: 1, Deleted: true},
		visible: {Xmin: 1},
	}}

	priv := PrivateData{Query: algebra.All{}, ExecMethodType: MethodNormal}
	d := NewDriver(idx, heap, priv, Options{})
	require.NoError(t, d.Begin(visibility.Snapshot{Xmax: 10}, false))
	require.NoError(t, d.InitSearchReader(context.Background(), nil))

	row, err := d.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)

	row, err = d.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestPrivateDataSerializeRoundTrip(t *testing.T) {
	limit := 10
	priv := PrivateData{
		HeapOID:  1,
		IndexOID: 2,
		Query:    algebra.FieldedQuery{Field: "body", Inner: algebra.Term{Value: "shoes"}},
		Limit:    &limit,
		OrderByInfo: []index.OrderBy{
			{Feature: index.Feature{Field: "rating"}, Direction: index.Descending},
		},
		ExecMethodType:    MethodTopN,
		PlannedFastFields: map[schema.FieldName]bool{"rating": true},
		AmbulkdeleteEpoch: 7,
	}
	s, err := Serialize(priv)
	require.NoError(t, err)

	back, err := Deserialize(s)
	require.NoError(t, err)
	assert.Equal(t, priv.HeapOID, back.HeapOID)
	assert.Equal(t, priv.IndexOID, back.IndexOID)
	assert.Equal(t, *priv.Limit, *back.Limit)
	assert.Equal(t, priv.ExecMethodType, back.ExecMethodType)
	assert.Equal(t, priv.AmbulkdeleteEpoch, back.AmbulkdeleteEpoch)
	assert.True(t, back.PlannedFastFields["rating"])

	s2, err := Serialize(back)
	require.NoError(t, err)
	assert.Equal(t, s, s2, "round-tripped PrivateData must reserialize identically")
}

func TestEstimateWorkersDisabledByExternalParams(t *testing.T) {
	assert.Equal(t, 0, EstimateWorkers(100_000, 8, true, 4))
}

func TestEstimateWorkersCapsAtSegments(t *testing.T) {
	workers := EstimateWorkers(1_000_000, 2, false, 8)
	assert.LessOrEqual(t, workers, 2)
}
