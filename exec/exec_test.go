package exec

import (
	"context"
	"testing"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	hits []index.Hit
	pos  int
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) (index.Hit, bool, error) {
	if s.pos >= len(s.hits) {
		return index.Hit{}, false, nil
	}
	h := s.hits[s.pos]
	s.pos++
	return h, true, nil
}

func (s *fakeStream) Close() error { s.closed = true; return nil }

type fakeReader struct {
	collect []index.Hit
	topn    []index.Hit
	topnCalls int
	lastTopN  int
}

func (r *fakeReader) IterCollect(ctx context.Context, limit int) (index.Stream, error) {
	return &fakeStream{hits: r.collect}, nil
}

func (r *fakeReader) IterTopN(ctx context.Context, n int, orderBy []index.OrderBy) (index.Stream, error) {
	r.topnCalls++
	r.lastTopN = n
	hits := r.topn
	if n < len(hits) {
		hits = hits[:n]
	}
	return &fakeStream{hits: hits}, nil
}

func (r *fakeReader) SnippetGenerator(field schema.FieldName, query algebra.SearchQueryInput) (index.Generator, error) {
	return nil, nil
}

func (r *fakeReader) Close() error { return nil }

func TestNormalDrainsToEof(t *testing.T) {
	r := &fakeReader{collect: []index.Hit{{RowID: index.RowID{Block: 1}}, {RowID: index.RowID{Block: 2}}}}
	n, err := NewNormal(context.Background(), r)
	require.NoError(t, err)

	first, err := n.Next(context.Background())
	require.NoError(t, err)
	assert.IsType(t, RequiresVisibilityCheck{}, first)

	_, err = n.Next(context.Background())
	require.NoError(t, err)

	last, err := n.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Eof{}, last)
	assert.Equal(t, 1, n.QueriesIssued())
}

func TestTopNRetryExpandsBatch(t *testing.T) {
	hits := make([]index.Hit, 3)
	for i := range hits {
		hits[i] = index.Hit{RowID: index.RowID{Block: uint32(i)}}
	}
	r := &fakeReader{topn: hits}
	tn, err := NewTopN(context.Background(), r, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.topnCalls)
	assert.Equal(t, 2+topNOverfetch, r.lastTopN)

	require.NoError(t, tn.Retry(context.Background(), 5))
	assert.Equal(t, 2, r.topnCalls)
	assert.Equal(t, 5+topNOverfetch, r.lastTopN)
	assert.Equal(t, 2, tn.QueriesIssued())

	state, err := tn.Next(context.Background())
	require.NoError(t, err)
	assert.IsType(t, RequiresVisibilityCheck{}, state)
}

func TestFastFieldMixedMaterializesVirtualSlot(t *testing.T) {
	r := &fakeReader{collect: []index.Hit{
		{RowID: index.RowID{Block: 1}, Fields: map[string]any{"rating": int64(5)}},
	}}
	f, err := NewFastFieldMixed(context.Background(), r, []schema.FieldName{"rating"})
	require.NoError(t, err)

	state, err := f.Next(context.Background())
	require.NoError(t, err)
	virtual, ok := state.(Virtual)
	require.True(t, ok)
	assert.Equal(t, int64(5), virtual.Slot[schema.FieldName("rating")])

	eof, err := f.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Eof{}, eof)
}

func TestFastFieldMixedMissingFieldErrors(t *testing.T) {
	r := &fakeReader{collect: []index.Hit{{RowID: index.RowID{Block: 1}, Fields: map[string]any{}}}}
	f, err := NewFastFieldMixed(context.Background(), r, []schema.FieldName{"rating"})
	require.NoError(t, err)

	_, err = f.Next(context.Background())
	assert.Error(t, err)
}
