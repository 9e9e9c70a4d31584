package exec

import (
	"context"
	"fmt"

	"github.com/paradedb-core/searchcore/index"
)

// topNOverfetch is the epsilon added to the requested n so a first pass
// through I still has headroom left if V prunes a few of the top rows.
const topNOverfetch = 4

// TopN drives I through iter_topn and re-emits hits in the order the
// reader returned them; ties are broken by row_id ascending inside I
// itself, not by this method. Grounded
// on executor_parallel.go's batched re-issue model: a stream can be
// reopened with a larger request instead of restarting the whole scan.
type TopN struct {
	reader  index.Reader
	orderBy []index.OrderBy
	stream  index.Stream
	n       int
	queries int
	done    bool
}

// NewTopN opens a stream for the top n+overfetch hits ordered by orderBy.
func NewTopN(ctx context.Context, reader index.Reader, n int, orderBy []index.OrderBy) (*TopN, error) {
	t := &TopN{reader: reader, orderBy: orderBy, n: n}
	stream, err := reader.IterTopN(ctx, n+topNOverfetch, orderBy)
	if err != nil {
		return nil, fmt.Errorf("exec: opening topn stream: %w", err)
	}
	t.stream = stream
	t.queries = 1
	return t, nil
}

func (t *TopN) Next(ctx context.Context) (ExecState, error) {
	if t.done {
		return Eof{}, nil
	}
	hit, ok, err := t.stream.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("exec: TopN.Next: %w", err)
	}
	if !ok {
		t.done = true
		return Eof{}, nil
	}
	return RequiresVisibilityCheck{RowID: hit.RowID, Score: hit.Score, Doc: hit.DocAddr}, nil
}

func (t *TopN) QueriesIssued() int { return t.queries }

// Retry reopens the underlying stream asking for newN (> the original n)
// hits, used when the driver finds fewer than n visible rows after the
// first batch drained. Reopening rather than resuming mirrors iter_topn's
// "order is a property of the whole call", so a
// larger request is the only way to get more candidates without
// re-ranking client-side.
func (t *TopN) Retry(ctx context.Context, newN int) error {
	if newN <= t.n {
		newN = t.n + topNOverfetch + 1
	}
	if err := t.stream.Close(); err != nil {
		return fmt.Errorf("exec: TopN.Retry: closing previous stream: %w", err)
	}
	stream, err := t.reader.IterTopN(ctx, newN+topNOverfetch, t.orderBy)
	if err != nil {
		return fmt.Errorf("exec: TopN.Retry: %w", err)
	}
	t.stream = stream
	t.n = newN
	t.queries++
	t.done = false
	return nil
}
