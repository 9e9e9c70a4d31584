// Package exec implements E: the three pull-based execution methods X
// drives through one row at a time. Each method wraps an index.Reader and
// produces a tagged ExecState per call to Next, mirroring
// the pull-based, streaming-relation shape of
// datalog/executor/executor_sequential.go's pattern loop — one relation
// consumed a row at a time rather than materialized up front.
package exec

import (
	"context"
	"fmt"

	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// ExecState is the tagged result of one Next call.
type ExecState interface {
	isExecState()
}

// Eof means the method has drained every hit the reader will produce.
type Eof struct{}

func (Eof) isExecState() {}

// RequiresVisibilityCheck names a candidate row X must still run through V
// before it can be projected.
type RequiresVisibilityCheck struct {
	RowID index.RowID
	Score float32
	Doc   uint64
}

func (RequiresVisibilityCheck) isExecState() {}

// Virtual carries a fully materialized row that never touched the heap
// (FastFieldMixed only).
type Virtual struct {
	Slot map[schema.FieldName]any
}

func (Virtual) isExecState() {}

// Method is the shared interface all three execution variants implement.
type Method interface {
	Next(ctx context.Context) (ExecState, error)
	// QueriesIssued reports how many iter_topn/iter_collect calls this
	// method has issued against I, for EXPLAIN's query-count line.
	QueriesIssued() int
}

// Normal pulls hits from I in whatever order the reader produces and
// returns RequiresVisibilityCheck for each; Eof once the reader drains.
// Grounded on executor_sequential.go's single-pass pull loop: one relation,
// no retry, errors propagate immediately.
type Normal struct {
	stream  index.Stream
	queries int
	done    bool
}

// NewNormal opens stream via reader.IterCollect(ctx, 0) (no limit) and
// returns a Normal bound to it.
func NewNormal(ctx context.Context, reader index.Reader) (*Normal, error) {
	stream, err := reader.IterCollect(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("exec: opening normal stream: %w", err)
	}
	return &Normal{stream: stream, queries: 1}, nil
}

func (n *Normal) Next(ctx context.Context) (ExecState, error) {
	if n.done {
		return Eof{}, nil
	}
	hit, ok, err := n.stream.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("exec: Normal.Next: %w", err)
	}
	if !ok {
		n.done = true
		return Eof{}, nil
	}
	return RequiresVisibilityCheck{RowID: hit.RowID, Score: hit.Score, Doc: hit.DocAddr}, nil
}

func (n *Normal) QueriesIssued() int { return n.queries }
