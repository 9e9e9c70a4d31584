// Package scan implements X: the custom scan driver lifecycle shell
// around E (package exec) — begin, init_search_reader, next, rescan, end
// — plus the planning-time selectivity/worker-count estimates and
// EXPLAIN rendering that sit alongside it. Grounded on
// datalog/executor/query_executor.go's explicit phase state machine and
// original_source/pg_search/src/postgres/customscan/pdbscan/mod.rs for
// the exact begin/init_search_reader/next/rescan/end split.
package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/exec"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/paradedb-core/searchcore/visibility"
)

// State is one of the driver's five lifecycle states.
type State uint8

const (
	Created State = iota
	Initialized
	Open
	Exhausted
	Ended
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Initialized:
		return "Initialized"
	case Open:
		return "Open"
	case Exhausted:
		return "Exhausted"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// ExecMethodType names which E variant PrivateData.ExecMethodType pins at
// planning time.
type ExecMethodType uint8

const (
	MethodNormal ExecMethodType = iota
	MethodTopN
	MethodFastFieldMixed
)

// ErrWrongState is returned when a lifecycle method is called out of
// order (e.g. Next before Begin).
var ErrWrongState = errors.New("scan: driver called in the wrong lifecycle state")

// Options mirrors planner.PlannerOptions in the teacher: the enumerated
// configuration switches exposed to the host planner.
type Options struct {
	EnableCustomScanWithoutOperator bool
	EnableFilterPushdown            bool
	ExplainRecursiveEstimates       bool
}

// Driver is X: the lifecycle shell around one chosen E.
type Driver struct {
	idx     index.Index
	heap    visibility.Heap
	opts    Options
	private PrivateData

	state      State
	reader     index.Reader
	checker    visibility.Checker
	method     exec.Method
	projection *Projection
	generators map[SnippetType]index.Generator
	rowsOut    int
}

// NewDriver builds a Driver bound to one compiled plan. idx and heap are
// the I and (heap half of) V collaborators; opts carries the enumerated
// GUCs.
func NewDriver(idx index.Index, heap visibility.Heap, private PrivateData, opts Options) *Driver {
	return &Driver{idx: idx, heap: heap, opts: opts, private: private, state: Created}
}

// State reports the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// Begin performs the lock-acquisition phase of the scan lifecycle: in
// this core, host-relation locking is an external collaborator concern,
// so Begin's only real work is binding the snapshot to the visibility
// checker; InitSearchReader opens the reader. explainOnly mirrors "if EXPLAIN-only, return after
// lock acquisition" — a Driver built for EXPLAIN never opens a reader.
func (d *Driver) Begin(snapshot visibility.Snapshot, explainOnly bool) error {
	if d.state != Created {
		return fmt.Errorf("%w: Begin from %s", ErrWrongState, d.state)
	}
	d.checker = visibility.With(d.heap, snapshot)
	d.state = Initialized
	if explainOnly {
		return nil
	}
	return nil
}

// ParallelAssignment is the worker-local slice of a parallel scan: which
// segments this participant owns.
type ParallelAssignment struct {
	SegmentIDs []int
}

// InitSearchReader opens I, binds E, and builds the projection/snippet
// machinery. parallel is nil for the leader (MvccPolicy Snapshot);
// non-nil for a worker pinned to a segment set.
func (d *Driver) InitSearchReader(ctx context.Context, parallel *ParallelAssignment) error {
	if d.state != Initialized && d.state != Open {
		return fmt.Errorf("%w: InitSearchReader from %s", ErrWrongState, d.state)
	}

	query := d.private.Query
	policy := index.MvccPolicy{Kind: index.Snapshot}
	if parallel != nil {
		policy = index.MvccPolicy{Kind: index.ParallelWorker, SegmentIDs: parallel.SegmentIDs}
	}

	needScores := needsScore(d.private)
	reader, err := d.idx.Open(ctx, query, needScores, policy)
	if err != nil {
		return fmt.Errorf("scan: opening index reader: %w", err)
	}
	d.reader = reader

	method, methodType, err := d.bindMethod(ctx, reader)
	if err != nil {
		reader.Close()
		return err
	}
	d.method = method
	d.private.ExecMethodType = methodType

	d.generators = nil
	if len(d.private.Snippets) > 0 {
		gens, err := BuildSnippetGenerators(reader, query, d.private.JoinPredicates, d.private.Snippets)
		if err != nil {
			reader.Close()
			return err
		}
		d.generators = gens
	}

	d.projection = BuildProjection(d.private.TargetList, needsScore(d.private), d.private.Snippets, d.private.WindowAggregates)

	d.state = Open
	d.rowsOut = 0
	return nil
}

func needsScore(p PrivateData) bool {
	if p.NeedScore {
		return true
	}
	for _, ob := range p.OrderByInfo {
		if ob.Feature.IsScore {
			return true
		}
	}
	return false
}

// bindMethod binds the execution method chosen at planning time, demoting
// to Normal on any mismatch detected at execution start: the choice is
// re-validated at execution start, and a mismatch demotes to Normal.
func (d *Driver) bindMethod(ctx context.Context, reader index.Reader) (exec.Method, ExecMethodType, error) {
	switch d.private.ExecMethodType {
	case MethodTopN:
		if d.private.Limit != nil && len(d.private.OrderByInfo) > 0 && len(d.private.OrderByInfo) <= MaxTopNFeatures {
			m, err := exec.NewTopN(ctx, reader, *d.private.Limit, d.private.OrderByInfo)
			if err != nil {
				return nil, 0, err
			}
			return m, MethodTopN, nil
		}
	case MethodFastFieldMixed:
		if allFastFieldEligible(d.private) {
			m, err := exec.NewFastFieldMixed(ctx, reader, fastFieldNames(d.private.PlannedFastFields))
			if err != nil {
				return nil, 0, err
			}
			return m, MethodFastFieldMixed, nil
		}
	}
	m, err := exec.NewNormal(ctx, reader)
	if err != nil {
		return nil, 0, err
	}
	return m, MethodNormal, nil
}

// MaxTopNFeatures caps how many ORDER BY features TopN execution supports.
const MaxTopNFeatures = 3

func allFastFieldEligible(p PrivateData) bool {
	return len(p.PlannedFastFields) > 0
}

func fastFieldNames(set map[schema.FieldName]bool) []schema.FieldName {
	out := make([]schema.FieldName, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}

// Row is one projected output row: column name to value, following the
// shape BuildProjection/Projection.Materialize already produce.
type Row = map[string]any

// Next drives the chosen E one step at a time and returns the next
// visible, projected row, or (nil, nil) at Eof.
func (d *Driver) Next(ctx context.Context) (Row, error) {
	if d.state == Exhausted {
		return nil, nil
	}
	if d.state != Open {
		return nil, fmt.Errorf("%w: Next from %s", ErrWrongState, d.state)
	}

	for {
		state, err := d.method.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan: exec method: %w", err)
		}

		switch e := state.(type) {
		case exec.Eof:
			if err := d.maybeRetryTopN(ctx); err == errNoRetry {
				d.state = Exhausted
				return nil, nil
			} else if err != nil {
				return nil, err
			}
			continue

		case exec.Virtual:
			passes, err := algebra.EvaluateHeapFilters(d.private.Query, fastFieldRow(e.Slot))
			if err != nil {
				return nil, fmt.Errorf("scan: evaluating heap residual: %w", err)
			}
			if !passes {
				continue
			}
			d.rowsOut++
			return d.projection.MaterializeVirtual(e.Slot), nil

		case exec.RequiresVisibilityCheck:
			row, visible, err := d.checkAndProject(ctx, e)
			if err != nil {
				return nil, err
			}
			if !visible {
				continue
			}
			d.rowsOut++
			return row, nil

		default:
			return nil, fmt.Errorf("scan: unrecognized exec state %T", state)
		}
	}
}

var errNoRetry = errors.New("scan: no retry available")

// maybeRetryTopN implements the TopN "retry needed" path: if fewer than
// Limit rows have been emitted and the bound method is a *exec.TopN, ask
// it to reopen with a bigger batch instead of declaring Eof.
func (d *Driver) maybeRetryTopN(ctx context.Context) error {
	topN, ok := d.method.(*exec.TopN)
	if !ok || d.private.Limit == nil {
		return errNoRetry
	}
	if d.rowsOut >= *d.private.Limit {
		return errNoRetry
	}
	return topN.Retry(ctx, *d.private.Limit*2)
}

// fastFieldRow adapts an exec.Virtual slot, and a visibility.TupleHeader's
// decoded values, to algebra.RowValues so a HeapFilter's residual can be
// evaluated against whichever row shape E produced.
type fastFieldRow map[schema.FieldName]any

func (r fastFieldRow) Value(field schema.FieldName) (any, bool) {
	v, ok := r[field]
	return v, ok
}

func (d *Driver) checkAndProject(ctx context.Context, hit exec.RequiresVisibilityCheck) (Row, bool, error) {
	var residualErr error
	out, ok := d.checker.ExecIfVisible(hit.RowID, func(header visibility.TupleHeader) (any, bool) {
		passes, err := algebra.EvaluateHeapFilters(d.private.Query, header)
		if err != nil {
			residualErr = err
			return nil, false
		}
		if !passes {
			return nil, false
		}
		d.projection.WriteScore(hit.Score)
		if d.generators != nil {
			for kind, gen := range d.generators {
				d.writeSnippet(ctx, kind, gen, hit.RowID)
			}
		}
		return d.projection.Materialize(), true
	})
	if residualErr != nil {
		return nil, false, fmt.Errorf("scan: evaluating heap residual: %w", residualErr)
	}
	if !ok {
		return nil, false, nil
	}
	row, ok := out.(Row)
	if !ok {
		return nil, false, fmt.Errorf("scan: projection produced %T, not a Row", out)
	}
	return row, true, nil
}

func (d *Driver) writeSnippet(ctx context.Context, kind SnippetType, gen index.Generator, row index.RowID) {
	switch kind.Form {
	case SnippetPositions:
		positions, err := gen.Positions(ctx, row)
		if err == nil {
			d.projection.WriteSnippetPositions(kind, positions)
		}
	default:
		text, err := gen.Snippet(ctx, row, kind.StartTag, kind.EndTag)
		if err == nil {
			d.projection.WriteSnippet(kind, text)
		}
	}
}

// Rescan reopens I with (possibly changed) parameters and resets
// counters. A stale ambulkdelete epoch forces a full reopen even if the
// query itself hasn't changed, since a concurrent VACUUM may have
// invalidated row identities the reader cached.
func (d *Driver) Rescan(ctx context.Context, snapshot visibility.Snapshot, newEpoch uint64, parallel *ParallelAssignment) error {
	if d.reader != nil {
		d.reader.Close()
		d.reader = nil
	}
	d.private.AmbulkdeleteEpoch = newEpoch
	d.checker = visibility.With(d.heap, snapshot)
	d.state = Initialized
	return d.InitSearchReader(ctx, parallel)
}

// End drops I, V, and the snippet generators, and releases the (external)
// relation locks.
func (d *Driver) End() error {
	if d.state == Ended {
		return nil
	}
	var err error
	if d.reader != nil {
		err = d.reader.Close()
		d.reader = nil
	}
	d.generators = nil
	d.state = Ended
	return err
}

// RowsEmitted reports how many rows Next has returned so far, used by
// EXPLAIN ANALYZE-style reporting.
func (d *Driver) RowsEmitted() int { return d.rowsOut }

// QueriesIssued reports how many iter_topn/iter_collect calls the bound
// method has issued, for EXPLAIN's query-count line.
func (d *Driver) QueriesIssued() int {
	if d.method == nil {
		return 0
	}
	return d.method.QueriesIssued()
}
