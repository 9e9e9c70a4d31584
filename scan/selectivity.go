package scan

import (
	"math"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
)

// SelectivityKind tags how a Selectivity estimate was derived.
type SelectivityKind uint8

const (
	// SelectivityNormSelec came from the host planner's own statistics.
	SelectivityNormSelec SelectivityKind = iota
	// SelectivityFull is used for external-var (join placeholder) queries.
	SelectivityFull
	// SelectivityParameterized is used for parameterized queries, where
	// no constant is available yet to estimate against.
	SelectivityParameterized
	// SelectivityEstimated came from index.Index.EstimateSelectivity.
	SelectivityEstimated
	// SelectivityUnknown means none of the above applied.
	SelectivityUnknown
)

// Selectivity is the estimate plus which of the five sources produced it,
// so EXPLAIN can report provenance the way explain_recursive_estimates
// does.
type Selectivity struct {
	Value float64
	Kind  SelectivityKind
}

// EstimateSelectivity runs the selectivity cascade: prefer the host's own
// norm_selec, else FULL for external-var queries, else PARAMETERIZED for
// parameterized queries, else ask I, else Unknown.
func EstimateSelectivity(idx index.Index, query algebra.SearchQueryInput, normSelec *float64, hasExternalVar, hasParam bool) Selectivity {
	if normSelec != nil {
		return Selectivity{Value: *normSelec, Kind: SelectivityNormSelec}
	}
	if hasExternalVar {
		return Selectivity{Value: 1.0, Kind: SelectivityFull}
	}
	if hasParam {
		return Selectivity{Value: 0.5, Kind: SelectivityParameterized}
	}
	if idx != nil {
		if v, err := idx.EstimateSelectivity(query); err == nil {
			return Selectivity{Value: v, Kind: SelectivityEstimated}
		}
	}
	return Selectivity{Value: 0, Kind: SelectivityUnknown}
}

// ExpectedRows implements "max(1, reltuples * selectivity), clamped by
// LIMIT".
func ExpectedRows(reltuples float64, sel Selectivity, limit *int) int64 {
	rows := math.Max(1, reltuples*sel.Value)
	if limit != nil && float64(*limit) < rows {
		rows = float64(*limit)
	}
	return int64(rows)
}

// EstimateWorkers derives a worker count from expected rows, the number
// of segments available to split across,
// and whether the plan carries external/correlated parameters (which
// disables parallelism outright, since a worker can't safely re-evaluate
// a correlated subquery independently).
func EstimateWorkers(expectedRows int64, segmentCount int, hasExternalOrParameterized bool, maxWorkers int) int {
	if hasExternalOrParameterized || segmentCount <= 1 || expectedRows <= 0 {
		return 0
	}
	// One worker per segment is never useful beyond what there is work
	// for; a single row's worth of expected output isn't worth
	// parallelizing either.
	workers := segmentCount
	if workers > maxWorkers {
		workers = maxWorkers
	}
	const minRowsPerWorker = 1000
	byRows := int(expectedRows / minRowsPerWorker)
	if byRows < workers {
		workers = byRows
	}
	if workers < 0 {
		workers = 0
	}
	return workers
}
