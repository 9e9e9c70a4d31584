// Package index defines I: the external contract the inverted-index
// collaborator must satisfy. The core never implements a search engine
// itself — only this interface and the concrete adapter in
// index/bleveindex, which discharges the contract against a real one.
package index

import (
	"context"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/schema"
)

// RowID is the host's tuple identity: block number + offset, exactly as
// Postgres's ItemPointer encodes a doc address.
type RowID struct {
	Block  uint32
	Offset uint16
}

// MvccPolicyKind selects which consistency view a Reader is opened under.
type MvccPolicyKind uint8

const (
	// Snapshot is the ordinary, single-snapshot view used by the leader.
	Snapshot MvccPolicyKind = iota
	// LargestSegment restricts the reader to one segment, used only for
	// cheap selectivity estimation during planning.
	LargestSegment
	// ParallelWorker restricts the reader to the segment set a parallel
	// worker was assigned.
	ParallelWorker
)

// MvccPolicy is the tagged argument to Open.
type MvccPolicy struct {
	Kind       MvccPolicyKind
	SegmentIDs []int // only meaningful when Kind == ParallelWorker
}

// Hit is one (row_id, score, doc_address) tuple from a result stream.
// Fields carries whatever stored fast-field values the reader returned
// alongside the hit, letting FastFieldMixed materialize a row without a
// heap fetch; it is nil when the reader didn't fetch stored fields.
type Hit struct {
	RowID   RowID
	Score   float32
	DocAddr uint64
	Fields  map[string]any
}

// Feature names what iter_topn orders by.
type Feature struct {
	IsScore bool
	Field   schema.FieldName // meaningful only when !IsScore
}

// SortDirection is the iter_topn per-feature direction.
type SortDirection uint8

const (
	Ascending SortDirection = iota
	Descending
)

// OrderBy is one iter_topn sort key.
type OrderBy struct {
	Feature   Feature
	Direction SortDirection
}

// Stream is a pull-based hit iterator; Next returns ok=false once
// exhausted. Implementations must tie-break iter_topn output by RowID
// ascending.
type Stream interface {
	Next(ctx context.Context) (Hit, bool, error)
	Close() error
}

// Generator produces a rendered snippet for one row, built once per scan
// (rebuilt at rescan) against a possibly join-enhanced query.
type Generator interface {
	Snippet(ctx context.Context, row RowID, startTag, endTag string) (string, error)
	Positions(ctx context.Context, row RowID) ([][2]int, error)
}

// PrintableTree is an EXPLAIN-friendly rendering of a compiled query,
// the return of build_query_tree_with_estimates.
type PrintableTree struct {
	Label         string
	EstimatedHits int64
	Children      []PrintableTree
}

// Reader is the contract X drives: it is opened once per scan (or once
// per rescan), yields hit streams, and builds snippet generators for
// whatever the projection needs.
type Reader interface {
	IterCollect(ctx context.Context, limit int) (Stream, error)
	IterTopN(ctx context.Context, n int, orderBy []OrderBy) (Stream, error)
	SnippetGenerator(field schema.FieldName, query algebra.SearchQueryInput) (Generator, error)
	Close() error
}

// Index is the collaborator's entry point: open(index, query, need_scores,
// visibility, ...) -> Reader, plus the two planning-time helpers
// estimate_selectivity and build_query_tree_with_estimates.
type Index interface {
	Open(ctx context.Context, query algebra.SearchQueryInput, needScores bool, visibility MvccPolicy) (Reader, error)
	EstimateSelectivity(query algebra.SearchQueryInput) (float64, error)
	BuildQueryTreeWithEstimates(query algebra.SearchQueryInput) (PrintableTree, error)
	Schema() *schema.Handle
}
