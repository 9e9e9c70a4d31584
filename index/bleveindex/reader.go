package bleveindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// defaultCollectSize bounds an unbounded IterCollect the way a real
// segment reader would page internally rather than materializing an
// unbounded result set in one bleve.Search call.
const defaultCollectSize = 10_000

// Index is the concrete index.Index discharged against a real bleve
// index, grounded on Aman-CERP-amanmcp/internal/store/bm25.go's
// NewBleveBM25Index/Index/Search trio.
type Index struct {
	idx    bleve.Index
	schema *schema.Handle
}

// Open builds (or wraps) an in-memory bleve index for h's schema. A
// persistent on-disk variant would call bleve.New(path, mapping) exactly
// as bm25.go's NewBleveBM25Index does; the core only requires Index(),
// so both are equally valid collaborators.
func Open(h *schema.Handle) (*Index, error) {
	m, err := BuildMapping(h)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("bleveindex: %w", err)
	}
	return &Index{idx: idx, schema: h}, nil
}

// Put indexes one document under rowID, the write path the scan driver's
// host-side insert trigger would call (outside this core's scope, but
// exercised directly by tests and cmd/searchcore).
func (ix *Index) Put(rowID index.RowID, fields map[string]any) error {
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[rowIDField] = encodeRowID(rowID)
	return ix.idx.Index(encodeRowID(rowID), doc)
}

func (ix *Index) Schema() *schema.Handle { return ix.schema }

func (ix *Index) Open(ctx context.Context, query algebra.SearchQueryInput, needScores bool, visibility index.MvccPolicy) (index.Reader, error) {
	bq, err := translate(query)
	if err != nil {
		return nil, err
	}
	return &reader{idx: ix.idx, query: bq, original: query, needScores: needScores}, nil
}

func (ix *Index) EstimateSelectivity(query algebra.SearchQueryInput) (float64, error) {
	total, err := ix.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("bleveindex: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	bq, err := translate(query)
	if err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequest(bq)
	req.Size = 0
	result, err := ix.idx.Search(req)
	if err != nil {
		return 0, fmt.Errorf("bleveindex: %w", err)
	}
	return float64(result.Total) / float64(total), nil
}

func (ix *Index) BuildQueryTreeWithEstimates(query algebra.SearchQueryInput) (index.PrintableTree, error) {
	return buildTree(ix, query)
}

func buildTree(ix *Index, q algebra.SearchQueryInput) (index.PrintableTree, error) {
	sel, err := ix.EstimateSelectivity(q)
	if err != nil {
		return index.PrintableTree{}, err
	}
	total, err := ix.idx.DocCount()
	if err != nil {
		return index.PrintableTree{}, err
	}
	tree := index.PrintableTree{
		Label:         label(q),
		EstimatedHits: int64(sel * float64(total)),
	}
	for _, child := range children(q) {
		c, err := buildTree(ix, child)
		if err != nil {
			return index.PrintableTree{}, err
		}
		tree.Children = append(tree.Children, c)
	}
	return tree, nil
}

func label(q algebra.SearchQueryInput) string {
	switch v := q.(type) {
	case algebra.FieldedQuery:
		return fmt.Sprintf("FieldedQuery(%s)", v.Field)
	default:
		return fmt.Sprintf("%T", q)
	}
}

func children(q algebra.SearchQueryInput) []algebra.SearchQueryInput {
	switch v := q.(type) {
	case algebra.Boolean:
		out := append([]algebra.SearchQueryInput{}, v.Must...)
		out = append(out, v.Should...)
		out = append(out, v.MustNot...)
		return out
	case algebra.Boost:
		return []algebra.SearchQueryInput{v.Query}
	case algebra.ConstScore:
		return []algebra.SearchQueryInput{v.Query}
	case algebra.DisjunctionMax:
		return v.Disjuncts
	case algebra.HeapFilter:
		return []algebra.SearchQueryInput{v.IndexedQuery}
	default:
		return nil
	}
}

// reader implements index.Reader against one compiled bleve query.
type reader struct {
	idx        bleve.Index
	query      bquery.Query
	original   algebra.SearchQueryInput
	needScores bool
}

func (r *reader) IterCollect(ctx context.Context, limit int) (index.Stream, error) {
	size := limit
	if size <= 0 {
		size = defaultCollectSize
	}
	req := bleve.NewSearchRequest(r.query)
	req.Size = size
	req.Fields = []string{"*"}
	result, err := r.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleveindex: %w", err)
	}
	return newSliceStream(result)
}

func (r *reader) IterTopN(ctx context.Context, n int, orderBy []index.OrderBy) (index.Stream, error) {
	req := bleve.NewSearchRequest(r.query)
	req.Size = n
	req.Fields = []string{"*"}
	if len(orderBy) > 0 {
		req.SortBy(sortStrings(orderBy))
	}
	result, err := r.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleveindex: %w", err)
	}
	return newSliceStream(result)
}

func sortStrings(orderBy []index.OrderBy) []string {
	out := make([]string, 0, len(orderBy)+1)
	for _, ob := range orderBy {
		name := "_score"
		if !ob.Feature.IsScore {
			name = string(ob.Feature.Field)
		}
		if ob.Direction == index.Descending {
			name = "-" + name
		}
		out = append(out, name)
	}
	// tie-break by row id ascending.
	return append(out, rowIDField)
}

func (r *reader) SnippetGenerator(field schema.FieldName, query algebra.SearchQueryInput) (index.Generator, error) {
	bq, err := translate(query)
	if err != nil {
		return nil, err
	}
	return &generator{idx: r.idx, query: bq, field: string(field)}, nil
}

func (r *reader) Close() error { return nil }

// generator renders highlighted fragments for one row at a time by
// re-running the query scoped to that row's document ID, the simplest
// correct approach against bleve's result-level highlighter.
type generator struct {
	idx   bleve.Index
	query bquery.Query
	field string
}

func (g *generator) Snippet(ctx context.Context, row index.RowID, startTag, endTag string) (string, error) {
	docID := encodeRowID(row)
	conj := bquery.NewConjunctionQuery([]bquery.Query{g.query, bquery.NewDocIDQuery([]string{docID})})
	req := bleve.NewSearchRequest(conj)
	req.Size = 1
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.Fields = []string{g.field}
	result, err := g.idx.SearchInContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("bleveindex: %w", err)
	}
	if len(result.Hits) == 0 {
		return "", nil
	}
	frags := result.Hits[0].Fragments[g.field]
	if len(frags) == 0 {
		return "", nil
	}
	return retag(frags[0], startTag, endTag), nil
}

func (g *generator) Positions(ctx context.Context, row index.RowID) ([][2]int, error) {
	docID := encodeRowID(row)
	conj := bquery.NewConjunctionQuery([]bquery.Query{g.query, bquery.NewDocIDQuery([]string{docID})})
	req := bleve.NewSearchRequest(conj)
	req.Size = 1
	req.IncludeLocations = true
	result, err := g.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleveindex: %w", err)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}
	var out [][2]int
	for _, locs := range result.Hits[0].Locations[g.field] {
		for _, l := range locs {
			out = append(out, [2]int{int(l.Start), int(l.End)})
		}
	}
	return out, nil
}

// retag swaps bleve's default <mark>...</mark> highlight markers for the
// caller-supplied tags (`snippet(col, start_tag, end_tag)`).
func retag(fragment, startTag, endTag string) string {
	fragment = strings.ReplaceAll(fragment, "<mark>", startTag)
	return strings.ReplaceAll(fragment, "</mark>", endTag)
}

func encodeRowID(r index.RowID) string {
	return strconv.FormatUint(uint64(r.Block), 10) + ":" + strconv.FormatUint(uint64(r.Offset), 10)
}

func decodeRowID(s string) (index.RowID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return index.RowID{}, fmt.Errorf("bleveindex: malformed row id %q", s)
	}
	block, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return index.RowID{}, fmt.Errorf("bleveindex: malformed row id %q: %w", s, err)
	}
	offset, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return index.RowID{}, fmt.Errorf("bleveindex: malformed row id %q: %w", s, err)
	}
	return index.RowID{Block: uint32(block), Offset: uint16(offset)}, nil
}
