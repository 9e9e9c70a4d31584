package scan

import "github.com/paradedb-core/searchcore/schema"

// Projection performs per-tuple snippet placeholder injection: the target
// list is rewritten once, at InitSearchReader time, into a base row plus
// a set of named placeholders; every subsequent row only overwrites those
// placeholders and re-reads the base row, instead of re-walking the
// target list on every tuple (grounded on pdbscan/mod.rs's
// inject_placeholders).
type Projection struct {
	columns    []Column
	needScore  bool
	snippetIdx map[SnippetType]int
	aggIdx     map[string]int

	score      float32
	snippets   map[SnippetType]any
	aggregates map[string]any
}

// BuildProjection rewrites targetList into a Projection once per scan
// (or rescan), recording the positions score/snippet/window-aggregate
// placeholders occupy so later rows can write directly into them.
func BuildProjection(targetList []Column, needScore bool, snippets []SnippetType, aggs []WindowAggregate) *Projection {
	p := &Projection{
		columns:    targetList,
		needScore:  needScore,
		snippetIdx: make(map[SnippetType]int, len(snippets)),
		aggIdx:     make(map[string]int, len(aggs)),
		snippets:   make(map[SnippetType]any, len(snippets)),
		aggregates: make(map[string]any, len(aggs)),
	}
	for i, s := range snippets {
		p.snippetIdx[s] = i
	}
	for i, a := range aggs {
		p.aggIdx[a.OutputName] = i
	}
	return p
}

// WriteScore fills the score() placeholder for the row currently being
// projected.
func (p *Projection) WriteScore(score float32) { p.score = score }

// WriteSnippet fills a snippet()/snippets() placeholder with rendered
// text.
func (p *Projection) WriteSnippet(kind SnippetType, text string) {
	if kind.Form == SnippetArray {
		p.snippets[kind] = []string{text}
		return
	}
	p.snippets[kind] = text
}

// WriteSnippetPositions fills a snippet_positions() placeholder.
func (p *Projection) WriteSnippetPositions(kind SnippetType, positions [][2]int) {
	p.snippets[kind] = positions
}

// WriteWindowAggregate fills one window_agg() placeholder, computed by
// the parallel aggregator once every worker's partial state has merged.
func (p *Projection) WriteWindowAggregate(name string, value any) {
	p.aggregates[name] = value
}

// Materialize produces the projected row using whatever base slot value
// was captured for the current tuple via the visibility checker's onHit
// callback, plus the placeholders this Projection has accumulated. This
// is the RequiresVisibilityCheck path, so the base row comes from the
// heap fetch; callers that already have a decoded slot use
// MaterializeVirtual instead.
func (p *Projection) Materialize() map[string]any {
	out := make(map[string]any, len(p.columns)+1)
	for _, c := range p.columns {
		switch {
		case c.IsScore:
			out[c.OutputName] = p.score
		default:
			// Heap-backed columns are resolved by the host's own slot
			// deformation; this core only owns the placeholders it
			// injected.
		}
	}
	for kind, idx := range p.snippetIdx {
		_ = idx
		if v, ok := p.snippets[kind]; ok {
			out[snippetColumnName(kind)] = v
		}
	}
	for name := range p.aggIdx {
		if v, ok := p.aggregates[name]; ok {
			out[name] = v
		}
	}
	return out
}

// MaterializeVirtual produces a projected row entirely from a
// FastFieldMixed slot — no heap fetch occurred, so every non-placeholder
// column comes from slot.
func (p *Projection) MaterializeVirtual(slot map[schema.FieldName]any) map[string]any {
	out := make(map[string]any, len(p.columns)+len(p.snippetIdx))
	for _, c := range p.columns {
		switch {
		case c.IsScore:
			out[c.OutputName] = p.score
		case c.Field != "":
			out[c.OutputName] = slot[c.Field]
		}
	}
	for kind := range p.snippetIdx {
		if v, ok := p.snippets[kind]; ok {
			out[snippetColumnName(kind)] = v
		}
	}
	for name := range p.aggIdx {
		if v, ok := p.aggregates[name]; ok {
			out[name] = v
		}
	}
	return out
}

func snippetColumnName(kind SnippetType) string {
	switch kind.Form {
	case SnippetArray:
		return "snippets(" + string(kind.Field) + ")"
	case SnippetPositions:
		return "snippet_positions(" + string(kind.Field) + ")"
	default:
		return "snippet(" + string(kind.Field) + ")"
	}
}
