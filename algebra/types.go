// Package algebra implements the executable query algebra (A): a tagged
// sum type enumerating every supported predicate, with a canonical,
// deterministic textual serialization for embedding inside opaque plan
// nodes.
package algebra

import "github.com/paradedb-core/searchcore/schema"

// SearchQueryInput is the executable algebra every Qual deterministically
// lowers to. Concrete variants implement this via the unexported marker
// method, the same closed-tagged-union idiom the teacher uses for its
// query.Clause/query.Pattern interfaces.
type SearchQueryInput interface {
	isSearchQueryInput()
	// ReferencedFields lists every schema field this node (and its
	// children) mention, for schema.Handle.ValidateFields.
	ReferencedFields() []schema.FieldName
}

// All matches every document.
type All struct{}

func (All) isSearchQueryInput()             {}
func (All) ReferencedFields() []schema.FieldName { return nil }

// Empty matches no document.
type Empty struct{}

func (Empty) isSearchQueryInput()             {}
func (Empty) ReferencedFields() []schema.FieldName { return nil }

// WithIndex pins a subtree to one index's schema; nested WithIndex nodes
// must agree on OID. This type does not check that agreement.
type WithIndex struct {
	OID   schema.IndexOID
	Query SearchQueryInput
}

func (w WithIndex) isSearchQueryInput() {}
func (w WithIndex) ReferencedFields() []schema.FieldName {
	return w.Query.ReferencedFields()
}

// Boolean composes must/should/must_not clauses.
type Boolean struct {
	Must    []SearchQueryInput
	Should  []SearchQueryInput
	MustNot []SearchQueryInput
}

func (b Boolean) isSearchQueryInput() {}
func (b Boolean) ReferencedFields() []schema.FieldName {
	var out []schema.FieldName
	for _, group := range [][]SearchQueryInput{b.Must, b.Should, b.MustNot} {
		for _, q := range group {
			out = append(out, q.ReferencedFields()...)
		}
	}
	return out
}

// Boost multiplies a query's score by a constant factor.
type Boost struct {
	Query  SearchQueryInput
	Factor float32
}

func (b Boost) isSearchQueryInput() { return }
func (b Boost) ReferencedFields() []schema.FieldName {
	return b.Query.ReferencedFields()
}

// ConstScore replaces every matching document's score with a constant.
type ConstScore struct {
	Query SearchQueryInput
	Score float32
}

func (c ConstScore) isSearchQueryInput() {}
func (c ConstScore) ReferencedFields() []schema.FieldName {
	return c.Query.ReferencedFields()
}

// ScoreFilter restricts matches to one or more score bound intervals,
// optionally narrowing an inner query (ScoreExpr lowering).
type ScoreFilter struct {
	Bounds []ScoreInterval
	Query  SearchQueryInput // nil means "filter All by score"
}

func (s ScoreFilter) isSearchQueryInput() {}
func (s ScoreFilter) ReferencedFields() []schema.FieldName {
	if s.Query == nil {
		return nil
	}
	return s.Query.ReferencedFields()
}

// DisjunctionMax keeps, for each document, the single highest-scoring
// disjunct's score (optionally adding tieBreaker * sum of the rest).
type DisjunctionMax struct {
	Disjuncts  []SearchQueryInput
	TieBreaker *float32
}

func (d DisjunctionMax) isSearchQueryInput() {}
func (d DisjunctionMax) ReferencedFields() []schema.FieldName {
	var out []schema.FieldName
	for _, q := range d.Disjuncts {
		out = append(out, q.ReferencedFields()...)
	}
	return out
}

// Exists matches documents that have any value for field.
type Exists struct {
	Field schema.FieldName
}

func (e Exists) isSearchQueryInput()             {}
func (e Exists) ReferencedFields() []schema.FieldName { return []schema.FieldName{e.Field} }

// FastFieldRangeWeight filters by a fast-field numeric range without
// requiring a full index scan.
type FastFieldRangeWeight struct {
	Field schema.FieldName
	Lower Bound[int64]
	Upper Bound[int64]
}

func (f FastFieldRangeWeight) isSearchQueryInput() {}
func (f FastFieldRangeWeight) ReferencedFields() []schema.FieldName {
	return []schema.FieldName{f.Field}
}

// FieldedQuery scopes a QueryKind leaf to one field.
type FieldedQuery struct {
	Field schema.FieldName
	Inner QueryKind
}

func (f FieldedQuery) isSearchQueryInput() {}
func (f FieldedQuery) ReferencedFields() []schema.FieldName {
	return []schema.FieldName{f.Field}
}

// MoreLikeThis builds a query from the terms of a reference document (or
// explicit field values).
type MoreLikeThis struct {
	DocumentID     string            // empty when DocumentFields is used instead
	DocumentFields map[string]string // field name -> text
	MinTermFreq    int
	MinDocFreq     int
	MaxQueryTerms  int
}

func (m MoreLikeThis) isSearchQueryInput() {}
func (m MoreLikeThis) ReferencedFields() []schema.FieldName {
	out := make([]schema.FieldName, 0, len(m.DocumentFields))
	for f := range m.DocumentFields {
		out = append(out, schema.FieldName(f))
	}
	return out
}

// Parse compiles a free-form query string against every field.
type Parse struct {
	QueryString     string
	Lenient         bool
	ConjunctionMode bool
}

func (p Parse) isSearchQueryInput()             {}
func (p Parse) ReferencedFields() []schema.FieldName { return nil }

// ParseWithField compiles a free-form query string scoped to one field.
type ParseWithField struct {
	Field           schema.FieldName
	QueryString     string
	Lenient         bool
	ConjunctionMode bool
}

func (p ParseWithField) isSearchQueryInput()             {}
func (p ParseWithField) ReferencedFields() []schema.FieldName { return []schema.FieldName{p.Field} }

// HeapFilter pairs an indexed base query (evaluated by the index reader)
// with a set of residual field references the heap-side predicate
// consults, the lowering of qual.HeapExpr.
type HeapFilter struct {
	IndexedQuery SearchQueryInput
	FieldFilters []schema.FieldName
	Residual     Residual
}

func (h HeapFilter) isSearchQueryInput() {}
func (h HeapFilter) ReferencedFields() []schema.FieldName {
	out := append([]schema.FieldName(nil), h.FieldFilters...)
	return append(out, h.IndexedQuery.ReferencedFields()...)
}

// PostgresExpression carries an opaque, already-lowered host expression
// that the core never interprets (qual.Expr with nothing left to push
// down).
type PostgresExpression struct {
	Description string
	Opaque      []byte
}

func (p PostgresExpression) isSearchQueryInput()             {}
func (p PostgresExpression) ReferencedFields() []schema.FieldName { return nil }

// QueryKind is the closed set of FieldedQuery leaf kinds.
type QueryKind interface {
	isQueryKind()
}

type Term struct{ Value string }

func (Term) isQueryKind() {}

type TermSet struct{ Values []string }

func (TermSet) isQueryKind() {}

type RangeMode uint8

const (
	RangeContains RangeMode = iota
	RangeIntersects
	RangeWithin
)

type Range struct {
	Lower Bound[string]
	Upper Bound[string]
}

func (Range) isQueryKind() {}

type RangeCompare struct {
	Mode  RangeMode
	Lower Bound[string]
	Upper Bound[string]
}

func (RangeCompare) isQueryKind() {}

type RangeTerm struct {
	Value string
	Mode  RangeMode
}

func (RangeTerm) isQueryKind() {}

type FuzzyTerm struct {
	Value                string
	Distance             int
	Prefix               bool
	TranspositionCostOne bool
}

func (FuzzyTerm) isQueryKind() {}

type Match struct {
	Value           string
	Tokenizer       string
	Distance        int
	Prefix          bool
	ConjunctionMode bool
}

func (Match) isQueryKind() {}

type MatchArray struct {
	Values          []string
	ConjunctionMode bool
}

func (MatchArray) isQueryKind() {}

type Phrase struct {
	Tokens []string
	Slop   int
}

func (Phrase) isQueryKind() {}

type PhrasePrefix struct {
	Tokens        []string
	MaxExpansions int
}

func (PhrasePrefix) isQueryKind() {}

type TokenizedPhrase struct{ Text string }

func (TokenizedPhrase) isQueryKind() {}

type PhraseArray struct{ Phrases [][]string }

func (PhraseArray) isQueryKind() {}

type Regex struct{ Pattern string }

func (Regex) isQueryKind() {}

type RegexPhrase struct {
	Patterns      []string
	Slop          int
	MaxExpansions int
}

func (RegexPhrase) isQueryKind() {}

type Proximity struct {
	Tokens []string
	Slop   int
}

func (Proximity) isQueryKind() {}

// FieldExists is the FieldedQuery.Inner analog of the top-level Exists
// (used when Exists is nested under a Boolean field scope).
type FieldExists struct{}

func (FieldExists) isQueryKind() {}

type FastFieldRange struct {
	Lower Bound[int64]
	Upper Bound[int64]
}

func (FastFieldRange) isQueryKind() {}

type InnerParse struct {
	QueryString     string
	Lenient         bool
	ConjunctionMode bool
}

func (InnerParse) isQueryKind() {}

// ScoreAdjusted wraps an inner kind with a score multiplier, used when a
// FieldedQuery needs its own boost independent of any enclosing Boost node.
type ScoreAdjusted struct {
	Inner  QueryKind
	Factor float32
}

func (ScoreAdjusted) isQueryKind() {}
