// Package paradedb is the SQL-surface builder layer: one function per
// operator/function exported to the host query planner,
// each just assembling an algebra.SearchQueryInput value. It carries no
// logic of its own, mirroring how the teacher's datalog/parser package is a
// thin layer of constructor functions in front of the query package's
// tagged types.
package paradedb

import (
	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/schema"
)

// All builds the match-everything query.
func All() algebra.SearchQueryInput { return algebra.All{} }

// Empty builds the match-nothing query.
func Empty() algebra.SearchQueryInput { return algebra.Empty{} }

// Boolean builds a compound query from should/must/must_not clauses.
func Boolean(should, must, mustNot []algebra.SearchQueryInput) algebra.SearchQueryInput {
	return algebra.Boolean{Must: must, Should: should, MustNot: mustNot}
}

// Boost scales q's score by factor.
func Boost(q algebra.SearchQueryInput, factor float32) algebra.SearchQueryInput {
	return algebra.Boost{Query: q, Factor: factor}
}

// ConstScore replaces q's score with a constant.
func ConstScore(q algebra.SearchQueryInput, score float32) algebra.SearchQueryInput {
	return algebra.ConstScore{Query: q, Score: score}
}

// DisjunctionMax keeps the best-scoring disjunct per document.
func DisjunctionMax(disjuncts []algebra.SearchQueryInput, tieBreaker *float32) algebra.SearchQueryInput {
	return algebra.DisjunctionMax{Disjuncts: disjuncts, TieBreaker: tieBreaker}
}

// Term matches field == value exactly (after tokenization for text fields).
func Term(field schema.FieldName, value string) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.Term{Value: value}}
}

// TermSet matches any of values against field.
func TermSet(field schema.FieldName, values []string) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.TermSet{Values: values}}
}

// Phrase matches tokens as an ordered phrase, allowing up to slop
// transpositions/gaps.
func Phrase(field schema.FieldName, tokens []string, slop int) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.Phrase{Tokens: tokens, Slop: slop}}
}

// PhrasePrefix matches tokens as a phrase whose final token is a prefix
// expanded up to maxExpansions terms.
func PhrasePrefix(field schema.FieldName, tokens []string, maxExpansions int) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.PhrasePrefix{Tokens: tokens, MaxExpansions: maxExpansions}}
}

// FuzzyTerm matches value within an edit distance of distance.
func FuzzyTerm(field schema.FieldName, value string, distance int, prefix, transpositionCostOne bool) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.FuzzyTerm{
		Value: value, Distance: distance, Prefix: prefix, TranspositionCostOne: transpositionCostOne,
	}}
}

// Match runs value through tokenizer and matches the resulting tokens,
// optionally as a conjunction and/or with fuzzy distance/prefix expansion.
func Match(field schema.FieldName, value, tokenizer string, distance int, prefix, conjunctionMode bool) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.Match{
		Value: value, Tokenizer: tokenizer, Distance: distance, Prefix: prefix, ConjunctionMode: conjunctionMode,
	}}
}

// Regex matches field against a compiled regular expression pattern.
func Regex(field schema.FieldName, pattern string) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.Regex{Pattern: pattern}}
}

// RegexPhrase matches an ordered sequence of regex-matched tokens.
func RegexPhrase(field schema.FieldName, patterns []string, slop, maxExpansions int) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.RegexPhrase{
		Patterns: patterns, Slop: slop, MaxExpansions: maxExpansions,
	}}
}

// Range matches field within [lower, upper].
func Range(field schema.FieldName, lower, upper algebra.Bound[string]) algebra.SearchQueryInput {
	return algebra.FieldedQuery{Field: field, Inner: algebra.Range{Lower: lower, Upper: upper}}
}

// RangeTerm matches a Range-typed field's endpoint against value under the
// given comparison mode (contains/intersects/within). A nil mode defaults
// to RangeContains.
func RangeTerm(field schema.FieldName, value string, mode *algebra.RangeMode) algebra.SearchQueryInput {
	m := algebra.RangeContains
	if mode != nil {
		m = *mode
	}
	return algebra.FieldedQuery{Field: field, Inner: algebra.RangeTerm{Value: value, Mode: m}}
}

// Exists matches documents with any value for field.
func Exists(field schema.FieldName) algebra.SearchQueryInput {
	return algebra.Exists{Field: field}
}

// Parse compiles a free-form query string against every field.
func Parse(queryString string, lenient, conjunctionMode bool) algebra.SearchQueryInput {
	return algebra.Parse{QueryString: queryString, Lenient: lenient, ConjunctionMode: conjunctionMode}
}

// ParseWithField compiles a free-form query string scoped to one field.
func ParseWithField(field schema.FieldName, queryString string, lenient, conjunctionMode bool) algebra.SearchQueryInput {
	return algebra.ParseWithField{Field: field, QueryString: queryString, Lenient: lenient, ConjunctionMode: conjunctionMode}
}

// MoreLikeThis builds a query from the terms of a reference document.
func MoreLikeThis(documentID string, minTermFreq, minDocFreq, maxQueryTerms int) algebra.SearchQueryInput {
	return algebra.MoreLikeThis{
		DocumentID:    documentID,
		MinTermFreq:   minTermFreq,
		MinDocFreq:    minDocFreq,
		MaxQueryTerms: maxQueryTerms,
	}
}

// MoreLikeThisFields is the explicit-field-values variant of MoreLikeThis.
func MoreLikeThisFields(fields map[string]string, minTermFreq, minDocFreq, maxQueryTerms int) algebra.SearchQueryInput {
	return algebra.MoreLikeThis{
		DocumentFields: fields,
		MinTermFreq:    minTermFreq,
		MinDocFreq:     minDocFreq,
		MaxQueryTerms:  maxQueryTerms,
	}
}
