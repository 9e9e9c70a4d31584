package bleveindex

import (
	"fmt"

	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/paradedb-core/searchcore/algebra"
)

// translate lowers the core's executable algebra into a bleve query.Query
// tree. This is the Tantivy-query-builder equivalent — the one place A's
// tagged union is matched exhaustively against a real collaborator's
// query API.
func translate(q algebra.SearchQueryInput) (bquery.Query, error) {
	switch v := q.(type) {
	case algebra.All:
		return bquery.NewMatchAllQuery(), nil
	case algebra.Empty:
		return bquery.NewMatchNoneQuery(), nil
	case algebra.WithIndex:
		return translate(v.Query)
	case algebra.Boolean:
		return translateBoolean(v)
	case algebra.Boost:
		inner, err := translate(v.Query)
		if err != nil {
			return nil, err
		}
		return boosted(inner, float64(v.Factor)), nil
	case algebra.ConstScore:
		inner, err := translate(v.Query)
		if err != nil {
			return nil, err
		}
		return boosted(inner, float64(v.Score)), nil
	case algebra.ScoreFilter:
		if v.Query == nil {
			return bquery.NewMatchAllQuery(), nil
		}
		return translate(v.Query)
	case algebra.DisjunctionMax:
		disjuncts := make([]bquery.Query, 0, len(v.Disjuncts))
		for _, d := range v.Disjuncts {
			t, err := translate(d)
			if err != nil {
				return nil, err
			}
			disjuncts = append(disjuncts, t)
		}
		dq := bquery.NewDisjunctionQuery(disjuncts)
		if v.TieBreaker != nil {
			dq.SetMin(1)
		}
		return dq, nil
	case algebra.Exists:
		eq := bquery.NewWildcardQuery("*")
		eq.SetField(string(v.Field))
		return eq, nil
	case algebra.FastFieldRangeWeight:
		return numericRange(v.Field.String(), v.Lower, v.Upper)
	case algebra.FieldedQuery:
		return translateFieldedQuery(v)
	case algebra.MoreLikeThis:
		return bquery.NewMatchAllQuery(), fmt.Errorf("bleveindex: MoreLikeThis requires a live index.Document, not available at translation time")
	case algebra.Parse:
		q := bquery.NewQueryStringQuery(v.QueryString)
		return q, nil
	case algebra.ParseWithField:
		qs := bquery.NewQueryStringQuery(string(v.Field) + ":" + v.QueryString)
		return qs, nil
	case algebra.HeapFilter:
		return translate(v.IndexedQuery)
	case algebra.PostgresExpression:
		// Opaque residual, nothing to push down: match everything and let
		// the heap-side residual evaluate it.
		return bquery.NewMatchAllQuery(), nil
	default:
		return nil, fmt.Errorf("bleveindex: unrecognized query node %T", q)
	}
}

func translateBoolean(b algebra.Boolean) (bquery.Query, error) {
	bq := bquery.NewBooleanQuery(nil, nil, nil)
	for _, m := range b.Must {
		t, err := translate(m)
		if err != nil {
			return nil, err
		}
		bq.AddMust(t)
	}
	for _, s := range b.Should {
		t, err := translate(s)
		if err != nil {
			return nil, err
		}
		bq.AddShould(t)
	}
	for _, n := range b.MustNot {
		t, err := translate(n)
		if err != nil {
			return nil, err
		}
		bq.AddMustNot(t)
	}
	return bq, nil
}

func translateFieldedQuery(f algebra.FieldedQuery) (bquery.Query, error) {
	field := string(f.Field)
	switch k := f.Inner.(type) {
	case algebra.Term:
		t := bquery.NewTermQuery(k.Value)
		t.SetField(field)
		return t, nil
	case algebra.TermSet:
		disjuncts := make([]bquery.Query, len(k.Values))
		for i, v := range k.Values {
			t := bquery.NewTermQuery(v)
			t.SetField(field)
			disjuncts[i] = t
		}
		return bquery.NewDisjunctionQuery(disjuncts), nil
	case algebra.FuzzyTerm:
		fq := bquery.NewFuzzyQuery(k.Value)
		fq.SetField(field)
		fq.Fuzziness = k.Distance
		fq.Prefix = boolToInt(k.Prefix)
		return fq, nil
	case algebra.Match:
		mq := bquery.NewMatchQuery(k.Value)
		mq.SetField(field)
		if k.Tokenizer != "" {
			mq.Analyzer = k.Tokenizer
		}
		mq.Fuzziness = k.Distance
		if k.Prefix {
			mq.PrefixLength = 1
		}
		if k.ConjunctionMode {
			mq.SetOperator(bquery.MatchQueryOperatorAnd)
		}
		return mq, nil
	case algebra.Phrase:
		pq := bquery.NewPhraseQuery(k.Tokens, field)
		pq.Slop = k.Slop
		return pq, nil
	case algebra.PhrasePrefix:
		if len(k.Tokens) == 0 {
			return bquery.NewMatchNoneQuery(), nil
		}
		pq := bquery.NewMatchPhraseQuery(joinTokens(k.Tokens))
		pq.SetField(field)
		return pq, nil
	case algebra.TokenizedPhrase:
		pq := bquery.NewMatchPhraseQuery(k.Text)
		pq.SetField(field)
		return pq, nil
	case algebra.PhraseArray:
		disjuncts := make([]bquery.Query, len(k.Phrases))
		for i, p := range k.Phrases {
			pq := bquery.NewPhraseQuery(p, field)
			disjuncts[i] = pq
		}
		return bquery.NewDisjunctionQuery(disjuncts), nil
	case algebra.Regex:
		rq := bquery.NewRegexpQuery(k.Pattern)
		rq.SetField(field)
		return rq, nil
	case algebra.RegexPhrase:
		disjuncts := make([]bquery.Query, len(k.Patterns))
		for i, p := range k.Patterns {
			rq := bquery.NewRegexpQuery(p)
			rq.SetField(field)
			disjuncts[i] = rq
		}
		return bquery.NewConjunctionQuery(disjuncts), nil
	case algebra.Proximity:
		pq := bquery.NewPhraseQuery(k.Tokens, field)
		pq.Slop = k.Slop
		return pq, nil
	case algebra.FieldExists:
		eq := bquery.NewWildcardQuery("*")
		eq.SetField(field)
		return eq, nil
	case algebra.Range:
		return stringRange(field, k.Lower, k.Upper)
	case algebra.RangeCompare:
		return stringRange(field, k.Lower, k.Upper)
	case algebra.RangeTerm:
		t := bquery.NewTermQuery(k.Value)
		t.SetField(field)
		return t, nil
	case algebra.FastFieldRange:
		return numericRange(field, k.Lower, k.Upper)
	case algebra.InnerParse:
		return bquery.NewQueryStringQuery(k.QueryString), nil
	case algebra.ScoreAdjusted:
		q := algebra.FieldedQuery{Field: f.Field, Inner: k.Inner}
		inner, err := translateFieldedQuery(q)
		if err != nil {
			return nil, err
		}
		return boosted(inner, float64(k.Factor)), nil
	default:
		return nil, fmt.Errorf("bleveindex: unrecognized leaf kind %T", k)
	}
}

func numericRange(field string, lower, upper algebra.Bound[int64]) (bquery.Query, error) {
	var min, max *float64
	inclusiveMin, inclusiveMax := true, true
	if lower.Kind != algebra.Unbounded {
		f := float64(lower.Value)
		min = &f
		inclusiveMin = lower.Kind == algebra.Included
	}
	if upper.Kind != algebra.Unbounded {
		f := float64(upper.Value)
		max = &f
		inclusiveMax = upper.Kind == algebra.Included
	}
	nq := bquery.NewNumericRangeInclusiveQuery(min, max, &inclusiveMin, &inclusiveMax)
	nq.SetField(field)
	return nq, nil
}

func stringRange(field string, lower, upper algebra.Bound[string]) (bquery.Query, error) {
	var min, max *string
	inclusiveMin, inclusiveMax := true, true
	if lower.Kind != algebra.Unbounded {
		v := lower.Value
		min = &v
		inclusiveMin = lower.Kind == algebra.Included
	}
	if upper.Kind != algebra.Unbounded {
		v := upper.Value
		max = &v
		inclusiveMax = upper.Kind == algebra.Included
	}
	tq := bquery.NewTermRangeInclusiveQuery(min, max, &inclusiveMin, &inclusiveMax)
	tq.SetField(field)
	return tq, nil
}

func boosted(q bquery.Query, factor float64) bquery.Query {
	if b, ok := q.(bquery.BoostableQuery); ok {
		boost := bquery.Boost(factor)
		b.SetBoost(boost)
	}
	return q
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
