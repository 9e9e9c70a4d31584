package algebra

import (
	"encoding/json"
	"fmt"

	"github.com/paradedb-core/searchcore/schema"
)

// envelope is the one on-wire shape every SearchQueryInput/QueryKind
// serializes to: a string discriminator plus its raw payload. encoding/json
// preserves declared struct field order, so two envelopes built from
// value-equal Go structs always produce byte-identical JSON without needing
// a custom canonicalizing writer.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Serialize renders q to its canonical textual form for embedding inside an
// opaque plan-node payload.
func Serialize(q SearchQueryInput) (string, error) {
	env, err := encodeInput(q)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("algebra: serialize: %w", err)
	}
	return string(buf), nil
}

// Deserialize parses the canonical textual form produced by Serialize.
// Planner and executor always run the same build, so no version tag is
// carried.
func Deserialize(s string) (SearchQueryInput, error) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("algebra: deserialize: %w", err)
	}
	return decodeInput(env)
}

func encodeInput(q SearchQueryInput) (envelope, error) {
	marshal := func(kind string, v any) (envelope, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return envelope{}, fmt.Errorf("algebra: encode %s: %w", kind, err)
		}
		return envelope{Kind: kind, Data: data}, nil
	}

	switch v := q.(type) {
	case All:
		return marshal("All", struct{}{})
	case Empty:
		return marshal("Empty", struct{}{})
	case WithIndex:
		inner, err := encodeInput(v.Query)
		if err != nil {
			return envelope{}, err
		}
		return marshal("WithIndex", struct {
			OID   schema.IndexOID `json:"oid"`
			Query envelope        `json:"query"`
		}{v.OID, inner})
	case Boolean:
		must, err := encodeInputs(v.Must)
		if err != nil {
			return envelope{}, err
		}
		should, err := encodeInputs(v.Should)
		if err != nil {
			return envelope{}, err
		}
		mustNot, err := encodeInputs(v.MustNot)
		if err != nil {
			return envelope{}, err
		}
		return marshal("Boolean", struct {
			Must    []envelope `json:"must"`
			Should  []envelope `json:"should"`
			MustNot []envelope `json:"must_not"`
		}{must, should, mustNot})
	case Boost:
		inner, err := encodeInput(v.Query)
		if err != nil {
			return envelope{}, err
		}
		return marshal("Boost", struct {
			Query  envelope `json:"query"`
			Factor float32  `json:"factor"`
		}{inner, v.Factor})
	case ConstScore:
		inner, err := encodeInput(v.Query)
		if err != nil {
			return envelope{}, err
		}
		return marshal("ConstScore", struct {
			Query envelope `json:"query"`
			Score float32  `json:"score"`
		}{inner, v.Score})
	case ScoreFilter:
		var inner *envelope
		if v.Query != nil {
			enc, err := encodeInput(v.Query)
			if err != nil {
				return envelope{}, err
			}
			inner = &enc
		}
		return marshal("ScoreFilter", struct {
			Bounds []ScoreInterval `json:"bounds"`
			Query  *envelope       `json:"query,omitempty"`
		}{v.Bounds, inner})
	case DisjunctionMax:
		disjuncts, err := encodeInputs(v.Disjuncts)
		if err != nil {
			return envelope{}, err
		}
		return marshal("DisjunctionMax", struct {
			Disjuncts  []envelope `json:"disjuncts"`
			TieBreaker *float32   `json:"tie_breaker,omitempty"`
		}{disjuncts, v.TieBreaker})
	case Exists:
		return marshal("Exists", struct {
			Field schema.FieldName `json:"field"`
		}{v.Field})
	case FastFieldRangeWeight:
		return marshal("FastFieldRangeWeight", struct {
			Field schema.FieldName `json:"field"`
			Lower Bound[int64]     `json:"lower"`
			Upper Bound[int64]     `json:"upper"`
		}{v.Field, v.Lower, v.Upper})
	case FieldedQuery:
		inner, err := encodeQueryKind(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		return marshal("FieldedQuery", struct {
			Field schema.FieldName `json:"field"`
			Inner envelope         `json:"inner"`
		}{v.Field, inner})
	case MoreLikeThis:
		return marshal("MoreLikeThis", v)
	case Parse:
		return marshal("Parse", v)
	case ParseWithField:
		return marshal("ParseWithField", v)
	case HeapFilter:
		inner, err := encodeInput(v.IndexedQuery)
		if err != nil {
			return envelope{}, err
		}
		var residual *envelope
		if v.Residual != nil {
			enc, err := encodeResidual(v.Residual)
			if err != nil {
				return envelope{}, err
			}
			residual = &enc
		}
		return marshal("HeapFilter", struct {
			IndexedQuery envelope           `json:"indexed_query"`
			FieldFilters []schema.FieldName `json:"field_filters"`
			Residual     *envelope          `json:"residual,omitempty"`
		}{inner, v.FieldFilters, residual})
	case PostgresExpression:
		return marshal("PostgresExpression", v)
	default:
		return envelope{}, fmt.Errorf("algebra: encode: unhandled SearchQueryInput %T", q)
	}
}

func encodeInputs(qs []SearchQueryInput) ([]envelope, error) {
	out := make([]envelope, len(qs))
	for i, q := range qs {
		env, err := encodeInput(q)
		if err != nil {
			return nil, err
		}
		out[i] = env
	}
	return out, nil
}

func decodeInput(env envelope) (SearchQueryInput, error) {
	switch env.Kind {
	case "All":
		return All{}, nil
	case "Empty":
		return Empty{}, nil
	case "WithIndex":
		var raw struct {
			OID   schema.IndexOID `json:"oid"`
			Query envelope        `json:"query"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeInput(raw.Query)
		if err != nil {
			return nil, err
		}
		return WithIndex{OID: raw.OID, Query: inner}, nil
	case "Boolean":
		var raw struct {
			Must    []envelope `json:"must"`
			Should  []envelope `json:"should"`
			MustNot []envelope `json:"must_not"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		must, err := decodeInputs(raw.Must)
		if err != nil {
			return nil, err
		}
		should, err := decodeInputs(raw.Should)
		if err != nil {
			return nil, err
		}
		mustNot, err := decodeInputs(raw.MustNot)
		if err != nil {
			return nil, err
		}
		return Boolean{Must: must, Should: should, MustNot: mustNot}, nil
	case "Boost":
		var raw struct {
			Query  envelope `json:"query"`
			Factor float32  `json:"factor"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeInput(raw.Query)
		if err != nil {
			return nil, err
		}
		return Boost{Query: inner, Factor: raw.Factor}, nil
	case "ConstScore":
		var raw struct {
			Query envelope `json:"query"`
			Score float32  `json:"score"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeInput(raw.Query)
		if err != nil {
			return nil, err
		}
		return ConstScore{Query: inner, Score: raw.Score}, nil
	case "ScoreFilter":
		var raw struct {
			Bounds []ScoreInterval `json:"bounds"`
			Query  *envelope       `json:"query,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		var inner SearchQueryInput
		if raw.Query != nil {
			q, err := decodeInput(*raw.Query)
			if err != nil {
				return nil, err
			}
			inner = q
		}
		return ScoreFilter{Bounds: raw.Bounds, Query: inner}, nil
	case "DisjunctionMax":
		var raw struct {
			Disjuncts  []envelope `json:"disjuncts"`
			TieBreaker *float32   `json:"tie_breaker,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		disjuncts, err := decodeInputs(raw.Disjuncts)
		if err != nil {
			return nil, err
		}
		return DisjunctionMax{Disjuncts: disjuncts, TieBreaker: raw.TieBreaker}, nil
	case "Exists":
		var raw struct {
			Field schema.FieldName `json:"field"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		return Exists{Field: raw.Field}, nil
	case "FastFieldRangeWeight":
		var raw struct {
			Field schema.FieldName `json:"field"`
			Lower Bound[int64]     `json:"lower"`
			Upper Bound[int64]     `json:"upper"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		return FastFieldRangeWeight{Field: raw.Field, Lower: raw.Lower, Upper: raw.Upper}, nil
	case "FieldedQuery":
		var raw struct {
			Field schema.FieldName `json:"field"`
			Inner envelope         `json:"inner"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeQueryKind(raw.Inner)
		if err != nil {
			return nil, err
		}
		return FieldedQuery{Field: raw.Field, Inner: inner}, nil
	case "MoreLikeThis":
		var v MoreLikeThis
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "Parse":
		var v Parse
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "ParseWithField":
		var v ParseWithField
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "HeapFilter":
		var raw struct {
			IndexedQuery envelope           `json:"indexed_query"`
			FieldFilters []schema.FieldName `json:"field_filters"`
			Residual     *envelope          `json:"residual,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeInput(raw.IndexedQuery)
		if err != nil {
			return nil, err
		}
		var residual Residual
		if raw.Residual != nil {
			residual, err = decodeResidual(*raw.Residual)
			if err != nil {
				return nil, err
			}
		}
		return HeapFilter{IndexedQuery: inner, FieldFilters: raw.FieldFilters, Residual: residual}, nil
	case "PostgresExpression":
		var v PostgresExpression
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("algebra: decode: unknown SearchQueryInput kind %q", env.Kind)
	}
}

func decodeInputs(envs []envelope) ([]SearchQueryInput, error) {
	out := make([]SearchQueryInput, len(envs))
	for i, e := range envs {
		q, err := decodeInput(e)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func encodeQueryKind(k QueryKind) (envelope, error) {
	marshal := func(kind string, v any) (envelope, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return envelope{}, fmt.Errorf("algebra: encode %s: %w", kind, err)
		}
		return envelope{Kind: kind, Data: data}, nil
	}
	switch v := k.(type) {
	case Term:
		return marshal("Term", v)
	case TermSet:
		return marshal("TermSet", v)
	case Range:
		return marshal("Range", v)
	case RangeCompare:
		return marshal("RangeCompare", v)
	case RangeTerm:
		return marshal("RangeTerm", v)
	case FuzzyTerm:
		return marshal("FuzzyTerm", v)
	case Match:
		return marshal("Match", v)
	case MatchArray:
		return marshal("MatchArray", v)
	case Phrase:
		return marshal("Phrase", v)
	case PhrasePrefix:
		return marshal("PhrasePrefix", v)
	case TokenizedPhrase:
		return marshal("TokenizedPhrase", v)
	case PhraseArray:
		return marshal("PhraseArray", v)
	case Regex:
		return marshal("Regex", v)
	case RegexPhrase:
		return marshal("RegexPhrase", v)
	case Proximity:
		return marshal("Proximity", v)
	case FieldExists:
		return marshal("FieldExists", struct{}{})
	case FastFieldRange:
		return marshal("FastFieldRange", v)
	case InnerParse:
		return marshal("InnerParse", v)
	case ScoreAdjusted:
		inner, err := encodeQueryKind(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		return marshal("ScoreAdjusted", struct {
			Inner  envelope `json:"inner"`
			Factor float32  `json:"factor"`
		}{inner, v.Factor})
	default:
		return envelope{}, fmt.Errorf("algebra: encode: unhandled QueryKind %T", k)
	}
}

func decodeQueryKind(env envelope) (QueryKind, error) {
	switch env.Kind {
	case "Term":
		var v Term
		return v, json.Unmarshal(env.Data, &v)
	case "TermSet":
		var v TermSet
		return v, json.Unmarshal(env.Data, &v)
	case "Range":
		var v Range
		return v, json.Unmarshal(env.Data, &v)
	case "RangeCompare":
		var v RangeCompare
		return v, json.Unmarshal(env.Data, &v)
	case "RangeTerm":
		var v RangeTerm
		return v, json.Unmarshal(env.Data, &v)
	case "FuzzyTerm":
		var v FuzzyTerm
		return v, json.Unmarshal(env.Data, &v)
	case "Match":
		var v Match
		return v, json.Unmarshal(env.Data, &v)
	case "MatchArray":
		var v MatchArray
		return v, json.Unmarshal(env.Data, &v)
	case "Phrase":
		var v Phrase
		return v, json.Unmarshal(env.Data, &v)
	case "PhrasePrefix":
		var v PhrasePrefix
		return v, json.Unmarshal(env.Data, &v)
	case "TokenizedPhrase":
		var v TokenizedPhrase
		return v, json.Unmarshal(env.Data, &v)
	case "PhraseArray":
		var v PhraseArray
		return v, json.Unmarshal(env.Data, &v)
	case "Regex":
		var v Regex
		return v, json.Unmarshal(env.Data, &v)
	case "RegexPhrase":
		var v RegexPhrase
		return v, json.Unmarshal(env.Data, &v)
	case "Proximity":
		var v Proximity
		return v, json.Unmarshal(env.Data, &v)
	case "FieldExists":
		return FieldExists{}, nil
	case "FastFieldRange":
		var v FastFieldRange
		return v, json.Unmarshal(env.Data, &v)
	case "InnerParse":
		var v InnerParse
		return v, json.Unmarshal(env.Data, &v)
	case "ScoreAdjusted":
		var raw struct {
			Inner  envelope `json:"inner"`
			Factor float32  `json:"factor"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeQueryKind(raw.Inner)
		if err != nil {
			return nil, err
		}
		return ScoreAdjusted{Inner: inner, Factor: raw.Factor}, nil
	default:
		return nil, fmt.Errorf("algebra: decode: unknown QueryKind %q", env.Kind)
	}
}

// encodeResidual/decodeResidual serialize HeapFilter's residual predicate
// using the same envelope shape as SearchQueryInput/QueryKind.
func encodeResidual(r Residual) (envelope, error) {
	marshal := func(kind string, v any) (envelope, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return envelope{}, fmt.Errorf("algebra: encode %s: %w", kind, err)
		}
		return envelope{Kind: kind, Data: data}, nil
	}
	switch v := r.(type) {
	case ResidualAnd:
		children, err := encodeResiduals(v.Children)
		if err != nil {
			return envelope{}, err
		}
		return marshal("ResidualAnd", struct {
			Children []envelope `json:"children"`
		}{children})
	case ResidualOr:
		children, err := encodeResiduals(v.Children)
		if err != nil {
			return envelope{}, err
		}
		return marshal("ResidualOr", struct {
			Children []envelope `json:"children"`
		}{children})
	case ResidualNot:
		inner, err := encodeResidual(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		return marshal("ResidualNot", struct {
			Inner envelope `json:"inner"`
		}{inner})
	case ResidualCompare:
		return marshal("ResidualCompare", v)
	case ResidualIsNull:
		return marshal("ResidualIsNull", v)
	case ResidualBoolTest:
		return marshal("ResidualBoolTest", v)
	case ResidualLiteral:
		return marshal("ResidualLiteral", v)
	case ResidualUnsupported:
		return marshal("ResidualUnsupported", v)
	default:
		return envelope{}, fmt.Errorf("algebra: encode: unhandled Residual %T", r)
	}
}

func encodeResiduals(rs []Residual) ([]envelope, error) {
	out := make([]envelope, len(rs))
	for i, r := range rs {
		env, err := encodeResidual(r)
		if err != nil {
			return nil, err
		}
		out[i] = env
	}
	return out, nil
}

func decodeResidual(env envelope) (Residual, error) {
	switch env.Kind {
	case "ResidualAnd":
		var raw struct {
			Children []envelope `json:"children"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		children, err := decodeResiduals(raw.Children)
		if err != nil {
			return nil, err
		}
		return ResidualAnd{Children: children}, nil
	case "ResidualOr":
		var raw struct {
			Children []envelope `json:"children"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		children, err := decodeResiduals(raw.Children)
		if err != nil {
			return nil, err
		}
		return ResidualOr{Children: children}, nil
	case "ResidualNot":
		var raw struct {
			Inner envelope `json:"inner"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		inner, err := decodeResidual(raw.Inner)
		if err != nil {
			return nil, err
		}
		return ResidualNot{Inner: inner}, nil
	case "ResidualCompare":
		var v ResidualCompare
		return v, json.Unmarshal(env.Data, &v)
	case "ResidualIsNull":
		var v ResidualIsNull
		return v, json.Unmarshal(env.Data, &v)
	case "ResidualBoolTest":
		var v ResidualBoolTest
		return v, json.Unmarshal(env.Data, &v)
	case "ResidualLiteral":
		var v ResidualLiteral
		return v, json.Unmarshal(env.Data, &v)
	case "ResidualUnsupported":
		var v ResidualUnsupported
		return v, json.Unmarshal(env.Data, &v)
	default:
		return nil, fmt.Errorf("algebra: decode: unknown Residual kind %q", env.Kind)
	}
}

func decodeResiduals(envs []envelope) ([]Residual, error) {
	out := make([]Residual, len(envs))
	for i, e := range envs {
		r, err := decodeResidual(e)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
