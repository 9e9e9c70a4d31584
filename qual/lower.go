package qual

import (
	"fmt"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/schema"
)

// Lower deterministically converts a planning-tree Qual into the executable
// algebra.SearchQueryInput the index reader (I) consumes, mirroring the
// teacher planner's Plan-to-ExecutionNode translation in
// datalog/planner/interface.go.
func Lower(q Qual) (algebra.SearchQueryInput, error) {
	switch v := q.(type) {
	case All:
		return algebra.All{}, nil
	case Empty:
		return algebra.Empty{}, nil
	case OpExpr:
		return lowerOpExpr(v)
	case Expr:
		return algebra.PostgresExpression{Description: v.Description}, nil
	case PushdownVarEqTrue:
		return algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: "true"}}, nil
	case PushdownVarEqFalse:
		return algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: "false"}}, nil
	case PushdownVarIsTrue:
		return algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: "true"}}, nil
	case PushdownVarIsFalse:
		return algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: "false"}}, nil
	case PushdownIsNotNull:
		return algebra.Exists{Field: v.Field}, nil
	case PushdownExpr:
		return algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: fmt.Sprint(v.Value)}}, nil
	case ScoreExpr:
		return lowerScoreExpr(v)
	case HeapExpr:
		indexed, err := Lower(v.IndexedQuery)
		if err != nil {
			return nil, err
		}
		var filters []schema.FieldName
		if v.Residual != nil {
			filters = algebra.ReferencedFieldsOfResidual(v.Residual)
		}
		return algebra.HeapFilter{IndexedQuery: indexed, FieldFilters: filters, Residual: v.Residual}, nil
	case And:
		return lowerAnd(v)
	case Or:
		return lowerOr(v)
	case notNode:
		// A notNode that survived construction wraps something with no
		// dedicated negative form (e.g. PushdownIsNotNull): lower the
		// inner query and mark it as a heap-residual MustNot clause,
		// since the index has no native "does not exist" primitive. A
		// HeapExpr's residual must be negated along with it, or the
		// heap-side filter would still apply the un-negated predicate.
		if h, ok := v.Inner.(HeapExpr); ok {
			indexed, err := Lower(h.IndexedQuery)
			if err != nil {
				return nil, err
			}
			b := algebra.Boolean{MustNot: []algebra.SearchQueryInput{
				algebra.HeapFilter{IndexedQuery: indexed},
			}}
			if h.Residual != nil {
				b.Must = []algebra.SearchQueryInput{
					algebra.HeapFilter{IndexedQuery: algebra.All{}, Residual: algebra.ResidualNot{Inner: h.Residual}},
				}
			}
			return b, nil
		}
		inner, err := Lower(v.Inner)
		if err != nil {
			return nil, err
		}
		return algebra.Boolean{MustNot: []algebra.SearchQueryInput{inner}}, nil
	case ExternalVar, ExternalExpr:
		return algebra.All{}, nil
	default:
		return nil, fmt.Errorf("qual: unrecognized node %T", q)
	}
}

func lowerOpExpr(v OpExpr) (algebra.SearchQueryInput, error) {
	value, ok := v.RHS.(string)
	if !ok {
		value = fmt.Sprint(v.RHS)
	}
	leaf := algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: value}}
	if v.ArraySemantics == nil {
		return leaf, nil
	}
	values, ok := v.RHS.([]string)
	if !ok {
		return leaf, nil
	}
	switch *v.ArraySemantics {
	case Any:
		disjuncts := make([]algebra.SearchQueryInput, len(values))
		for i, val := range values {
			disjuncts[i] = algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: val}}
		}
		return algebra.Boolean{Should: disjuncts}, nil
	case AllOf:
		conjuncts := make([]algebra.SearchQueryInput, len(values))
		for i, val := range values {
			conjuncts[i] = algebra.FieldedQuery{Field: v.Field, Inner: algebra.Term{Value: val}}
		}
		return algebra.Boolean{Must: conjuncts}, nil
	default:
		return leaf, nil
	}
}

func lowerScoreExpr(v ScoreExpr) (algebra.SearchQueryInput, error) {
	f, ok := v.ValueNode.(float64)
	if !ok {
		return nil, fmt.Errorf("qual: score comparison operand %v is not numeric", v.ValueNode)
	}
	bound := float32(f)
	switch v.Op {
	case ">":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{{Lower: algebra.ExcludedBound(bound)}}}, nil
	case ">=":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{{Lower: algebra.IncludedBound(bound)}}}, nil
	case "<":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{{Upper: algebra.ExcludedBound(bound)}}}, nil
	case "<=":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{{Upper: algebra.IncludedBound(bound)}}}, nil
	case "=":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{{Lower: algebra.IncludedBound(bound), Upper: algebra.IncludedBound(bound)}}}, nil
	case "<>":
		return algebra.ScoreFilter{Bounds: []algebra.ScoreInterval{
			{Upper: algebra.ExcludedBound(bound)},
			{Lower: algebra.ExcludedBound(bound)},
		}}, nil
	default:
		return nil, fmt.Errorf("qual: unsupported score operator %q", v.Op)
	}
}

func lowerAnd(v And) (algebra.SearchQueryInput, error) {
	must := make([]algebra.SearchQueryInput, 0, len(v.Children))
	var residuals []algebra.Residual
	var filters []schema.FieldName
	for _, c := range v.Children {
		if h, ok := c.(HeapExpr); ok {
			indexed, err := Lower(h.IndexedQuery)
			if err != nil {
				return nil, err
			}
			must = append(must, indexed)
			if h.Residual != nil {
				residuals = append(residuals, h.Residual)
				filters = append(filters, algebra.ReferencedFieldsOfResidual(h.Residual)...)
			}
			continue
		}
		lowered, err := Lower(c)
		if err != nil {
			return nil, err
		}
		must = append(must, lowered)
	}
	if len(residuals) == 0 {
		if len(must) == 1 {
			return must[0], nil
		}
		return algebra.Boolean{Must: must}, nil
	}
	var indexed algebra.SearchQueryInput = algebra.Boolean{Must: must}
	if len(must) == 1 {
		indexed = must[0]
	}
	return algebra.HeapFilter{IndexedQuery: indexed, FieldFilters: filters, Residual: combineResiduals(residuals)}, nil
}

// combineResiduals ANDs together every residual found across an AND's
// children; a single residual is returned bare rather than wrapped in a
// one-child ResidualAnd.
func combineResiduals(residuals []algebra.Residual) algebra.Residual {
	if len(residuals) == 1 {
		return residuals[0]
	}
	return algebra.ResidualAnd{Children: residuals}
}

func lowerOr(v Or) (algebra.SearchQueryInput, error) {
	should := make([]algebra.SearchQueryInput, len(v.Children))
	for i, c := range v.Children {
		lowered, err := Lower(c)
		if err != nil {
			return nil, err
		}
		should[i] = lowered
	}
	if len(should) == 1 {
		return should[0], nil
	}
	return algebra.Boolean{Should: should}, nil
}
