package algebra

import (
	"errors"
	"fmt"

	"github.com/paradedb-core/searchcore/schema"
)

// Residual is a non-pushdownable predicate a HeapFilter still has to apply
// to a candidate row after the index has matched it, the closed vocabulary
// compiler.ExprNode lowers to when a clause can't be expressed as a
// SearchQueryInput at all. It mirrors the comparison dispatch in
// datalog/storage/matcher.go's matchesDatom/valuesEqual: a per-type switch
// over the row's stored value rather than a generic reflect-based compare.
type Residual interface {
	isResidual()
}

// ResidualAnd/Or/Not are the boolean combinators.
type ResidualAnd struct{ Children []Residual }
type ResidualOr struct{ Children []Residual }
type ResidualNot struct{ Inner Residual }

func (ResidualAnd) isResidual() {}
func (ResidualOr) isResidual()  {}
func (ResidualNot) isResidual() {}

// ResidualCompare is a field-to-constant comparison (=, <>, <, <=, >, >=).
// Per SQL three-valued logic, a row whose field is absent or NULL makes the
// comparison unknown, which EvaluateResidual treats as "does not pass".
type ResidualCompare struct {
	Field schema.FieldName
	Op    string
	Value any
}

func (ResidualCompare) isResidual() {}

// ResidualIsNull is `field IS [NOT] NULL`, never unknown.
type ResidualIsNull struct {
	Field schema.FieldName
	Not   bool
}

func (ResidualIsNull) isResidual() {}

// BoolTestKind is the closed set of `IS [NOT] TRUE/FALSE` forms.
type BoolTestKind uint8

const (
	IsTrue BoolTestKind = iota
	IsNotTrue
	IsFalse
	IsNotFalse
)

// ResidualBoolTest is `field IS [NOT] TRUE/FALSE`: always a definite true or
// false, never unknown, the same three-valued carve-out qual.Not's
// invariant (b) gives PushdownVarIsTrue/False.
type ResidualBoolTest struct {
	Field schema.FieldName
	Kind  BoolTestKind
}

func (ResidualBoolTest) isResidual() {}

// ResidualLiteral is an already-resolved constant boolean (a fully-folded
// const expression, e.g. `true` or `NULL::bool`).
type ResidualLiteral struct{ Value bool }

func (ResidualLiteral) isResidual() {}

// ResidualUnsupported marks an expression shape the residual evaluator
// cannot interpret (a correlated parameter, a volatile function call, an
// opaque host node); EvaluateResidual surfaces this as ErrResidualUnsupported
// rather than silently admitting or excluding the row.
type ResidualUnsupported struct{ Description string }

func (ResidualUnsupported) isResidual() {}

// ErrResidualUnsupported is returned by EvaluateResidual/EvaluateHeapFilters
// when the residual tree contains a ResidualUnsupported leaf.
var ErrResidualUnsupported = errors.New("algebra: residual predicate is not supported by the heap-side evaluator")

// RowValues is the minimal row accessor EvaluateResidual needs: a field's
// decoded value (nil/false for NULL or absent), used against either a
// visibility.TupleHeader's stored values or a FastFieldMixed slot.
type RowValues interface {
	Value(field schema.FieldName) (any, bool)
}

// EvaluateResidual reports whether row satisfies r, collapsing SQL's
// three-valued unknown to "does not pass" at the top, the same way a WHERE
// clause only keeps rows the predicate evaluates to TRUE.
func EvaluateResidual(r Residual, row RowValues) (bool, error) {
	tri, err := evalTri(r, row)
	if err != nil {
		return false, err
	}
	return tri != nil && *tri, nil
}

// evalTri evaluates r to true, false, or unknown (nil), propagating NULL the
// way SQL's AND/OR/NOT do.
func evalTri(r Residual, row RowValues) (*bool, error) {
	switch v := r.(type) {
	case ResidualAnd:
		sawUnknown := false
		for _, c := range v.Children {
			t, err := evalTri(c, row)
			if err != nil {
				return nil, err
			}
			switch {
			case t != nil && !*t:
				return boolPtr(false), nil
			case t == nil:
				sawUnknown = true
			}
		}
		if sawUnknown {
			return nil, nil
		}
		return boolPtr(true), nil

	case ResidualOr:
		sawUnknown := false
		for _, c := range v.Children {
			t, err := evalTri(c, row)
			if err != nil {
				return nil, err
			}
			switch {
			case t != nil && *t:
				return boolPtr(true), nil
			case t == nil:
				sawUnknown = true
			}
		}
		if sawUnknown {
			return nil, nil
		}
		return boolPtr(false), nil

	case ResidualNot:
		t, err := evalTri(v.Inner, row)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, nil
		}
		return boolPtr(!*t), nil

	case ResidualCompare:
		val, ok := row.Value(v.Field)
		if !ok || val == nil {
			return nil, nil
		}
		cmp, comparable := compareAny(val, v.Value)
		if !comparable {
			return nil, nil
		}
		return boolPtr(satisfiesOp(cmp, v.Op)), nil

	case ResidualIsNull:
		val, ok := row.Value(v.Field)
		isNull := !ok || val == nil
		if v.Not {
			return boolPtr(!isNull), nil
		}
		return boolPtr(isNull), nil

	case ResidualBoolTest:
		val, ok := row.Value(v.Field)
		b, isBool := val.(bool)
		set := ok && isBool && b
		switch v.Kind {
		case IsTrue:
			return boolPtr(set), nil
		case IsNotTrue:
			return boolPtr(!set), nil
		case IsFalse:
			return boolPtr(ok && isBool && !b), nil
		case IsNotFalse:
			return boolPtr(!(ok && isBool && !b)), nil
		default:
			return nil, fmt.Errorf("algebra: unrecognized bool test kind %v", v.Kind)
		}

	case ResidualLiteral:
		return boolPtr(v.Value), nil

	case ResidualUnsupported:
		return nil, fmt.Errorf("%w: %s", ErrResidualUnsupported, v.Description)

	default:
		return nil, fmt.Errorf("algebra: unrecognized residual node %T", r)
	}
}

func boolPtr(b bool) *bool { return &b }

// satisfiesOp applies a three-way comparison result (-1/0/1) to op.
func satisfiesOp(cmp int, op string) bool {
	switch op {
	case "=":
		return cmp == 0
	case "<>", "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

// compareAny compares a row's stored value against a constant, dispatching
// on type the way matchesDatom/valuesEqual do rather than reflecting
// generically. ok is false when the two values are not comparable at all
// (e.g. a string against a float), which evalTri treats as unknown.
func compareAny(rowVal, constVal any) (cmp int, ok bool) {
	if rf, rok := asFloat(rowVal); rok {
		if cf, cok := asFloat(constVal); cok {
			switch {
			case rf < cf:
				return -1, true
			case rf > cf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if rs, rok := asString(rowVal); rok {
		if cs, cok := asString(constVal); cok {
			switch {
			case rs < cs:
				return -1, true
			case rs > cs:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if rb, rok := rowVal.(bool); rok {
		if cb, cok := constVal.(bool); cok {
			if rb == cb {
				return 0, true
			}
			return 1, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ReferencedFieldsOfResidual lists every field a residual predicate reads,
// for HeapFilter.FieldFilters / schema.Handle.ValidateFields.
func ReferencedFieldsOfResidual(r Residual) []schema.FieldName {
	switch v := r.(type) {
	case ResidualAnd:
		var out []schema.FieldName
		for _, c := range v.Children {
			out = append(out, ReferencedFieldsOfResidual(c)...)
		}
		return out
	case ResidualOr:
		var out []schema.FieldName
		for _, c := range v.Children {
			out = append(out, ReferencedFieldsOfResidual(c)...)
		}
		return out
	case ResidualNot:
		return ReferencedFieldsOfResidual(v.Inner)
	case ResidualCompare:
		return []schema.FieldName{v.Field}
	case ResidualIsNull:
		return []schema.FieldName{v.Field}
	case ResidualBoolTest:
		return []schema.FieldName{v.Field}
	default:
		return nil
	}
}

// CollectResiduals walks q and gathers every HeapFilter's Residual,
// regardless of where in the tree it sits. Heap-residual filtering is an
// umbrella AND over the whole row, the same flat treatment HeapFilter's
// FieldFilters already gets from qual.Lower, so a residual found under a
// Boolean.Should branch still applies to the candidate row as a whole.
func CollectResiduals(q SearchQueryInput) []Residual {
	var out []Residual
	var walk func(SearchQueryInput)
	walk = func(n SearchQueryInput) {
		switch v := n.(type) {
		case HeapFilter:
			if v.Residual != nil {
				out = append(out, v.Residual)
			}
			walk(v.IndexedQuery)
		case WithIndex:
			walk(v.Query)
		case Boolean:
			for _, c := range v.Must {
				walk(c)
			}
			for _, c := range v.Should {
				walk(c)
			}
			for _, c := range v.MustNot {
				walk(c)
			}
		case Boost:
			walk(v.Query)
		case ConstScore:
			walk(v.Query)
		case ScoreFilter:
			if v.Query != nil {
				walk(v.Query)
			}
		case DisjunctionMax:
			for _, c := range v.Disjuncts {
				walk(c)
			}
		}
	}
	walk(q)
	return out
}

// EvaluateHeapFilters evaluates every residual CollectResiduals finds under
// q against row, ANDing them together. A query with no residuals at all
// trivially passes.
func EvaluateHeapFilters(q SearchQueryInput, row RowValues) (bool, error) {
	residuals := CollectResiduals(q)
	for _, r := range residuals {
		ok, err := EvaluateResidual(r, row)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
