package compiler

import (
	"github.com/paradedb-core/searchcore/qual"
	"github.com/paradedb-core/searchcore/schema"
)

// Options configures one compilation pass over a single relation's WHERE
// clause, mirroring original_source/pg_search/src/postgres/customscan/
// qual_inspect.rs's QualExtractState/PlannerContext plus the
// enable_filter_pushdown GUC.
type Options struct {
	// Relation is the name/alias of the relation being scanned; a
	// ColumnRef naming any other relation is an ExternalVar/ExternalExpr
	// join placeholder.
	Relation string
	// AllowFilterPushdown mirrors gucs::enable_filter_pushdown(): when
	// false, a clause Q can't push down is declined outright instead of
	// becoming a HeapExpr{IndexedQuery: All}.
	AllowFilterPushdown bool
	// OurOperator is the operator symbol this index claims (`@@@`); it is
	// always eligible for pushdown regardless of
	// AllowFilterPushdown, the same carve-out qual_inspect.rs gives
	// is_our_operator.
	OurOperator string
}

// Stats accumulates facts about the compiled clause, mirroring
// QualExtractState's uses_our_operator/uses_heap_expr/uses_tantivy_to_query
// flags; the scan driver (X) consults these to decide whether a custom
// scan is worth creating at all.
type Stats struct {
	UsesOurOperator bool
	UsesHeapExpr    bool
}

// Compile walks node and produces the Qual it represents, or ok=false if
// Q can't help at all with this clause (the host must evaluate it
// unaided). Q never returns an error for "can't help"; that is a
// decline, not a failure.
func Compile(opts Options, schema *schema.Handle, node ExprNode) (q qual.Qual, stats Stats, ok bool) {
	c := &compilation{opts: opts, schema: schema}
	result, ok := c.walk(node)
	if !ok {
		return nil, c.stats, false
	}
	return result, c.stats, true
}

type compilation struct {
	opts   Options
	schema *schema.Handle
	stats  Stats
}

func (c *compilation) walk(node ExprNode) (qual.Qual, bool) {
	switch n := node.(type) {
	case BoolExpr:
		return c.walkBoolExpr(n)
	case OpExpr:
		return c.walkOpExpr(n)
	case ColumnRef:
		return c.walkColumnRef(n)
	case NullTest:
		return c.walkNullTest(n)
	case BooleanTest:
		return c.walkBooleanTest(n)
	case Const:
		return c.walkConst(n)
	case Param:
		return c.heapOrDecline(n, "parameter reference")
	case Opaque:
		return c.heapOrDecline(n, n.Description)
	case FuncCall, Array:
		return c.heapOrDecline(n, "unsupported expression")
	default:
		return nil, false
	}
}

func (c *compilation) walkBoolExpr(n BoolExpr) (qual.Qual, bool) {
	children := make([]qual.Qual, 0, len(n.Args))
	for _, arg := range n.Args {
		child, ok := c.walk(arg)
		if !ok {
			return nil, false
		}
		children = append(children, child)
	}
	switch n.Op {
	case BoolAnd:
		return qual.And{Children: children}, true
	case BoolOr:
		return qual.Or{Children: children}, true
	case BoolNot:
		if len(children) != 1 {
			return nil, false
		}
		return qual.Not(children[0]), true
	default:
		return nil, false
	}
}

// walkColumnRef handles a bare boolean column reference: PostgreSQL emits
// a plain Var for `WHERE bool_field` (as opposed to the OpExpr emitted
// for `WHERE bool_field = true`), so this is its own case, per
// qual_inspect.rs's T_Var arm.
func (c *compilation) walkColumnRef(n ColumnRef) (qual.Qual, bool) {
	if n.Relation != "" && n.Relation != c.opts.Relation {
		return qual.ExternalVar{Field: n.Field, Relation: n.Relation}, true
	}
	if field, ok := c.schema.Field(n.Field); ok && field.IsFast {
		c.stats.UsesOurOperator = true
		return qual.PushdownVarEqTrue{Field: n.Field}, true
	}
	return c.heapOrDecline(n, "bare boolean column: "+string(n.Field))
}

func (c *compilation) walkNullTest(n NullTest) (qual.Qual, bool) {
	ref, ok := n.Arg.(ColumnRef)
	if !ok {
		return c.heapOrDecline(n, "IS [NOT] NULL on a non-column expression")
	}
	if ref.Relation != "" && ref.Relation != c.opts.Relation {
		return qual.ExternalVar{Field: ref.Field, Relation: ref.Relation}, true
	}
	if field, ok := c.schema.Field(ref.Field); !ok || !field.IsFast {
		return c.heapOrDecline(n, "IS [NOT] NULL on a non-fast field")
	}
	base := qual.Qual(qual.PushdownIsNotNull{Field: ref.Field})
	if n.IsNot {
		return base, true
	}
	return qual.Not(base), true
}

func (c *compilation) walkBooleanTest(n BooleanTest) (qual.Qual, bool) {
	ref, ok := n.Arg.(ColumnRef)
	if !ok {
		return c.heapOrDecline(n, "IS [NOT] TRUE/FALSE on a non-column expression")
	}
	if field, ok := c.schema.Field(ref.Field); !ok || !field.IsFast {
		return c.heapOrDecline(n, "IS [NOT] TRUE/FALSE on a non-fast field")
	}
	c.stats.UsesOurOperator = true
	switch n.Kind {
	case IsTrue:
		return qual.PushdownVarIsTrue{Field: ref.Field}, true
	case IsFalse:
		return qual.PushdownVarIsFalse{Field: ref.Field}, true
	case IsNotTrue:
		return qual.Not(qual.PushdownVarIsTrue{Field: ref.Field}), true
	case IsNotFalse:
		return qual.Not(qual.PushdownVarIsFalse{Field: ref.Field}), true
	default:
		// IS [NOT] UNKNOWN has no pushdown representation.
		return c.heapOrDecline(n, "IS [NOT] UNKNOWN")
	}
}

func (c *compilation) walkConst(n Const) (qual.Qual, bool) {
	if !n.IsBool {
		return nil, false
	}
	c.stats.UsesOurOperator = true
	if n.IsNull || !n.BoolBool {
		return qual.Empty{}, true
	}
	return qual.All{}, true
}

// walkOpExpr is the core pushdown decision: left-hand ColumnRef against
// our operator, a score() call comparison, or a generic comparison
// handed to a plain field-level pushdown. Grounded on qual_inspect.rs's
// opexpr/node_opexpr dispatch on the lhs node's shape.
func (c *compilation) walkOpExpr(n OpExpr) (qual.Qual, bool) {
	if fn, ok := n.Left.(FuncCall); ok && fn.ScoreCall {
		value, ok := constFloat(n.Right)
		if !ok {
			return c.heapOrDecline(n, "score() compared to a non-constant")
		}
		c.stats.UsesOurOperator = true
		return qual.ScoreExpr{Op: n.Operator, ValueNode: value}, true
	}

	ref, ok := n.Left.(ColumnRef)
	if !ok {
		return c.heapOrDecline(n, "comparison with a non-column left-hand side")
	}
	if ref.Relation != "" && ref.Relation != c.opts.Relation {
		return qual.ExternalVar{Field: ref.Field, Relation: ref.Relation}, true
	}

	if n.Operator == c.opts.OurOperator {
		c.stats.UsesOurOperator = true
		return c.pushdownOurOperator(ref.Field, n)
	}

	field, indexed := c.schema.Field(ref.Field)
	if !indexed || !field.IsFast {
		return c.heapOrDecline(n, "comparison on a non-fast field: "+string(ref.Field))
	}

	switch rhs := n.Right.(type) {
	case Const:
		if rhs.IsNull {
			return c.heapOrDecline(n, "comparison against NULL")
		}
		return qual.PushdownExpr{Field: ref.Field, Value: rhs.Value}, true
	case Param:
		return c.heapOrDecline(n, "comparison against a parameter: "+string(ref.Field))
	default:
		return c.heapOrDecline(n, "comparison against an unsupported expression")
	}
}

func (c *compilation) pushdownOurOperator(field schema.FieldName, n OpExpr) (qual.Qual, bool) {
	switch rhs := n.Right.(type) {
	case Const:
		if rhs.IsNull {
			return qual.Empty{}, true
		}
		return qual.OpExpr{Field: field, Op: n.Operator, RHS: rhs.Value}, true
	case Array:
		if n.ArraySemantics == nil {
			return c.heapOrDecline(n, "array literal without array semantics")
		}
		values := make([]string, 0, len(rhs.Values))
		for _, v := range rhs.Values {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
		mode := qual.Any
		if *n.ArraySemantics == ArrayAll {
			mode = qual.AllOf
		}
		return qual.OpExpr{Field: field, Op: n.Operator, RHS: values, ArraySemantics: &mode}, true
	case Param:
		return qual.Expr{Description: "our operator compared to a parameter on " + string(field)}, true
	default:
		if containsColumnRef(n.Right) {
			// references a Var: no amount of deferred evaluation helps.
			return nil, false
		}
		return qual.Expr{Description: "our operator with a non-constant right-hand side on " + string(field)}, true
	}
}

// heapOrDecline wraps node as a heap-residual predicate with IndexedQuery
// All, unless filter pushdown is disabled, in which case Q declines the
// clause entirely (matches qual_inspect.rs's `!gucs::enable_filter_pushdown()
// => return None` guard repeated at every HeapExpr site). node is converted
// to an algebra.Residual via toResidual so the heap-side evaluator actually
// sees the predicate it must apply, instead of only a human-readable
// description.
func (c *compilation) heapOrDecline(node ExprNode, description string) (qual.Qual, bool) {
	if !c.opts.AllowFilterPushdown {
		return nil, false
	}
	c.stats.UsesHeapExpr = true
	return qual.HeapExpr{
		Node:         node,
		Description:  description,
		IndexedQuery: qual.All{},
		Residual:     toResidual(node),
	}, true
}

func constFloat(n ExprNode) (float64, bool) {
	c, ok := n.(Const)
	if !ok || c.IsNull {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func containsColumnRef(n ExprNode) bool {
	switch v := n.(type) {
	case ColumnRef:
		return true
	case FuncCall:
		for _, a := range v.Args {
			if containsColumnRef(a) {
				return true
			}
		}
		return false
	case OpExpr:
		return containsColumnRef(v.Left) || containsColumnRef(v.Right)
	default:
		return false
	}
}
