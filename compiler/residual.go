package compiler

import "github.com/paradedb-core/searchcore/algebra"

// toResidual converts an ExprNode Q could not push down into the
// algebra.Residual tree HeapFilter evaluates per row, over the same closed
// vocabulary walkBoolExpr/walkOpExpr already dispatch on. Shapes the
// residual evaluator can't interpret (a parameter, a volatile function call,
// anything opaque) become ResidualUnsupported rather than being silently
// dropped.
func toResidual(node ExprNode) algebra.Residual {
	switch n := node.(type) {
	case BoolExpr:
		children := make([]algebra.Residual, len(n.Args))
		for i, a := range n.Args {
			children[i] = toResidual(a)
		}
		switch n.Op {
		case BoolAnd:
			return algebra.ResidualAnd{Children: children}
		case BoolOr:
			return algebra.ResidualOr{Children: children}
		case BoolNot:
			if len(children) != 1 {
				return algebra.ResidualUnsupported{Description: "NOT with an unexpected argument count"}
			}
			return algebra.ResidualNot{Inner: children[0]}
		default:
			return algebra.ResidualUnsupported{Description: "unrecognized boolean operator"}
		}

	case OpExpr:
		ref, ok := n.Left.(ColumnRef)
		if !ok || !isComparisonOperator(n.Operator) {
			return algebra.ResidualUnsupported{Description: "comparison shape the heap-side evaluator can't interpret"}
		}
		rhs, ok := n.Right.(Const)
		if !ok {
			return algebra.ResidualUnsupported{Description: "comparison against a non-constant right-hand side"}
		}
		if rhs.IsNull {
			// Any comparison against NULL is itself NULL (unknown), which a
			// WHERE clause always treats as "does not pass".
			return algebra.ResidualLiteral{Value: false}
		}
		return algebra.ResidualCompare{Field: ref.Field, Op: n.Operator, Value: rhs.Value}

	case ColumnRef:
		return algebra.ResidualCompare{Field: n.Field, Op: "=", Value: true}

	case Const:
		if !n.IsBool {
			return algebra.ResidualUnsupported{Description: "non-boolean constant used as a predicate"}
		}
		return algebra.ResidualLiteral{Value: !n.IsNull && n.BoolBool}

	case NullTest:
		ref, ok := n.Arg.(ColumnRef)
		if !ok {
			return algebra.ResidualUnsupported{Description: "IS [NOT] NULL on a non-column expression"}
		}
		return algebra.ResidualIsNull{Field: ref.Field, Not: n.IsNot}

	case BooleanTest:
		ref, ok := n.Arg.(ColumnRef)
		if !ok {
			return algebra.ResidualUnsupported{Description: "IS [NOT] TRUE/FALSE on a non-column expression"}
		}
		switch n.Kind {
		case IsTrue:
			return algebra.ResidualBoolTest{Field: ref.Field, Kind: algebra.IsTrue}
		case IsNotTrue:
			return algebra.ResidualBoolTest{Field: ref.Field, Kind: algebra.IsNotTrue}
		case IsFalse:
			return algebra.ResidualBoolTest{Field: ref.Field, Kind: algebra.IsFalse}
		case IsNotFalse:
			return algebra.ResidualBoolTest{Field: ref.Field, Kind: algebra.IsNotFalse}
		case IsUnknown:
			return algebra.ResidualIsNull{Field: ref.Field}
		case IsNotUnknown:
			return algebra.ResidualIsNull{Field: ref.Field, Not: true}
		default:
			return algebra.ResidualUnsupported{Description: "unrecognized boolean test kind"}
		}

	case Opaque:
		return algebra.ResidualUnsupported{Description: n.Description}

	default:
		return algebra.ResidualUnsupported{Description: "unsupported expression shape"}
	}
}

// isComparisonOperator reports whether op is one of the scalar comparison
// operators the residual evaluator knows how to apply.
func isComparisonOperator(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}
