// Package qual implements the query-planning tree (Qual): the
// intermediate representation the compiler (Q) produces while walking a
// host expression tree, before it is lowered to the executable algebra
// (package algebra).
package qual

import (
	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/schema"
)

// Qual is the closed tagged union of planning-tree nodes. Concrete variants
// implement it via the unexported marker method, following the same
// closed-interface idiom the teacher uses for query.Clause.
type Qual interface {
	isQual()
}

// All matches every row; Empty matches none.
type All struct{}
type Empty struct{}

func (All) isQual()   {}
func (Empty) isQual() {}

// AnyOrAll selects ScalarArrayOpExpr decomposition semantics.
type AnyOrAll uint8

const (
	Any AnyOrAll = iota
	AllOf
)

// OpExpr is our @@@ operator, or a ScalarArrayOpExpr decomposed into
// AND/OR of per-element terms.
type OpExpr struct {
	Field          schema.FieldName
	Op             string
	RHS            any // Const value, already resolved
	ArraySemantics *AnyOrAll
}

func (OpExpr) isQual() {}

// Expr is a deferred host expression solved at execution time (e.g. it
// contains a Param or a correlated subquery reference).
type Expr struct {
	Node        any
	Description string
}

func (Expr) isQual() {}

// PushdownVarEqTrue/False are `field = true`/`field = false` pushed to the
// index; per invariant (a) these never match a row where field IS NULL.
type PushdownVarEqTrue struct{ Field schema.FieldName }
type PushdownVarEqFalse struct{ Field schema.FieldName }

func (PushdownVarEqTrue) isQual()  {}
func (PushdownVarEqFalse) isQual() {}

// PushdownVarIsTrue/False are `field IS TRUE`/`field IS FALSE`, three-valued
// predicates; per invariant (b) negating PushdownVarIsTrue must match NULL.
type PushdownVarIsTrue struct{ Field schema.FieldName }
type PushdownVarIsFalse struct{ Field schema.FieldName }

func (PushdownVarIsTrue) isQual()  {}
func (PushdownVarIsFalse) isQual() {}

// PushdownIsNotNull is `field IS NOT NULL` pushed to the index. `field IS
// NULL` is represented as Not{Inner: PushdownIsNotNull{...}} — there is no
// separate tag for it, keeping the vocabulary of Qual nodes minimal.
type PushdownIsNotNull struct{ Field schema.FieldName }

func (PushdownIsNotNull) isQual() {}

// PushdownExpr is an immediately-evaluable constant expression producing a
// query literal (e.g. a cast or concat of constants).
type PushdownExpr struct {
	Field schema.FieldName
	Value any
}

func (PushdownExpr) isQual() {}

// ScoreExpr is a comparison against score(row), compiled to one or two
// score-bound intervals.
type ScoreExpr struct {
	Op        string
	ValueNode any
}

func (ScoreExpr) isQual() {}

// HeapExpr is a predicate that cannot be pushed down; IndexedQuery is
// evaluated first (defaulting to All), then Node is applied per tuple.
// Invariant (c): IndexedQuery == All is a last resort, only emitted when
// heap-residual evaluation is permitted by configuration. Residual is Node
// converted into the algebra's evaluable form; the compiler always sets it,
// using algebra.ResidualUnsupported for a Node the evaluator cannot
// interpret. A nil Residual lowers to a HeapFilter with no residual.
type HeapExpr struct {
	Node         any
	Description  string
	IndexedQuery Qual
	Residual     algebra.Residual
}

func (HeapExpr) isQual() {}

// And/Or/Not are the boolean combinators.
type And struct{ Children []Qual }
type Or struct{ Children []Qual }
type notNode struct{ Inner Qual }

func (And) isQual()    {}
func (Or) isQual()     {}
func (notNode) isQual() {}

// Not is a smart constructor: it applies invariants (a)/(b)/(c) and the
// ExternalVar/ExternalExpr-negates-to-All rule eagerly, and collapses
// double negation, so every Qual tree that exists is already in
// invariant-preserving canonical form — negation is never represented as
// a bare wrapper around a node that has its own negated form.
func Not(inner Qual) Qual {
	if n, ok := inner.(notNode); ok {
		return n.Inner
	}
	switch v := inner.(type) {
	case PushdownVarEqTrue:
		return PushdownVarEqFalse{Field: v.Field}
	case PushdownVarEqFalse:
		return PushdownVarEqTrue{Field: v.Field}
	case PushdownVarIsTrue:
		// Matches field = false OR field IS NULL (per invariant (b)).
		return Or{Children: []Qual{
			PushdownVarEqFalse{Field: v.Field},
			notNode{Inner: PushdownIsNotNull{Field: v.Field}},
		}}
	case PushdownVarIsFalse:
		return Or{Children: []Qual{
			PushdownVarEqTrue{Field: v.Field},
			notNode{Inner: PushdownIsNotNull{Field: v.Field}},
		}}
	case ExternalVar:
		return All{}
	case ExternalExpr:
		return All{}
	case All:
		return Empty{}
	case Empty:
		return All{}
	case And:
		children := make([]Qual, len(v.Children))
		for i, c := range v.Children {
			children[i] = Not(c)
		}
		return Or{Children: children}
	case Or:
		// Undo the Or that Not(PushdownVarIsTrue/IsFalse) builds above.
		if len(v.Children) == 2 {
			if n, ok := v.Children[1].(notNode); ok {
				if nn, ok := n.Inner.(PushdownIsNotNull); ok {
					switch c := v.Children[0].(type) {
					case PushdownVarEqFalse:
						if c.Field == nn.Field {
							return PushdownVarIsTrue{Field: c.Field}
						}
					case PushdownVarEqTrue:
						if c.Field == nn.Field {
							return PushdownVarIsFalse{Field: c.Field}
						}
					}
				}
			}
		}
		children := make([]Qual, len(v.Children))
		for i, c := range v.Children {
			children[i] = Not(c)
		}
		return And{Children: children}
	default:
		return notNode{Inner: inner}
	}
}

// AsNot reports whether q is a (possibly rewritten) Not node and returns
// its inner Qual.
func AsNot(q Qual) (Qual, bool) {
	n, ok := q.(notNode)
	if !ok {
		return nil, false
	}
	return n.Inner, true
}

// ExternalVar/ExternalExpr reference another relation (join placeholders).
type ExternalVar struct {
	Field    schema.FieldName
	Relation string
}
type ExternalExpr struct {
	Node        any
	Description string
}

func (ExternalVar) isQual()  {}
func (ExternalExpr) isQual() {}
