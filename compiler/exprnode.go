// Package compiler implements Q: the compiler that walks a host query's
// WHERE-clause expression tree and produces a qual.Qual planning tree. It
// never errors on a clause it cannot help with — it simply declines
// (returns ok=false), leaving that clause for the host's own (slower)
// residual evaluation.
package compiler

import "github.com/paradedb-core/searchcore/schema"

// ExprNode is our own representation of a host expression-tree node,
// deliberately narrower than a full Postgres parse tree: compiler.Compile
// only ever sees these shapes, produced either by FromPostgresWhereClause (the
// pg_query_go adapter, pgquery.go) or built directly by callers/tests.
// This mirrors how original_source/pg_search/src/postgres/customscan/
// qual_inspect.rs's extract_quals matches on a closed set of pg_sys
// NodeTags rather than walking arbitrary Postgres internals.
type ExprNode interface {
	isExprNode()
}

type BoolOp uint8

const (
	BoolAnd BoolOp = iota
	BoolOr
	BoolNot
)

// BoolExpr is AND/OR/NOT(args...), mirroring pg_sys::BoolExpr.
type BoolExpr struct {
	Op   BoolOp
	Args []ExprNode
}

func (BoolExpr) isExprNode() {}

// OpExpr is a binary operator comparison, e.g. `field @@@ 'term'` or
// `field = 5`. ArraySemantics is non-nil for a ScalarArrayOpExpr
// (`field @@@ ANY(array)` / `ALL(array)`).
type OpExpr struct {
	Operator       string
	Left           ExprNode
	Right          ExprNode
	ArraySemantics *ArraySemantics
}

func (OpExpr) isExprNode() {}

type ArraySemantics uint8

const (
	ArrayAny ArraySemantics = iota
	ArrayAll
)

// ColumnRef is a reference to a column. Relation is empty when the column
// belongs to the relation being scanned; a non-empty, different relation
// name marks it as a join placeholder (→ qual.ExternalVar).
type ColumnRef struct {
	Field    schema.FieldName
	Relation string
}

func (ColumnRef) isExprNode() {}

// Const is a literal value already resolved by the host parser/planner.
type Const struct {
	Value    any
	IsNull   bool
	IsBool   bool
	BoolBool bool
}

func (Const) isExprNode() {}

// Array is a literal array constant, the RHS of a ScalarArrayOpExpr.
type Array struct {
	Values []any
}

func (Array) isExprNode() {}

// Param is a `$n` placeholder or other deferred value; Q can never
// evaluate this at compile time. Compared with our operator it yields
// qual.Expr; anywhere else it yields a HeapExpr, or the clause is declined
// when heap-residual evaluation is disabled.
type Param struct {
	Index int
}

func (Param) isExprNode() {}

// FuncCall is a scalar function call. ScoreCall marks it as our
// `pdb.score(...)` collaborator function, recognized specifically so
// `score(...) > 0.5` compiles to qual.ScoreExpr; a comparison on any other
// function call becomes a HeapExpr, or is declined.
type FuncCall struct {
	Name      string
	Args      []ExprNode
	ScoreCall bool
}

func (FuncCall) isExprNode() {}

// NullTest is `arg IS [NOT] NULL`.
type NullTest struct {
	Arg   ExprNode
	IsNot bool
}

func (NullTest) isExprNode() {}

// BooleanTest is `arg IS [NOT] {TRUE,FALSE,UNKNOWN}`.
type BooleanTestKind uint8

const (
	IsTrue BooleanTestKind = iota
	IsNotTrue
	IsFalse
	IsNotFalse
	IsUnknown
	IsNotUnknown
)

type BooleanTest struct {
	Arg  ExprNode
	Kind BooleanTestKind
}

func (BooleanTest) isExprNode() {}

// Opaque wraps a host node Q does not recognize at all (a subquery, a
// volatile function, anything outside the closed set above); it always
// compiles to a HeapExpr with IndexedQuery All, or is declined entirely
// when heap-residual evaluation is disabled.
type Opaque struct {
	Description string
	Correlated  bool // references a Param or an outer-query Var
}

func (Opaque) isExprNode() {}
