package compiler

import (
	"testing"

	"github.com/paradedb-core/searchcore/qual"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *schema.Handle {
	h, err := schema.Open(1, []schema.SearchField{
		{Name: "title", Type: schema.TypeStr, IsFast: true},
		{Name: "active", Type: schema.TypeBool, IsFast: true},
		{Name: "bio", Type: schema.TypeStr, IsFast: false},
	})
	require.NoError(t, err)
	return h
}

func baseOptions() Options {
	return Options{Relation: "t", AllowFilterPushdown: true, OurOperator: "@@@"}
}

func TestCompileOurOperatorConst(t *testing.T) {
	node := OpExpr{
		Operator: "@@@",
		Left:     ColumnRef{Field: "title"},
		Right:    Const{Value: "widget"},
	}
	q, stats, ok := Compile(baseOptions(), testSchema(t), node)
	require.True(t, ok)
	assert.True(t, stats.UsesOurOperator)
	assert.Equal(t, qual.OpExpr{Field: "title", Op: "@@@", RHS: "widget"}, q)
}

func TestCompileBareBooleanColumn(t *testing.T) {
	q, stats, ok := Compile(baseOptions(), testSchema(t), ColumnRef{Field: "active"})
	require.True(t, ok)
	assert.True(t, stats.UsesOurOperator)
	assert.Equal(t, qual.PushdownVarEqTrue{Field: "active"}, q)
}

func TestCompileExternalVarBecomesJoinPlaceholder(t *testing.T) {
	q, _, ok := Compile(baseOptions(), testSchema(t), ColumnRef{Field: "id", Relation: "other"})
	require.True(t, ok)
	assert.Equal(t, qual.ExternalVar{Field: "id", Relation: "other"}, q)
}

func TestCompileNonFastFieldDeclinesWithoutPushdown(t *testing.T) {
	opts := baseOptions()
	opts.AllowFilterPushdown = false
	_, _, ok := Compile(opts, testSchema(t), ColumnRef{Field: "bio"})
	assert.False(t, ok, "Q must decline a clause it can't push down when filter pushdown is disabled")
}

func TestCompileNonFastFieldBecomesHeapExprWhenAllowed(t *testing.T) {
	q, stats, ok := Compile(baseOptions(), testSchema(t), ColumnRef{Field: "bio"})
	require.True(t, ok)
	assert.True(t, stats.UsesHeapExpr)
	h, ok := q.(qual.HeapExpr)
	require.True(t, ok)
	assert.Equal(t, qual.All{}, h.IndexedQuery)
}

func TestCompileScoreExprComparison(t *testing.T) {
	node := OpExpr{
		Operator: ">",
		Left:     FuncCall{Name: "pdb.score", ScoreCall: true},
		Right:    Const{Value: float64(0.5)},
	}
	q, stats, ok := Compile(baseOptions(), testSchema(t), node)
	require.True(t, ok)
	assert.True(t, stats.UsesOurOperator)
	assert.Equal(t, qual.ScoreExpr{Op: ">", ValueNode: 0.5}, q)
}

func TestCompileAndOrNot(t *testing.T) {
	node := BoolExpr{Op: BoolAnd, Args: []ExprNode{
		ColumnRef{Field: "active"},
		BoolExpr{Op: BoolNot, Args: []ExprNode{ColumnRef{Field: "active"}}},
	}}
	q, _, ok := Compile(baseOptions(), testSchema(t), node)
	require.True(t, ok)
	and, ok := q.(qual.And)
	require.True(t, ok)
	require.Len(t, and.Children, 2)
	assert.Equal(t, qual.PushdownVarEqTrue{Field: "active"}, and.Children[0])
	assert.Equal(t, qual.PushdownVarEqFalse{Field: "active"}, and.Children[1])
}

func TestCompileVarInOperandDeclines(t *testing.T) {
	node := OpExpr{
		Operator: "@@@",
		Left:     ColumnRef{Field: "title"},
		Right:    ColumnRef{Field: "other", Relation: "t2"},
	}
	_, _, ok := Compile(baseOptions(), testSchema(t), node)
	assert.False(t, ok, "an operand referencing another relation's Var can't be handled at all")
}

func TestFromPostgresWhereClauseSimpleComparison(t *testing.T) {
	node, err := FromPostgresWhereClause("title @@@ 'widget'", "@@@", nil)
	require.NoError(t, err)
	op, ok := node.(OpExpr)
	require.True(t, ok)
	ref, ok := op.Left.(ColumnRef)
	require.True(t, ok)
	assert.Equal(t, schema.FieldName("title"), ref.Field)
	c, ok := op.Right.(Const)
	require.True(t, ok)
	assert.Equal(t, "widget", c.Value)
}

func TestFromPostgresWhereClauseBoolExpr(t *testing.T) {
	node, err := FromPostgresWhereClause("active IS TRUE AND bio IS NOT NULL", "@@@", nil)
	require.NoError(t, err)
	be, ok := node.(BoolExpr)
	require.True(t, ok)
	assert.Equal(t, BoolAnd, be.Op)
	require.Len(t, be.Args, 2)
	_, ok = be.Args[0].(BooleanTest)
	assert.True(t, ok)
	_, ok = be.Args[1].(NullTest)
	assert.True(t, ok)
}
