package qual

import (
	"testing"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotIsInvolution(t *testing.T) {
	cases := []Qual{
		PushdownVarEqTrue{Field: "active"},
		PushdownVarIsTrue{Field: "active"},
		PushdownIsNotNull{Field: "bio"},
		And{Children: []Qual{PushdownVarEqTrue{Field: "a"}, PushdownVarEqTrue{Field: "b"}}},
		ExternalVar{Field: "other_col", Relation: "other_table"},
	}
	for _, q := range cases {
		once := Not(q)
		twice := Not(once)

		a, err := Lower(q)
		require.NoError(t, err)
		b, err := Lower(twice)
		require.NoError(t, err)

		sa, err := algebra.Serialize(a)
		require.NoError(t, err)
		sb, err := algebra.Serialize(b)
		require.NoError(t, err)
		assert.Equal(t, sa, sb, "Not(Not(q)) must lower to the same algebra as q")
	}
}

func TestNotVarEqNeverMatchesNull(t *testing.T) {
	// Invariant (a): Not(field = true) becomes field = false, and neither
	// form is permitted to match rows where field IS NULL.
	negated := Not(PushdownVarEqTrue{Field: "active"})
	assert.Equal(t, PushdownVarEqFalse{Field: "active"}, negated)
}

func TestNotVarIsMatchesNull(t *testing.T) {
	// Invariant (b): Not(field IS TRUE) must also match field IS NULL.
	negated := Not(PushdownVarIsTrue{Field: "active"})
	or, ok := negated.(Or)
	require.True(t, ok)
	require.Len(t, or.Children, 2)
	assert.Equal(t, PushdownVarEqFalse{Field: "active"}, or.Children[0])
	inner, isNot := AsNot(or.Children[1])
	require.True(t, isNot)
	assert.Equal(t, PushdownIsNotNull{Field: "active"}, inner)
}

func TestExternalVarNegatesToAll(t *testing.T) {
	assert.Equal(t, All{}, Not(ExternalVar{Field: "x", Relation: "other"}))
	assert.Equal(t, All{}, Not(ExternalExpr{Description: "other.col > 5"}))
}

func TestDeMorgan(t *testing.T) {
	and := And{Children: []Qual{PushdownVarEqTrue{Field: "a"}, PushdownVarEqTrue{Field: "b"}}}
	negated := Not(and)
	or, ok := negated.(Or)
	require.True(t, ok)
	assert.Equal(t, PushdownVarEqFalse{Field: "a"}, or.Children[0])
	assert.Equal(t, PushdownVarEqFalse{Field: "b"}, or.Children[1])
}

func TestHeapExprLowersIndexedQueryAndFilters(t *testing.T) {
	h := And{Children: []Qual{
		PushdownVarEqTrue{Field: "active"},
		HeapExpr{
			Description:  "comparison on a non-fast field: weight",
			IndexedQuery: All{},
			Residual:     algebra.ResidualCompare{Field: "weight", Op: ">", Value: 20.0},
		},
	}}
	lowered, err := Lower(h)
	require.NoError(t, err)
	filter, ok := lowered.(algebra.HeapFilter)
	require.True(t, ok, "AND containing a HeapExpr must lower to HeapFilter")
	assert.Contains(t, filter.FieldFilters, schema.FieldName("weight"))
}

// TestHeapExprResidualExcludesNonMatchingRows is the regression case for a
// predicate like `price > 20 AND body @@@ 'shoes'` where price isn't a
// fast field: the index side only ever sees body @@@ 'shoes', so the
// HeapFilter's residual must still exclude rows that fail the price
// comparison once the row's real value is known.
func TestHeapExprResidualExcludesNonMatchingRows(t *testing.T) {
	h := And{Children: []Qual{
		OpExpr{Field: "body", Op: "@@@", RHS: "shoes"},
		HeapExpr{
			Description:  "comparison on a non-fast field: price",
			IndexedQuery: All{},
			Residual:     algebra.ResidualCompare{Field: "price", Op: ">", Value: 20.0},
		},
	}}
	lowered, err := Lower(h)
	require.NoError(t, err)
	filter, ok := lowered.(algebra.HeapFilter)
	require.True(t, ok)

	cheapRow := rowValues{"price": 10.0}
	passes, err := algebra.EvaluateResidual(filter.Residual, cheapRow)
	require.NoError(t, err)
	assert.False(t, passes, "price=10 must not satisfy price > 20")

	expensiveRow := rowValues{"price": 25.0}
	passes, err = algebra.EvaluateResidual(filter.Residual, expensiveRow)
	require.NoError(t, err)
	assert.True(t, passes, "price=25 must satisfy price > 20")
}

type rowValues map[schema.FieldName]any

func (r rowValues) Value(field schema.FieldName) (any, bool) {
	v, ok := r[field]
	return v, ok
}
