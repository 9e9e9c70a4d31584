package compiler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/paradedb-core/searchcore/schema"
)

// FromPostgresWhereClause parses a standalone SQL expression (as it would
// appear after a synthetic `SELECT 1 WHERE ...`) into ExprNode, using
// pg_query_go's JSON AST and walking it as a map[string]any tree — the
// same technique pg_lineage.ResolveProvenance uses, rather than pg_query_go's
// generated protobuf Go structs, to keep the one place this module speaks
// raw Postgres parse-tree JSON small and auditable.
//
// scoreFuncNames identifies which FuncCall names are our score()
// collaborator function (`pdb.score`), since a raw parse tree has no OID
// to match against the way the original Rust compares score_funcoids().
func FromPostgresWhereClause(whereExpr string, ourOperator string, scoreFuncNames map[string]bool) (ExprNode, error) {
	sql := "SELECT 1 WHERE " + whereExpr
	raw, err := pg_query.ParseToJSON(sql)
	if err != nil {
		return nil, fmt.Errorf("compiler: parse error: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("compiler: invalid parse tree json: %w", err)
	}

	stmts, _ := tree["stmts"].([]any)
	if len(stmts) == 0 {
		return nil, fmt.Errorf("compiler: no statements")
	}
	stmt, _ := stmts[0].(map[string]any)["stmt"].(map[string]any)
	selectStmt, ok := stmt["SelectStmt"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("compiler: expected a SELECT")
	}
	whereClause, ok := selectStmt["whereClause"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("compiler: no WHERE clause")
	}

	w := &walker{ourOperator: ourOperator, scoreFuncs: scoreFuncNames}
	return w.node(whereClause)
}

type walker struct {
	ourOperator string
	scoreFuncs  map[string]bool
}

// node dispatches on the single top-level key of a pg_query JSON node,
// exactly as resolver.go does for ColumnRef/A_Star/etc.
func (w *walker) node(n map[string]any) (ExprNode, error) {
	if v, ok := n["BoolExpr"].(map[string]any); ok {
		return w.boolExpr(v)
	}
	if v, ok := n["A_Expr"].(map[string]any); ok {
		return w.aExpr(v)
	}
	if v, ok := n["ColumnRef"].(map[string]any); ok {
		return w.columnRef(v)
	}
	if v, ok := n["A_Const"].(map[string]any); ok {
		return w.aConst(v)
	}
	if v, ok := n["ParamRef"].(map[string]any); ok {
		num, _ := v["number"].(float64)
		return Param{Index: int(num)}, nil
	}
	if v, ok := n["NullTest"].(map[string]any); ok {
		return w.nullTest(v)
	}
	if v, ok := n["BooleanTest"].(map[string]any); ok {
		return w.booleanTest(v)
	}
	if v, ok := n["FuncCall"].(map[string]any); ok {
		return w.funcCall(v)
	}
	return Opaque{Description: fmt.Sprintf("unrecognized node %v", keysOf(n))}, nil
}

func (w *walker) boolExpr(v map[string]any) (ExprNode, error) {
	op, _ := v["boolop"].(string)
	args, _ := v["args"].([]any)
	nodes := make([]ExprNode, 0, len(args))
	for _, a := range args {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		child, err := w.node(m)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, child)
	}
	var bop BoolOp
	switch op {
	case "AND_EXPR":
		bop = BoolAnd
	case "OR_EXPR":
		bop = BoolOr
	case "NOT_EXPR":
		bop = BoolNot
	default:
		return nil, fmt.Errorf("compiler: unknown boolop %q", op)
	}
	return BoolExpr{Op: bop, Args: nodes}, nil
}

func (w *walker) aExpr(v map[string]any) (ExprNode, error) {
	kind, _ := v["kind"].(string)
	name := operatorName(v["name"])

	lexprMap, _ := v["lexpr"].(map[string]any)
	rexprMap, _ := v["rexpr"].(map[string]any)
	var left, right ExprNode
	var err error
	if lexprMap != nil {
		left, err = w.node(lexprMap)
		if err != nil {
			return nil, err
		}
	}
	if rexprMap != nil {
		right, err = w.node(rexprMap)
		if err != nil {
			return nil, err
		}
	}

	if kind == "AEXPR_IN" {
		// rexpr is a list of A_Const nodes, not a single node.
		rlist, _ := v["rexpr"].([]any)
		values := make([]any, 0, len(rlist))
		for _, r := range rlist {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			c, err := w.node(m)
			if err != nil {
				return nil, err
			}
			if cc, ok := c.(Const); ok {
				values = append(values, cc.Value)
			}
		}
		mode := ArrayAny
		right = Array{Values: values}
		return OpExpr{Operator: "=", Left: left, Right: right, ArraySemantics: &mode}, nil
	}

	return OpExpr{Operator: name, Left: left, Right: right}, nil
}

func (w *walker) columnRef(v map[string]any) (ExprNode, error) {
	fields, _ := v["fields"].([]any)
	var parts []string
	for _, f := range fields {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["String"].(map[string]any); ok {
			if sval, ok := s["sval"].(string); ok {
				parts = append(parts, sval)
			}
		}
	}
	if len(parts) == 0 {
		return Opaque{Description: "column reference with no name"}, nil
	}
	if len(parts) == 1 {
		return ColumnRef{Field: fieldName(parts[0])}, nil
	}
	// Qualified reference relation.column; anything beyond the first two
	// parts is a JSON-path suffix kept inside the field name itself.
	return ColumnRef{Relation: parts[0], Field: fieldName(joinDotted(parts[1:]))}, nil
}

func (w *walker) aConst(v map[string]any) (ExprNode, error) {
	if _, ok := v["isnull"]; ok {
		return Const{IsNull: true}, nil
	}
	if iv, ok := v["ival"].(map[string]any); ok {
		n, _ := iv["ival"].(float64)
		return Const{Value: int64(n)}, nil
	}
	if fv, ok := v["fval"].(map[string]any); ok {
		s, _ := fv["fval"].(string)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("compiler: bad float constant %q: %w", s, err)
		}
		return Const{Value: f}, nil
	}
	if sv, ok := v["sval"].(map[string]any); ok {
		s, _ := sv["sval"].(string)
		return Const{Value: s}, nil
	}
	if bv, ok := v["boolval"].(map[string]any); ok {
		b, _ := bv["boolval"].(bool)
		return Const{IsBool: true, BoolBool: b, Value: b}, nil
	}
	return Const{IsNull: true}, nil
}

func (w *walker) nullTest(v map[string]any) (ExprNode, error) {
	argMap, _ := v["arg"].(map[string]any)
	arg, err := w.node(argMap)
	if err != nil {
		return nil, err
	}
	kind, _ := v["nulltesttype"].(string)
	return NullTest{Arg: arg, IsNot: kind == "IS_NOT_NULL"}, nil
}

func (w *walker) booleanTest(v map[string]any) (ExprNode, error) {
	argMap, _ := v["arg"].(map[string]any)
	arg, err := w.node(argMap)
	if err != nil {
		return nil, err
	}
	kind, _ := v["booltesttype"].(string)
	var bt BooleanTestKind
	switch kind {
	case "IS_TRUE":
		bt = IsTrue
	case "IS_NOT_TRUE":
		bt = IsNotTrue
	case "IS_FALSE":
		bt = IsFalse
	case "IS_NOT_FALSE":
		bt = IsNotFalse
	case "IS_UNKNOWN":
		bt = IsUnknown
	case "IS_NOT_UNKNOWN":
		bt = IsNotUnknown
	}
	return BooleanTest{Arg: arg, Kind: bt}, nil
}

func (w *walker) funcCall(v map[string]any) (ExprNode, error) {
	name := operatorName(v["funcname"])
	argsRaw, _ := v["args"].([]any)
	args := make([]ExprNode, 0, len(argsRaw))
	for _, a := range argsRaw {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		child, err := w.node(m)
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}
	return FuncCall{Name: name, Args: args, ScoreCall: w.scoreFuncs[name]}, nil
}

func operatorName(raw any) string {
	items, _ := raw.([]any)
	if len(items) == 0 {
		return ""
	}
	last, _ := items[len(items)-1].(map[string]any)
	if s, ok := last["String"].(map[string]any); ok {
		if sval, ok := s["sval"].(string); ok {
			return sval
		}
	}
	return ""
}

func fieldName(s string) schema.FieldName { return schema.FieldName(s) }

func joinDotted(parts []string) string { return strings.Join(parts, ".") }

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
