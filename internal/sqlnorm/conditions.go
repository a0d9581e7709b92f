package sqlnorm

import (
	"log/slog"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
)

// comparisonOps maps parser operators onto flat IR operators.
// Operators missing here (NOT IN, NOT LIKE, <=>, REGEXP) are dropped.
var comparisonOps = map[string]string{
	sqlparser.EqualStr:        queryir.OpEq,
	sqlparser.GreaterThanStr:  queryir.OpGt,
	sqlparser.LessThanStr:     queryir.OpLt,
	sqlparser.GreaterEqualStr: queryir.OpGte,
	sqlparser.LessEqualStr:    queryir.OpLte,
	sqlparser.NotEqualStr:     queryir.OpNeq,
	sqlparser.LikeStr:         queryir.OpLike,
	sqlparser.InStr:           queryir.OpIn,
}

// conditions flattens a boolean tree into AND-conjoined leaf conditions.
// With recordAgg set, a leaf whose left side is an aggregate call is
// recorded as {column: argument, agg: FUNC}.
func conditions(expr sqlparser.Expr, recordAgg bool) []queryir.Condition {
	var leaves []sqlparser.Expr
	splitAnd(expr, &leaves)

	out := []queryir.Condition{}
	for _, leaf := range leaves {
		cond, ok := condition(leaf, recordAgg)
		if !ok {
			slog.Debug("dropping predicate outside the flat IR", "predicate", sqlparser.String(leaf))
			continue
		}
		out = append(out, cond)
	}
	return out
}

// splitAnd collects the leaves of nested AND nodes, looking through
// parentheses. OR and NOT subtrees are leaves.
func splitAnd(expr sqlparser.Expr, leaves *[]sqlparser.Expr) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		splitAnd(e.Left, leaves)
		splitAnd(e.Right, leaves)
	case *sqlparser.ParenExpr:
		splitAnd(e.Expr, leaves)
	default:
		*leaves = append(*leaves, expr)
	}
}

func condition(expr sqlparser.Expr, recordAgg bool) (queryir.Condition, bool) {
	var cond queryir.Condition

	switch e := expr.(type) {
	case *sqlparser.ComparisonExpr:
		op, ok := comparisonOps[e.Operator]
		if !ok {
			return cond, false
		}
		cond.Operator = op
		cond.Column, cond.Agg = leftSide(e.Left, recordAgg)
		if op == queryir.OpIn {
			cond.Value = inValue(e.Right)
		} else {
			cond.Value = literal(e.Right)
		}
		return cond, true

	case *sqlparser.RangeCond:
		if e.Operator != sqlparser.BetweenStr {
			return cond, false
		}
		cond.Operator = queryir.OpBetween
		cond.Column, cond.Agg = leftSide(e.Left, recordAgg)
		cond.Value = literal(e.From) + " AND " + literal(e.To)
		return cond, true

	default:
		return cond, false
	}
}

func leftSide(expr sqlparser.Expr, recordAgg bool) (column, agg string) {
	if recordAgg {
		return splitAggregate(expr)
	}
	return columnText(expr), ""
}

// literal renders a comparison operand: string literals quoted, numbers as
// written, anything else as SQL.
func literal(expr sqlparser.Expr) string {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return sqlparser.String(expr)
	}
	switch val.Type {
	case sqlparser.StrVal:
		return "'" + strings.ReplaceAll(string(val.Val), "'", "''") + "'"
	case sqlparser.IntVal, sqlparser.FloatVal:
		return string(val.Val)
	default:
		return sqlparser.String(val)
	}
}

// bareText renders an IN list element without quotes; listElement adds the
// list literal's own quoting.
func bareText(expr sqlparser.Expr) string {
	switch e := expr.(type) {
	case *sqlparser.SQLVal:
		return string(e.Val)
	case *sqlparser.ColName:
		return e.Name.String()
	default:
		return sqlparser.String(expr)
	}
}

// inValue renders the right side of IN. A value tuple becomes a list literal
// of its elements; a subquery is kept as SQL text.
func inValue(expr sqlparser.Expr) string {
	tuple, ok := expr.(sqlparser.ValTuple)
	if !ok {
		return sqlparser.String(expr)
	}
	elems := make([]string, 0, len(tuple))
	for _, e := range tuple {
		elems = append(elems, listElement(bareText(e)))
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// listElement quotes s for a list literal. Single quotes are used with
// embedded ones doubled; a value whose only quotes are single quotes is
// double-quoted instead, as the label datasets write it. Both forms decode
// as YAML flow scalars.
func listElement(s string) string {
	if strings.Contains(s, "'") && !strings.ContainsAny(s, `"\`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
