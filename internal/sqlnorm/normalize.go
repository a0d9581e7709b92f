package sqlnorm

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
)

// Sentinel errors. Callers skip the sample on any of them.
var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrParse        = errors.New("failed to parse query")
	ErrNotSupported = errors.New("statement not supported")
)

// Normalize parses one SELECT statement and returns its flat IR.
func Normalize(sql string) (*queryir.Query, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyQuery
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotSupported, stmt)
	}
	return NormalizeSelect(sel)
}

// NormalizeSelect builds the flat IR from an already parsed SELECT.
func NormalizeSelect(sel *sqlparser.Select) (*queryir.Query, error) {
	q := queryir.New()

	q.From = tableNames(sel)

	for _, expr := range sel.SelectExprs {
		q.Select = append(q.Select, selectItem(expr))
	}

	if sel.Where != nil {
		q.Where = conditions(sel.Where.Expr, false)
	}

	for _, expr := range sel.GroupBy {
		q.GroupBy = append(q.GroupBy, columnText(expr))
	}

	if sel.Having != nil {
		q.Having = conditions(sel.Having.Expr, true)
	}

	for _, order := range sel.OrderBy {
		dir := queryir.DirAsc
		if order.Direction == sqlparser.DescScr {
			dir = queryir.DirDesc
		}
		q.OrderBy = append(q.OrderBy, queryir.OrderItem{
			Column:    columnText(order.Expr),
			Direction: dir,
		})
	}

	if sel.Limit != nil {
		n, err := limitValue(sel.Limit)
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	return q, nil
}

// tableNames returns every table the statement reads, in first-appearance
// order, without duplicates. Tables inside subqueries are included.
func tableNames(sel *sqlparser.Select) []string {
	tables := []string{}
	seen := make(map[string]bool)

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		aliased, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		if tn, ok := aliased.Expr.(sqlparser.TableName); ok {
			name := tn.Name.String()
			if name != "" && !seen[name] {
				seen[name] = true
				tables = append(tables, name)
			}
		}
		return true, nil
	}, sel)

	return tables
}

func selectItem(expr sqlparser.SelectExpr) queryir.SelectItem {
	aliased, ok := expr.(*sqlparser.AliasedExpr)
	if !ok {
		// *StarExpr or Nextval
		return queryir.SelectItem{Column: sqlparser.String(expr)}
	}

	var item queryir.SelectItem
	if !aliased.As.IsEmpty() {
		item.Alias = aliased.As.String()
	}
	item.Column, item.Agg = splitAggregate(aliased.Expr)
	return item
}

// splitAggregate separates an aggregate call into its argument text and the
// upper-cased function name. Non-aggregates return their column text and "".
func splitAggregate(expr sqlparser.Expr) (column, agg string) {
	fn, ok := expr.(*sqlparser.FuncExpr)
	if !ok || !queryir.IsAggregate(fn.Name.String()) {
		return columnText(expr), ""
	}

	agg = strings.ToUpper(fn.Name.String())
	if len(fn.Exprs) == 0 {
		return "*", agg
	}

	switch arg := fn.Exprs[0].(type) {
	case *sqlparser.StarExpr:
		column = "*"
	case *sqlparser.AliasedExpr:
		column = columnText(arg.Expr)
	default:
		column = sqlparser.String(arg)
	}
	if fn.Distinct {
		column = "DISTINCT " + column
	}
	return column, agg
}

// columnText returns the bare name of a column reference, dropping any table
// qualifier. Other expressions are rendered as SQL.
func columnText(expr sqlparser.Expr) string {
	if col, ok := expr.(*sqlparser.ColName); ok {
		return col.Name.String()
	}
	return sqlparser.String(expr)
}

func limitValue(limit *sqlparser.Limit) (int64, error) {
	if limit.Offset != nil {
		slog.Debug("dropping LIMIT offset", "offset", sqlparser.String(limit.Offset))
	}
	val, ok := limit.Rowcount.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return 0, fmt.Errorf("%w: non-integer LIMIT %s", ErrNotSupported, sqlparser.String(limit.Rowcount))
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: LIMIT %s: %v", ErrNotSupported, val.Val, err)
	}
	return n, nil
}
