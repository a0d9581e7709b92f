package querysql

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
)

// ErrorSentinel is the SQL text CompileJSON returns for input it cannot
// compile. Batch drivers store it in place of a prediction and move on.
const ErrorSentinel = "Error"

// DefaultTable is used when a query names no table.
const DefaultTable = "demographics"

// aggCall matches text that already contains an aggregate call, e.g. "SUM(x)".
var aggCall = regexp.MustCompile(`(?i)(SUM|AVG|COUNT|MIN|MAX)\s*\(`)

// CompileError reports a flat IR query that is well-formed JSON but cannot be
// rendered as SQL.
type CompileError struct {
	Clause  string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %s", e.Clause, e.Message)
}

// SQLCompiler compiles flat IR queries to single-line SQL.
//
// Every field of the input is optional. Clauses are emitted in the fixed
// order SELECT, FROM, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, joined by a
// single space, without a statement terminator. Output depends only on the
// input, so compiling the same query twice yields identical bytes.
type SQLCompiler struct {
	// DefaultTable is used when the query's from list is empty.
	DefaultTable string
}

// NewSQLCompiler creates a SQLCompiler targeting DefaultTable.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{DefaultTable: DefaultTable}
}

// CompileJSON decodes and compiles generator output.
// It never fails: any decode or compile error yields ErrorSentinel.
func (c *SQLCompiler) CompileJSON(data []byte) (sql string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("flat compile panicked", "panic", r)
			sql = ErrorSentinel
		}
	}()

	q, err := queryir.Parse(data)
	if err != nil {
		slog.Debug("flat ir rejected", "error", err)
		return ErrorSentinel
	}
	sql, err = c.Compile(q)
	if err != nil {
		slog.Debug("flat compile failed", "error", err)
		return ErrorSentinel
	}
	return sql
}

// Compile renders q as SQL.
//
// WHERE and HAVING conditions are pooled before classification because
// producers do not reliably separate them. A condition is routed to HAVING
// when any of these hold:
//  1. it carries an explicit aggregate
//  2. its column or value text already contains an aggregate call
//  3. its bare column is aggregated by some select item; the column is then
//     rewritten to that aggregate call
//
// Rule 3 misroutes a plain filter on a column that is also aggregated in the
// select list. Downstream scoring depends on this routing, so it is kept.
func (c *SQLCompiler) Compile(q *queryir.Query) (string, error) {
	if q == nil {
		return "", &CompileError{Clause: "query", Message: "nil query"}
	}

	clauses := []string{c.compileSelect(q.Select), c.compileFrom(q.From)}

	aggByColumn := aggregateLookup(q.Select)
	conditions := make([]queryir.Condition, 0, len(q.Where)+len(q.Having))
	conditions = append(conditions, q.Where...)
	conditions = append(conditions, q.Having...)

	var where, having []string
	for _, cond := range conditions {
		pred, isAgg := compileCondition(cond, aggByColumn)
		if isAgg {
			having = append(having, pred)
		} else {
			where = append(where, pred)
		}
	}

	if len(where) > 0 {
		clauses = append(clauses, "WHERE "+strings.Join(where, " AND "))
	}
	if len(q.GroupBy) > 0 {
		clauses = append(clauses, "GROUP BY "+strings.Join(q.GroupBy, ", "))
	}
	if len(having) > 0 {
		clauses = append(clauses, "HAVING "+strings.Join(having, " AND "))
	}

	orderBy, err := compileOrderBy(q.OrderBy)
	if err != nil {
		return "", err
	}
	if orderBy != "" {
		clauses = append(clauses, orderBy)
	}

	if q.Limit != nil {
		if *q.Limit < 0 {
			return "", &CompileError{Clause: "LIMIT", Message: fmt.Sprintf("negative limit %d", *q.Limit)}
		}
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", *q.Limit))
	}

	return strings.Join(clauses, " "), nil
}

// compileSelect renders the select list; an empty list selects *.
func (c *SQLCompiler) compileSelect(items []queryir.SelectItem) string {
	if len(items) == 0 {
		return "SELECT *"
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		expr := item.Column
		if item.HasAgg() {
			expr = fmt.Sprintf("%s(%s)", strings.ToUpper(item.Agg), item.Column)
		}
		if item.Alias != "" {
			expr += " AS " + item.Alias
		}
		parts = append(parts, expr)
	}
	return "SELECT " + strings.Join(parts, ", ")
}

func (c *SQLCompiler) compileFrom(tables []string) string {
	if len(tables) == 0 {
		table := c.DefaultTable
		if table == "" {
			table = DefaultTable
		}
		return "FROM " + table
	}
	return "FROM " + strings.Join(tables, ", ")
}

// aggregateLookup maps each aggregated select column to its aggregate.
// A column aggregated twice keeps the last one.
func aggregateLookup(items []queryir.SelectItem) map[string]string {
	m := make(map[string]string)
	for _, item := range items {
		if item.Column != "" && item.HasAgg() {
			m[item.Column] = strings.ToUpper(item.Agg)
		}
	}
	return m
}

// compileCondition renders one predicate and reports whether it belongs in
// HAVING.
func compileCondition(cond queryir.Condition, aggByColumn map[string]string) (string, bool) {
	op := cond.Operator
	if op == "" {
		op = queryir.OpEq
	}
	val := decodeListLiteral(cond.Value)
	rhs := renderOperand(op, val)

	col := cond.Column
	colHasCall := aggCall.MatchString(col)
	inferred, inLookup := aggByColumn[col]

	isAgg := cond.HasAgg() || colHasCall || inLookup
	if s, ok := val.(string); ok && aggCall.MatchString(s) {
		isAgg = true
	}

	if isAgg && !colHasCall {
		switch {
		case cond.HasAgg():
			col = fmt.Sprintf("%s(%s)", strings.ToUpper(cond.Agg), col)
		case inLookup:
			col = fmt.Sprintf("%s(%s)", inferred, col)
		}
	}

	if _, isList := val.([]any); isList && strings.EqualFold(op, queryir.OpIn) {
		return fmt.Sprintf("%s IN %s", col, rhs), isAgg
	}
	return fmt.Sprintf("%s %s %s", col, op, rhs), isAgg
}

func compileOrderBy(items []queryir.OrderItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Column) == "" {
			return "", &CompileError{Clause: "ORDER BY", Message: fmt.Sprintf("item %d has no column", i)}
		}
		dir := strings.ToUpper(strings.TrimSpace(item.Direction))
		if dir == "" {
			dir = queryir.DirAsc
		}
		parts = append(parts, item.Column+" "+dir)
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}
