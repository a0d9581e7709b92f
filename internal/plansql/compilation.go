package plansql

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/planir"
)

var (
	// aliasSuffix splits "expr AS alias" at the last AS.
	aliasSuffix = regexp.MustCompile(`(?is)^(.*)\s+AS\s+(\w+)\s*$`)

	bareIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// compilation accumulates one plan's clauses. It is owned by a single
// Compile call and discarded afterwards.
type compilation struct {
	table    string
	columns  []string
	filters  []string
	groupBy  []string
	orderBy  []string
	limit    string
	hasLimit bool
	aliases  map[string]string
	windows  []string // FIFO, oldest first
}

func newCompilation(table string) *compilation {
	return &compilation{
		table:   table,
		aliases: make(map[string]string),
	}
}

// visit folds children first, then the node itself.
func (c *compilation) visit(n *planir.Node) error {
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		if err := c.visit(child); err != nil {
			return err
		}
	}

	details := n.Details
	var err error
	switch n.Family() {
	case planir.FamilyScan:
		err = c.scan(details)
	case planir.FamilyFilter:
		err = c.filter(details)
	case planir.FamilyMath:
		err = c.math(details)
	case planir.FamilyAgg:
		err = c.aggregate(details)
	case planir.FamilyProject:
		err = c.project(details)
	case planir.FamilyWindow:
		err = c.window(details)
	case planir.FamilySort:
		err = c.sort(details)
	case planir.FamilyLimit:
		err = c.setLimit(details)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", n.Operation, err)
	}
	return nil
}

func (c *compilation) scan(details map[string]any) error {
	table, ok, err := text(details, "table", "table_name")
	if ok {
		c.table = table
	}
	return err
}

func (c *compilation) filter(details map[string]any) error {
	conds, err := texts(details, "condition", "filter")
	c.filters = append(c.filters, conds...)
	return err
}

func (c *compilation) math(details map[string]any) error {
	expr, hasExpr, err := text(details, "expression", "formula")
	if err != nil {
		return err
	}
	alias, hasAlias, err := text(details, "alias", "name")
	if err != nil {
		return err
	}
	if hasExpr && hasAlias {
		c.bind(alias, expr)
	}
	return nil
}

// aggregate handles all three AGG shapes; a node may carry several.
func (c *compilation) aggregate(details map[string]any) error {
	aggs, err := texts(details, "aggregates", "aggs")
	if err != nil {
		return err
	}
	for _, agg := range aggs {
		if m := aliasSuffix.FindStringSubmatch(agg); m != nil {
			c.aliases[m[2]] = strings.TrimSpace(m[1])
		}
		c.columns = append(c.columns, agg)
	}

	aggType, hasType, err := text(details, "type", "aggregationType")
	if err != nil {
		return err
	}
	target, hasTarget, err := text(details, "target", "column")
	if err != nil {
		return err
	}
	if hasType && hasTarget {
		expr := fmt.Sprintf("%s(%s)", aggType, target)
		alias, hasAlias, err := text(details, "alias")
		if err != nil {
			return err
		}
		if hasAlias {
			c.bind(alias, expr)
		} else {
			c.columns = append(c.columns, expr)
		}
	}

	groups, err := texts(details, "groupby", "group_by")
	c.groupBy = append(c.groupBy, groups...)
	return err
}

func (c *compilation) project(details map[string]any) error {
	names, err := texts(details, "columns", "projection", "target")
	if err != nil {
		return err
	}
	if len(names) > 0 {
		columns := make([]string, 0, len(names))
		for _, name := range names {
			columns = append(columns, c.resolve(name))
		}
		c.columns = columns
	}

	// Exact keys only: "filter" must not be read through its plural.
	hidden, ok := ir.LookupCase(details, "filters", "where")
	if !ok || hidden == nil {
		return nil
	}
	return c.hiddenFilters(hidden)
}

// resolve maps a projected name onto an alias binding, then onto the oldest
// pending window expression, and otherwise leaves it unchanged. A paired
// window is bound to the name so enclosing projections resolve it again.
func (c *compilation) resolve(name string) string {
	if expr, ok := c.aliases[name]; ok {
		return expr + " AS " + name
	}
	if len(c.windows) > 0 && bareIdentifier.MatchString(name) {
		expr := c.windows[0]
		c.windows = c.windows[1:]
		c.aliases[name] = expr
		return expr + " AS " + name
	}
	return name
}

// hiddenFilters appends the equality predicates some generators tuck into a
// PROJECT node. An object maps columns to literals; text is a condition.
func (c *compilation) hiddenFilters(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		conds, err := ir.AsStringList(v)
		if err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		c.filters = append(c.filters, nonEmpty(conds)...)
		return nil
	}

	for _, column := range ir.SortedKeys(m) {
		lit, err := literal(m[column])
		if err != nil {
			return fmt.Errorf("filters.%s: %w", column, err)
		}
		c.filters = append(c.filters, column+" = "+lit)
	}
	return nil
}

func (c *compilation) window(details map[string]any) error {
	function, ok, err := text(details, "function")
	if err != nil || !ok {
		return err
	}
	partition, _, err := text(details, "partition", "partition_by")
	if err != nil {
		return err
	}
	order, _, err := text(details, "order", "order_by")
	if err != nil {
		return err
	}

	var inner []string
	if partition != "" {
		inner = append(inner, partition)
	}
	if order != "" {
		inner = append(inner, order)
	}
	c.windows = append(c.windows, function+" OVER ("+strings.Join(inner, " ")+")")
	return nil
}

func (c *compilation) sort(details map[string]any) error {
	full, err := texts(details, "order_by")
	if err != nil {
		return err
	}
	if len(full) > 0 {
		c.orderBy = append(c.orderBy, full...)
		return nil
	}

	target, ok, err := text(details, "column", "target")
	if err != nil || !ok {
		return err
	}
	direction, ok, err := text(details, "order", "direction")
	if err != nil {
		return err
	}
	if !ok {
		direction = "ASC"
	}
	c.orderBy = append(c.orderBy, target+" "+strings.ToUpper(direction))
	return nil
}

func (c *compilation) setLimit(details map[string]any) error {
	v, ok := ir.Lookup(details, "count", "limit")
	if !ok || v == nil {
		return nil
	}
	n, err := ir.AsInt(v)
	if err != nil {
		return fmt.Errorf("limit: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("limit: %d is negative", n)
	}
	c.limit = strconv.FormatInt(n, 10)
	c.hasLimit = true
	return nil
}

func (c *compilation) bind(alias, expr string) {
	c.aliases[alias] = expr
	c.columns = append(c.columns, expr+" AS "+alias)
}

// build renders the accumulated clauses. Columns are deduplicated by exact
// text, first occurrence kept.
func (c *compilation) build() string {
	columns := dedup(c.columns)
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(c.table)
	if len(c.filters) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(c.filters, " AND "))
	}
	if len(c.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(c.groupBy, ", "))
	}
	if len(c.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(c.orderBy, ", "))
	}
	if c.hasLimit {
		sb.WriteString(" LIMIT ")
		sb.WriteString(c.limit)
	}
	sb.WriteString(";")
	return sb.String()
}

func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// text reads the first present key as trimmed text. Absent, null and blank
// values report ok=false; lists and objects are errors. A value found only
// through a singular/plural variant ("columns" for "column") is used when it
// is text and ignored otherwise.
func text(details map[string]any, keys ...string) (string, bool, error) {
	v, exact := ir.LookupCase(details, keys...)
	found := exact
	if !exact {
		v, found = ir.Lookup(details, keys...)
	}
	if !found || v == nil {
		return "", false, nil
	}
	s, err := ir.AsString(v)
	if err != nil {
		if !exact {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w", keys[0], err)
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

// texts reads the first present key as a list of trimmed, non-blank strings.
// A single string is a one-element list.
func texts(details map[string]any, keys ...string) ([]string, error) {
	v, ok := ir.Lookup(details, keys...)
	if !ok || v == nil {
		return nil, nil
	}
	items, err := ir.AsStringList(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keys[0], err)
	}
	return nonEmpty(items), nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// literal renders a hidden-filter value: strings quoted, numbers as written.
func literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return ir.AsString(v)
	}
}
