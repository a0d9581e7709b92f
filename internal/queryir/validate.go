package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists the problems found in a flat IR query.
//
// Warnings do not make a query uncompilable: the compiler renders unknown
// operators verbatim and falls back to defaults for empty clauses. They exist
// so generated IR can be scored and reported before it reaches the database.
type ValidationResult struct {
	// Valid is true when no warnings were raised.
	Valid bool `json:"valid"`

	// Warnings are human-readable, one per problem, in clause order.
	Warnings []string `json:"warnings"`
}

// Validate checks a query against the flat IR conventions.
//
// Checks:
//  1. select items name a column; aggregates are recognized
//  2. conditions name a column and a recognized operator
//  3. IN values are lists or list literals; BETWEEN values are "low AND high"
//  4. orderBy items name a column; directions are ASC or DESC
//  5. limit is non-negative
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{warnings: []string{}}
	if q == nil {
		v.addWarning("nil query")
	} else {
		v.validateQuery(q)
	}
	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	for i, item := range q.Select {
		if strings.TrimSpace(item.Column) == "" {
			v.addWarning("select[%d]: empty column", i)
		}
		if item.HasAgg() && !IsAggregate(item.Agg) {
			v.addWarning("select[%d]: unknown aggregate %q", i, item.Agg)
		}
	}
	for i, c := range q.Where {
		v.validateCondition(fmt.Sprintf("where[%d]", i), c)
	}
	for i, c := range q.Having {
		v.validateCondition(fmt.Sprintf("having[%d]", i), c)
	}
	for i, o := range q.OrderBy {
		if strings.TrimSpace(o.Column) == "" {
			v.addWarning("orderBy[%d]: missing column", i)
		}
		if o.Direction != "" && !strings.EqualFold(o.Direction, DirAsc) && !strings.EqualFold(o.Direction, DirDesc) {
			v.addWarning("orderBy[%d]: direction %q is neither ASC nor DESC", i, o.Direction)
		}
	}
	if q.Limit != nil && *q.Limit < 0 {
		v.addWarning("limit: %d is negative", *q.Limit)
	}
}

func (v *validator) validateCondition(field string, c Condition) {
	if strings.TrimSpace(c.Column) == "" {
		v.addWarning("%s: empty column", field)
	}
	if !IsOperator(c.Operator) {
		v.addWarning("%s: unknown operator %q", field, c.Operator)
		return
	}
	if c.HasAgg() && !IsAggregate(c.Agg) {
		v.addWarning("%s: unknown aggregate %q", field, c.Agg)
	}

	switch strings.ToUpper(c.Operator) {
	case OpIn:
		switch val := c.Value.(type) {
		case []any:
		case string:
			if !IsListLiteral(val) {
				v.addWarning("%s: IN value %q is not a list", field, val)
			}
		default:
			v.addWarning("%s: IN value is not a list", field)
		}
	case OpBetween:
		s, ok := c.Value.(string)
		if !ok || len(strings.Split(strings.ToUpper(s), " AND ")) != 2 {
			v.addWarning("%s: BETWEEN value must be \"low AND high\"", field)
		}
	}
}

// IsListLiteral reports whether s looks like a bracketed list literal.
func IsListLiteral(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}
