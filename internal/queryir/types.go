package queryir

import "strings"

// Aggregate function names.
const (
	AggSum   = "SUM"
	AggAvg   = "AVG"
	AggCount = "COUNT"
	AggMin   = "MIN"
	AggMax   = "MAX"

	// AggNone is emitted by some generators to mean "no aggregate".
	AggNone = "NONE"
)

// Comparison operators the normalizer produces.
const (
	OpEq      = "="
	OpGt      = ">"
	OpLt      = "<"
	OpGte     = ">="
	OpLte     = "<="
	OpNeq     = "!="
	OpLike    = "LIKE"
	OpIn      = "IN"
	OpBetween = "BETWEEN"
)

// Sort directions.
const (
	DirAsc  = "ASC"
	DirDesc = "DESC"
)

// Aggregates lists the recognized aggregate function names.
var Aggregates = []string{AggSum, AggAvg, AggCount, AggMin, AggMax}

// Operators lists the recognized comparison operators.
var Operators = []string{OpEq, OpGt, OpLt, OpGte, OpLte, OpNeq, OpLike, OpIn, OpBetween}

// Query is one SELECT statement in the flat IR.
//
// Every list is non-nil after Parse or New so the JSON form always carries
// all clause keys. Limit is nil when the statement has no LIMIT.
type Query struct {
	Select  []SelectItem `json:"select"`
	From    []string     `json:"from"`
	Where   []Condition  `json:"where"`
	GroupBy []string     `json:"groupBy"`
	OrderBy []OrderItem  `json:"orderBy"`
	Limit   *int64       `json:"limit"`
	Having  []Condition  `json:"having"`
}

// New returns an empty query with every list initialized.
func New() *Query {
	return &Query{
		Select:  []SelectItem{},
		From:    []string{},
		Where:   []Condition{},
		GroupBy: []string{},
		OrderBy: []OrderItem{},
		Having:  []Condition{},
	}
}

// SelectItem is one output column, optionally wrapped in an aggregate.
type SelectItem struct {
	Column string `json:"column"`
	Agg    string `json:"agg,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

// HasAgg reports whether the item carries a real aggregate.
func (s SelectItem) HasAgg() bool {
	return hasAgg(s.Agg)
}

// Condition is one AND-conjoined predicate of WHERE or HAVING.
//
// Value holds whatever the producer wrote: a string, a json.Number, a bool,
// nil, or a list. Agg is set on HAVING conditions whose left side is an
// aggregate call.
type Condition struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Agg      string `json:"agg,omitempty"`
}

// HasAgg reports whether the condition carries a real aggregate.
func (c Condition) HasAgg() bool {
	return hasAgg(c.Agg)
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

func hasAgg(agg string) bool {
	return agg != "" && !strings.EqualFold(agg, AggNone)
}

// IsAggregate reports whether name is a recognized aggregate, ignoring case.
func IsAggregate(name string) bool {
	for _, a := range Aggregates {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// IsOperator reports whether op is a recognized operator, ignoring case.
func IsOperator(op string) bool {
	for _, o := range Operators {
		if strings.EqualFold(o, op) {
			return true
		}
	}
	return false
}
