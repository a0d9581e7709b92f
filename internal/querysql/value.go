package querysql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
)

// decodeListLiteral turns a string such as "['30005', '30006']" into a list.
// List literals are written in Python or JSON style; both are YAML flow
// sequences, so one decoder covers them. On failure the string is kept.
func decodeListLiteral(v any) any {
	s, ok := v.(string)
	if !ok || !queryir.IsListLiteral(s) {
		return v
	}
	var list []any
	if err := yaml.Unmarshal([]byte(s), &list); err != nil {
		return v
	}
	if list == nil {
		list = []any{}
	}
	return list
}

// renderOperand renders the right-hand side of a predicate.
//
// Scalars are written as given: the flat IR keeps string literals quoted
// ("'abc'") and numbers as bare text. List elements are quoted when they are
// strings. A two-element list under BETWEEN becomes "low AND high".
func renderOperand(op string, v any) string {
	list, ok := v.([]any)
	if !ok {
		return formatScalar(v)
	}
	if strings.EqualFold(op, queryir.OpBetween) && len(list) == 2 {
		return formatElement(list[0]) + " AND " + formatElement(list[1])
	}
	parts := make([]string, 0, len(list))
	for _, elem := range list {
		parts = append(parts, formatElement(elem))
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// formatElement renders one list element, quoting strings.
func formatElement(v any) string {
	if s, ok := v.(string); ok {
		return quote(s)
	}
	return formatScalar(v)
}

// quote wraps s in single quotes, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
