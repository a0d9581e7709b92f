package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// FieldError reports a flat IR field whose shape cannot be tolerated.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field string, err error) *FieldError {
	return &FieldError{Field: field, Message: err.Error()}
}

// Parse decodes flat IR JSON, tolerating the usual generator deviations.
func Parse(data []byte) (*Query, error) {
	v, err := ir.Decode(data)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// UnmarshalJSON makes json.Unmarshal use the tolerant decoder.
func (q *Query) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*q = *parsed
	return nil
}

// FromValue builds a Query from an already decoded JSON value.
func FromValue(v any) (*Query, error) {
	m, err := ir.AsObject(v)
	if err != nil {
		return nil, fieldErr("query", err)
	}

	q := New()

	if raw, ok := ir.LookupCase(m, "select"); ok {
		if q.Select, err = parseSelect(raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := ir.LookupCase(m, "from"); ok {
		from, err := ir.AsStringList(raw)
		if err != nil {
			return nil, fieldErr("from", err)
		}
		q.From = append(q.From, from...)
	}
	if raw, ok := ir.LookupCase(m, "where"); ok {
		if q.Where, err = parseConditions("where", raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := ir.LookupCase(m, "having"); ok {
		if q.Having, err = parseConditions("having", raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := ir.LookupCase(m, "groupBy", "group_by"); ok {
		groups, err := ir.AsStringList(raw)
		if err != nil {
			return nil, fieldErr("groupBy", err)
		}
		q.GroupBy = append(q.GroupBy, groups...)
	}
	if raw, ok := ir.LookupCase(m, "orderBy", "order_by"); ok {
		if q.OrderBy, err = parseOrderBy(raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := ir.LookupCase(m, "limit"); ok && raw != nil {
		n, err := ir.AsInt(raw)
		if err != nil {
			return nil, fieldErr("limit", err)
		}
		q.Limit = &n
	}

	return q, nil
}

// asItems normalizes a single object or a list into a list. nil is empty.
func asItems(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func parseSelect(v any) ([]SelectItem, error) {
	items := []SelectItem{}
	for i, raw := range asItems(v) {
		field := fmt.Sprintf("select[%d]", i)

		if s, ok := raw.(string); ok {
			items = append(items, SelectItem{Column: s})
			continue
		}
		m, err := ir.AsObject(raw)
		if err != nil {
			return nil, fieldErr(field, err)
		}

		item := SelectItem{Column: "*"}
		if col, ok := ir.LookupCase(m, "column"); ok && col != nil {
			if item.Column, err = ir.AsString(col); err != nil {
				return nil, fieldErr(field+".column", err)
			}
		}
		if item.Agg, err = optionalString(m, "agg"); err != nil {
			return nil, fieldErr(field+".agg", err)
		}
		if item.Alias, err = optionalString(m, "alias"); err != nil {
			return nil, fieldErr(field+".alias", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseConditions(clause string, v any) ([]Condition, error) {
	conds := []Condition{}
	for i, raw := range asItems(v) {
		field := fmt.Sprintf("%s[%d]", clause, i)

		m, err := ir.AsObject(raw)
		if err != nil {
			return nil, fieldErr(field, err)
		}

		cond := Condition{Operator: OpEq}
		if cond.Column, err = optionalString(m, "column"); err != nil {
			return nil, fieldErr(field+".column", err)
		}
		if op, ok := ir.LookupCase(m, "operator", "op"); ok && op != nil {
			if cond.Operator, err = ir.AsString(op); err != nil {
				return nil, fieldErr(field+".operator", err)
			}
		}
		if cond.Agg, err = optionalString(m, "agg"); err != nil {
			return nil, fieldErr(field+".agg", err)
		}
		cond.Value, _ = ir.LookupCase(m, "value")
		if _, isObject := cond.Value.(map[string]any); isObject {
			return nil, &FieldError{Field: field + ".value", Message: "expected scalar or list, got object"}
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func parseOrderBy(v any) ([]OrderItem, error) {
	items := []OrderItem{}
	for i, raw := range asItems(v) {
		field := fmt.Sprintf("orderBy[%d]", i)

		if s, ok := raw.(string); ok {
			items = append(items, OrderItem{Column: s})
			continue
		}
		m, err := ir.AsObject(raw)
		if err != nil {
			return nil, fieldErr(field, err)
		}

		var item OrderItem
		if item.Column, err = optionalString(m, "column"); err != nil {
			return nil, fieldErr(field+".column", err)
		}
		if item.Direction, err = optionalString(m, "direction"); err != nil {
			return nil, fieldErr(field+".direction", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// optionalString reads key as a string; absent and null both yield "".
func optionalString(m map[string]any, key string) (string, error) {
	v, ok := ir.LookupCase(m, key)
	if !ok || v == nil {
		return "", nil
	}
	return ir.AsString(v)
}

// MarshalIndent renders q as indented JSON for labels and CLI output.
// Operators such as ">" are written literally, not HTML-escaped.
func MarshalIndent(q *Query) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(q); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
