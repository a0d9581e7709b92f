package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
)

// ErrTrailingData is returned by Decode when the input holds more than one
// JSON value.
var ErrTrailingData = errors.New("trailing data after JSON value")

// Decode parses a single JSON document into plain Go values.
// Numbers decode as json.Number so "2020" is rendered back as 2020, never 2020.0.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return v, nil
}

// Fold returns the Unicode case-folded form of s.
// A cases.Caser is stateful, so a fresh one is used per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// SortedKeys returns the keys of m in byte order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Lookup returns the value stored under the first of keys present in m.
//
// Matching is tolerant of generator noise:
//  1. each key is tried exactly, then case-insensitively (sorted key order,
//     so the result never depends on map iteration)
//  2. if none matched, the singular and plural forms of each key are tried
//     the same way ("column" finds "columns", "aggregates" finds "aggregate")
func Lookup(m map[string]any, keys ...string) (any, bool) {
	if v, ok := LookupCase(m, keys...); ok {
		return v, true
	}
	sorted := SortedKeys(m)
	for _, key := range keys {
		for _, variant := range []string{inflection.Singular(key), inflection.Plural(key)} {
			if variant == key {
				continue
			}
			if v, ok := lookupFolded(m, sorted, variant); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// LookupCase is Lookup without the singular/plural fallback.
func LookupCase(m map[string]any, keys ...string) (any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	sorted := SortedKeys(m)
	for _, key := range keys {
		if v, ok := lookupFolded(m, sorted, key); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupFolded(m map[string]any, sorted []string, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	folded := Fold(key)
	for _, k := range sorted {
		if Fold(k) == folded {
			return m[k], true
		}
	}
	return nil, false
}

// TypeName names the JSON type of a decoded value for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, int, int64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// AsString converts a scalar to its text. Strings are returned unchanged and
// numbers keep their source text. Anything else is a type error.
func AsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected string, got %s", TypeName(v))
	}
}

// AsStringList accepts either a single scalar or a list of scalars.
// nil yields an empty list.
func AsStringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, elem := range val {
			s, err := AsString(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return slices.Clone(val), nil
	default:
		s, err := AsString(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

// AsObject asserts that v is a JSON object.
func AsObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", TypeName(v))
	}
	return m, nil
}

// AsInt parses an integer from a number or a numeric string. Whole-valued
// decimals such as 10.0 are accepted.
func AsInt(v any) (int64, error) {
	switch val := v.(type) {
	case json.Number:
		n, ok := wholeNumber(val.String())
		if !ok {
			return 0, fmt.Errorf("expected integer, got %s", val)
		}
		return n, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case string:
		n, ok := wholeNumber(strings.TrimSpace(val))
		if !ok {
			return 0, fmt.Errorf("expected integer, got %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %s", TypeName(v))
	}
}

// maxExactFloat is the largest magnitude at which every float64 integer is exact.
const maxExactFloat = 1 << 53

func wholeNumber(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return 0, false
	}
	return int64(f), true
}
