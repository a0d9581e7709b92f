package planir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// Node is one operation in a plan tree.
//
// A Node is never mutated by the compiler or the validator.
type Node struct {
	Operation string         `json:"operation"`
	Details   map[string]any `json:"details"`
	Children  []*Node        `json:"children"`
}

// Family classifies the node's operation name.
func (n *Node) Family() Family {
	return Classify(n.Operation)
}

// Value converts the node back into the generic decoded form that Validate
// and MarshalCanonical accept.
func (n *Node) Value() map[string]any {
	details := n.Details
	if details == nil {
		details = map[string]any{}
	}
	children := make([]any, 0, len(n.Children))
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		children = append(children, child.Value())
	}
	return map[string]any{
		"operation": n.Operation,
		"details":   details,
		"children":  children,
	}
}

// UnmarshalJSON decodes a node tolerantly: see FromValue.
func (n *Node) UnmarshalJSON(data []byte) error {
	v, err := ir.Decode(data)
	if err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Parse decodes a plan tree from JSON.
func Parse(data []byte) (*Node, error) {
	v, err := ir.Decode(data)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// FromValue builds a Node from a decoded JSON value.
//
// Conversion is structural only. A missing operation becomes "", missing or
// null details become an empty map, and null children are skipped. A value of
// the wrong JSON type anywhere in the tree is a *ValidationError naming the
// node's path.
func FromValue(v any) (*Node, error) {
	return fromValue(v, rootPath)
}

func fromValue(v any, path string) (*Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{
			Path:    path,
			Code:    ErrNodeNotObject,
			Message: fmt.Sprintf("node must be a JSON object, got %s", ir.TypeName(v)),
		}
	}

	n := &Node{Details: map[string]any{}}

	if raw, ok := m[keyOperation]; ok && raw != nil {
		op, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{
				Path:    path,
				Code:    ErrEmptyOperation,
				Message: fmt.Sprintf("operation name must be a string, got %s", ir.TypeName(raw)),
			}
		}
		n.Operation = op
	}

	if raw, ok := m[keyDetails]; ok && raw != nil {
		details, ok := raw.(map[string]any)
		if !ok {
			return nil, &ValidationError{
				Path:    path,
				Code:    ErrDetailsNotObject,
				Message: fmt.Sprintf("'%s' details must be an object, got %s", n.Operation, ir.TypeName(raw)),
			}
		}
		n.Details = details
	}

	if raw, ok := m[keyChildren]; ok && raw != nil {
		children, ok := raw.([]any)
		if !ok {
			return nil, &ValidationError{
				Path:    path,
				Code:    ErrChildrenNotList,
				Message: fmt.Sprintf("'%s' children must be a list, got %s", n.Operation, ir.TypeName(raw)),
			}
		}
		for i, c := range children {
			if c == nil {
				continue
			}
			child, err := fromValue(c, childPath(path, i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}

	return n, nil
}

// MarshalIndent renders the node as indented JSON for CLI output.
// Comparison operators inside conditions are not HTML-escaped.
func MarshalIndent(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n.Value()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
