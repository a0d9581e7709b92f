package planir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNodeNotObject    = "E201" // node is not a JSON object
	ErrMissingKeys      = "E202" // operation or details missing
	ErrEmptyOperation   = "E203" // operation is empty or not a string
	ErrUnknownOperation = "E204" // operation not in the registry
	ErrDetailsNotObject = "E205" // details is not an object
	ErrChildrenNotList  = "E206" // children present but not a list
	ErrMissingDetailKey = "E207" // none of the operation's required detail keys
)

const (
	keyOperation = "operation"
	keyDetails   = "details"
	keyChildren  = "children"

	rootPath = "root"
)

func childPath(parent string, i int) string {
	return fmt.Sprintf("%s.children[%d]", parent, i)
}

// ValidationError reports the first schema violation found in a plan tree.
// Message is written to be shown to the generator on a retry.
type ValidationError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// Registry maps canonical operation names to the detail keys that satisfy
// them. A node is valid when at least one of its operation's keys is present.
type Registry map[string][]string

// DefaultRegistry returns the registry plans are generated against.
func DefaultRegistry() Registry {
	return Registry{
		"Scan":        {"table"},
		"Filter":      {"condition"},
		"Projection":  {"columns"},
		"Aggregation": {"aggregates", "groupby"},
		"Window":      {"function"},
		"Sort":        {"order_by"},
		"Limit":       {"count"},
		"Math":        {"expression", "alias"},
	}
}

// Names returns the registry's operation names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validator checks plan trees against a Registry.
type Validator struct {
	registry Registry
	lenient  bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry replaces the default registry.
func WithRegistry(r Registry) Option {
	return func(v *Validator) {
		if len(r) > 0 {
			v.registry = r
		}
	}
}

// WithSynonyms accepts every spelling of an operation family and matches
// operation names and detail keys ignoring case.
func WithSynonyms() Option {
	return func(v *Validator) {
		v.lenient = true
	}
}

// NewValidator creates a validator over the default registry.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{registry: DefaultRegistry()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = NewValidator()

// Validate checks a plan tree with the default registry.
// It accepts a *Node or a decoded JSON value.
func Validate(tree any) error {
	return defaultValidator.Validate(tree)
}

// Validate checks the tree pre-order and returns the first violation as a
// *ValidationError, or nil.
func (v *Validator) Validate(tree any) error {
	if n, ok := tree.(*Node); ok {
		if n == nil {
			return &ValidationError{Path: rootPath, Code: ErrNodeNotObject, Message: "node must be a JSON object, got null"}
		}
		tree = n.Value()
	}
	return v.validateNode(tree, rootPath)
}

// ValidateJSON decodes data and validates it. Decode failures are returned
// unwrapped from ir.Decode.
func (v *Validator) ValidateJSON(data []byte) error {
	tree, err := ir.Decode(data)
	if err != nil {
		return err
	}
	return v.Validate(tree)
}

func (v *Validator) validateNode(raw any, path string) error {
	node, ok := raw.(map[string]any)
	if !ok {
		return &ValidationError{
			Path:    path,
			Code:    ErrNodeNotObject,
			Message: fmt.Sprintf("node must be a JSON object, got %s", ir.TypeName(raw)),
		}
	}

	var missing []string
	for _, key := range []string{keyOperation, keyDetails} {
		if _, ok := node[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Path:    path,
			Code:    ErrMissingKeys,
			Message: fmt.Sprintf("missing required keys: %s", strings.Join(missing, ", ")),
		}
	}

	op, ok := node[keyOperation].(string)
	if !ok || strings.TrimSpace(op) == "" {
		return &ValidationError{
			Path:    path,
			Code:    ErrEmptyOperation,
			Message: "operation name must be a non-empty string",
		}
	}

	name, required, ok := v.lookup(op)
	if !ok {
		return &ValidationError{
			Path:    path,
			Code:    ErrUnknownOperation,
			Message: fmt.Sprintf("unknown operation '%s'. Expected one of: %s", op, strings.Join(v.registry.Names(), ", ")),
		}
	}

	details, ok := node[keyDetails].(map[string]any)
	if !ok {
		return &ValidationError{
			Path:    path,
			Code:    ErrDetailsNotObject,
			Message: fmt.Sprintf("'%s' details must be an object, got %s", op, ir.TypeName(node[keyDetails])),
		}
	}

	var children []any
	if raw, present := node[keyChildren]; present {
		children, ok = raw.([]any)
		if !ok {
			return &ValidationError{
				Path:    path,
				Code:    ErrChildrenNotList,
				Message: fmt.Sprintf("'%s' children must be a list, got %s", op, ir.TypeName(raw)),
			}
		}
	}

	if !v.hasAnyKey(details, required) {
		return &ValidationError{
			Path: path,
			Code: ErrMissingDetailKey,
			Message: fmt.Sprintf("operation '%s' details missing required keys. Expected one of: [%s]. Got: [%s]",
				name, strings.Join(required, ", "), strings.Join(ir.SortedKeys(details), ", ")),
		}
	}

	for i, child := range children {
		if err := v.validateNode(child, childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

// lookup resolves op to its registry entry. Strict mode matches the registry
// name exactly; lenient mode folds case and maps family synonyms onto their
// canonical name.
func (v *Validator) lookup(op string) (string, []string, bool) {
	if keys, ok := v.registry[op]; ok {
		return op, keys, true
	}
	if !v.lenient {
		return "", nil, false
	}

	folded := ir.Fold(strings.TrimSpace(op))
	for _, name := range v.registry.Names() {
		if ir.Fold(name) == folded {
			return name, v.registry[name], true
		}
	}
	if family := Classify(op); family != FamilyUnknown {
		name := CanonicalNames[family]
		if keys, ok := v.registry[name]; ok {
			return name, keys, true
		}
	}
	return "", nil, false
}

func (v *Validator) hasAnyKey(details map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := details[key]; ok {
			return true
		}
	}
	if v.lenient {
		_, ok := ir.LookupCase(details, keys...)
		return ok
	}
	return false
}
