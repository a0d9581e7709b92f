package planir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		operation string
		expected  Family
	}{
		{"TableScan", FamilyScan},
		{"table scan", FamilyScan},
		{"SOURCE", FamilyScan},
		{"Selection", FamilyFilter},
		{"having", FamilyFilter},
		{"Select", FamilyProject},
		{"groupBy", FamilyAgg},
		{"Order By", FamilySort},
		{" Top ", FamilyLimit},
		{"ratio", FamilyMath},
		{"WindowFunction", FamilyWindow},
		{"Frobnicate", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.operation))
		})
	}
}

func TestFamily_String(t *testing.T) {
	assert.Equal(t, "WINDOW", FamilyWindow.String())
	assert.Equal(t, "UNKNOWN", Family(99).String())
}

func TestCanonicalNamesAreRegistered(t *testing.T) {
	registry := DefaultRegistry()
	for family, name := range CanonicalNames {
		_, ok := registry[name]
		assert.True(t, ok, "%s canonical name %q missing from registry", family, name)
		assert.Equal(t, family, Classify(name))
	}
}

func TestParse(t *testing.T) {
	n, err := Parse([]byte(`{
		"operation": "Scan",
		"details": {"table": "demographics"},
		"children": [
			{"operation": "Filter", "details": {"condition": "year = 2020"}, "children": []},
			null
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Scan", n.Operation)
	assert.Equal(t, FamilyScan, n.Family())
	assert.Equal(t, "demographics", n.Details["table"])
	require.Len(t, n.Children, 1)
	assert.Equal(t, "year = 2020", n.Children[0].Details["condition"])
}

func TestFromValue_Defaults(t *testing.T) {
	n, err := FromValue(map[string]any{"details": nil})
	require.NoError(t, err)

	assert.Equal(t, "", n.Operation)
	assert.NotNil(t, n.Details)
	assert.Empty(t, n.Children)
}

func TestFromValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value any
		code  string
		path  string
	}{
		{"not an object", "Scan", ErrNodeNotObject, "root"},
		{"operation not a string", map[string]any{"operation": []any{"Scan"}}, ErrEmptyOperation, "root"},
		{"details not an object", map[string]any{"operation": "Scan", "details": "t"}, ErrDetailsNotObject, "root"},
		{"children not a list", map[string]any{"operation": "Scan", "children": "x"}, ErrChildrenNotList, "root"},
		{"bad grandchild", map[string]any{"children": []any{map[string]any{"children": []any{true}}}}, ErrNodeNotObject, "root.children[0].children[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromValue(tt.value)
			ve := requireCode(t, err, tt.code)
			assert.Equal(t, tt.path, ve.Path)
		})
	}
}

func TestNode_UnmarshalJSON(t *testing.T) {
	var n Node
	require.NoError(t, n.UnmarshalJSON([]byte(`{"operation":"Limit","details":{"count":3}}`)))
	assert.Equal(t, "Limit", n.Operation)

	require.Error(t, n.UnmarshalJSON([]byte(`{"operation":"Limit","details":[]}`)))
}

func TestMarshalIndent(t *testing.T) {
	n := &Node{Operation: "Filter", Details: map[string]any{"condition": "white > 10"}}

	data, err := MarshalIndent(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"condition": "white > 10"`)
	assert.Contains(t, string(data), `"children": []`)
}
