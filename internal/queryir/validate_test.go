package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(n int64) *int64 { return &n }

func TestValidate_CleanQuery(t *testing.T) {
	q := &Query{
		Select:  []SelectItem{{Column: "zipcode"}, {Column: "population", Agg: "SUM"}},
		From:    []string{"demographics"},
		Where:   []Condition{{Column: "zipcode", Operator: "IN", Value: "['30005', '30006']"}},
		Having:  []Condition{{Column: "population", Agg: "SUM", Operator: ">", Value: "1000"}},
		GroupBy: []string{"zipcode"},
		OrderBy: []OrderItem{{Column: "zipcode", Direction: "desc"}},
		Limit:   int64Ptr(0),
	}

	result := Validate(q)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name    string
		query   *Query
		warning string
	}{
		{
			name:    "empty select column",
			query:   &Query{Select: []SelectItem{{Column: " "}}},
			warning: "select[0]: empty column",
		},
		{
			name:    "unknown aggregate",
			query:   &Query{Select: []SelectItem{{Column: "x", Agg: "MEDIAN"}}},
			warning: `select[0]: unknown aggregate "MEDIAN"`,
		},
		{
			name:    "unknown operator",
			query:   &Query{Where: []Condition{{Column: "x", Operator: "~=", Value: "1"}}},
			warning: `where[0]: unknown operator "~="`,
		},
		{
			name:    "IN scalar",
			query:   &Query{Where: []Condition{{Column: "x", Operator: "in", Value: "30005"}}},
			warning: `where[0]: IN value "30005" is not a list`,
		},
		{
			name:    "BETWEEN without AND",
			query:   &Query{Having: []Condition{{Column: "x", Operator: "BETWEEN", Value: "1, 2"}}},
			warning: `having[0]: BETWEEN value must be "low AND high"`,
		},
		{
			name:    "order without column",
			query:   &Query{OrderBy: []OrderItem{{Direction: "ASC"}}},
			warning: "orderBy[0]: missing column",
		},
		{
			name:    "bad direction",
			query:   &Query{OrderBy: []OrderItem{{Column: "x", Direction: "UP"}}},
			warning: `orderBy[0]: direction "UP" is neither ASC nor DESC`,
		},
		{
			name:    "negative limit",
			query:   &Query{Limit: int64Ptr(-1)},
			warning: "limit: -1 is negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)

			assert.False(t, result.Valid)
			require.Len(t, result.Warnings, 1)
			assert.Equal(t, tt.warning, result.Warnings[0])
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"nil query"}, result.Warnings)
}

func TestIsListLiteral(t *testing.T) {
	assert.True(t, IsListLiteral(" ['a', 'b'] "))
	assert.True(t, IsListLiteral("[]"))
	assert.False(t, IsListLiteral("('a', 'b')"))
}
