package sqlnorm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
	"github.com/doox-on/CS4220-NORP/internal/querysql"
)

func int64Ptr(n int64) *int64 { return &n }

func TestNormalize_FullStatement(t *testing.T) {
	sql := "SELECT zipcode, SUM(race_total_population) AS total FROM demographics " +
		"WHERE year = 2019 AND zipcode IN ('30005', '30006') " +
		"GROUP BY zipcode HAVING SUM(race_total_population) > 1000 " +
		"ORDER BY total DESC LIMIT 5"

	q, err := Normalize(sql)
	require.NoError(t, err)

	expected := &queryir.Query{
		Select: []queryir.SelectItem{
			{Column: "zipcode"},
			{Column: "race_total_population", Agg: "SUM", Alias: "total"},
		},
		From: []string{"demographics"},
		Where: []queryir.Condition{
			{Column: "year", Operator: "=", Value: "2019"},
			{Column: "zipcode", Operator: "IN", Value: "['30005', '30006']"},
		},
		GroupBy: []string{"zipcode"},
		OrderBy: []queryir.OrderItem{{Column: "total", Direction: "DESC"}},
		Limit:   int64Ptr(5),
		Having: []queryir.Condition{
			{Column: "race_total_population", Agg: "SUM", Operator: ">", Value: "1000"},
		},
	}
	assert.Equal(t, expected, q)
}

func TestNormalize_LabelJSON(t *testing.T) {
	q, err := Normalize("SELECT COUNT(*) FROM demographics WHERE zipcode = '30005'")
	require.NoError(t, err)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"select": [{"column": "*", "agg": "COUNT"}],
		"from": ["demographics"],
		"where": [{"column": "zipcode", "operator": "=", "value": "'30005'"}],
		"groupBy": [],
		"orderBy": [],
		"limit": null,
		"having": []
	}`, string(data))
}

func TestNormalize_SelectItems(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []queryir.SelectItem
	}{
		{"star", "SELECT * FROM demographics", []queryir.SelectItem{{Column: "*"}}},
		{"count star", "SELECT COUNT(*) AS n FROM demographics", []queryir.SelectItem{{Column: "*", Agg: "COUNT", Alias: "n"}}},
		{"count distinct", "SELECT COUNT(DISTINCT zipcode) FROM demographics", []queryir.SelectItem{{Column: "DISTINCT zipcode", Agg: "COUNT"}}},
		{"lowercase aggregate", "select max(white) from demographics", []queryir.SelectItem{{Column: "white", Agg: "MAX"}}},
		{"qualified column", "SELECT d.asian FROM demographics d", []queryir.SelectItem{{Column: "asian"}}},
		{"aliased column", "SELECT black AS b FROM demographics", []queryir.SelectItem{{Column: "black", Alias: "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, q.Select)
		})
	}
}

func TestNormalize_WhereFlattening(t *testing.T) {
	tests := []struct {
		name     string
		where    string
		expected []queryir.Condition
	}{
		{
			name:  "parenthesized AND is split",
			where: "(year = 2019 AND white > 10) AND black < 5",
			expected: []queryir.Condition{
				{Column: "year", Operator: "=", Value: "2019"},
				{Column: "white", Operator: ">", Value: "10"},
				{Column: "black", Operator: "<", Value: "5"},
			},
		},
		{
			name:  "OR subtree is dropped",
			where: "year = 2019 AND (white > 10 OR black > 10)",
			expected: []queryir.Condition{
				{Column: "year", Operator: "=", Value: "2019"},
			},
		},
		{
			name:     "NOT is dropped",
			where:    "NOT year = 2019",
			expected: []queryir.Condition{},
		},
		{
			name:     "NOT IN is dropped",
			where:    "zipcode NOT IN ('30005')",
			expected: []queryir.Condition{},
		},
		{
			name:  "operators",
			where: "a >= 1 AND b <= 2.5 AND c != 3 AND d <> 4 AND zipcode LIKE '300%'",
			expected: []queryir.Condition{
				{Column: "a", Operator: ">=", Value: "1"},
				{Column: "b", Operator: "<=", Value: "2.5"},
				{Column: "c", Operator: "!=", Value: "3"},
				{Column: "d", Operator: "!=", Value: "4"},
				{Column: "zipcode", Operator: "LIKE", Value: "'300%'"},
			},
		},
		{
			name:  "between",
			where: "year BETWEEN 2015 AND 2017",
			expected: []queryir.Condition{
				{Column: "year", Operator: "BETWEEN", Value: "2015 AND 2017"},
			},
		},
		{
			name:  "numeric IN list is recorded as strings",
			where: "year IN (2016, 2017)",
			expected: []queryir.Condition{
				{Column: "year", Operator: "IN", Value: "['2016', '2017']"},
			},
		},
		{
			name:  "embedded quote",
			where: "zipcode = 'O''Hare'",
			expected: []queryir.Condition{
				{Column: "zipcode", Operator: "=", Value: "'O''Hare'"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize("SELECT * FROM demographics WHERE " + tt.where)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, q.Where)
		})
	}
}

func TestNormalize_HavingRecordsAggregate(t *testing.T) {
	q, err := Normalize("SELECT zipcode FROM demographics GROUP BY zipcode " +
		"HAVING COUNT(*) > 2 AND AVG(asian) >= 10 AND zipcode = '30005'")
	require.NoError(t, err)

	assert.Equal(t, []queryir.Condition{
		{Column: "*", Agg: "COUNT", Operator: ">", Value: "2"},
		{Column: "asian", Agg: "AVG", Operator: ">=", Value: "10"},
		{Column: "zipcode", Operator: "=", Value: "'30005'"},
	}, q.Having)
}

func TestNormalize_Tables(t *testing.T) {
	q, err := Normalize("SELECT d.year FROM demographics d JOIN demographics e ON d.id = e.id")
	require.NoError(t, err)
	assert.Equal(t, []string{"demographics"}, q.From)

	q, err = Normalize("SELECT zipcode FROM demographics WHERE year IN (SELECT year FROM years)")
	require.NoError(t, err)
	assert.Equal(t, []string{"demographics", "years"}, q.From)
}

func TestNormalize_OrderAndLimit(t *testing.T) {
	q, err := Normalize("SELECT zipcode FROM demographics ORDER BY year, zipcode DESC LIMIT 0")
	require.NoError(t, err)

	assert.Equal(t, []queryir.OrderItem{
		{Column: "year", Direction: "ASC"},
		{Column: "zipcode", Direction: "DESC"},
	}, q.OrderBy)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(0), *q.Limit)
}

func TestNormalize_Errors(t *testing.T) {
	_, err := Normalize("   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = Normalize("SELEC zipcode FROM demographics")
	assert.ErrorIs(t, err, ErrParse)

	_, err = Normalize("INSERT INTO demographics (year) VALUES (2020)")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestNormalize_RoundTrip(t *testing.T) {
	statements := []string{
		"SELECT * FROM demographics WHERE year = 2019",
		"SELECT zipcode, white FROM demographics WHERE year >= 2016 AND zipcode LIKE '300%' ORDER BY white DESC LIMIT 10",
		"SELECT zipcode, SUM(race_total_population) AS total FROM demographics WHERE year = 2019 AND zipcode IN ('30005', '30006') GROUP BY zipcode HAVING SUM(race_total_population) > 1000 ORDER BY total DESC LIMIT 5",
		"SELECT COUNT(*) FROM demographics WHERE year BETWEEN 2015 AND 2017",
		"SELECT zipcode, AVG(asian) FROM demographics GROUP BY zipcode HAVING COUNT(*) > 2",
		"SELECT COUNT(DISTINCT zipcode) AS zips FROM demographics WHERE zipcode != '30005'",
		`SELECT zipcode FROM demographics WHERE zipcode IN ('it''s "x"', 'b')`,
		"SELECT zipcode FROM demographics WHERE zipcode IN ('it''s', 'b')",
	}

	compiler := querysql.NewSQLCompiler()
	for _, sql := range statements {
		t.Run(sql, func(t *testing.T) {
			first, err := Normalize(sql)
			require.NoError(t, err)

			compiled, err := compiler.Compile(first)
			require.NoError(t, err)

			second, err := Normalize(compiled)
			require.NoError(t, err, "compiled SQL must parse: %s", compiled)
			assert.Equal(t, first, second)
		})
	}
}
