package querygen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doox-on/CS4220-NORP/internal/eval"
	"github.com/doox-on/CS4220-NORP/internal/sqlnorm"
)

const censusCSV = `year,id,zipcode,race_total_population,white,label
2019,8600000US30005,ZCTA5 30005,1000,600,a
2019,8600000US30009,ZCTA5 30009,,300.5,b
2018,8600000US30005,ZCTA5 30005,900,nan,c
`

func TestGenerate_Deterministic(t *testing.T) {
	a, err := New(DefaultSchema(), 7)
	require.NoError(t, err)
	b, err := New(DefaultSchema(), 7)
	require.NoError(t, err)
	c, err := New(DefaultSchema(), 8)
	require.NoError(t, err)

	first := a.Generate(50)
	assert.Equal(t, first, b.Generate(50))
	assert.NotEqual(t, first, c.Generate(50))
}

func TestGenerate_AllNormalize(t *testing.T) {
	g, err := New(DefaultSchema(), 42)
	require.NoError(t, err)

	for _, q := range g.Generate(500) {
		parsed, err := sqlnorm.Normalize(q)
		require.NoError(t, err, q)
		assert.Equal(t, []string{"demographics"}, parsed.From, q)
		assert.NotContains(t, q, "{", "unfilled placeholder in %q", q)
	}
}

func TestGenerate_AllExecute(t *testing.T) {
	db, err := eval.OpenDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = eval.LoadCSV(context.Background(), db, strings.NewReader(censusCSV))
	require.NoError(t, err)

	g, err := New(DefaultSchema(), 1)
	require.NoError(t, err)

	for _, q := range g.Generate(200) {
		rows, err := db.Query(q)
		require.NoError(t, err, q)
		rows.Close()
	}
}

func TestGenerate_ZeroOrNegative(t *testing.T) {
	g, err := New(DefaultSchema(), 1)
	require.NoError(t, err)
	assert.Empty(t, g.Generate(0))
	assert.Empty(t, g.Generate(-3))
}

func TestInferSchema(t *testing.T) {
	s, err := InferSchema(strings.NewReader(censusCSV))
	require.NoError(t, err)

	assert.Equal(t, "demographics", s.Table)
	assert.Equal(t, []string{"year", "id", "zipcode", "race_total_population", "white", "label"}, s.Columns)
	assert.Equal(t, []string{"race_total_population", "white"}, s.Numeric)
	assert.Equal(t, []string{"30005", "30009"}, s.Zipcodes)
}

func TestInferSchema_Errors(t *testing.T) {
	_, err := InferSchema(strings.NewReader(""))
	assert.Error(t, err)

	_, err = InferSchema(strings.NewReader("id,zipcode\nx,ZCTA5 1\n"))
	assert.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Schema{Columns: []string{"a"}}, 1)
	assert.Error(t, err)

	_, err = New(Schema{Numeric: []string{"a"}}, 1)
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	g, err := New(Schema{Columns: []string{"white"}, Numeric: []string{"white"}}, 3)
	require.NoError(t, err)
	for _, q := range g.Generate(30) {
		assert.Contains(t, q, "FROM demographics")
	}
}
