// Package querygen produces random training queries over the demographics
// table from a fixed set of templates.
//
// Output is deterministic for a given seed and schema. Every template
// yields SQL the normalizer accepts.
package querygen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/eval"
)

// inferRows is how many data rows InferSchema inspects.
const inferRows = 100

// Schema describes the columns templates may draw from.
type Schema struct {
	Table    string
	Columns  []string
	Numeric  []string
	Zipcodes []string
}

// DefaultSchema is the demographics table with a few sample zipcodes.
func DefaultSchema() Schema {
	var numeric []string
	for _, col := range eval.Columns {
		switch col {
		case "year", "id", "zipcode":
		default:
			numeric = append(numeric, col)
		}
	}
	return Schema{
		Table:    eval.Table,
		Columns:  append([]string(nil), eval.Columns...),
		Numeric:  numeric,
		Zipcodes: []string{"30005", "30009", "30022", "30076"},
	}
}

// InferSchema scans the header and first rows of a census CSV. A column is
// numeric when every non-empty value seen parses as a number; year is
// never numeric.
func InferSchema(r io.Reader) (Schema, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Schema{}, fmt.Errorf("infer schema: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	// kind: 0 unknown, 1 number, 2 text
	kind := make([]int, len(header))
	zips := map[string]bool{}
	var zipOrder []string

	for n := 0; n < inferRows; n++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Schema{}, fmt.Errorf("infer schema: row %d: %w", n+1, err)
		}
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if header[i] == "zipcode" && cell != "" {
				z := strings.TrimSpace(strings.ReplaceAll(cell, "ZCTA5", ""))
				if !zips[z] {
					zips[z] = true
					zipOrder = append(zipOrder, z)
				}
			}
			if kind[i] == 2 || cell == "" || strings.EqualFold(cell, "nan") {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				kind[i] = 1
			} else {
				kind[i] = 2
			}
		}
	}

	s := Schema{Table: eval.Table, Columns: header, Zipcodes: zipOrder}
	for i, col := range header {
		if kind[i] == 1 && col != "year" {
			s.Numeric = append(s.Numeric, col)
		}
	}
	if len(s.Numeric) == 0 {
		return Schema{}, fmt.Errorf("infer schema: no numeric columns")
	}
	return s, nil
}

// kind of column a template draws.
type slot int

const (
	slotNumeric slot = iota
	slotAny
	slotNone
)

type template struct {
	col  slot
	text string
}

var templates = []template{
	{slotNumeric, "SELECT {agg}({col}) FROM {table};"},
	{slotNumeric, "SELECT {agg}({col}) FROM {table} WHERE year = {year};"},
	{slotNumeric, "SELECT {agg}({col}) FROM {table} WHERE zipcode = '{zip}';"},
	{slotNumeric, "SELECT zipcode FROM {table} WHERE {col} > {num};"},
	{slotNumeric, "SELECT zipcode FROM {table} WHERE {col} < {num} AND year = {year};"},
	{slotNumeric, "SELECT COUNT(*) FROM {table} WHERE {col} > {num} AND year = {year};"},
	{slotNumeric, "SELECT zipcode, {col} FROM {table} ORDER BY {col} {order} LIMIT {n};"},
	{slotNumeric, "SELECT zipcode, {col} FROM {table} WHERE year = {year} ORDER BY {col} {order} LIMIT {n};"},
	{slotNumeric, "SELECT year, {agg}({col}) FROM {table} GROUP BY year;"},
	{slotNumeric, "SELECT zipcode, {agg}({col}) FROM {table} GROUP BY zipcode;"},
	{slotNumeric, "SELECT year, {agg}({col}) AS agg_val FROM {table} GROUP BY year ORDER BY agg_val {order};"},
	{slotNumeric, "SELECT zipcode, {agg}({col}) AS agg_val FROM {table} GROUP BY zipcode ORDER BY agg_val {order} LIMIT {n};"},
	{slotAny, "SELECT {col} FROM {table} WHERE zipcode = '{zip}' AND year = {year};"},
	{slotNone, "SELECT DISTINCT year FROM {table};"},
}

var (
	years  = []int{2015, 2016, 2017, 2018, 2019}
	aggs   = []string{"SUM", "AVG", "MAX", "MIN"}
	orders = []string{"ASC", "DESC"}
	limits = []int{1, 5, 10, 20}
)

// Generator draws queries from the templates.
type Generator struct {
	schema Schema
	rng    *rand.Rand
}

// New creates a generator with a fixed seed.
func New(schema Schema, seed uint64) (*Generator, error) {
	if len(schema.Numeric) == 0 {
		return nil, fmt.Errorf("querygen: schema has no numeric columns")
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("querygen: schema has no columns")
	}
	if schema.Table == "" {
		schema.Table = eval.Table
	}
	if len(schema.Zipcodes) == 0 {
		schema.Zipcodes = DefaultSchema().Zipcodes
	}
	return &Generator{schema: schema, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}, nil
}

// Next returns one query.
func (g *Generator) Next() string {
	t := templates[g.rng.IntN(len(templates))]

	col := pick(g.rng, g.schema.Columns)
	if t.col == slotNumeric {
		col = pick(g.rng, g.schema.Numeric)
	}

	r := strings.NewReplacer(
		"{table}", g.schema.Table,
		"{year}", strconv.Itoa(pick(g.rng, years)),
		"{zip}", pick(g.rng, g.schema.Zipcodes),
		"{num}", strconv.Itoa(100+g.rng.IntN(9901)),
		"{agg}", pick(g.rng, aggs),
		"{order}", pick(g.rng, orders),
		"{n}", strconv.Itoa(pick(g.rng, limits)),
		"{col}", col,
	)
	return r.Replace(t.text)
}

// Generate returns n queries.
func (g *Generator) Generate(n int) []string {
	out := make([]string, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, g.Next())
	}
	return out
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
