package eval

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Table is the evaluation table name.
const Table = "demographics"

// Columns lists the demographics columns in table order.
var Columns = []string{
	"year",
	"id",
	"zipcode",
	"race_total_population",
	"one_race",
	"two_or_more_races",
	"white",
	"black",
	"american_indian_and_alaska_native",
	"asian",
	"native_hawaiian_and_other_pacific_islander",
	"some_other_race",
	"hispanic_or_latino_total",
	"hispanic_or_latino",
	"not_hispanic_or_latino",
}

// textColumns are stored verbatim; every other column is an integer.
var textColumns = map[string]bool{"id": true, "zipcode": true}

// zipcodePrefix is the census ZCTA marker stripped from zipcodes.
const zipcodePrefix = "ZCTA5"

// CreateTableSQL creates the demographics table. No primary key: the
// census export repeats ids across years.
var CreateTableSQL = buildCreateTable()

func buildCreateTable() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + Table + " (\n")
	for i, col := range Columns {
		b.WriteString("\t" + col + " ")
		switch {
		case col == "year":
			b.WriteString("INTEGER")
		case textColumns[col]:
			b.WriteString("TEXT")
		default:
			b.WriteString("INTEGER DEFAULT 0")
		}
		if i < len(Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// OpenDatabase opens the SQLite database queries are evaluated against.
// ":memory:" gives a private in-memory database.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	return db, nil
}

// LoadCSVFile replaces the demographics table with the contents of path.
func LoadCSVFile(ctx context.Context, db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return LoadCSV(ctx, db, f)
}

// LoadCSV drops and recreates the demographics table and inserts every CSV
// row. Header names are trimmed; unknown columns are ignored. Returns the
// number of rows inserted.
func LoadCSV(ctx context.Context, db *sql.DB, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("load csv: empty input")
	}
	if err != nil {
		return 0, fmt.Errorf("load csv: read header: %w", err)
	}

	known := make(map[string]bool, len(Columns))
	for _, col := range Columns {
		known[col] = true
	}

	var cols []string
	var positions []int
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if !known[name] {
			slog.Warn("ignoring unknown csv column", "column", name)
			continue
		}
		cols = append(cols, name)
		positions = append(positions, i)
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("load csv: no demographics columns in header")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load csv: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Table); err != nil {
		return 0, fmt.Errorf("load csv: drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL); err != nil {
		return 0, fmt.Errorf("load csv: create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+Table+" ("+strings.Join(cols, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return 0, fmt.Errorf("load csv: prepare: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("load csv: line %d: %w", rows+2, err)
		}

		args := make([]any, len(cols))
		for j, col := range cols {
			cell := ""
			if p := positions[j]; p < len(record) {
				cell = record[p]
			}
			args[j] = cellValue(col, cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("load csv: insert line %d: %w", rows+2, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("load csv: commit: %w", err)
	}
	slog.Info("loaded demographics", "rows", rows)
	return rows, nil
}

// cellValue converts one CSV cell for its column. Numeric cells that are
// empty become 0; cells that are not numbers are kept as text.
func cellValue(col, cell string) any {
	cell = strings.TrimSpace(cell)
	if col == "zipcode" {
		return strings.TrimSpace(strings.ReplaceAll(cell, zipcodePrefix, ""))
	}
	if textColumns[col] {
		return cell
	}
	if cell == "" || strings.EqualFold(cell, "nan") {
		return int64(0)
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return int64(f)
	}
	return cell
}
