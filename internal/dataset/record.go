// Package dataset reads, writes and transforms the JSONL files that pair
// natural-language questions with SQL and its intermediate representations.
//
// Every transformation is per record and runs through batch.Map, so output
// order always equals input order.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// maxLineBytes bounds one JSONL line. Plans with long model transcripts can
// exceed bufio's 64 KiB default.
const maxLineBytes = 16 << 20

// Record is one line of a dataset file. Which fields are set depends on the
// pipeline stage that wrote it.
//
// The JSON-valued fields hold either an object or a string of model output
// (possibly fenced); Payload unwraps both.
type Record struct {
	ID        string          `json:"id"`
	NL        string          `json:"nl"`
	SQL       string          `json:"sql,omitempty"`
	GoldSQL   string          `json:"gold_sql,omitempty"`
	PredSQL   string          `json:"pred_sql,omitempty"`
	JSONLabel json.RawMessage `json:"json_label,omitempty"`
	JSONPlan  json.RawMessage `json:"json_plan,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	PredJSON  json.RawMessage `json:"pred_json,omitempty"`
	JSONPred  json.RawMessage `json:"json_pred,omitempty"`
}

// Gold returns the reference SQL: gold_sql when present, else sql.
func (r Record) Gold() string {
	if r.GoldSQL != "" {
		return r.GoldSQL
	}
	return r.SQL
}

// EnsureID fills a missing ID from the record's content.
func (r *Record) EnsureID() {
	if r.ID == "" {
		r.ID = ir.RecordID(r.NL, r.Gold())
	}
}

// Payload returns the JSON text stored in a JSON-valued field. A JSON string
// is unwrapped to its contents; an object is returned as is. Empty and null
// fields yield nil.
func Payload(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '"' {
		return raw
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	return []byte(s)
}

// ReadJSONL decodes one record per line. Blank lines are ignored; lines that
// do not decode are logged and counted in skipped.
func ReadJSONL(r io.Reader) (recs []Record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			slog.Warn("skipping undecodable line", "line", line, "error", err)
			skipped++
			continue
		}
		rec.EnsureID()
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read jsonl line %d: %w", line+1, err)
	}
	return recs, skipped, nil
}

// WriteJSONL encodes one record per line without HTML escaping.
func WriteJSONL(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record %d (%s): %w", i, rec.ID, err)
		}
	}
	return bw.Flush()
}

// ReadFile reads a JSONL file.
func ReadFile(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f)
}

// WriteFile writes recs to path, replacing any existing file.
func WriteFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	if err := WriteJSONL(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
