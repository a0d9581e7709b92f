package eval

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// Status classifies one evaluated case.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	joinKind     = regexp.MustCompile(`(inner|left)\s+join`)
	whereToOrder = regexp.MustCompile(`\bwhere\b.*order by`)
)

// Canonicalize normalizes SQL text for exact-match and structural
// comparison.
func Canonicalize(query string) string {
	query = strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(query, " ")))
	query = joinKind.ReplaceAllString(query, "join")
	return whereToOrder.ReplaceAllString(query, "order by")
}

// StructuralSimilarity is 1 - editDistance/maxLen over the canonical texts,
// measured in runes. Two empty texts are identical.
func StructuralSimilarity(pred, gold string) float64 {
	a, b := Canonicalize(pred), Canonicalize(gold)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// OutputSimilarity is the Jaccard similarity of two row sets. Two empty
// results are identical.
func OutputSimilarity(pred, gold []Row) float64 {
	ps, gs := rowSet(pred), rowSet(gold)
	if len(ps) == 0 && len(gs) == 0 {
		return 1
	}
	inter := 0
	for k := range ps {
		if gs[k] {
			inter++
		}
	}
	union := len(ps) + len(gs) - inter
	return float64(inter) / float64(union)
}

// Row is one result row. Values are int64, float64, string or nil.
type Row []any

// key renders a row as canonical JSON so rows can be compared and hashed.
func (r Row) key() string {
	data, err := ir.MarshalCanonical([]any(r))
	if err != nil {
		return fmt.Sprintf("%#v", []any(r))
	}
	return string(data)
}

func rowSet(rows []Row) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.key()] = true
	}
	return set
}

// EqualRows reports whether a and b hold the same rows in the same order.
// Numeric values compare by value, so 5 equals 5.0.
func EqualRows(a, b []Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key() != b[i].key() {
			return false
		}
	}
	return true
}

func sameSet(a, b []Row) bool {
	sa, sb := rowSet(a), rowSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}

// Result holds every metric for one (predicted, gold) pair.
type Result struct {
	Status     Status
	ExactMatch bool
	ExecMatch  bool
	SetMatch   bool
	Structural float64
	Output     float64
	ExecTime   time.Duration
	PredRows   []Row
	GoldRows   []Row
	Error      string
}

// Comparator runs query pairs against one database.
type Comparator struct {
	DB *sql.DB

	// Now defaults to time.Now. Tests inject a stepping clock.
	Now func() time.Time
}

// NewComparator creates a comparator over db.
func NewComparator(db *sql.DB) *Comparator {
	return &Comparator{DB: db, Now: time.Now}
}

// Compare executes both queries and computes every metric. Execution
// failures are reported in the result, never returned.
func (c *Comparator) Compare(ctx context.Context, pred, gold string) Result {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	res := Result{
		ExactMatch: Canonicalize(pred) == Canonicalize(gold),
		Structural: StructuralSimilarity(pred, gold),
	}

	start := now()
	predRows, predErr := c.Query(ctx, pred)
	res.ExecTime = now().Sub(start)

	goldRows, goldErr := c.Query(ctx, gold)

	res.PredRows, res.GoldRows = predRows, goldRows
	switch {
	case predErr != nil:
		res.Status = StatusError
		res.Error = predErr.Error()
	case goldErr != nil:
		res.Status = StatusError
		res.Error = "gold: " + goldErr.Error()
	default:
		res.ExecMatch = EqualRows(predRows, goldRows)
		res.SetMatch = sameSet(predRows, goldRows)
		res.Output = OutputSimilarity(predRows, goldRows)
		res.Status = StatusFail
		if res.SetMatch {
			res.Status = StatusPass
		}
	}
	return res
}

// Query runs one statement and reads every row. On error the rows are
// empty, never nil.
func (c *Comparator) Query(ctx context.Context, query string) ([]Row, error) {
	if strings.TrimSpace(query) == "" {
		return []Row{}, fmt.Errorf("empty query")
	}
	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return []Row{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return []Row{}, err
	}

	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return []Row{}, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, Row(vals))
	}
	if err := rows.Err(); err != nil {
		return []Row{}, err
	}
	return out, nil
}
