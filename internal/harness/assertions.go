package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/eval"
)

// AssertionError is a failed expectation with enough context to debug it.
type AssertionError struct {
	Case     string
	Check    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s.%s\n", e.Case, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// check evaluates every expectation of c against out and returns the
// failure messages.
func (h *Harness) check(ctx context.Context, c Case, out CaseOutput) []string {
	var failures []string
	fail := func(check, expected, actual string) {
		failures = append(failures, (&AssertionError{
			Case: c.Name, Check: check, Expected: expected, Actual: actual,
		}).Error())
	}

	e := c.Expect
	if out.Error != "" && !e.expectsFailure() {
		fail("error", "no error", out.Error)
		return failures
	}

	if e.SQL != "" && out.Output != e.SQL {
		fail("sql", e.SQL, describe(out))
	}

	if e.IR != "" {
		want, err := canonicalJSON(json.RawMessage(e.IR))
		if err != nil {
			fail("ir", "valid JSON", fmt.Sprintf("expectation does not parse: %v", err))
		} else if out.Output != want {
			fail("ir", want, describe(out))
		}
	}

	if e.ErrorContains != "" && !strings.Contains(out.Error, e.ErrorContains) {
		fail("error_contains", fmt.Sprintf("error containing %q", e.ErrorContains), describe(out))
	}

	if e.Valid != nil {
		valid := out.Error == ""
		if valid != *e.Valid {
			fail("valid", fmt.Sprintf("%t", *e.Valid), describe(out))
		}
	}

	if e.Code != "" && out.Code != e.Code {
		fail("code", e.Code, fmt.Sprintf("%q (%s)", out.Code, describe(out)))
	}

	if len(e.Rows) > 0 {
		if msg := h.checkRows(ctx, out.Output, e.Rows); msg != "" {
			fail("rows", fmt.Sprintf("%v", e.Rows), msg)
		}
	}
	return failures
}

// checkRows runs sql over the scenario data and compares the rows in
// order. It returns "" on success.
func (h *Harness) checkRows(ctx context.Context, sql string, want [][]any) string {
	if h.rows == nil {
		return "scenario has no data"
	}
	if sql == "" {
		return "no SQL to execute"
	}
	got, err := h.rows.Query(ctx, sql)
	if err != nil {
		return fmt.Sprintf("execution failed: %v", err)
	}
	expected := make([]eval.Row, len(want))
	for i, r := range want {
		expected[i] = eval.Row(r)
	}
	if !eval.EqualRows(got, expected) {
		return fmt.Sprintf("%v", got)
	}
	return ""
}

func describe(out CaseOutput) string {
	if out.Error != "" {
		return "error: " + out.Error
	}
	return fmt.Sprintf("%q", out.Output)
}
