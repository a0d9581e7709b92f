package plansql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/planir"
)

// DefaultTable is the table a plan reads when no SCAN names one.
const DefaultTable = "demographics"

// ErrorPrefix starts every failure string returned by the compiler.
const ErrorPrefix = "Error: "

// IsError reports whether sql is a compiler failure string.
func IsError(sql string) bool {
	return strings.HasPrefix(sql, ErrorPrefix)
}

// Compiler turns plan trees into SQL. A Compiler holds no per-call state and
// is safe for concurrent use.
type Compiler struct {
	// DefaultTable seeds the table before any SCAN runs.
	DefaultTable string
}

// NewCompiler creates a Compiler targeting DefaultTable.
func NewCompiler() *Compiler {
	return &Compiler{DefaultTable: DefaultTable}
}

// Compile renders the plan rooted at n as a ";"-terminated statement, or an
// "Error: ..." string.
func (c *Compiler) Compile(n *planir.Node) (sql string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("plan compile panicked", "panic", r)
			sql = failure(fmt.Errorf("%v", r))
		}
	}()

	if n == nil {
		return failure(fmt.Errorf("empty plan"))
	}

	comp := newCompilation(c.table())
	if err := comp.visit(n); err != nil {
		slog.Debug("plan compile failed", "operation", n.Operation, "error", err)
		return failure(err)
	}
	return comp.build()
}

// CompileValue compiles an already decoded JSON tree.
func (c *Compiler) CompileValue(v any) string {
	if v == nil {
		return failure(fmt.Errorf("empty plan"))
	}
	n, err := planir.FromValue(v)
	if err != nil {
		return failure(err)
	}
	return c.Compile(n)
}

// CompileJSON compiles raw generator output. Text around the JSON object,
// including markdown fences, is tolerated.
func (c *Compiler) CompileJSON(data []byte) string {
	v, err := ir.Decode(data)
	if err != nil {
		block, blockErr := ir.DecodeBlock(string(data))
		if blockErr != nil {
			return failure(fmt.Errorf("invalid plan json: %w", err))
		}
		v = block
	}
	return c.CompileValue(v)
}

func (c *Compiler) table() string {
	if c.DefaultTable == "" {
		return DefaultTable
	}
	return c.DefaultTable
}

func failure(err error) string {
	return ErrorPrefix + err.Error()
}
