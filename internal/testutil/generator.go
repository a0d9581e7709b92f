package testutil

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedGenerator replays canned model outputs in order and records
// every prompt it was given.
//
// It satisfies repair.Generator without importing it. Asking for more
// outputs than were scripted panics, the same way a test double should
// fail loudly when the code under test loops more than expected.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      map[int]error
	prompts   []string
}

// NewScriptedGenerator creates a generator that returns responses in order.
func NewScriptedGenerator(responses ...string) *ScriptedGenerator {
	return &ScriptedGenerator{responses: responses, errs: map[int]error{}}
}

// FailAt makes the call with the given zero-based index return err.
func (g *ScriptedGenerator) FailAt(call int, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[call] = err
	return g
}

// Generate returns the next scripted response.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := len(g.prompts)
	g.prompts = append(g.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := g.errs[call]; ok {
		return "", err
	}
	if call >= len(g.responses) {
		panic(fmt.Sprintf("ScriptedGenerator: call %d but only %d responses scripted", call+1, len(g.responses)))
	}
	return g.responses[call], nil
}

// Prompts returns a copy of every prompt received so far.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// Calls returns the number of Generate calls.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// EchoGenerator answers every prompt with the same output. Safe for
// concurrent use.
type EchoGenerator string

// Generate returns g.
func (g EchoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(g), nil
}
