package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/planir"
)

// DefaultMaxAttempts bounds the retries per sample.
const DefaultMaxAttempts = 3

// maxEchoChars bounds how much of a rejected attempt is echoed back.
const maxEchoChars = 800

const responseMarker = "### Response:"

// ErrExhausted is returned when every attempt was rejected.
var ErrExhausted = errors.New("repair attempts exhausted")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Loop is a bounded generate-validate-retry loop. A Loop is safe for
// concurrent use when its Generator is.
type Loop struct {
	Generator Generator

	// Validator defaults to the strict default registry.
	Validator *planir.Validator

	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int

	// Limiter, when set, paces every Generate call.
	Limiter *rate.Limiter
}

// Result is an accepted plan.
type Result struct {
	Plan     map[string]any
	Attempts int
}

// Prompt is the instruction sent on the first attempt.
func Prompt(nl string) string {
	return "### Instruction:\n" +
		"Convert the Natural Language Query into a valid JSON Execution Plan.\n" +
		`Strictly follow the schema: { "operation": "...", "details": {...}, "children": [...] }` + "\n\n" +
		"### Input:\n" + nl + "\n\n" +
		responseMarker + "\n"
}

// Feedback is appended to the prompt after a rejected attempt.
func Feedback(attempt string, cause error) string {
	if utf8.RuneCountInString(attempt) > maxEchoChars {
		attempt = string([]rune(attempt)[:maxEchoChars]) + "...(truncated)"
	}
	return "\n### Last Attempted JSON (invalid):\n" + attempt + "\n" +
		"\n### Error Feedback:\n" +
		"Your previous JSON does NOT follow the required IR schema.\n" +
		"Error: " + cause.Error() + "\n" +
		"Please output ONLY a corrected JSON object, with no extra text.\n" +
		"\n" + responseMarker + "\n"
}

// Response returns the part of generator output after the last
// "### Response:" marker. Generators that echo the prompt produce it.
func Response(output string) string {
	if i := strings.LastIndex(output, responseMarker); i >= 0 {
		return strings.TrimSpace(output[i+len(responseMarker):])
	}
	return output
}

// Run generates a plan for nl.
func (l *Loop) Run(ctx context.Context, nl string) (*Result, error) {
	if l.Generator == nil {
		return nil, errors.New("repair: no generator")
	}
	validator := l.Validator
	if validator == nil {
		validator = planir.NewValidator()
	}
	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	prompt := Prompt(nl)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if l.Limiter != nil {
			if err := l.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("repair: wait: %w", err)
			}
		}

		output, err := l.Generator.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("repair: generate attempt %d: %w", attempt, err)
		}

		response := Response(output)
		plan, err := accept(validator, response)
		if err == nil {
			return &Result{Plan: plan, Attempts: attempt}, nil
		}

		slog.Debug("plan rejected", "attempt", attempt, "error", err)
		lastErr = err
		prompt += Feedback(response, err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, maxAttempts, lastErr)
}

// accept extracts, decodes and validates one response.
func accept(validator *planir.Validator, response string) (map[string]any, error) {
	v, err := ir.DecodeBlock(response)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(v); err != nil {
		return nil, err
	}
	// Validate only passes objects.
	return v.(map[string]any), nil
}
