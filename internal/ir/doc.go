// Package ir provides the value-level helpers shared by the flat query IR and
// the plan-tree IR.
//
// IR documents are usually written by a generative model, so they are treated
// as untrusted input: keys arrive in any case, numbers arrive as strings, and a
// list is sometimes a single value. The helpers here decode such documents into
// plain Go values and read them back tolerantly.
//
// Decoded values are always one of:
//   - nil
//   - bool
//   - string
//   - json.Number (integers keep their source text)
//   - []any
//   - map[string]any
//
// This package imports nothing internal. flatir, planir, and both compilers
// build on it.
package ir
