// Package plansql compiles tree-shaped execution plans into SQL.
//
// Plans come from a generative model, so the compiler is best effort. It walks
// the tree post-order, folding every child into one private accumulator before
// its parent runs, and renders the accumulator as a single statement:
//
//	SELECT cols FROM table [WHERE f AND f] [GROUP BY k, k] [ORDER BY o, o] [LIMIT n];
//
// ALIASES AND WINDOWS:
//
// MATH and AGG nodes bind aliases ("total" -> "SUM(x)"). WINDOW nodes build an
// OVER expression and queue it without emitting anything. A PROJECT node later
// in the walk resolves each requested name:
//
//  1. a bound alias becomes "expr AS name"
//  2. otherwise a bare identifier claims the oldest queued window expression
//     and becomes "window AS name"
//  3. anything else is emitted unchanged
//
// PROJECT replaces the column list built so far.
//
// FAILURE:
//
// Unknown operations are skipped. Any other failure (a detail of the wrong
// type, a malformed node, a panic) yields the string "Error: <message>"
// instead of SQL. Compile never panics.
package plansql
