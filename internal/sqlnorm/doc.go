// Package sqlnorm derives the flat query IR from SQL text.
//
// Parsing is delegated to github.com/xwb1989/sqlparser; this package only
// walks the resulting AST. Only single SELECT statements are accepted.
//
// WHERE and HAVING are flattened by splitting AND nodes (through any
// parentheses) into leaf predicates. A leaf that is not one of
// = > < >= <= != LIKE IN BETWEEN, including any OR or NOT subtree, cannot be
// expressed in the flat IR and is dropped. Drops are logged at debug level.
//
// Values are recorded the way gold labels have always been written:
//   - string literals keep their quotes: 'abc'
//   - numbers keep their source text: 2019
//   - IN lists become a list literal: ['30005', '30006']
//   - BETWEEN bounds become "low AND high"
package sqlnorm
