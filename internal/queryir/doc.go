// Package queryir defines the flat query IR: one SELECT statement described
// clause by clause.
//
// The flat IR is what the normalizer derives from gold SQL and what a
// generator is trained to emit:
//
//	{
//	  "select":  [{"column": "population", "agg": "SUM", "alias": "total"}],
//	  "from":    ["demographics"],
//	  "where":   [{"column": "year", "operator": "=", "value": "2019"}],
//	  "groupBy": ["zipcode"],
//	  "having":  [{"column": "population", "agg": "SUM", "operator": ">", "value": "1000"}],
//	  "orderBy": [{"column": "total", "direction": "DESC"}],
//	  "limit":   5
//	}
//
// CONDITIONS:
//
// Conditions inside where and having are implicitly AND-conjoined. OR and NOT
// are not representable; the normalizer drops such subtrees rather than
// approximating them.
//
// Condition values are scalars, except:
//   - IN takes a list, or a string shaped like a list literal ("['a', 'b']")
//   - BETWEEN takes a single "low AND high" string
//
// UNTRUSTED INPUT:
//
// Generated documents rarely match the schema exactly. Parse accepts the
// common deviations: a single object where a list belongs, a bare string as
// a select item, numbers as strings, snake_case clause keys, mixed key case.
// Shape errors that cannot be tolerated are reported as *FieldError.
//
// Validate reports semantic problems (unknown operators, malformed IN and
// BETWEEN values) as warnings without rejecting the query; the compiler in
// package querysql remains the arbiter of what can be rendered.
package queryir
