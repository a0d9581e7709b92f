// Package planir defines the tree-shaped execution-plan IR and its schema
// validator.
//
// A plan is a recursive node:
//
//	{
//	  "operation": "Projection",
//	  "details":   {"columns": ["zipcode", "rank_col"]},
//	  "children":  [
//	    {"operation": "Window", "details": {"function": "RANK()", "order": "ORDER BY white DESC"}, "children": [
//	      {"operation": "Scan", "details": {"table": "demographics"}, "children": []}
//	    ]}
//	  ]
//	}
//
// Plans come from a generative model. Operation names vary in spelling and
// case, detail keys drift, and whole subtrees can be malformed. Two consumers
// handle that differently:
//
//   - The validator (Validate) is strict. It checks every node against a
//     registry of canonical operations and the detail keys each requires, and
//     its error messages are written to be fed back to the generator.
//   - The compiler in package plansql is lenient. It maps every spelling onto
//     one of eight operation families (Classify) and skips what it cannot use.
//
// OPERATION FAMILIES:
//
//	Family   Spellings
//	------   ---------
//	SCAN     TableScan, Scan, Table Scan, Source
//	FILTER   Filter, Selection, Where, Having
//	PROJECT  Projection, Project, Select
//	AGG      Aggregation, Aggregate, GroupBy, Grouping
//	SORT     Sort, OrderBy, Order By
//	LIMIT    Limit, Top
//	MATH     Math, Arithmetic, Ratio
//	WINDOW   Window, WindowFunction
//
// Matching is case-insensitive (Unicode case folding).
package planir
