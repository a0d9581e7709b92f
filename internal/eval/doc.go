// Package eval scores predicted SQL against gold SQL by running both on a
// SQLite copy of the demographics table.
//
// # METRICS
//
// For every (predicted, gold) pair the Comparator reports:
//
//	exact_match     canonicalized texts are equal
//	exec_match      both result lists are equal, row order included
//	set_match       both results contain the same distinct rows (PASS)
//	structural      1 - levenshtein(canonical pred, canonical gold) / max length
//	output          Jaccard similarity of the two row sets
//	exec_ms         wall time of the predicted query
//
// Canonicalization collapses whitespace, lower-cases, folds INNER/LEFT JOIN
// to JOIN and drops everything from WHERE up to ORDER BY.
//
// # STATUS
//
// A case is PASS when set_match holds, ERROR when either query fails to
// execute, and FAIL otherwise. Failed executions never match.
//
// # DATA
//
// LoadCSV rebuilds the demographics table from the census export: column
// names are trimmed, the "ZCTA5" prefix is stripped from zipcodes and empty
// numeric cells become 0.
//
// # RUNS
//
// Runner evaluates a batch of records, aggregates a Summary and, when a
// store is attached, persists the run and every case under a UUIDv7 run id.
package eval
