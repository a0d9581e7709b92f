// Package harness runs conformance scenarios against the query compilers,
// the normalizer and the plan validator.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario pins down"
//	data: |                     # optional census CSV for row checks
//	  year,zipcode,white
//	  2020,ZCTA5 30005,10
//	cases:
//	  - name: scan_and_filter
//	    kind: plan
//	    input: '{"operation": "Filter", "details": {"condition": "year = 2020"}}'
//	    expect:
//	      sql: "SELECT * FROM demographics WHERE year = 2020;"
//	      rows: [[2020, "30005", 10]]
//
// # Case Kinds
//
//   - plan: compile a plan tree to SQL
//   - flat: compile flat IR JSON to SQL
//   - normalize: derive flat IR from SQL
//   - roundtrip: normalize SQL and compile it back
//   - validate: check a plan tree against the validator registry
//
// # Expectations
//
//   - sql: exact compiled SQL
//   - ir: flat IR, compared as JSON values
//   - error_contains: substring of the failure text
//   - valid: whether validation passes
//   - code: validator error code (E201..E207)
//   - rows: result rows of the compiled SQL over data, in order
//
// A case that fails without declaring an error expectation fails the
// scenario.
//
// # Golden Files
//
// RunWithGolden snapshots every case output as canonical JSON under
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
