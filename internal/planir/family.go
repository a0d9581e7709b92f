package planir

import (
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// Family is the coarse category an operation name collapses into.
type Family int

// Operation families. FamilyUnknown marks names outside the synonym table;
// the compiler treats such nodes as no-ops.
const (
	FamilyUnknown Family = iota
	FamilyScan
	FamilyFilter
	FamilyProject
	FamilyAgg
	FamilySort
	FamilyLimit
	FamilyMath
	FamilyWindow
)

var familyNames = map[Family]string{
	FamilyUnknown: "UNKNOWN",
	FamilyScan:    "SCAN",
	FamilyFilter:  "FILTER",
	FamilyProject: "PROJECT",
	FamilyAgg:     "AGG",
	FamilySort:    "SORT",
	FamilyLimit:   "LIMIT",
	FamilyMath:    "MATH",
	FamilyWindow:  "WINDOW",
}

// String returns the family's upper-case name.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return familyNames[FamilyUnknown]
}

// Synonyms lists the accepted spellings of each family.
var Synonyms = map[Family][]string{
	FamilyScan:    {"TableScan", "Scan", "Table Scan", "Source"},
	FamilyFilter:  {"Filter", "Selection", "Where", "Having"},
	FamilyProject: {"Projection", "Project", "Select"},
	FamilyAgg:     {"Aggregation", "Aggregate", "GroupBy", "Grouping"},
	FamilySort:    {"Sort", "OrderBy", "Order By"},
	FamilyLimit:   {"Limit", "Top"},
	FamilyMath:    {"Math", "Arithmetic", "Ratio"},
	FamilyWindow:  {"Window", "WindowFunction"},
}

// CanonicalNames maps each family to the operation name the validator's
// default registry uses for it.
var CanonicalNames = map[Family]string{
	FamilyScan:    "Scan",
	FamilyFilter:  "Filter",
	FamilyProject: "Projection",
	FamilyAgg:     "Aggregation",
	FamilySort:    "Sort",
	FamilyLimit:   "Limit",
	FamilyMath:    "Math",
	FamilyWindow:  "Window",
}

// familyByName is keyed by the folded spelling. Built once at init.
var familyByName = buildFamilyIndex()

func buildFamilyIndex() map[string]Family {
	index := make(map[string]Family)
	for family, names := range Synonyms {
		for _, name := range names {
			index[ir.Fold(name)] = family
		}
	}
	return index
}

// Classify maps an operation name onto its family, ignoring case and
// surrounding whitespace.
func Classify(operation string) Family {
	return familyByName[ir.Fold(strings.TrimSpace(operation))]
}
