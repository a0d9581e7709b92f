package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a named list of cases sharing optional table data.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// Data is inline census CSV loaded into demographics for row checks.
	Data string `yaml:"data,omitempty"`

	Cases []Case `yaml:"cases"`
}

// Case is one input fed to one component.
type Case struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Input string `yaml:"input"`

	// Table overrides the compilers' default table.
	Table string `yaml:"table,omitempty"`

	// Lenient enables validator synonyms for validate cases.
	Lenient bool `yaml:"lenient,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect holds the checks for one case. Unset fields are not checked.
type Expect struct {
	SQL           string  `yaml:"sql,omitempty"`
	IR            string  `yaml:"ir,omitempty"`
	ErrorContains string  `yaml:"error_contains,omitempty"`
	Valid         *bool   `yaml:"valid,omitempty"`
	Code          string  `yaml:"code,omitempty"`
	Rows          [][]any `yaml:"rows,omitempty"`
}

// expectsFailure reports whether the case declares that it fails.
func (e Expect) expectsFailure() bool {
	return e.ErrorContains != "" || e.Code != "" || (e.Valid != nil && !*e.Valid)
}

// Case kinds.
const (
	KindPlan      = "plan"
	KindFlat      = "flat"
	KindNormalize = "normalize"
	KindRoundTrip = "roundtrip"
	KindValidate  = "validate"
)

var kinds = map[string]bool{
	KindPlan:      true,
	KindFlat:      true,
	KindNormalize: true,
	KindRoundTrip: true,
	KindValidate:  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true

		if !kinds[c.Kind] {
			return fmt.Errorf("cases[%d]: unknown kind %q", i, c.Kind)
		}
		if len(c.Expect.Rows) > 0 {
			if s.Data == "" {
				return fmt.Errorf("cases[%d]: rows require scenario data", i)
			}
			if c.Kind == KindNormalize || c.Kind == KindValidate {
				return fmt.Errorf("cases[%d]: rows are not checked for %s cases", i, c.Kind)
			}
		}
		if c.Expect.Code != "" && c.Kind != KindValidate {
			return fmt.Errorf("cases[%d]: code is only checked for validate cases", i)
		}
	}
	return nil
}
