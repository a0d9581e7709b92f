package harness

// CaseOutput is what one case produced.
type CaseOutput struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// toCanonical converts the output for ir.MarshalCanonical.
func (o CaseOutput) toCanonical() map[string]any {
	m := map[string]any{
		"name": o.Name,
		"kind": o.Kind,
	}
	if o.Output != "" {
		m["output"] = o.Output
	}
	if o.Error != "" {
		m["error"] = o.Error
	}
	if o.Code != "" {
		m["code"] = o.Code
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every case met its expectations.
	Pass bool `json:"pass"`

	// Outputs holds one entry per case, in scenario order.
	Outputs []CaseOutput `json:"outputs"`

	// Errors contains failed expectation messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []CaseOutput{},
		Errors:  []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
