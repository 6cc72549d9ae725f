// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single search for the largest value of a
// field that still satisfies a limit.
type Summary struct {
	Scope           string   `json:"scope"`
	Field           string   `json:"field"`
	Original        float64  `json:"original"`
	Value           float64  `json:"value"`
	Limit           float64  `json:"limit"`
	Measured        float64  `json:"measured"`
	Headroom        float64  `json:"headroom"`
	WithinLimit     bool     `json:"withinLimit"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Notes           []string `json:"notes,omitempty"`
	OriginalDisplay string   `json:"originalDisplay,omitempty"`
	ValueDisplay    string   `json:"valueDisplay,omitempty"`
}
