package eval

// #region eval-config
// EvalConfig holds tolerances for post-transition validation.
type EvalConfig struct {
	Tolerance float64 // allowed float drift when recomputing derived values
}

// DefaultEvalConfig returns the tolerances used by replay.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{Tolerance: 1e-9}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of validating one transition.
type EvalResult struct {
	Seq     int          `json:"seq"`
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
