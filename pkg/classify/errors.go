package classify

import (
	"errors"
	"fmt"
)

var (
	// ErrNoReferenceCluster means no cluster qualifies as Baseline. Classify
	// never returns it; it reports StatusNoReferenceCluster instead.
	ErrNoReferenceCluster = errors.New("no reference cluster found")
	// ErrDegenerateInput means the feature matrix carries no usable row.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidConfiguration is returned before any computation starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput covers empty, ragged or mismatched inputs.
	ErrInvalidInput = errors.New("invalid input")
)

// WarningCode identifies a non-fatal condition recorded in the summary.
type WarningCode string

const (
	WarnLowSeparation          WarningCode = "low_separation"
	WarnSingleReferenceCluster WarningCode = "single_reference_cluster"
	WarnEmptySignalSet         WarningCode = "empty_signal_set"
	WarnNoCrossover            WarningCode = "no_crossover"
	WarnForcedExpansion        WarningCode = "forced_expansion"
	WarnNoReferenceCluster     WarningCode = "no_reference_cluster"
	WarnZeroRowsRepaired       WarningCode = "zero_rows_repaired"
)

// Warning is a non-fatal diagnostic attached to a run.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func newWarning(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

func configError(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfiguration, key, fmt.Sprintf(format, args...))
}
