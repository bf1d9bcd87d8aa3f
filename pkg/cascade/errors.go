package cascade

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/wayneeseguin/cascade/internal/utils/ansi"
)

// stderrWriter is where WarningError.Warn writes; overridable in tests.
var stderrWriter io.Writer = os.Stderr

// ContractViolationError represents a fatal error (§7): a bug in a step,
// never a recoverable race. Mismatched path lengths in a materialized-tree
// transform, or an `added` targeting a non-existent parent outside of
// batching, are both contract violations.
type ContractViolationError struct {
	Reason string
}

// Error implements error.
func (e ContractViolationError) Error() string {
	return ansi.Sprintf("@R{contract violation:} %s", e.Reason)
}

// WarningError represents a best-effort skip (§7): logged, and the
// operation is dropped rather than raised. Grounded on graft's
// merger.WarningError, same shape and same Warn() convention.
type WarningError struct {
	warning string
}

// NewWarningError builds a WarningError with ansi-enabled formatting.
func NewWarningError(format string, args ...interface{}) WarningError {
	return WarningError{warning: ansi.Sprintf(format, args...)}
}

// Error implements error.
func (e WarningError) Error() string {
	return e.warning
}

// Warn prints the warning to stderr unless warnings have been silenced.
func (e WarningError) Warn() {
	if !warningsSilenced {
		fmt.Fprintln(stderrWriter, ansi.Sprintf("@Y{warning:} %s", e.warning))
	}
}

var warningsSilenced bool

// SilenceWarnings toggles whether WarningError.Warn prints to stderr.
func SilenceWarnings(should bool) {
	warningsSilenced = should
}

// MultiError aggregates several errors, mirroring graft's
// merger.MultiError.
type MultiError struct {
	Errors []error
}

// Error implements error.
func (e MultiError) Error() string {
	s := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		s = append(s, fmt.Sprintf(" - %s", err))
	}
	sort.Strings(s)
	return fmt.Sprintf("%d error(s) detected:\n%s", len(e.Errors), strings.Join(s, "\n"))
}

// Append adds err to the set, flattening nested MultiErrors.
func (e *MultiError) Append(err error) {
	if err == nil {
		return
	}
	if m, ok := err.(MultiError); ok {
		e.Errors = append(e.Errors, m.Errors...)
		return
	}
	e.Errors = append(e.Errors, err)
}

// Count returns the number of collected errors.
func (e *MultiError) Count() int {
	return len(e.Errors)
}

// AsError returns nil if the set is empty, else the MultiError itself.
func (e *MultiError) AsError() error {
	if e.Count() == 0 {
		return nil
	}
	return *e
}
