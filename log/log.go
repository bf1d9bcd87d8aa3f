// Package log is the engine's package-level logger: unconditional
// Printf/PrintfStdErr output, plus DEBUG/TRACE lines gated by the
// DebugOn/TraceOn switches, which default to false and are set by the
// caller.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/wayneeseguin/cascade/internal/utils/ansi"
)

// DebugOn gates DEBUG. Set true to see step-level add/remove/modify
// tracing.
var DebugOn = false

// TraceOn gates TRACE, for detail finer than DEBUG (per-handler fan-out).
// Setting TraceOn also implies DebugOn should be set by the caller; TRACE
// itself does not turn DebugOn on.
var TraceOn = false

// Writer is where Printf writes; PrintfStdErr, DEBUG, TRACE and Fatal
// always target os.Stderr. Overridable in tests.
var Writer io.Writer = os.Stdout

// Printf writes a colorized message to Writer.
func Printf(format string, args ...interface{}) {
	fmt.Fprintln(Writer, ansi.Sprintf(format, args...))
}

// PrintfStdErr writes a colorized message to stderr.
func PrintfStdErr(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, ansi.Sprintf(format, args...))
}

// DEBUG writes format to stderr when DebugOn is set.
func DEBUG(format string, args ...interface{}) {
	if !DebugOn {
		return
	}
	fmt.Fprintln(os.Stderr, ansi.Sprintf("@G{DEBUG}> "+format, args...))
}

// TRACE writes format to stderr when TraceOn is set.
func TRACE(format string, args ...interface{}) {
	if !TraceOn {
		return
	}
	fmt.Fprintln(os.Stderr, ansi.Sprintf("@C{TRACE}> "+format, args...))
}

// Fatal writes format to stderr and exits the process with status 1.
func Fatal(format string, args ...interface{}) {
	PrintfStdErr(format, args...)
	os.Exit(1)
}
