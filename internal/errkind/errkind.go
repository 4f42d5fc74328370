// Package errkind classifies engine errors into the fatal/non-fatal kinds
// the CLI layer needs in order to pick an exit code and a log level.
package errkind

import "errors"

// Kind is a sentinel wrapped into engine errors with fmt.Errorf("...: %w", Kind).
// Callers recover it with errors.Is.
type Kind error

var (
	// Configuration fails validation before any command runs.
	Configuration Kind = errors.New("configuration error")
	// SystemControl means a system-variance control in the `system:` block
	// could not be applied.
	SystemControl Kind = errors.New("system control error")
	// CommandFailure means a cell's command exited non-zero; never fatal.
	CommandFailure Kind = errors.New("command failure")
	// MetricParse means a custom-metric command produced unparseable
	// output; treated as CommandFailure for that metric.
	MetricParse Kind = errors.New("metric parse error")
	// IO means a log or result file could not be written.
	IO Kind = errors.New("io error")
	// Interrupt means the run was aborted by SIGINT/SIGTERM.
	Interrupt Kind = errors.New("interrupt")
)

// Fatal reports whether err should abort the engine before any cell runs.
func Fatal(err error) bool {
	return errors.Is(err, error(Configuration)) || errors.Is(err, error(SystemControl))
}
