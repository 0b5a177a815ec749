package exec

import (
	"os/exec"

	"github.com/cockroachdb/errors"
)

// ExitCode extracts the exit status from an error returned by Run. The second
// value is false when err is nil or the process never started.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
