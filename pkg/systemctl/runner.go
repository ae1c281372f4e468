// Package systemctl wraps the host service manager as a synchronous call.
package systemctl

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// NoOutput is returned as the message when the command produced nothing.
const NoOutput = "no output"

// Runner executes service-control actions through the systemctl binary.
type Runner struct {
	// Bin is the executable to invoke, overridable for tests.
	Bin string

	// Timeout bounds a single invocation. Actions normally finish well
	// under a second; the timeout only guards against a hung unit.
	Timeout time.Duration
}

// NewRunner returns a Runner using the system systemctl.
func NewRunner() *Runner {
	return &Runner{Bin: "systemctl", Timeout: 30 * time.Second}
}

// Run executes "<bin> <action> <service>" and captures its output. It never
// returns an error: a non-zero exit yields (false, stderr), a failure to
// even spawn the process yields (false, error text). The call blocks until
// the command finishes, which stalls the caller's loop for its duration.
func (r *Runner) Run(action, service string) (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Bin, action, service)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = NoOutput
			}
			return false, msg
		}
		// Spawn failure (binary missing, context expired before start, ...).
		return false, err.Error()
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		out = NoOutput
	}
	return true, out
}
