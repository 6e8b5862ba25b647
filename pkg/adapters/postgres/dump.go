package postgres

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/leapstack-labs/dress/pkg/adapter"
)

// DumpRunner runs an external dump utility and returns what it wrote.
// env entries are added to the child environment only.
type DumpRunner interface {
	Run(ctx context.Context, name string, args, env []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs the utility as a child process.
type ExecRunner struct{}

// Run implements DumpRunner.
func (ExecRunner) Run(ctx context.Context, name string, args, env []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary comes from adapter options
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// runDump invokes the utility and returns its trimmed output. Empty output
// is a DumpError carrying the trimmed standard error.
func runDump(ctx context.Context, runner DumpRunner, name string, args, env []string) (string, error) {
	stdout, stderr, err := runner.Run(ctx, name, args, env)

	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return "", &adapter.DumpError{
			Command: name,
			Stderr:  strings.TrimSpace(string(stderr)),
			Err:     err,
		}
	}
	return out, nil
}
