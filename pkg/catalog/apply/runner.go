package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/kart-io/ido-converge/pkg/catalog"
)

// CommandRunner executes external commands. The extra environment is merged
// over the process environment and must never be logged; it is how secrets
// (MYSQL_PWD) reach child processes without appearing in argv.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (catalog.RunResult, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes argv, capturing stdout and stderr. A non-zero exit is reported
// through RunResult, not the error: the error is reserved for failures to
// start the process at all.
func (ExecRunner) Run(ctx context.Context, argv []string, env map[string]string) (catalog.RunResult, error) {
	if len(argv) == 0 {
		return catalog.RunResult{}, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := catalog.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return res, nil
}
