package runner

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var (
	// stderr is for logging to Stderr (without a timestamp)
	stderr = log.New(os.Stderr, "", 0)
)

// Local runs tools as subprocesses on the host.
type Local struct {
	// Verbose logs every command before it runs
	Verbose bool
}

// Execute runs the command described by spec. When spec.Timeout
// elapses, the whole process group is killed and the invocation is
// reported as failed rather than left hanging.
func (l *Local) Execute(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.WorkDir
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// run the tool in its own process group so a timeout tears down the
	// tool's children as well
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	if l.Verbose {
		stderr.Printf("[%s] %s %s", spec.Tool, spec.Command, strings.Join(spec.Args, " "))
	}

	return run(cmd, spec)
}

// Available reports true: the host can always fork.
func (l *Local) Available() bool {
	return true
}

// run executes a prepared command and converts its outcome into a
// Result, shared by the local and docker runners.
func run(cmd *exec.Cmd, spec Spec) (Result, error) {
	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, errors.Errorf("%s exited %d: %s", spec.Tool, res.ExitCode, strings.TrimSpace(res.Stderr))
	default:
		res.ExitCode = -1
		return res, errors.Wrapf(err, "run %s", spec.Tool)
	}
}
