// Package runner abstracts the execution of external structural-biology
// tools. A Runner receives a fully described invocation and returns its
// outcome; the three implementations cover Docker containers, local
// subprocesses, and a deterministic stub that synthesizes output files
// without spawning anything.
package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Runner kind strings accepted by configuration.
const (
	KindDocker = "docker"
	KindLocal  = "local"
	KindStub   = "stub"
)

// Mount maps a host path into a container. Local runners ignore the
// container side.
type Mount struct {
	Host      string
	Container string
}

// Spec fully describes one external tool invocation.
type Spec struct {
	// tool name, for logging and stub dispatch
	Tool string

	// container image of the tool (docker only)
	Image string

	// executable (or in-container entry point)
	Command string
	Args    []string

	// working directory of the process
	WorkDir string

	// input/output bind mounts (docker only)
	Mounts []Mount

	// extra environment variables
	Env map[string]string

	// hard wall-clock limit; 0 means no limit
	Timeout time.Duration
}

// Result is the outcome of an invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external tool invocations. Execute blocks until the
// process finishes; a non-zero exit is returned as an error with the
// Result still populated for diagnostics.
type Runner interface {
	Execute(ctx context.Context, spec Spec) (Result, error)

	// Available reports whether the runner's environment is operational.
	Available() bool
}

// New returns the runner for a configured kind string. The stub kind is
// constructed directly by callers that hold a synthesizer; requesting
// it here is an error.
func New(kind string) (Runner, error) {
	switch kind {
	case KindDocker:
		return &Docker{}, nil
	case KindLocal:
		return &Local{}, nil
	case KindStub:
		return nil, errors.New("stub runner requires a synthesizer; use NewStub")
	}
	return nil, errors.Errorf("unknown runner type %q", kind)
}
