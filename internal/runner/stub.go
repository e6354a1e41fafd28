package runner

import (
	"context"

	"github.com/pkg/errors"
)

// SynthFunc synthesizes the output files a tool invocation would have
// produced, in the exact schema the next pipeline stage expects.
type SynthFunc func(spec Spec) error

// Stub is the deterministic Runner used to exercise the pipeline
// without real models: it never spawns a process and instead delegates
// to a synthesizer that fabricates the tool's output artifacts.
type Stub struct {
	synth SynthFunc

	// Calls counts invocations, for tests asserting resume semantics
	Calls int
}

// NewStub returns a stub runner backed by the given synthesizer.
func NewStub(synth SynthFunc) *Stub {
	return &Stub{synth: synth}
}

// Execute runs the synthesizer in place of the real tool.
func (s *Stub) Execute(ctx context.Context, spec Spec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	s.Calls++
	if s.synth == nil {
		return Result{ExitCode: -1}, errors.Errorf("stub runner has no synthesizer for %s", spec.Tool)
	}
	if err := s.synth(spec); err != nil {
		return Result{ExitCode: 1}, errors.Wrapf(err, "synthesize %s output", spec.Tool)
	}

	return Result{Stdout: "stub: " + spec.Tool}, nil
}

// Available reports true: the stub has no environment to probe.
func (s *Stub) Available() bool {
	return true
}
