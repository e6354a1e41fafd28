package runner

import (
	"context"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Docker runs tools inside containers via `docker run`, bind-mounting
// every declared input/output path.
type Docker struct {
	// Verbose logs every assembled docker command before it runs
	Verbose bool

	// GPU requests --gpus all, which the real diffusion and folding
	// containers need
	GPU bool
}

// Execute assembles and runs the docker command line for spec.
func (d *Docker) Execute(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := d.commandArgs(spec)
	cmd := exec.CommandContext(ctx, "docker", args...)

	if d.Verbose {
		stderr.Printf("[%s] docker %s", spec.Tool, strings.Join(args, " "))
	}

	return run(cmd, spec)
}

// commandArgs builds the `docker run` argument list: mounts, working
// directory and environment first, then the image and the tool command.
// Environment variables are emitted in sorted order so assembled
// commands are reproducible.
func (d *Docker) commandArgs(spec Spec) []string {
	args := []string{"run", "--rm"}
	if d.GPU {
		args = append(args, "--gpus", "all")
	}

	for _, m := range spec.Mounts {
		host := m.Host
		if abs, err := filepath.Abs(host); err == nil {
			host = abs
		}
		args = append(args, "-v", host+":"+m.Container)
	}

	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+spec.Env[k])
	}

	args = append(args, spec.Image, spec.Command)
	return append(args, spec.Args...)
}

// Available probes for a working docker client.
func (d *Docker) Available() bool {
	return exec.Command("docker", "--version").Run() == nil
}
