// Package pipeline orchestrates the peptide design stages: target
// preparation, backbone generation, sequence design, scoring, ranking,
// optional structure prediction and reporting. Stages communicate
// through files only, so any completed stage can be skipped on resume.
package pipeline

import (
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/runner"
	"github.com/duyjimmypham/pepdesign/internal/tools"
)

// stderr is for logging to the user, waiting, etc
var stderr = log.New(os.Stderr, "", 0)

// Run is the on-disk workspace of one pipeline run.
type Run struct {
	// ID identifies the run in logs and in the state journal
	ID uuid.UUID

	Config *config.Config

	// Resume skips stages whose outputs already exist
	Resume bool

	// Runner executes external tools for the non-stub stages
	Runner runner.Runner

	// Verbose echoes external tool output
	Verbose bool
}

// NewRun builds the workspace for a validated config.
func NewRun(c *config.Config, resume, verbose bool) (*Run, error) {
	var r runner.Runner
	var err error

	if r, err = runner.New(c.Global.Runner); err != nil {
		return nil, err
	}
	switch rr := r.(type) {
	case *runner.Local:
		rr.Verbose = verbose
	case *runner.Docker:
		rr.Verbose = verbose
	}

	if err := probeRunner(r, c); err != nil {
		return nil, err
	}

	run := &Run{
		ID:      uuid.New(),
		Config:  c,
		Resume:  resume,
		Runner:  r,
		Verbose: verbose,
	}

	for _, dir := range []string{
		run.TargetDir(),
		run.BackbonesDir(),
		run.DesignsDir(),
		run.ScoringDir(),
		run.RankingDir(),
		run.PredictionsDir(),
		run.LogsDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "create run directories")
		}
	}
	return run, nil
}

// OutDir is the root output directory of the run.
func (r *Run) OutDir() string { return r.Config.Global.OutputDir }

func (r *Run) TargetDir() string      { return filepath.Join(r.OutDir(), "target") }
func (r *Run) BackbonesDir() string   { return filepath.Join(r.OutDir(), "backbones") }
func (r *Run) DesignsDir() string     { return filepath.Join(r.OutDir(), "designs") }
func (r *Run) ScoringDir() string     { return filepath.Join(r.OutDir(), "scoring") }
func (r *Run) RankingDir() string     { return filepath.Join(r.OutDir(), "ranking") }
func (r *Run) PredictionsDir() string { return filepath.Join(r.OutDir(), "predictions") }
func (r *Run) LogsDir() string        { return filepath.Join(r.OutDir(), "logs") }

// Stage artifact paths. Every inter-stage handoff goes through one of
// these files.
func (r *Run) CleanTargetPath() string   { return filepath.Join(r.TargetDir(), "target_clean.pdb") }
func (r *Run) BindingSitePath() string   { return filepath.Join(r.TargetDir(), "binding_site.json") }
func (r *Run) PeptidePath() string       { return filepath.Join(r.TargetDir(), "existing_peptide.json") }
func (r *Run) ReferencePath() string     { return filepath.Join(r.TargetDir(), "reference_properties.json") }
func (r *Run) BackboneIndexPath() string { return filepath.Join(r.BackbonesDir(), "backbones.csv") }
func (r *Run) SequencesPath() string     { return filepath.Join(r.DesignsDir(), "sequences.csv") }
func (r *Run) ScoredPath() string        { return filepath.Join(r.ScoringDir(), "scored.csv") }
func (r *Run) RejectedPath() string      { return filepath.Join(r.ScoringDir(), "rejected.csv") }
func (r *Run) RankedPath() string        { return filepath.Join(r.RankingDir(), "ranked.csv") }
func (r *Run) PredictionsPath() string   { return filepath.Join(r.PredictionsDir(), "predictions.csv") }
func (r *Run) StatePath() string         { return filepath.Join(r.OutDir(), "run_state.json") }
func (r *Run) ReportPath() string        { return filepath.Join(r.OutDir(), "report.html") }

// probeRunner fails before any stage runs when the configured tools
// need a working runner environment that is not there. Runs on stub
// tools only never spawn anything, so they skip the probe.
func probeRunner(r runner.Runner, c *config.Config) error {
	if !usesExternalTools(c) {
		return nil
	}
	if !r.Available() {
		return errors.Errorf("%s runner is not available on this host", c.Global.Runner)
	}
	return nil
}

// usesExternalTools reports whether any configured tool executes
// through the runner.
func usesExternalTools(c *config.Config) bool {
	return c.Backbone.GeneratorType != tools.GeneratorStub ||
		c.Design.DesignerType != tools.DesignerStub ||
		(c.Prediction.PredictorType != tools.PredictorNone &&
			c.Prediction.PredictorType != tools.PredictorStub)
}

// exists reports whether every path is present on disk.
func exists(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
