package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/tools"
)

// Stage names, in pipeline order.
const (
	StageTargetPrep     = "target_prep"
	StageBackboneGen    = "backbone_gen"
	StageSequenceDesign = "sequence_design"
	StageScoring        = "scoring"
	StageRanking        = "ranking"
	StagePrediction     = "structure_prediction"
	StageReporting      = "reporting"
)

// StageError is a failure inside one pipeline stage. The CLI maps it
// to its own exit code.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// stage binds a name to its dependencies, its output artifacts and
// its implementation.
type stage struct {
	name string

	// names of stages that must run first
	after []string

	// artifacts whose presence lets resume skip the stage
	outputs func(r *Run) []string

	// enabled excludes the stage for the current config; nil means
	// always on
	enabled func(c *config.Config) bool

	run func(ctx context.Context, r *Run) error
}

// stages is the full pipeline in declaration order. plan derives the
// execution order from the dependency edges, so reordering this slice
// never changes semantics.
var stages = []stage{
	{
		name:    StageTargetPrep,
		outputs: func(r *Run) []string { return targetPrepOutputs(r) },
		run:     runTargetPrep,
	},
	{
		name:    StageBackboneGen,
		after:   []string{StageTargetPrep},
		outputs: func(r *Run) []string { return []string{r.BackboneIndexPath()} },
		run:     runBackboneGen,
	},
	{
		name:    StageSequenceDesign,
		after:   []string{StageBackboneGen},
		outputs: func(r *Run) []string { return []string{r.SequencesPath()} },
		run:     runSequenceDesign,
	},
	{
		name:    StageScoring,
		after:   []string{StageSequenceDesign},
		outputs: func(r *Run) []string { return []string{r.ScoredPath(), r.RejectedPath()} },
		run:     runScoring,
	},
	{
		name:    StageRanking,
		after:   []string{StageScoring},
		outputs: func(r *Run) []string { return []string{r.RankedPath()} },
		run:     runRanking,
	},
	{
		name:    StagePrediction,
		after:   []string{StageRanking},
		outputs: func(r *Run) []string { return []string{r.PredictionsPath()} },
		enabled: func(c *config.Config) bool { return c.Prediction.PredictorType != tools.PredictorNone },
		run:     runPrediction,
	},
	{
		name:    StageReporting,
		after:   []string{StageRanking, StagePrediction},
		outputs: func(r *Run) []string { return []string{r.ReportPath()} },
		run:     runReporting,
	},
}

// plan resolves the enabled stages into a deterministic execution
// order. Ties in the topological sort break on declaration order.
func plan(c *config.Config) ([]stage, error) {
	index := make(map[string]int, len(stages))
	byName := make(map[string]stage, len(stages))
	enabled := make(map[string]bool, len(stages))

	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	for i, s := range stages {
		index[s.name] = i
		byName[s.name] = s
		if s.enabled != nil && !s.enabled(c) {
			continue
		}
		enabled[s.name] = true

		if err := g.AddVertex(s.name); err != nil {
			return nil, errors.Wrap(err, "build stage graph")
		}
	}

	for _, s := range stages {
		if !enabled[s.name] {
			continue
		}
		for _, dep := range s.after {
			if !enabled[dep] {
				continue
			}
			if err := g.AddEdge(dep, s.name); err != nil {
				return nil, errors.Wrapf(err, "stage edge %s -> %s", dep, s.name)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return index[a] < index[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "sort stage graph")
	}

	planned := make([]stage, len(order))
	for i, name := range order {
		planned[i] = byName[name]
	}
	return planned, nil
}

// Execute runs every enabled stage in order, journaling each to the
// run state file. A failed stage aborts the run; completed stages keep
// their artifacts so the run can resume.
func (r *Run) Execute(ctx context.Context) error {
	planned, err := plan(r.Config)
	if err != nil {
		return err
	}

	state := &State{
		RunID:   r.ID.String(),
		Mode:    r.Config.Target.Mode,
		Started: time.Now(),
	}
	if err := state.save(r.StatePath()); err != nil {
		return err
	}

	stderr.Printf("run %s: %d stages planned", r.ID, len(planned))

	for _, s := range planned {
		outputs := s.outputs(r)

		if r.Resume && exists(outputs...) {
			stderr.Printf("skipping %s: outputs already exist", s.name)
			if err := state.record(r.StatePath(), StageResult{
				Name:      s.name,
				Skipped:   true,
				Started:   time.Now(),
				Artifacts: outputs,
			}); err != nil {
				return err
			}
			continue
		}

		stderr.Printf("running %s", s.name)
		started := time.Now()

		if err := s.run(ctx, r); err != nil {
			stderr.Printf("stage %s failed; completed artifacts preserved under %s", s.name, r.OutDir())
			return &StageError{Stage: s.name, Err: err}
		}

		if err := state.record(r.StatePath(), StageResult{
			Name:      s.name,
			Started:   started,
			DurationS: time.Since(started).Seconds(),
			Artifacts: outputs,
		}); err != nil {
			return err
		}
	}

	stderr.Printf("run %s complete: %s", r.ID, r.ReportPath())
	return nil
}

// targetPrepOutputs varies with the design mode: optimization runs
// also produce the existing peptide and its reference profile.
func targetPrepOutputs(r *Run) []string {
	outputs := []string{r.CleanTargetPath(), r.BindingSitePath()}
	if r.Config.Target.Mode == config.ModeOptimizeExisting {
		outputs = append(outputs, r.PeptidePath(), r.ReferencePath())
	}
	return outputs
}
