package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/pdb"
	"github.com/duyjimmypham/pepdesign/internal/runner"
)

// DesignSeq is the identifier/sequence pair handed to a predictor.
type DesignSeq struct {
	ID  string
	Seq string
}

// Prediction is one predicted structure for a designed sequence.
type Prediction struct {
	DesignID   string
	ModelPath  string
	Confidence float64
}

// PredictRequest carries everything a predictor needs for one run.
type PredictRequest struct {
	Designs      []DesignSeq
	OutDir       string
	NumModels    int
	UseTemplates bool
	ModelDir     string
	TargetPDB    string
	Timeout      time.Duration
}

// StructurePredictor predicts 3-D structures for designed sequences.
type StructurePredictor interface {
	Predict(ctx context.Context, req PredictRequest) ([]Prediction, error)
}

// NewStructurePredictor returns the predictor for a configured type
// string, or nil for "none" (the stage is skipped entirely).
func NewStructurePredictor(kind string, r runner.Runner) (StructurePredictor, error) {
	switch kind {
	case PredictorNone:
		return nil, nil
	case PredictorStub:
		return &stubPredictor{}, nil
	case PredictorAlphaFold2:
		return &foldPredictor{tool: PredictorAlphaFold2, runner: r}, nil
	case PredictorAlphaFold3:
		return &foldPredictor{tool: PredictorAlphaFold3, runner: r}, nil
	case PredictorChai1:
		return &foldPredictor{tool: PredictorChai1, runner: r}, nil
	}
	return nil, errors.Errorf("unknown predictor type %q", kind)
}

// stubPredictor writes an extended CA trace per design with a
// deterministic pseudo-confidence derived from the sequence.
type stubPredictor struct{}

func (p *stubPredictor) Predict(ctx context.Context, req PredictRequest) ([]Prediction, error) {
	stderr.Printf("predicting %d stub structures", len(req.Designs))

	preds := make([]Prediction, 0, len(req.Designs))
	for _, d := range req.Designs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(req.OutDir, d.ID+"_model_1.pdb")
		atoms := make([]pdb.Atom, 0, len(d.Seq))
		for i := 0; i < len(d.Seq); i++ {
			atoms = append(atoms, pdb.Atom{
				Serial:  i + 1,
				Name:    "CA",
				ResName: pdb.ResName(d.Seq[i]),
				Chain:   peptideChain,
				ResSeq:  i + 1,
				X:       float64(i) * caSpacing,
			})
		}
		if err := pdb.Write(path, atoms); err != nil {
			return nil, err
		}

		preds = append(preds, Prediction{
			DesignID:   d.ID,
			ModelPath:  path,
			Confidence: pseudoConfidence(d.Seq),
		})
	}
	return preds, nil
}

// pseudoConfidence maps a sequence to a stable pLDDT-like value in
// [60, 95).
func pseudoConfidence(seq string) float64 {
	h := fnv.New32a()
	h.Write([]byte(seq))
	return 60 + 35*float64(h.Sum32()%1000)/1000
}

// foldPredictor drives AlphaFold2/3 or Chai-1 through a runner. Each
// design is folded from a single-record FASTA; the best model file is
// picked up from the tool's per-design output directory.
type foldPredictor struct {
	tool   string
	runner runner.Runner
}

func (p *foldPredictor) Predict(ctx context.Context, req PredictRequest) ([]Prediction, error) {
	preds := make([]Prediction, 0, len(req.Designs))
	for _, d := range req.Designs {
		outDir := filepath.Join(req.OutDir, d.ID)
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create predictor output dir")
		}

		fasta := filepath.Join(outDir, d.ID+".fasta")
		record := fmt.Sprintf(">%s\n%s\n", d.ID, d.Seq)
		if err := os.WriteFile(fasta, []byte(record), 0644); err != nil {
			return nil, errors.Wrap(err, "write predictor input")
		}

		spec := p.spec(req, fasta, outDir)
		if _, err := p.runner.Execute(ctx, spec); err != nil {
			return nil, errors.Wrapf(err, "predict structure for %s", d.ID)
		}

		model, err := bestModel(outDir)
		if err != nil {
			return nil, errors.Wrapf(err, "predictor output for %s", d.ID)
		}
		preds = append(preds, Prediction{DesignID: d.ID, ModelPath: model})
	}
	return preds, nil
}

func (p *foldPredictor) spec(req PredictRequest, fasta, outDir string) runner.Spec {
	spec := runner.Spec{
		Tool:    p.tool,
		Image:   Images[p.tool],
		WorkDir: outDir,
		Timeout: req.Timeout,
		Mounts: []runner.Mount{
			{Host: outDir, Container: "/predictions"},
		},
	}

	switch p.tool {
	case PredictorAlphaFold2:
		spec.Command = "colabfold_batch"
		spec.Args = []string{fasta, outDir, "--num-models", strconv.Itoa(req.NumModels)}
		if req.UseTemplates {
			spec.Args = append(spec.Args, "--templates")
		}
	case PredictorAlphaFold3:
		spec.Command = "python"
		spec.Args = []string{
			"run_alphafold.py",
			"--fasta_path", fasta,
			"--model_dir", req.ModelDir,
			"--output_dir", outDir,
		}
		spec.Mounts = append(spec.Mounts, runner.Mount{Host: req.ModelDir, Container: "/models"})
	case PredictorChai1:
		spec.Command = "chai-lab"
		spec.Args = []string{"fold", fasta, outDir}
	}
	return spec
}

// bestModel returns the first model file of a per-design output
// directory. Tools name their best-ranked model first in lexical order
// (model_1, pred.rank_0, etc).
func bestModel(dir string) (string, error) {
	for _, pattern := range []string{"*.pdb", "*.cif"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", errors.New("no model file produced")
}
