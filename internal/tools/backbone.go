// Package tools wraps the external structural-biology models behind
// capability interfaces: backbone generation, sequence design and
// structure prediction. Each capability has a deterministic stub
// variant plus real-tool variants that build command lines and delegate
// execution to a runner.
package tools

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/pdb"
	"github.com/duyjimmypham/pepdesign/internal/runner"
)

var (
	// stderr is for logging to Stderr (without a timestamp)
	stderr = log.New(os.Stderr, "", 0)
)

// Capability type strings accepted by configuration.
const (
	GeneratorStub           = "stub"
	GeneratorRFDiffusion    = "rfdiffusion"
	GeneratorDiffPepBuilder = "diffpepbuilder"

	DesignerStub        = "stub"
	DesignerProteinMPNN = "protein_mpnn"

	PredictorNone       = "none"
	PredictorStub       = "stub"
	PredictorAlphaFold2 = "alphafold2"
	PredictorAlphaFold3 = "alphafold3"
	PredictorChai1      = "chai1"
)

// Images maps real tool names to their container images.
var Images = map[string]string{
	GeneratorRFDiffusion:    "rosettacommons/rfdiffusion:latest",
	GeneratorDiffPepBuilder: "diffpepbuilder:latest",
	DesignerProteinMPNN:     "protein_mpnn:latest",
	PredictorAlphaFold2:     "colabfold/colabfold:latest",
	PredictorAlphaFold3:     "alphafold3:latest",
	PredictorChai1:          "chaidiscovery/chai-lab:latest",
}

// peptideChain is the chain id of generated peptide backbones.
const peptideChain = 'B'

// caSpacing is the idealized CA-CA distance in Angstroms.
const caSpacing = 3.8

// BindingSite is the physical definition of the binding pocket,
// produced by target preparation and consumed by backbone generation.
type BindingSite struct {
	ChainID        string     `json:"chain_id"`
	ResidueIndices []int      `json:"residue_indices"`
	Center         [3]float64 `json:"center"`
	Radius         float64    `json:"radius"`
	Source         string     `json:"source"`
}

// Backbone is one generated peptide scaffold: coordinates only, no
// sequence.
type Backbone struct {
	ID      string
	PDBPath string
	Length  int
}

// BackboneRequest carries everything a generator needs for one run.
type BackboneRequest struct {
	TargetPDB      string
	Site           BindingSite
	OutDir         string
	Count          int
	Length         int
	Seed           int64
	TranslationStd float64
	RotationDeg    float64
}

// BackboneGenerator produces peptide backbones positioned at the
// binding site.
type BackboneGenerator interface {
	Generate(ctx context.Context, req BackboneRequest) ([]Backbone, error)
}

// NewBackboneGenerator returns the generator for a configured type
// string. Real tools execute through r; the stub ignores it.
func NewBackboneGenerator(kind string, r runner.Runner) (BackboneGenerator, error) {
	switch kind {
	case GeneratorStub:
		return &stubGenerator{}, nil
	case GeneratorRFDiffusion:
		return &diffusionGenerator{tool: GeneratorRFDiffusion, runner: r}, nil
	case GeneratorDiffPepBuilder:
		return &diffusionGenerator{tool: GeneratorDiffPepBuilder, runner: r}, nil
	}
	return nil, errors.Errorf("unknown generator type %q", kind)
}

// stubGenerator fabricates toy backbones: CA traces arranged on a
// circle at the binding-site center, rigid-body perturbed per backbone.
// Fully deterministic for a fixed seed.
type stubGenerator struct{}

func (g *stubGenerator) Generate(ctx context.Context, req BackboneRequest) ([]Backbone, error) {
	stderr.Printf("generating %d stub backbones of length %d", req.Count, req.Length)

	backbones := make([]Backbone, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := fmt.Sprintf("backbone_%03d", i)
		path := filepath.Join(req.OutDir, id+".pdb")

		rng := rand.New(rand.NewSource(req.Seed + int64(i)))
		atoms := circleTrace(req, rng)
		if err := pdb.Write(path, atoms); err != nil {
			return nil, err
		}

		backbones = append(backbones, Backbone{ID: id, PDBPath: path, Length: req.Length})
	}
	return backbones, nil
}

// circleTrace places req.Length CA atoms on a circle at the site
// center, then applies a random phase rotation and translation.
func circleTrace(req BackboneRequest, rng *rand.Rand) []pdb.Atom {
	n := req.Length

	// circumference fits the chain at idealized CA spacing
	radius := caSpacing * float64(n) / (2 * math.Pi)
	phase := rng.Float64() * 2 * math.Pi * (req.RotationDeg / 360.0)

	var dx, dy, dz float64
	if req.TranslationStd > 0 {
		dx = rng.NormFloat64() * req.TranslationStd
		dy = rng.NormFloat64() * req.TranslationStd
		dz = rng.NormFloat64() * req.TranslationStd
	}

	atoms := make([]pdb.Atom, 0, n)
	for i := 0; i < n; i++ {
		theta := phase + 2*math.Pi*float64(i)/float64(n)
		atoms = append(atoms, pdb.Atom{
			Serial:  i + 1,
			Name:    "CA",
			ResName: "ALA",
			Chain:   peptideChain,
			ResSeq:  i + 1,
			X:       req.Site.Center[0] + radius*math.Cos(theta) + dx,
			Y:       req.Site.Center[1] + radius*math.Sin(theta) + dy,
			Z:       req.Site.Center[2] + dz,
		})
	}
	return atoms
}

// diffusionGenerator drives RFdiffusion or DiffPepBuilder through a
// runner and collects the PDB files they emit.
type diffusionGenerator struct {
	tool   string
	runner runner.Runner
}

func (g *diffusionGenerator) Generate(ctx context.Context, req BackboneRequest) ([]Backbone, error) {
	spec := runner.Spec{
		Tool:    g.tool,
		Image:   Images[g.tool],
		Command: "python",
		Args: []string{
			"run_inference.py",
			fmt.Sprintf("inference.output_prefix=%s", filepath.Join(req.OutDir, "backbone")),
			fmt.Sprintf("inference.input_pdb=%s", req.TargetPDB),
			fmt.Sprintf("inference.num_designs=%d", req.Count),
			fmt.Sprintf("contigmap.contigs=[%s %d-%d]", req.Site.ChainID, req.Length, req.Length),
			fmt.Sprintf("inference.seed=%d", req.Seed),
		},
		WorkDir: req.OutDir,
		Mounts: []runner.Mount{
			{Host: filepath.Dir(req.TargetPDB), Container: "/input"},
			{Host: req.OutDir, Container: "/output"},
		},
	}

	if _, err := g.runner.Execute(ctx, spec); err != nil {
		return nil, errors.Wrapf(err, "%s backbone generation", g.tool)
	}

	return collectBackbones(req.OutDir)
}

// collectBackbones scans the output directory for the generated PDBs
// and derives each backbone length from its CA trace. An empty or
// unreadable output set is a stage failure.
func collectBackbones(dir string) ([]Backbone, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "backbone*.pdb"))
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no backbone PDBs produced in %s", dir)
	}
	sort.Strings(paths)

	backbones := make([]Backbone, 0, len(paths))
	for _, path := range paths {
		s, err := pdb.Read(path)
		if err != nil {
			return nil, errors.Wrap(err, "malformed backbone output")
		}

		id := filepath.Base(path)
		id = id[:len(id)-len(filepath.Ext(id))]
		backbones = append(backbones, Backbone{
			ID:      id,
			PDBPath: path,
			Length:  len(s.CAAtoms(peptideChain)),
		})
	}
	return backbones, nil
}
