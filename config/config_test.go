package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyjimmypham/pepdesign/internal/pepdes"
)

// writeTargetPDB writes a minimal target structure so pdb_path checks
// pass.
func writeTargetPDB(t *testing.T) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "target.pdb")
	pdb := "ATOM      1  CA  ALA A   1       0.000   0.000   0.000  1.00  0.00\nEND\n"
	require.NoError(t, os.WriteFile(p, []byte(pdb), 0644))
	return p
}

// valid returns a config that passes Validate, for tests to break one
// field at a time.
func valid(t *testing.T) *Config {
	t.Helper()

	c := New()
	c.Global.OutputDir = t.TempDir()
	c.Target.PDBPath = writeTargetPDB(t)
	c.Target.TargetChain = "A"
	c.Target.BindingSiteResidues = []int{10, 11, 12}
	c.Backbone.PeptideLength = 12
	return c
}

func TestDefaults(t *testing.T) {
	c := New()

	assert.Equal(t, int64(42), c.Global.Seed)
	assert.Equal(t, "docker", c.Global.Runner)
	assert.Equal(t, ModeDeNovo, c.Target.Mode)
	assert.Equal(t, 5.0, c.Target.ContactCutoff)
	assert.Equal(t, "stub", c.Backbone.GeneratorType)
	assert.Equal(t, 10, c.Backbone.NumBackbones)
	assert.Equal(t, "stub", c.Design.DesignerType)
	assert.Equal(t, 5, c.Design.NumSequencesPerBackbone)
	assert.Equal(t, 7.4, c.Scoring.PH)
	assert.Equal(t, []string{"WWW", "FFF", "III"}, c.Scoring.AggMotifs)
	assert.Equal(t, 4, c.Scoring.MaxHydrophobicRun)
	assert.Equal(t, 0.3, c.Ranking.WeightCharge)
	assert.Equal(t, "none", c.Prediction.PredictorType)
	assert.Equal(t, 5, c.Prediction.TopN)
}

func TestLoad(t *testing.T) {
	target := writeTargetPDB(t)
	out := t.TempDir()

	contents := `
global:
  seed: 7
  output_dir: ` + out + `
  runner: local
target:
  pdb_path: ` + target + `
  mode: de_novo
  target_chain: A
  binding_site_residues: [5, 6, 7]
backbone:
  num_backbones: 3
  peptide_length: 10
scoring:
  ph: 7.0
  filters:
    net_charge:
      min: -2.0
      max: 4.0
    agg_flag:
      exclude: true
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, int64(7), c.Global.Seed)
	assert.Equal(t, "local", c.Global.Runner)
	assert.Equal(t, 3, c.Backbone.NumBackbones)
	assert.Equal(t, 7.0, c.Scoring.PH)

	// file values layered over untouched defaults
	assert.Equal(t, 5, c.Design.NumSequencesPerBackbone)

	f, err := c.Filter()
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing output dir", func(c *Config) { c.Global.OutputDir = "" }},
		{"unknown runner", func(c *Config) { c.Global.Runner = "ssh" }},
		{"unknown mode", func(c *Config) { c.Target.Mode = "both" }},
		{"missing pdb", func(c *Config) { c.Target.PDBPath = "/does/not/exist.pdb" }},
		{"multi-char chain", func(c *Config) { c.Target.TargetChain = "AB" }},
		{"de_novo without binding site", func(c *Config) { c.Target.BindingSiteResidues = nil }},
		{"de_novo short peptide", func(c *Config) { c.Backbone.PeptideLength = 2 }},
		{"optimize without peptide chain", func(c *Config) {
			c.Target.Mode = ModeOptimizeExisting
			c.Target.PeptideChain = ""
		}},
		{"unknown generator", func(c *Config) { c.Backbone.GeneratorType = "rosetta" }},
		{"zero backbones", func(c *Config) { c.Backbone.NumBackbones = 0 }},
		{"unknown designer", func(c *Config) { c.Design.DesignerType = "esm" }},
		{"ph out of range", func(c *Config) { c.Scoring.PH = 15 }},
		{"filter on unknown property", func(c *Config) {
			min := 1.0
			c.Scoring.Filters = map[string]pepdes.Rule{"molecular_weight": {Min: &min}}
		}},
		{"negative weight", func(c *Config) { c.Ranking.WeightCharge = -0.1 }},
		{"unknown predictor", func(c *Config) { c.Prediction.PredictorType = "esmfold" }},
		{"alphafold3 without model dir", func(c *Config) {
			c.Prediction.PredictorType = "alphafold3"
			c.Prediction.ModelDir = ""
		}},
		{"too many models", func(c *Config) {
			c.Prediction.PredictorType = "stub"
			c.Prediction.NumModels = 6
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid(t)
			require.NoError(t, c.Validate())

			tt.mutate(c)

			err := c.Validate()
			var cerr *Error
			require.ErrorAs(t, err, &cerr, "expected a configuration error")
		})
	}
}

func TestValidateOptimizeExisting(t *testing.T) {
	c := valid(t)
	c.Target.Mode = ModeOptimizeExisting
	c.Target.PeptideChain = "B"
	c.Target.BindingSiteResidues = nil
	c.Backbone.PeptideLength = 0

	assert.NoError(t, c.Validate())
}
