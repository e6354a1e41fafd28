// Package config is for run-wide settings that are unmarshalled from
// Viper (see: /cmd). Every section is validated before any pipeline
// stage runs; a bad configuration never produces partial artifacts.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/duyjimmypham/pepdesign/internal/chem"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
	"github.com/duyjimmypham/pepdesign/internal/runner"
	"github.com/duyjimmypham/pepdesign/internal/tools"
)

// Design modes.
const (
	ModeDeNovo           = "de_novo"
	ModeOptimizeExisting = "optimize_existing"
)

// Error is a configuration error. The CLI maps it to its own exit code
// so callers can distinguish bad input from a failed stage.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "configuration error: " + e.Reason
}

func errorf(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// GlobalConfig is run-wide settings.
type GlobalConfig struct {
	// seed for every stochastic stub stage
	Seed int64 `mapstructure:"seed"`

	// root output directory of the run
	OutputDir string `mapstructure:"output_dir"`

	// concurrent scoring workers; 0 means NumCPU
	Workers int `mapstructure:"workers"`

	// how external tools execute: docker or local
	Runner string `mapstructure:"runner"`
}

// TargetConfig is settings for target preparation.
type TargetConfig struct {
	// path to the input PDB
	PDBPath string `mapstructure:"pdb_path"`

	// de_novo or optimize_existing
	Mode string `mapstructure:"mode"`

	// chain id of the target protein
	TargetChain string `mapstructure:"target_chain"`

	// chain id of the existing peptide (optimize_existing only)
	PeptideChain string `mapstructure:"peptide_chain"`

	// manual binding-site residues (de_novo only)
	BindingSiteResidues []int `mapstructure:"binding_site_residues"`

	// distance cutoff for contact-based binding-site detection
	ContactCutoff float64 `mapstructure:"contact_cutoff"`

	// cofactor residue names to keep in the cleaned target
	KeepCofactors []string `mapstructure:"keep_cofactors"`
}

// BackboneConfig is settings for backbone generation.
type BackboneConfig struct {
	GeneratorType string `mapstructure:"generator_type"`

	// number of backbones to generate
	NumBackbones int `mapstructure:"num_backbones"`

	// peptide length (de_novo; optimize_existing uses the original's)
	PeptideLength int `mapstructure:"peptide_length"`

	// rigid-body perturbation parameters
	TranslationStd float64 `mapstructure:"translation_std"`
	RotationDeg    float64 `mapstructure:"rotation_deg"`
}

// DesignConfig is settings for sequence design.
type DesignConfig struct {
	DesignerType string `mapstructure:"designer_type"`

	// sequences to sample per backbone
	NumSequencesPerBackbone int `mapstructure:"num_sequences_per_backbone"`

	// 1-based positions whose residue is fixed, and the residues there
	FixedPositions []int    `mapstructure:"fixed_positions"`
	FixedResidues  []string `mapstructure:"fixed_residues"`

	// residues disallowed at every position
	DisallowedResidues []string `mapstructure:"disallowed_residues"`
}

// ScoringConfig is settings for sequence scoring and filtering.
type ScoringConfig struct {
	// pH of the net-charge calculation
	PH float64 `mapstructure:"ph"`

	// named filter rules over computed properties
	Filters map[string]pepdes.Rule `mapstructure:"filters"`

	// aggregation-prone motifs and hydrophobic run length
	AggMotifs         []string `mapstructure:"agg_motifs"`
	MaxHydrophobicRun int      `mapstructure:"max_hydrophobic_run"`
}

// RankingConfig is weights of the composite score.
type RankingConfig struct {
	WeightCharge      float64 `mapstructure:"weight_charge"`
	WeightHydrophobic float64 `mapstructure:"weight_hydrophobic"`
	WeightAromatic    float64 `mapstructure:"weight_aromatic"`
}

// PredictionConfig is settings for the optional structure prediction
// stage.
type PredictionConfig struct {
	PredictorType string `mapstructure:"predictor_type"`

	// models per sequence and how many top-ranked designs to fold
	NumModels int `mapstructure:"num_models"`
	TopN      int `mapstructure:"top_n"`

	// template-based modeling (AlphaFold2 only)
	UseTemplates bool `mapstructure:"use_templates"`

	// model parameters (required for AlphaFold3)
	ModelDir string `mapstructure:"model_dir"`

	// hard wall-clock limit per invocation, minutes; 0 means none
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
}

// Config is the root-level settings struct: one section per pipeline
// concern.
type Config struct {
	Global     GlobalConfig     `mapstructure:"global"`
	Target     TargetConfig     `mapstructure:"target"`
	Backbone   BackboneConfig   `mapstructure:"backbone"`
	Design     DesignConfig     `mapstructure:"design"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Prediction PredictionConfig `mapstructure:"prediction"`
}

// setDefaults registers every default on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.seed", 42)
	v.SetDefault("global.workers", 0)
	v.SetDefault("global.runner", runner.KindDocker)

	v.SetDefault("target.mode", ModeDeNovo)
	v.SetDefault("target.contact_cutoff", 5.0)

	v.SetDefault("backbone.generator_type", tools.GeneratorStub)
	v.SetDefault("backbone.num_backbones", 10)
	v.SetDefault("backbone.translation_std", 0.5)
	v.SetDefault("backbone.rotation_deg", 5.0)

	v.SetDefault("design.designer_type", tools.DesignerStub)
	v.SetDefault("design.num_sequences_per_backbone", 5)

	v.SetDefault("scoring.ph", 7.4)
	v.SetDefault("scoring.agg_motifs", chem.DefaultAggMotifs)
	v.SetDefault("scoring.max_hydrophobic_run", chem.DefaultMaxHydrophobicRun)

	v.SetDefault("ranking.weight_charge", pepdes.DefaultWeights.Charge)
	v.SetDefault("ranking.weight_hydrophobic", pepdes.DefaultWeights.Hydrophobic)
	v.SetDefault("ranking.weight_aromatic", pepdes.DefaultWeights.Aromatic)

	v.SetDefault("prediction.predictor_type", tools.PredictorNone)
	v.SetDefault("prediction.num_models", 1)
	v.SetDefault("prediction.top_n", 5)
}

// Load reads the config file at path and unmarshals it over the
// defaults. The returned config is not yet validated; callers on the
// run path must call Validate before using it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, errorf("read %s: %v", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errorf("decode %s: %v", path, err)
	}
	return &c, nil
}

// New returns a Config holding only the defaults, for commands that
// run without a config file.
func New() *Config {
	v := viper.New()
	setDefaults(v)

	var c Config
	// defaults always decode
	_ = v.Unmarshal(&c)
	return &c
}

// Validate checks every section and fails fast on the first invalid
// combination, before any stage runs.
func (c *Config) Validate() error {
	if c.Global.OutputDir == "" {
		return errorf("global.output_dir is required")
	}
	switch c.Global.Runner {
	case runner.KindDocker, runner.KindLocal:
	default:
		return errorf("global.runner %q: must be docker or local", c.Global.Runner)
	}

	if err := c.validateTarget(); err != nil {
		return err
	}

	switch c.Backbone.GeneratorType {
	case tools.GeneratorStub, tools.GeneratorRFDiffusion, tools.GeneratorDiffPepBuilder:
	default:
		return errorf("backbone.generator_type %q: unknown generator", c.Backbone.GeneratorType)
	}
	if c.Backbone.NumBackbones < 1 {
		return errorf("backbone.num_backbones must be at least 1")
	}

	switch c.Design.DesignerType {
	case tools.DesignerStub, tools.DesignerProteinMPNN:
	default:
		return errorf("design.designer_type %q: unknown designer", c.Design.DesignerType)
	}
	if c.Design.NumSequencesPerBackbone < 1 {
		return errorf("design.num_sequences_per_backbone must be at least 1")
	}

	if err := c.validateScoring(); err != nil {
		return err
	}

	if c.Ranking.WeightCharge < 0 || c.Ranking.WeightHydrophobic < 0 || c.Ranking.WeightAromatic < 0 {
		return errorf("ranking weights must be non-negative")
	}

	return c.validatePrediction()
}

func (c *Config) validateTarget() error {
	switch c.Target.Mode {
	case ModeDeNovo:
		if c.Backbone.PeptideLength < 3 {
			return errorf("backbone.peptide_length of at least 3 is required in de_novo mode")
		}
		if len(c.Target.BindingSiteResidues) == 0 {
			return errorf("target.binding_site_residues is required in de_novo mode")
		}
	case ModeOptimizeExisting:
		if c.Target.PeptideChain == "" {
			return errorf("target.peptide_chain is required in optimize_existing mode")
		}
	default:
		return errorf("target.mode %q: must be de_novo or optimize_existing", c.Target.Mode)
	}

	if c.Target.PDBPath == "" {
		return errorf("target.pdb_path is required")
	}
	if _, err := os.Stat(c.Target.PDBPath); err != nil {
		return errorf("target.pdb_path: %v", err)
	}
	if len(c.Target.TargetChain) != 1 {
		return errorf("target.target_chain must be a single chain id")
	}
	if c.Target.ContactCutoff <= 0 {
		return errorf("target.contact_cutoff must be positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.PH <= 0 || c.Scoring.PH >= 14 {
		return errorf("scoring.ph %v: must be inside (0, 14)", c.Scoring.PH)
	}

	// building the filter performs the rule/property cross-check
	if _, err := pepdes.NewFilter(c.Scoring.Filters); err != nil {
		return errorf("scoring.filters: %v", err)
	}
	return nil
}

func (c *Config) validatePrediction() error {
	switch c.Prediction.PredictorType {
	case tools.PredictorNone:
		return nil
	case tools.PredictorStub, tools.PredictorAlphaFold2, tools.PredictorChai1:
	case tools.PredictorAlphaFold3:
		if c.Prediction.ModelDir == "" {
			return errorf("prediction.model_dir is required for alphafold3")
		}
	default:
		return errorf("prediction.predictor_type %q: unknown predictor", c.Prediction.PredictorType)
	}

	if c.Prediction.NumModels < 1 || c.Prediction.NumModels > 5 {
		return errorf("prediction.num_models must be between 1 and 5")
	}
	if c.Prediction.TopN < 1 {
		return errorf("prediction.top_n must be at least 1")
	}
	return nil
}

// Filter builds the sequence filter from the scoring section. Validate
// must have succeeded.
func (c *Config) Filter() (*pepdes.Filter, error) {
	return pepdes.NewFilter(c.Scoring.Filters)
}

// ScoreOptions assembles the scoring-stage options.
func (c *Config) ScoreOptions() pepdes.ScoreOptions {
	return pepdes.ScoreOptions{
		PH:                c.Scoring.PH,
		Workers:           c.Global.Workers,
		AggMotifs:         c.Scoring.AggMotifs,
		MaxHydrophobicRun: c.Scoring.MaxHydrophobicRun,
	}
}

// Weights assembles the ranking weights.
func (c *Config) Weights() pepdes.Weights {
	return pepdes.Weights{
		Charge:      c.Ranking.WeightCharge,
		Hydrophobic: c.Ranking.WeightHydrophobic,
		Aromatic:    c.Ranking.WeightAromatic,
	}
}

// PredictionTimeout is the per-invocation wall-clock limit.
func (c *Config) PredictionTimeout() time.Duration {
	return time.Duration(c.Prediction.TimeoutMinutes) * time.Minute
}
