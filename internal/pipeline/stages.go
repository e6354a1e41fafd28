package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pdb"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
	"github.com/duyjimmypham/pepdesign/internal/tools"
)

// sitePadding widens the binding-site radius beyond the outermost
// anchoring atom, so generated backbones get room to vary.
const sitePadding = 2.0

// peptideInfo is the existing peptide extracted during target
// preparation, consumed by sequence design and ranking in
// optimization runs.
type peptideInfo struct {
	Chain    string `json:"chain"`
	Sequence string `json:"sequence"`
}

func saveJSON(path string, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, buf, 0644), "write %s", path)
}

func loadJSON(path string, v interface{}) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return errors.Wrapf(json.Unmarshal(buf, v), "decode %s", path)
}

// runTargetPrep cleans the input structure down to the target chain
// plus kept cofactors, and derives the binding site. Optimization runs
// additionally extract the existing peptide and its property profile.
func runTargetPrep(_ context.Context, r *Run) error {
	cfg := r.Config

	s, err := pdb.Read(cfg.Target.PDBPath)
	if err != nil {
		return err
	}

	targetChain := cfg.Target.TargetChain[0]
	clean := cleanAtoms(s, targetChain, cfg.Target.KeepCofactors)
	if len(clean) == 0 {
		return errors.Errorf("chain %c has no atoms in %s", targetChain, cfg.Target.PDBPath)
	}
	if err := pdb.Write(r.CleanTargetPath(), clean); err != nil {
		return err
	}

	var site tools.BindingSite
	switch cfg.Target.Mode {
	case config.ModeDeNovo:
		site, err = manualSite(s, cfg)
	case config.ModeOptimizeExisting:
		site, err = contactSite(s, cfg)
	}
	if err != nil {
		return err
	}

	if cfg.Target.Mode == config.ModeOptimizeExisting {
		pepChain := cfg.Target.PeptideChain[0]
		seq := s.ChainSequence(pepChain)
		if err := pepdes.ValidateSequence(seq); err != nil {
			return errors.Wrapf(err, "existing peptide chain %c", pepChain)
		}

		if err := saveJSON(r.PeptidePath(), peptideInfo{
			Chain:    cfg.Target.PeptideChain,
			Sequence: seq,
		}); err != nil {
			return err
		}
		if err := pepdes.SaveReference(r.ReferencePath(), pepdes.NewReference(seq, cfg.Scoring.PH)); err != nil {
			return err
		}
		stderr.Printf("existing peptide: chain %c, %d residues", pepChain, len(seq))
	}

	stderr.Printf("binding site: %d residues on chain %s (%s)",
		len(site.ResidueIndices), site.ChainID, site.Source)
	return saveJSON(r.BindingSitePath(), site)
}

// cleanAtoms keeps the target chain's ATOM records and any HETATM
// records whose residue name is an explicitly kept cofactor. Waters
// and all other heteroatoms are dropped.
func cleanAtoms(s *pdb.Structure, chain byte, keepCofactors []string) []pdb.Atom {
	keep := make(map[string]bool, len(keepCofactors))
	for _, name := range keepCofactors {
		keep[name] = true
	}

	var out []pdb.Atom
	for _, a := range s.Atoms {
		if a.Chain != chain {
			continue
		}
		if a.Hetero && !keep[a.ResName] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// manualSite anchors the binding site on user-listed residues of the
// target chain.
func manualSite(s *pdb.Structure, cfg *config.Config) (tools.BindingSite, error) {
	wanted := make(map[int]bool, len(cfg.Target.BindingSiteResidues))
	for _, res := range cfg.Target.BindingSiteResidues {
		wanted[res] = true
	}

	var anchors []pdb.Atom
	for _, a := range s.CAAtoms(cfg.Target.TargetChain[0]) {
		if wanted[a.ResSeq] {
			anchors = append(anchors, a)
		}
	}
	if len(anchors) == 0 {
		return tools.BindingSite{}, errors.Errorf(
			"none of the binding-site residues %v found on chain %s",
			cfg.Target.BindingSiteResidues, cfg.Target.TargetChain)
	}

	return newSite(cfg.Target.TargetChain, cfg.Target.BindingSiteResidues, anchors, "manual"), nil
}

// contactSite derives the binding site from target residues in contact
// with the existing peptide chain.
func contactSite(s *pdb.Structure, cfg *config.Config) (tools.BindingSite, error) {
	pepChain := cfg.Target.PeptideChain[0]
	pepAtoms := s.ChainAtoms(pepChain)
	if len(pepAtoms) == 0 {
		return tools.BindingSite{}, errors.Errorf(
			"peptide chain %c has no atoms in %s", pepChain, cfg.Target.PDBPath)
	}

	contacts := make(map[int]bool)
	for _, ta := range s.ChainAtoms(cfg.Target.TargetChain[0]) {
		if ta.Hetero {
			continue
		}
		for _, pa := range pepAtoms {
			if pdb.Dist(ta, pa) <= cfg.Target.ContactCutoff {
				contacts[ta.ResSeq] = true
				break
			}
		}
	}
	if len(contacts) == 0 {
		return tools.BindingSite{}, errors.Errorf(
			"no target residues within %.1f A of the peptide chain", cfg.Target.ContactCutoff)
	}

	residues := make([]int, 0, len(contacts))
	for res := range contacts {
		residues = append(residues, res)
	}
	sort.Ints(residues)

	// the peptide itself marks where new backbones should sit
	return newSite(cfg.Target.TargetChain, residues, s.CAAtoms(pepChain), "contacts"), nil
}

func newSite(chainID string, residues []int, anchors []pdb.Atom, source string) tools.BindingSite {
	x, y, z := pdb.Centroid(anchors)

	center := pdb.Atom{X: x, Y: y, Z: z}
	radius := 0.0
	for _, a := range anchors {
		if d := pdb.Dist(center, a); d > radius {
			radius = d
		}
	}

	return tools.BindingSite{
		ChainID:        chainID,
		ResidueIndices: residues,
		Center:         [3]float64{x, y, z},
		Radius:         radius + sitePadding,
		Source:         source,
	}
}

// runBackboneGen generates peptide backbones at the binding site and
// writes the backbone index.
func runBackboneGen(ctx context.Context, r *Run) error {
	cfg := r.Config

	var site tools.BindingSite
	if err := loadJSON(r.BindingSitePath(), &site); err != nil {
		return err
	}

	length := cfg.Backbone.PeptideLength
	if cfg.Target.Mode == config.ModeOptimizeExisting {
		var pep peptideInfo
		if err := loadJSON(r.PeptidePath(), &pep); err != nil {
			return err
		}
		length = len(pep.Sequence)
	}

	gen, err := tools.NewBackboneGenerator(cfg.Backbone.GeneratorType, r.Runner)
	if err != nil {
		return err
	}

	backbones, err := gen.Generate(ctx, tools.BackboneRequest{
		TargetPDB:      r.CleanTargetPath(),
		Site:           site,
		OutDir:         r.BackbonesDir(),
		Count:          cfg.Backbone.NumBackbones,
		Length:         length,
		Seed:           cfg.Global.Seed,
		TranslationStd: cfg.Backbone.TranslationStd,
		RotationDeg:    cfg.Backbone.RotationDeg,
	})
	if err != nil {
		return err
	}
	if len(backbones) == 0 {
		return errors.New("generator produced no backbones")
	}

	stderr.Printf("generated %d backbones of length %d", len(backbones), length)
	return tools.WriteBackboneIndex(r.BackboneIndexPath(), backbones)
}

// runSequenceDesign designs sequences for every backbone and writes
// the sequence table.
func runSequenceDesign(ctx context.Context, r *Run) error {
	cfg := r.Config

	backbones, err := tools.ReadBackboneIndex(r.BackboneIndexPath())
	if err != nil {
		return err
	}

	constraints := tools.Constraints{
		FixedPositions:     cfg.Design.FixedPositions,
		FixedResidues:      cfg.Design.FixedResidues,
		DisallowedResidues: cfg.Design.DisallowedResidues,
	}
	if cfg.Target.Mode == config.ModeOptimizeExisting {
		var pep peptideInfo
		if err := loadJSON(r.PeptidePath(), &pep); err != nil {
			return err
		}
		constraints.OriginalSeq = pep.Sequence
	}

	designer, err := tools.NewSequenceDesigner(cfg.Design.DesignerType, r.Runner)
	if err != nil {
		return err
	}

	designs, err := designer.Design(ctx, tools.DesignRequest{
		Backbones:   backbones,
		OutDir:      r.DesignsDir(),
		PerBackbone: cfg.Design.NumSequencesPerBackbone,
		Seed:        cfg.Global.Seed,
		Constraints: constraints,
	})
	if err != nil {
		return err
	}
	if len(designs) == 0 {
		return errors.New("designer produced no sequences")
	}

	records := make([]pepdes.Record, len(designs))
	for i, d := range designs {
		records[i] = pepdes.Record{
			BackboneID:    d.BackboneID,
			DesignID:      d.DesignID,
			Seq:           d.Seq,
			DesignerScore: d.Score,
		}
	}

	stderr.Printf("designed %d sequences across %d backbones", len(designs), len(backbones))
	return pepdes.WriteSequences(r.SequencesPath(), records)
}

// runScoring computes properties and applies filters over every
// designed sequence.
func runScoring(ctx context.Context, r *Run) error {
	cfg := r.Config

	records, err := pepdes.ReadSequences(r.SequencesPath())
	if err != nil {
		return err
	}

	filter, err := cfg.Filter()
	if err != nil {
		return err
	}

	scored, rejected, err := pepdes.Score(ctx, records, cfg.ScoreOptions(), filter)
	if err != nil {
		return err
	}

	passed := 0
	for _, rec := range scored {
		if !rec.FilteredOut {
			passed++
		}
	}
	stderr.Printf("scored %d sequences: %d passed, %d filtered, %d rejected",
		len(scored), passed, len(scored)-passed, len(rejected))

	if err := pepdes.WriteScored(r.ScoredPath(), scored); err != nil {
		return err
	}
	return pepdes.WriteRejects(r.RejectedPath(), rejected)
}

// runRanking orders the scored sequences by composite score. In
// optimization runs the composite measures deviation from the original
// peptide's property profile.
func runRanking(_ context.Context, r *Run) error {
	cfg := r.Config

	scored, err := pepdes.ReadScored(r.ScoredPath())
	if err != nil {
		return err
	}

	var ref *pepdes.Reference
	if cfg.Target.Mode == config.ModeOptimizeExisting {
		loaded, err := pepdes.LoadReference(r.ReferencePath())
		if err != nil {
			return err
		}
		ref = &loaded
	}

	ranked := pepdes.Rank(scored, cfg.Weights(), ref)
	if len(ranked) > 0 && !ranked[0].FilteredOut {
		stderr.Printf("top design %s: composite %.4f", ranked[0].DesignID, ranked[0].CompositeScore)
	}
	return pepdes.WriteRanked(r.RankedPath(), ranked)
}

// runPrediction folds the top-ranked passing designs and writes the
// prediction index.
func runPrediction(ctx context.Context, r *Run) error {
	cfg := r.Config

	ranked, err := pepdes.ReadRanked(r.RankedPath())
	if err != nil {
		return err
	}

	var designs []tools.DesignSeq
	for _, rk := range ranked {
		if rk.FilteredOut {
			continue
		}
		designs = append(designs, tools.DesignSeq{ID: rk.DesignID, Seq: rk.Seq})
		if len(designs) == cfg.Prediction.TopN {
			break
		}
	}
	if len(designs) == 0 {
		stderr.Printf("no designs passed filtering, skipping structure prediction")
		return tools.WritePredictionIndex(r.PredictionsPath(), nil)
	}

	predictor, err := tools.NewStructurePredictor(cfg.Prediction.PredictorType, r.Runner)
	if err != nil {
		return err
	}

	preds, err := predictor.Predict(ctx, tools.PredictRequest{
		Designs:      designs,
		OutDir:       r.PredictionsDir(),
		NumModels:    cfg.Prediction.NumModels,
		UseTemplates: cfg.Prediction.UseTemplates,
		ModelDir:     cfg.Prediction.ModelDir,
		TargetPDB:    r.CleanTargetPath(),
		Timeout:      cfg.PredictionTimeout(),
	})
	if err != nil {
		return err
	}

	best := math.Inf(-1)
	for _, p := range preds {
		if p.Confidence > best {
			best = p.Confidence
		}
	}
	stderr.Printf("predicted %d structures, best confidence %.1f", len(preds), best)
	return tools.WritePredictionIndex(r.PredictionsPath(), preds)
}
