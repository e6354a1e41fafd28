package pepdes

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

// chargeScale normalizes net-charge deviations: a difference of 10
// charge units or more counts as the maximum deviation of 1.
const chargeScale = 10.0

// Weights are the per-property weights of the composite score. The
// aromatic weight only applies when ranking against a reference
// profile.
type Weights struct {
	Charge      float64
	Hydrophobic float64
	Aromatic    float64
}

// DefaultWeights mirror the generic ranking mode: charge and
// hydrophobicity contribute equally, aromatic deviation joins in
// reference mode.
var DefaultWeights = Weights{Charge: 0.3, Hydrophobic: 0.3, Aromatic: 0.3}

// Reference is the property profile of a known reference peptide, used
// in optimization mode to rank by deviation instead of by distance from
// the generic ideal.
type Reference struct {
	Sequence            string  `json:"sequence"`
	Length              int     `json:"length"`
	NetCharge           float64 `json:"net_charge"`
	HydrophobicFraction float64 `json:"hydrophobic_fraction"`
	AromaticFraction    float64 `json:"aromatic_fraction"`
	PositiveFraction    float64 `json:"positive_fraction"`
	NegativeFraction    float64 `json:"negative_fraction"`
	PolarFraction       float64 `json:"polar_fraction"`
}

// NewReference derives a reference profile from a peptide sequence.
func NewReference(seq string, ph float64) Reference {
	return Reference{
		Sequence:            seq,
		Length:              len(seq),
		NetCharge:           chem.NetCharge(seq, ph),
		HydrophobicFraction: chem.HydrophobicFraction(seq),
		AromaticFraction:    chem.AromaticFraction(seq),
		PositiveFraction:    chem.PositiveFraction(seq),
		NegativeFraction:    chem.NegativeFraction(seq),
		PolarFraction:       chem.PolarFraction(seq),
	}
}

// SaveReference writes a reference profile as JSON.
func SaveReference(path string, ref Reference) error {
	out, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serialize reference profile")
	}
	return errors.Wrapf(os.WriteFile(path, out, 0644), "write %s", path)
}

// LoadReference reads a reference profile from JSON.
func LoadReference(path string) (Reference, error) {
	var ref Reference
	dat, err := os.ReadFile(path)
	if err != nil {
		return ref, errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(dat, &ref); err != nil {
		return ref, errors.Wrapf(err, "parse %s", path)
	}
	return ref, nil
}

// Ranked is a scored record plus its composite score and final rank.
type Ranked struct {
	Record

	// weighted deviation from the reference or generic ideal; lower is
	// better
	CompositeScore float64

	// 1-based rank after sorting
	Rank int
}

// Rank orders records into a stable total order. Records that passed
// the filter sort strictly before all filtered-out records regardless
// of score; within each group records sort by ascending composite
// score, ties keeping their input order. The result is deterministic
// for a fixed input order and configuration.
func Rank(records []Record, w Weights, ref *Reference) []Ranked {
	ranked := make([]Ranked, len(records))
	for i, rec := range records {
		ranked[i] = Ranked{
			Record:         rec,
			CompositeScore: compositeScore(rec.Props, w, ref),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FilteredOut != ranked[j].FilteredOut {
			return !ranked[i].FilteredOut
		}
		return ranked[i].CompositeScore < ranked[j].CompositeScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// compositeScore is the weighted deviation of props from the reference
// profile, or from the generic ideal (neutral charge, no hydrophobics)
// when no reference is given.
func compositeScore(props chem.Properties, w Weights, ref *Reference) float64 {
	refCharge, refHydro, refAromatic := 0.0, 0.0, 0.0
	if ref != nil {
		refCharge = ref.NetCharge
		refHydro = ref.HydrophobicFraction
		refAromatic = ref.AromaticFraction
	}

	score := w.Charge * clamp01(math.Abs(props.NetCharge-refCharge)/chargeScale)
	score += w.Hydrophobic * clamp01(math.Abs(props.HydrophobicFraction-refHydro))
	if ref != nil {
		score += w.Aromatic * clamp01(math.Abs(props.AromaticFraction-refAromatic))
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
