package chem

import "math"

// Property names used in artifact tables and filter rules. These double
// as the CSV column headers of scored and ranked output.
const (
	PropLength              = "length"
	PropNetCharge           = "net_charge"
	PropIsoelectric         = "pI"
	PropHydrophobicFraction = "hydrophobic_fraction"
	PropAromaticFraction    = "aromatic_fraction"
	PropPositiveFraction    = "positive_fraction"
	PropNegativeFraction    = "negative_fraction"
	PropPolarFraction       = "polar_fraction"
	PropCysteineCount       = "cys_count"
	PropAggregation         = "agg_flag"
)

// PropertyNames lists every property in its canonical column order.
var PropertyNames = []string{
	PropLength,
	PropNetCharge,
	PropIsoelectric,
	PropHydrophobicFraction,
	PropAromaticFraction,
	PropPositiveFraction,
	PropNegativeFraction,
	PropPolarFraction,
	PropCysteineCount,
	PropAggregation,
}

// Properties is the full property set of a single sequence at a given
// pH. Isoelectric is NaN when undefined (no ionizable side chain).
type Properties struct {
	Length              int
	NetCharge           float64
	Isoelectric         float64
	HydrophobicFraction float64
	AromaticFraction    float64
	PositiveFraction    float64
	NegativeFraction    float64
	PolarFraction       float64
	CysteineCount       int
	Aggregation         bool
}

// Compute derives the property set of seq at the given pH. Aggregation
// is flagged per the configured motif list and hydrophobic run length.
// seq must be non-empty and pre-validated; Compute does not reject
// malformed input.
func Compute(seq string, ph float64, motifs []string, maxRun int) Properties {
	return Properties{
		Length:              len(seq),
		NetCharge:           NetCharge(seq, ph),
		Isoelectric:         Isoelectric(seq),
		HydrophobicFraction: HydrophobicFraction(seq),
		AromaticFraction:    AromaticFraction(seq),
		PositiveFraction:    PositiveFraction(seq),
		NegativeFraction:    NegativeFraction(seq),
		PolarFraction:       PolarFraction(seq),
		CysteineCount:       CysteineCount(seq),
		Aggregation:         HasAggregationMotif(seq, motifs, maxRun),
	}
}

// ByName returns the named property as a float64 (booleans map to 0/1)
// and whether the name is known.
func (p Properties) ByName(name string) (float64, bool) {
	switch name {
	case PropLength:
		return float64(p.Length), true
	case PropNetCharge:
		return p.NetCharge, true
	case PropIsoelectric:
		return p.Isoelectric, true
	case PropHydrophobicFraction:
		return p.HydrophobicFraction, true
	case PropAromaticFraction:
		return p.AromaticFraction, true
	case PropPositiveFraction:
		return p.PositiveFraction, true
	case PropNegativeFraction:
		return p.NegativeFraction, true
	case PropPolarFraction:
		return p.PolarFraction, true
	case PropCysteineCount:
		return float64(p.CysteineCount), true
	case PropAggregation:
		if p.Aggregation {
			return 1, true
		}
		return 0, true
	}
	return math.NaN(), false
}

// KnownProperty reports whether name is a recognized property.
func KnownProperty(name string) bool {
	_, ok := Properties{}.ByName(name)
	return ok
}

// BoolProperty reports whether name is a boolean-valued property, which
// filter rules may only reference with an exclusion (not a range).
func BoolProperty(name string) bool {
	return name == PropAggregation
}
