// Package chem computes physicochemical properties of peptide sequences:
// net charge, isoelectric point, compositional fractions and
// aggregation-motif detection. All functions are deterministic and
// depend only on the sequence string and their explicit parameters.
package chem

import (
	"math"
	"strings"
)

// pKa reference values for the ionizable groups considered in the
// Henderson-Hasselbalch net charge sum.
const (
	pkaNTerm = 9.0
	pkaCTerm = 2.0
	pkaAsp   = 3.9
	pkaGlu   = 4.3
	pkaLys   = 10.5
	pkaArg   = 12.5
	pkaHis   = 6.0
)

// Residue category sets, as one-letter codes.
const (
	Hydrophobic = "AVILMFWY"
	Aromatic    = "FWY"
	Positive    = "KRH"
	Negative    = "DE"
	Polar       = "STNQ"
)

// Alphabet is the set of accepted residue codes: the 20 standard amino
// acids plus X for an unknown residue.
const Alphabet = "ACDEFGHIKLMNPQRSTVWYX"

// DefaultAggMotifs are the disallowed aggregation-prone motifs applied
// when no motif list is configured.
var DefaultAggMotifs = []string{"WWW", "FFF", "III"}

// DefaultMaxHydrophobicRun is the shortest run of consecutive
// hydrophobic residues flagged as aggregation-prone by default.
const DefaultMaxHydrophobicRun = 4

// piTolerance is the pH tolerance of the isoelectric point search.
const piTolerance = 0.01

// NetCharge returns the net charge of seq at the given pH, summing the
// Henderson-Hasselbalch fractional charges of the ionizable side chains
// (D, E negative; K, R, H positive) and the N/C termini.
//
// A sequence with no ionizable side chain is defined to have net charge
// of exactly 0 at every pH; the termini are not counted for such
// sequences. This keeps NetCharge and Isoelectric consistent for
// all-neutral peptides (see Isoelectric).
func NetCharge(seq string, ph float64) float64 {
	if !hasIonizable(seq) {
		return 0
	}

	// termini
	charge := 1.0 / (1.0 + math.Pow(10, ph-pkaNTerm))
	charge -= 1.0 / (1.0 + math.Pow(10, pkaCTerm-ph))

	for _, aa := range seq {
		switch aa {
		case 'D':
			charge -= 1.0 / (1.0 + math.Pow(10, pkaAsp-ph))
		case 'E':
			charge -= 1.0 / (1.0 + math.Pow(10, pkaGlu-ph))
		case 'K':
			charge += 1.0 / (1.0 + math.Pow(10, ph-pkaLys))
		case 'R':
			charge += 1.0 / (1.0 + math.Pow(10, ph-pkaArg))
		case 'H':
			charge += 1.0 / (1.0 + math.Pow(10, ph-pkaHis))
		}
	}

	return charge
}

// Isoelectric returns the pH at which seq's net charge crosses zero,
// found by bisection over pH 0-14 to within 0.01 pH units. It returns
// NaN when seq has no ionizable side chain: such a sequence has net
// charge 0 everywhere, so its isoelectric point is undefined.
func Isoelectric(seq string) float64 {
	if !hasIonizable(seq) {
		return math.NaN()
	}

	lo, hi := 0.0, 14.0
	mid := (lo + hi) / 2.0
	for hi-lo > piTolerance {
		mid = (lo + hi) / 2.0
		charge := NetCharge(seq, mid)
		if math.Abs(charge) < piTolerance {
			return mid
		}
		if charge > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return mid
}

// hasIonizable reports whether seq contains at least one charged side
// chain (D, E, K, R or H).
func hasIonizable(seq string) bool {
	return strings.ContainsAny(seq, Negative+Positive)
}

// HydrophobicFraction returns the fraction of AVILMFWY residues in seq.
func HydrophobicFraction(seq string) float64 { return fraction(seq, Hydrophobic) }

// AromaticFraction returns the fraction of FWY residues in seq.
func AromaticFraction(seq string) float64 { return fraction(seq, Aromatic) }

// PositiveFraction returns the fraction of KRH residues in seq.
func PositiveFraction(seq string) float64 { return fraction(seq, Positive) }

// NegativeFraction returns the fraction of DE residues in seq.
func NegativeFraction(seq string) float64 { return fraction(seq, Negative) }

// PolarFraction returns the fraction of STNQ residues in seq.
func PolarFraction(seq string) float64 { return fraction(seq, Polar) }

func fraction(seq, set string) float64 {
	if seq == "" {
		return 0
	}

	count := 0
	for _, aa := range seq {
		if strings.ContainsRune(set, aa) {
			count++
		}
	}
	return float64(count) / float64(len(seq))
}

// CysteineCount returns the number of C residues in seq.
func CysteineCount(seq string) int {
	return strings.Count(seq, "C")
}

// HasAggregationMotif reports whether seq contains any of the
// disallowed motifs as a substring, or a run of maxRun or more
// consecutive hydrophobic residues. A maxRun of 0 or less disables the
// run check.
func HasAggregationMotif(seq string, motifs []string, maxRun int) bool {
	if maxRun > 0 {
		run := 0
		for _, aa := range seq {
			if strings.ContainsRune(Hydrophobic, aa) {
				run++
				if run >= maxRun {
					return true
				}
			} else {
				run = 0
			}
		}
	}

	for _, motif := range motifs {
		if motif != "" && strings.Contains(seq, motif) {
			return true
		}
	}

	return false
}
