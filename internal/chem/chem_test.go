package chem

import (
	"math"
	"testing"
)

func Test_NetCharge(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		ph   float64
		want float64
	}{
		{
			"mixed sequence near physiological pH",
			"ACDEFGHIKL",
			7.4,
			-0.99,
		},
		{
			"strongly basic sequence",
			"KKKRRR",
			7.4,
			5.97,
		},
		{
			"uncharged sequence is exactly neutral",
			"GGGGSSSS",
			7.4,
			0.0,
		},
		{
			"uncharged sequence is neutral at acidic pH",
			"AVILMFWY",
			2.0,
			0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetCharge(tt.seq, tt.ph)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("NetCharge(%q, %v) = %v, want %v", tt.seq, tt.ph, got, tt.want)
			}
		})
	}
}

// recomputing properties must be bit-identical
func Test_NetCharge_deterministic(t *testing.T) {
	seq := "ACDEFGHIKLMNPQRSTVWY"
	for ph := 0.0; ph <= 14.0; ph += 0.5 {
		a := NetCharge(seq, ph)
		b := NetCharge(seq, ph)
		if a != b {
			t.Errorf("NetCharge(%q, %v) not deterministic: %v != %v", seq, ph, a, b)
		}
	}
}

func Test_Isoelectric(t *testing.T) {
	tests := []struct {
		name string
		seq  string
	}{
		{"acidic sequence", "DDDEEE"},
		{"basic sequence", "KKKRRR"},
		{"mixed sequence", "ACDEFGHIKL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := Isoelectric(tt.seq)
			if pi < 0 || pi > 14 {
				t.Fatalf("Isoelectric(%q) = %v, outside pH range", tt.seq, pi)
			}

			// the returned pH is a zero crossing within tolerance of the
			// bisection (the charge slope near the crossing is bounded by
			// the number of ionizable groups)
			charge := NetCharge(tt.seq, pi)
			if math.Abs(charge) > 0.25 {
				t.Errorf("NetCharge(%q, pI=%v) = %v, want near 0", tt.seq, pi, charge)
			}
		})
	}
}

func Test_Isoelectric_undefined(t *testing.T) {
	// no ionizable side chain: pI is the NaN sentinel, not a crash
	if pi := Isoelectric("GGGGSSSS"); !math.IsNaN(pi) {
		t.Errorf("Isoelectric(GGGGSSSS) = %v, want NaN", pi)
	}
}

func Test_fractions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) float64
		seq  string
		want float64
	}{
		{"all hydrophobic", HydrophobicFraction, "AVILMFWY", 1.0},
		{"half hydrophobic", HydrophobicFraction, "AVDE", 0.5},
		{"aromatic", AromaticFraction, "FWYA", 0.75},
		{"positive", PositiveFraction, "KRHG", 0.75},
		{"negative", NegativeFraction, "DEKK", 0.5},
		{"polar", PolarFraction, "STNQ", 1.0},
		{"empty sequence", HydrophobicFraction, "", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.seq); got != tt.want {
				t.Errorf("fraction(%q) = %v, want %v", tt.seq, got, tt.want)
			}
		})
	}
}

func Test_HasAggregationMotif(t *testing.T) {
	tests := []struct {
		name   string
		seq    string
		motifs []string
		maxRun int
		want   bool
	}{
		{"clean sequence", "ACDEGSKR", DefaultAggMotifs, DefaultMaxHydrophobicRun, false},
		{"tryptophan motif", "ACWWWDE", DefaultAggMotifs, DefaultMaxHydrophobicRun, true},
		{"hydrophobic run", "GAVILGGG", DefaultAggMotifs, DefaultMaxHydrophobicRun, true},
		{"run of three below default threshold", "GAVLGGGG", DefaultAggMotifs, DefaultMaxHydrophobicRun, false},
		{"custom motif", "ACPPPGG", []string{"PPP"}, 0, true},
		{"run check disabled", "AVILMFWY", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAggregationMotif(tt.seq, tt.motifs, tt.maxRun); got != tt.want {
				t.Errorf("HasAggregationMotif(%q) = %v, want %v", tt.seq, got, tt.want)
			}
		})
	}
}

func Test_Compute(t *testing.T) {
	props := Compute("ACDEFGHIKL", 7.4, DefaultAggMotifs, DefaultMaxHydrophobicRun)

	if props.Length != 10 {
		t.Errorf("Length = %d, want 10", props.Length)
	}
	if props.CysteineCount != 1 {
		t.Errorf("CysteineCount = %d, want 1", props.CysteineCount)
	}
	if math.Abs(props.NetCharge-(-0.99)) > 0.01 {
		t.Errorf("NetCharge = %v, want -0.99", props.NetCharge)
	}
	if props.Aggregation {
		t.Error("Aggregation = true, want false")
	}

	// recomputation is bit-identical
	if again := Compute("ACDEFGHIKL", 7.4, DefaultAggMotifs, DefaultMaxHydrophobicRun); again != props {
		t.Errorf("Compute not deterministic: %+v != %+v", again, props)
	}
}

func Test_Properties_ByName(t *testing.T) {
	props := Compute("KKWWWK", 7.4, DefaultAggMotifs, DefaultMaxHydrophobicRun)

	for _, name := range PropertyNames {
		if _, ok := props.ByName(name); !ok {
			t.Errorf("ByName(%q) unknown, want known", name)
		}
	}

	if v, _ := props.ByName(PropAggregation); v != 1 {
		t.Errorf("ByName(agg_flag) = %v, want 1", v)
	}
	if _, ok := props.ByName("no_such_property"); ok {
		t.Error("ByName(no_such_property) known, want unknown")
	}
}
