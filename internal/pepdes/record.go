// Package pepdes holds the sequence-level core of the pipeline: design
// records, the property filter, the ranker, parallel scoring, and the
// tabular artifact files exchanged between stages.
package pepdes

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

var (
	// stderr is for logging to Stderr (without a timestamp)
	stderr = log.New(os.Stderr, "", 0)
)

// Record is a single designed peptide sequence flowing through scoring
// and ranking. Created by the design stage; immutable once scored.
type Record struct {
	// id of the backbone this sequence was designed on
	BackboneID string

	// design id, unique within the run
	DesignID string

	// the amino-acid sequence, one-letter codes
	Seq string

	// score reported by the sequence designer (stub or ProteinMPNN)
	DesignerScore float64

	// computed property set (zero until scored)
	Props chem.Properties

	// whether the record violated any enabled filter rule
	FilteredOut bool

	// names of the violated rules, for diagnostics
	Violations []string
}

// Reject is a record excluded from scoring by input validation,
// together with the reason. Rejects are logged and written to a side
// table; they never abort the run.
type Reject struct {
	BackboneID string
	DesignID   string
	Seq        string
	Reason     string
}

// ValidateSequence checks that seq is non-empty and contains only the
// accepted residue codes (20 standard one-letter codes plus X).
func ValidateSequence(seq string) error {
	if seq == "" {
		return fmt.Errorf("empty sequence")
	}
	for i, aa := range seq {
		if !strings.ContainsRune(chem.Alphabet, aa) {
			return fmt.Errorf("disallowed character %q at position %d", aa, i+1)
		}
	}
	return nil
}
