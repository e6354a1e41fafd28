package pepdes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

func record(id string, filteredOut bool, charge, hydro float64) Record {
	return Record{
		DesignID:    id,
		FilteredOut: filteredOut,
		Props: chem.Properties{
			NetCharge:           charge,
			HydrophobicFraction: hydro,
		},
	}
}

func TestRankHardGate(t *testing.T) {
	// the failed record has zero deviation, the passed ones do not; the
	// gate must still put it last
	records := []Record{
		record("failed_ideal", true, 0, 0),
		record("passed_a", false, 4, 0.4),
		record("passed_b", false, 1, 0.1),
	}

	ranked := Rank(records, DefaultWeights, nil)
	require.Len(t, ranked, 3)

	assert.Equal(t, "passed_b", ranked[0].DesignID)
	assert.Equal(t, "passed_a", ranked[1].DesignID)
	assert.Equal(t, "failed_ideal", ranked[2].DesignID)

	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRankStable(t *testing.T) {
	// identical score and verdict: input order is preserved
	records := []Record{
		record("first", false, 2, 0.2),
		record("second", false, 2, 0.2),
		record("third", false, 2, 0.2),
	}

	ranked := Rank(records, DefaultWeights, nil)
	assert.Equal(t, "first", ranked[0].DesignID)
	assert.Equal(t, "second", ranked[1].DesignID)
	assert.Equal(t, "third", ranked[2].DesignID)
}

func TestRankMonotonicWithinGroups(t *testing.T) {
	records := []Record{
		record("p1", false, 5, 0.5),
		record("f1", true, 3, 0.9),
		record("p2", false, 0, 0.0),
		record("f2", true, 0, 0.2),
		record("p3", false, 2, 0.3),
	}

	ranked := Rank(records, DefaultWeights, nil)

	// all passed before all failed
	sawFailed := false
	for _, r := range ranked {
		if r.FilteredOut {
			sawFailed = true
		} else {
			assert.False(t, sawFailed, "passed record %s ranked after a failed one", r.DesignID)
		}
	}

	// composite score never decreases within a group
	for i := 1; i < len(ranked); i++ {
		if ranked[i].FilteredOut == ranked[i-1].FilteredOut {
			assert.GreaterOrEqual(t, ranked[i].CompositeScore, ranked[i-1].CompositeScore)
		}
	}
}

func TestRankAgainstReference(t *testing.T) {
	ref := NewReference("KRKRKAAA", 7.4)

	// near matches the reference profile, far does not
	near := Record{DesignID: "near", Seq: "KRKRKAAG", Props: chem.Compute("KRKRKAAG", 7.4, nil, 0)}
	far := Record{DesignID: "far", Seq: "DDDDDDDD", Props: chem.Compute("DDDDDDDD", 7.4, nil, 0)}

	ranked := Rank([]Record{far, near}, DefaultWeights, &ref)
	require.Len(t, ranked, 2)
	assert.Equal(t, "near", ranked[0].DesignID)
	assert.Equal(t, "far", ranked[1].DesignID)
	assert.Less(t, ranked[0].CompositeScore, ranked[1].CompositeScore)
}

func TestReferenceRoundTrip(t *testing.T) {
	path := t.TempDir() + "/reference_properties.json"

	ref := NewReference("ACDEFGHIKL", 7.4)
	require.NoError(t, SaveReference(path, ref))

	loaded, err := LoadReference(path)
	require.NoError(t, err)
	assert.Equal(t, ref, loaded)
}
