package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyjimmypham/pepdesign/internal/pdb"
	"github.com/duyjimmypham/pepdesign/internal/runner"
)

func testSite() BindingSite {
	return BindingSite{
		ChainID:        "A",
		ResidueIndices: []int{10, 11, 12},
		Center:         [3]float64{5, -3, 12},
		Radius:         8,
		Source:         "manual",
	}
}

func TestStubGenerator(t *testing.T) {
	gen, err := NewBackboneGenerator(GeneratorStub, nil)
	require.NoError(t, err)

	req := BackboneRequest{
		Site:           testSite(),
		OutDir:         t.TempDir(),
		Count:          5,
		Length:         10,
		Seed:           42,
		TranslationStd: 0.5,
		RotationDeg:    5,
	}

	backbones, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, backbones, 5)

	for i, bb := range backbones {
		assert.Equal(t, fmt.Sprintf("backbone_%03d", i), bb.ID)
		assert.Equal(t, 10, bb.Length)

		s, err := pdb.Read(bb.PDBPath)
		require.NoError(t, err)
		assert.Len(t, s.CAAtoms('B'), 10)
	}

	// the same seed reproduces the same coordinates
	req.OutDir = t.TempDir()
	again, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)

	first, err := os.ReadFile(backbones[0].PDBPath)
	require.NoError(t, err)
	second, err := os.ReadFile(again[0].PDBPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStubDesigner(t *testing.T) {
	designer, err := NewSequenceDesigner(DesignerStub, nil)
	require.NoError(t, err)

	backbones := []Backbone{
		{ID: "backbone_000", Length: 12},
		{ID: "backbone_001", Length: 12},
	}

	t.Run("count, length and determinism", func(t *testing.T) {
		req := DesignRequest{Backbones: backbones, PerBackbone: 3, Seed: 42}

		designs, err := designer.Design(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, designs, 6)

		for _, d := range designs {
			assert.Len(t, d.Seq, 12)
			assert.Greater(t, d.Score, 0.0)
		}
		assert.Equal(t, "backbone_000_seq_000", designs[0].DesignID)

		again, err := designer.Design(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, designs, again)
	})

	t.Run("fixed positions and disallowed residues", func(t *testing.T) {
		req := DesignRequest{
			Backbones:   backbones[:1],
			PerBackbone: 4,
			Seed:        7,
			Constraints: Constraints{
				FixedPositions:     []int{1, 3},
				FixedResidues:      []string{"K", "W"},
				DisallowedResidues: []string{"C", "M"},
			},
		}

		designs, err := designer.Design(context.Background(), req)
		require.NoError(t, err)
		for _, d := range designs {
			assert.EqualValues(t, 'K', d.Seq[0])
			assert.EqualValues(t, 'W', d.Seq[2])
			assert.NotContains(t, d.Seq[3:], "C")
			assert.NotContains(t, d.Seq[3:], "M")
		}
	})

	t.Run("fixed positions default to the original peptide", func(t *testing.T) {
		req := DesignRequest{
			Backbones:   backbones[:1],
			PerBackbone: 1,
			Seed:        7,
			Constraints: Constraints{
				FixedPositions: []int{2},
				OriginalSeq:    "ARNDCQEGHILK",
			},
		}

		designs, err := designer.Design(context.Background(), req)
		require.NoError(t, err)
		assert.EqualValues(t, 'R', designs[0].Seq[1])
	})

	t.Run("unresolvable fixed position", func(t *testing.T) {
		req := DesignRequest{
			Backbones:   backbones[:1],
			PerBackbone: 1,
			Constraints: Constraints{FixedPositions: []int{5}},
		}
		_, err := designer.Design(context.Background(), req)
		require.Error(t, err)
	})
}

// the real ProteinMPNN facade is exercised against a stub runner that
// synthesizes the tool's FASTA output
func TestMPNNDesigner(t *testing.T) {
	outDir := t.TempDir()
	seqDir := filepath.Join(outDir, "seqs")

	stub := runner.NewStub(func(spec runner.Spec) error {
		fasta := ">backbone_000, score=1.0, designed_chains=[B]\n" +
			"AAAAAAAAAA\n" +
			">backbone_000_sample_1, T=0.1, score=0.8231, seq_recovery=0.1\n" +
			"ACDEFGHIKL\n" +
			">backbone_000_sample_2, T=0.1, score=0.5112, seq_recovery=0.2\n" +
			"KKKRRRDDDG\n"
		return os.WriteFile(filepath.Join(seqDir, "backbone_000.fa"), []byte(fasta), 0644)
	})

	designer, err := NewSequenceDesigner(DesignerProteinMPNN, stub)
	require.NoError(t, err)

	designs, err := designer.Design(context.Background(), DesignRequest{
		Backbones:   []Backbone{{ID: "backbone_000", PDBPath: filepath.Join(outDir, "backbone_000.pdb"), Length: 10}},
		OutDir:      outDir,
		PerBackbone: 2,
		Seed:        42,
	})
	require.NoError(t, err)
	require.Len(t, designs, 2)

	assert.Equal(t, "backbone_000_seq_000", designs[0].DesignID)
	assert.Equal(t, "ACDEFGHIKL", designs[0].Seq)
	assert.InDelta(t, 0.8231, designs[0].Score, 1e-9)
	assert.Equal(t, "KKKRRRDDDG", designs[1].Seq)
	assert.Equal(t, 1, stub.Calls)
}

func TestMPNNDesignerMalformedOutput(t *testing.T) {
	outDir := t.TempDir()

	// tool "succeeds" but writes nothing usable
	stub := runner.NewStub(func(spec runner.Spec) error {
		return os.WriteFile(filepath.Join(outDir, "seqs", "backbone_000.fa"), []byte(">only_header\n"), 0644)
	})

	designer, err := NewSequenceDesigner(DesignerProteinMPNN, stub)
	require.NoError(t, err)

	_, err = designer.Design(context.Background(), DesignRequest{
		Backbones:   []Backbone{{ID: "backbone_000", PDBPath: filepath.Join(outDir, "bb.pdb")}},
		OutDir:      outDir,
		PerBackbone: 2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestStubPredictor(t *testing.T) {
	pred, err := NewStructurePredictor(PredictorStub, nil)
	require.NoError(t, err)

	preds, err := pred.Predict(context.Background(), PredictRequest{
		Designs: []DesignSeq{
			{ID: "backbone_000_seq_000", Seq: "ACDEFGHIKL"},
			{ID: "backbone_000_seq_001", Seq: "KKKRRRDDDG"},
		},
		OutDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)

	for _, p := range preds {
		assert.FileExists(t, p.ModelPath)
		assert.GreaterOrEqual(t, p.Confidence, 60.0)
		assert.Less(t, p.Confidence, 95.0)
	}

	// confidence is a pure function of the sequence
	assert.Equal(t, pseudoConfidence("ACDEFGHIKL"), preds[0].Confidence)
}

func TestNonePredictor(t *testing.T) {
	pred, err := NewStructurePredictor(PredictorNone, nil)
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestUnknownKinds(t *testing.T) {
	_, err := NewBackboneGenerator("esmfold", nil)
	assert.Error(t, err)
	_, err = NewSequenceDesigner("rosetta", nil)
	assert.Error(t, err)
	_, err = NewStructurePredictor("openfold", nil)
	assert.Error(t, err)
}

func TestBackboneIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.csv")

	backbones := []Backbone{
		{ID: "backbone_000", PDBPath: "/out/backbone_000.pdb", Length: 10},
		{ID: "backbone_001", PDBPath: "/out/backbone_001.pdb", Length: 12},
	}
	require.NoError(t, WriteBackboneIndex(path, backbones))

	loaded, err := ReadBackboneIndex(path)
	require.NoError(t, err)
	assert.Equal(t, backbones, loaded)
}
