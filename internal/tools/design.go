package tools

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/chem"
	"github.com/duyjimmypham/pepdesign/internal/runner"
)

// designAlphabet is the sampling alphabet of the stub designer: the 20
// standard residues, no X.
const designAlphabet = "ACDEFGHIKLMNPQRSTVWY"

// Design is one designed sequence on a backbone.
type Design struct {
	DesignID   string
	BackboneID string
	Seq        string
	Score      float64
}

// Constraints restrict sequence design. Positions are 1-based.
type Constraints struct {
	// positions whose residue is fixed
	FixedPositions []int

	// residues at the fixed positions, parallel to FixedPositions; in
	// optimize_existing mode an empty list defaults to the original
	// peptide's residues at those positions
	FixedResidues []string

	// residues disallowed at every position
	DisallowedResidues []string

	// the original peptide sequence (optimize_existing mode only)
	OriginalSeq string
}

// DesignRequest carries everything a designer needs for one run.
type DesignRequest struct {
	Backbones   []Backbone
	OutDir      string
	PerBackbone int
	Seed        int64
	Constraints Constraints
}

// SequenceDesigner designs peptide sequences for generated backbones.
type SequenceDesigner interface {
	Design(ctx context.Context, req DesignRequest) ([]Design, error)
}

// NewSequenceDesigner returns the designer for a configured type
// string. The real tool executes through r; the stub ignores it.
func NewSequenceDesigner(kind string, r runner.Runner) (SequenceDesigner, error) {
	switch kind {
	case DesignerStub:
		return &stubDesigner{}, nil
	case DesignerProteinMPNN:
		return &mpnnDesigner{runner: r}, nil
	}
	return nil, errors.Errorf("unknown designer type %q", kind)
}

// stubDesigner samples deterministic sequences per backbone, honoring
// fixed-position and disallowed-residue constraints.
type stubDesigner struct{}

func (d *stubDesigner) Design(ctx context.Context, req DesignRequest) ([]Design, error) {
	stderr.Printf("designing %d stub sequences per backbone for %d backbones", req.PerBackbone, len(req.Backbones))

	alphabet := sampleAlphabet(req.Constraints.DisallowedResidues)
	fixed, err := fixedResidueMap(req.Constraints)
	if err != nil {
		return nil, err
	}

	designs := make([]Design, 0, len(req.Backbones)*req.PerBackbone)
	for bi, bb := range req.Backbones {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng := rand.New(rand.NewSource(req.Seed + int64(bi)*1000003))
		for si := 0; si < req.PerBackbone; si++ {
			seq := make([]byte, bb.Length)
			for pos := range seq {
				if aa, ok := fixed[pos+1]; ok {
					seq[pos] = aa
					continue
				}
				seq[pos] = alphabet[rng.Intn(len(alphabet))]
			}

			designs = append(designs, Design{
				DesignID:   fmt.Sprintf("%s_seq_%03d", bb.ID, si),
				BackboneID: bb.ID,
				Seq:        string(seq),
				Score:      0.1 + 0.9*rng.Float64(),
			})
		}
	}
	return designs, nil
}

// sampleAlphabet removes disallowed residues from the design alphabet,
// falling back to the full alphabet if everything was disallowed.
func sampleAlphabet(disallowed []string) string {
	banned := strings.Join(disallowed, "")
	var b strings.Builder
	for _, aa := range designAlphabet {
		if !strings.ContainsRune(banned, aa) {
			b.WriteRune(aa)
		}
	}
	if b.Len() == 0 {
		return designAlphabet
	}
	return b.String()
}

// fixedResidueMap resolves the fixed-position constraints into a
// position -> residue map. Missing fixed residues default to the
// original peptide's residues when one is known.
func fixedResidueMap(c Constraints) (map[int]byte, error) {
	fixed := make(map[int]byte, len(c.FixedPositions))
	for i, pos := range c.FixedPositions {
		if pos < 1 {
			return nil, errors.Errorf("fixed position %d: positions are 1-based", pos)
		}
		switch {
		case i < len(c.FixedResidues) && c.FixedResidues[i] != "":
			res := c.FixedResidues[i]
			if len(res) != 1 || !strings.Contains(designAlphabet, res) {
				return nil, errors.Errorf("fixed residue %q at position %d is not a standard residue", res, pos)
			}
			fixed[pos] = res[0]
		case c.OriginalSeq != "" && pos <= len(c.OriginalSeq):
			fixed[pos] = c.OriginalSeq[pos-1]
		default:
			return nil, errors.Errorf("no residue available for fixed position %d", pos)
		}
	}
	return fixed, nil
}

// mpnnDesigner drives ProteinMPNN through a runner and parses the FASTA
// files it writes per backbone.
type mpnnDesigner struct {
	runner runner.Runner
}

func (d *mpnnDesigner) Design(ctx context.Context, req DesignRequest) ([]Design, error) {
	seqDir := filepath.Join(req.OutDir, "seqs")
	if err := os.MkdirAll(seqDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create designer output dir")
	}

	var designs []Design
	for _, bb := range req.Backbones {
		spec := runner.Spec{
			Tool:    DesignerProteinMPNN,
			Image:   Images[DesignerProteinMPNN],
			Command: "python",
			Args: []string{
				"protein_mpnn_run.py",
				"--pdb_path", bb.PDBPath,
				"--pdb_path_chains", string(peptideChain),
				"--out_folder", req.OutDir,
				"--num_seq_per_target", strconv.Itoa(req.PerBackbone),
				"--seed", strconv.FormatInt(req.Seed, 10),
				"--batch_size", "1",
			},
			WorkDir: req.OutDir,
			Mounts: []runner.Mount{
				{Host: filepath.Dir(bb.PDBPath), Container: "/backbones"},
				{Host: req.OutDir, Container: "/output"},
			},
		}
		if _, err := d.runner.Execute(ctx, spec); err != nil {
			return nil, errors.Wrapf(err, "design sequences for %s", bb.ID)
		}

		parsed, err := parseMPNNFasta(filepath.Join(seqDir, bb.ID+".fa"), bb.ID)
		if err != nil {
			return nil, err
		}
		designs = append(designs, parsed...)
	}
	return designs, nil
}

// parseMPNNFasta reads a ProteinMPNN output FASTA. The first entry
// echoes the input backbone and is skipped; each following
// header/sequence pair is one design, with the sampling score parsed
// from the "score=" field of the header.
func parseMPNNFasta(path, backboneID string) ([]Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "missing designer output for %s", backboneID)
	}
	defer f.Close()

	var headers, seqs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			headers = append(headers, line[1:])
		} else if len(headers) > len(seqs) {
			seqs = append(seqs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(seqs) < 2 || len(headers) != len(seqs) {
		return nil, errors.Errorf("malformed designer output %s", path)
	}

	// entry 0 is the input sequence; designs follow
	designs := make([]Design, 0, len(seqs)-1)
	for i := 1; i < len(seqs); i++ {
		seq := chainOf(seqs[i])
		if err := validDesign(seq); err != nil {
			return nil, errors.Wrapf(err, "malformed designer output %s entry %d", path, i)
		}
		designs = append(designs, Design{
			DesignID:   fmt.Sprintf("%s_seq_%03d", backboneID, i-1),
			BackboneID: backboneID,
			Seq:        seq,
			Score:      fastaScore(headers[i]),
		})
	}
	return designs, nil
}

// chainOf keeps the designed chain of a multi-chain record (chains are
// separated by "/").
func chainOf(seq string) string {
	if i := strings.LastIndex(seq, "/"); i >= 0 {
		return seq[i+1:]
	}
	return seq
}

func validDesign(seq string) error {
	if seq == "" {
		return errors.New("empty sequence")
	}
	for _, aa := range seq {
		if !strings.ContainsRune(chem.Alphabet, aa) {
			return errors.Errorf("disallowed character %q", aa)
		}
	}
	return nil
}

// fastaScore extracts the "score=" field from a ProteinMPNN header,
// defaulting to 0.
func fastaScore(header string) float64 {
	for _, field := range strings.Split(header, ",") {
		field = strings.TrimSpace(field)
		if strings.HasPrefix(field, "score=") {
			if v, err := strconv.ParseFloat(field[len("score="):], 64); err == nil {
				return v
			}
		}
	}
	return 0
}
