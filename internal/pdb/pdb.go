// Package pdb reads and writes the minimal subset of the PDB format the
// pipeline exchanges with external tools: ATOM/HETATM records with
// chain, residue and coordinate fields. It is not a general PDB parser.
package pdb

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Atom is one ATOM or HETATM record.
type Atom struct {
	Serial  int
	Name    string
	ResName string
	Chain   byte
	ResSeq  int
	X, Y, Z float64
	Hetero  bool
}

// Structure is a flat list of atoms in file order.
type Structure struct {
	Atoms []Atom
}

// threeToOne maps residue names to one-letter codes; unknown residues
// map to X.
var threeToOne = map[string]byte{
	"ALA": 'A', "CYS": 'C', "ASP": 'D', "GLU": 'E', "PHE": 'F',
	"GLY": 'G', "HIS": 'H', "ILE": 'I', "LYS": 'K', "LEU": 'L',
	"MET": 'M', "ASN": 'N', "PRO": 'P', "GLN": 'Q', "ARG": 'R',
	"SER": 'S', "THR": 'T', "VAL": 'V', "TRP": 'W', "TYR": 'Y',
}

// oneToThree is the inverse mapping used when writing synthetic chains.
var oneToThree = map[byte]string{}

func init() {
	for three, one := range threeToOne {
		oneToThree[one] = three
	}
}

// ResName returns the three-letter residue name for a one-letter code,
// defaulting to UNK.
func ResName(one byte) string {
	if three, ok := oneToThree[one]; ok {
		return three
	}
	return "UNK"
}

// Read parses the ATOM and HETATM records of a PDB file.
func Read(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	s := &Structure{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		atom, err := parseAtom(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, lineNo)
		}
		s.Atoms = append(s.Atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(s.Atoms) == 0 {
		return nil, errors.Errorf("read %s: no ATOM records", path)
	}
	return s, nil
}

// parseAtom decodes the fixed-width columns of an ATOM/HETATM record.
func parseAtom(line string) (Atom, error) {
	if len(line) < 54 {
		return Atom{}, errors.New("truncated ATOM record")
	}

	serial, _ := strconv.Atoi(strings.TrimSpace(line[6:11]))
	resSeq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
	if err != nil {
		return Atom{}, errors.Wrap(err, "residue number")
	}

	x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
	z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
	if errX != nil || errY != nil || errZ != nil {
		return Atom{}, errors.New("malformed coordinates")
	}

	return Atom{
		Serial:  serial,
		Name:    strings.TrimSpace(line[12:16]),
		ResName: strings.TrimSpace(line[17:20]),
		Chain:   line[21],
		ResSeq:  resSeq,
		X:       x,
		Y:       y,
		Z:       z,
		Hetero:  strings.HasPrefix(line, "HETATM"),
	}, nil
}

// Write renders atoms as ATOM/HETATM records with TER/END trailers.
func Write(path string, atoms []Atom) error {
	var b strings.Builder
	for i, a := range atoms {
		record := "ATOM  "
		if a.Hetero {
			record = "HETATM"
		}
		name := a.Name
		if len(name) < 4 {
			name = " " + name
		}
		fmt.Fprintf(&b, "%s%5d %-4s %3s %c%4d    %8.3f%8.3f%8.3f%6.2f%6.2f\n",
			record, a.Serial, name, a.ResName, a.Chain, a.ResSeq, a.X, a.Y, a.Z, 1.0, 0.0)

		if i == len(atoms)-1 || atoms[i+1].Chain != a.Chain {
			fmt.Fprintf(&b, "TER\n")
		}
	}
	b.WriteString("END\n")

	return errors.Wrapf(os.WriteFile(path, []byte(b.String()), 0644), "write %s", path)
}

// Chains lists the chain identifiers in file order, de-duplicated.
func (s *Structure) Chains() []byte {
	var chains []byte
	seen := map[byte]bool{}
	for _, a := range s.Atoms {
		if !seen[a.Chain] {
			seen[a.Chain] = true
			chains = append(chains, a.Chain)
		}
	}
	return chains
}

// ChainAtoms returns every atom of the given chain.
func (s *Structure) ChainAtoms(chain byte) []Atom {
	var atoms []Atom
	for _, a := range s.Atoms {
		if a.Chain == chain {
			atoms = append(atoms, a)
		}
	}
	return atoms
}

// CAAtoms returns the carbon-alpha atoms of the given chain, one per
// residue, in residue order of the file.
func (s *Structure) CAAtoms(chain byte) []Atom {
	var atoms []Atom
	for _, a := range s.Atoms {
		if a.Chain == chain && a.Name == "CA" && !a.Hetero {
			atoms = append(atoms, a)
		}
	}
	return atoms
}

// ChainSequence derives the one-letter sequence of a chain from its
// carbon-alpha residues. Unknown residue names become X.
func (s *Structure) ChainSequence(chain byte) string {
	var b strings.Builder
	for _, a := range s.CAAtoms(chain) {
		if one, ok := threeToOne[a.ResName]; ok {
			b.WriteByte(one)
		} else {
			b.WriteByte('X')
		}
	}
	return b.String()
}

// Centroid returns the geometric center of the atoms.
func Centroid(atoms []Atom) (x, y, z float64) {
	if len(atoms) == 0 {
		return 0, 0, 0
	}
	for _, a := range atoms {
		x += a.X
		y += a.Y
		z += a.Z
	}
	n := float64(len(atoms))
	return x / n, y / n, z / n
}

// Dist returns the Euclidean distance between two atoms.
func Dist(a, b Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
