package pdb

import (
	"math"
	"path/filepath"
	"testing"
)

func testAtoms() []Atom {
	res := []string{"ALA", "CYS", "ASP"}
	var atoms []Atom
	for i, name := range res {
		atoms = append(atoms, Atom{
			Serial:  i + 1,
			Name:    "CA",
			ResName: name,
			Chain:   'A',
			ResSeq:  i + 1,
			X:       float64(i) * 3.8,
		})
	}
	atoms = append(atoms, Atom{
		Serial:  4,
		Name:    "CA",
		ResName: "GLY",
		Chain:   'B',
		ResSeq:  1,
		X:       10.5,
		Y:       -2.25,
		Z:       3.125,
	})
	return atoms
}

func Test_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pdb")

	if err := Write(path, testAtoms()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	s, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if len(s.Atoms) != 4 {
		t.Fatalf("Read() returned %d atoms, want 4", len(s.Atoms))
	}
	if got := string(s.Chains()); got != "AB" {
		t.Errorf("Chains() = %q, want AB", got)
	}
	if got := s.ChainSequence('A'); got != "ACD" {
		t.Errorf("ChainSequence(A) = %q, want ACD", got)
	}
	if got := len(s.CAAtoms('B')); got != 1 {
		t.Errorf("CAAtoms(B) = %d atoms, want 1", got)
	}

	b := s.CAAtoms('B')[0]
	if b.X != 10.5 || b.Y != -2.25 || b.Z != 3.125 {
		t.Errorf("coordinates = (%v, %v, %v), want (10.5, -2.25, 3.125)", b.X, b.Y, b.Z)
	}
}

func Test_parseAtom(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{
			"valid record",
			"ATOM      1  CA  ALA A   1       0.000   0.000   0.000  1.00  0.00",
			false,
		},
		{
			"truncated record",
			"ATOM      1  CA  ALA A   1",
			true,
		},
		{
			"malformed coordinates",
			"ATOM      1  CA  ALA A   1       x.xxx   0.000   0.000  1.00  0.00",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAtom(tt.line)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseAtom() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_geometry(t *testing.T) {
	a := Atom{X: 0, Y: 0, Z: 0}
	b := Atom{X: 3, Y: 4, Z: 0}
	if d := Dist(a, b); d != 5 {
		t.Errorf("Dist() = %v, want 5", d)
	}

	x, y, z := Centroid([]Atom{a, b})
	if x != 1.5 || y != 2 || z != 0 {
		t.Errorf("Centroid() = (%v, %v, %v), want (1.5, 2, 0)", x, y, z)
	}

	if x, y, z := Centroid(nil); x != 0 || y != 0 || z != 0 {
		t.Errorf("Centroid(nil) = (%v, %v, %v), want origin", x, y, z)
	}

	if math.IsNaN(Dist(a, a)) {
		t.Error("Dist(a, a) = NaN")
	}
}
