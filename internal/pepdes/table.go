package pepdes

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

// Column names shared by the sequence tables. Property columns reuse
// the canonical property names from the chem package.
const (
	colBackboneID    = "backbone_id"
	colDesignID      = "design_id"
	colPeptideSeq    = "peptide_seq"
	colDesignerScore = "designer_score"
	colFilteredOut   = "filtered_out"
	colViolations    = "violations"
	colComposite     = "composite_score"
	colRank          = "rank"
	colReason        = "reason"
)

// violationSep joins violated rule names inside a single CSV cell.
const violationSep = ";"

func sequenceHeader() []string {
	return []string{colBackboneID, colDesignID, colPeptideSeq, colDesignerScore}
}

func scoredHeader() []string {
	header := []string{colBackboneID, colDesignID, colPeptideSeq, colDesignerScore}
	header = append(header, chem.PropertyNames...)
	return append(header, colFilteredOut, colViolations)
}

func rankedHeader() []string {
	return append(scoredHeader(), colComposite, colRank)
}

// WriteSequences writes the design-stage output table.
func WriteSequences(path string, records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.BackboneID,
			rec.DesignID,
			rec.Seq,
			formatFloat(rec.DesignerScore),
		})
	}
	return writeTable(path, sequenceHeader(), rows)
}

// ReadSequences reads a design-stage table. Only the identifying
// columns are required so externally produced tables load too.
func ReadSequences(path string) ([]Record, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	col, err := columnIndex(header, colBackboneID, colDesignID, colPeptideSeq)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	scoreIdx := index(header, colDesignerScore)

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			BackboneID: row[col[colBackboneID]],
			DesignID:   row[col[colDesignID]],
			Seq:        row[col[colPeptideSeq]],
		}
		if scoreIdx >= 0 {
			rec.DesignerScore = parseFloat(row[scoreIdx])
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteScored writes the scoring-stage output table: the input columns
// plus every property, the filter verdict and the violated rule names.
func WriteScored(path string, records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, scoredRow(rec))
	}
	return writeTable(path, scoredHeader(), rows)
}

func scoredRow(rec Record) []string {
	row := []string{
		rec.BackboneID,
		rec.DesignID,
		rec.Seq,
		formatFloat(rec.DesignerScore),
	}
	for _, name := range chem.PropertyNames {
		value, _ := rec.Props.ByName(name)
		switch name {
		case chem.PropLength, chem.PropCysteineCount:
			row = append(row, strconv.Itoa(int(value)))
		case chem.PropAggregation:
			row = append(row, strconv.FormatBool(value != 0))
		default:
			row = append(row, formatFloat(value))
		}
	}
	return append(row, strconv.FormatBool(rec.FilteredOut), strings.Join(rec.Violations, violationSep))
}

// ReadScored reads a scoring-stage table back into records.
func ReadScored(path string) ([]Record, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	col, err := columnIndex(header, scoredHeader()...)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, parseScoredRecord(col, row))
	}
	return records, nil
}

// parseScoredRecord reads one scored-table row; col must cover every
// scoredHeader column.
func parseScoredRecord(col map[string]int, row []string) Record {
	rec := Record{
		BackboneID:    row[col[colBackboneID]],
		DesignID:      row[col[colDesignID]],
		Seq:           row[col[colPeptideSeq]],
		DesignerScore: parseFloat(row[col[colDesignerScore]]),
		FilteredOut:   row[col[colFilteredOut]] == "true",
	}
	rec.Props = chem.Properties{
		Length:              int(parseFloat(row[col[chem.PropLength]])),
		NetCharge:           parseFloat(row[col[chem.PropNetCharge]]),
		Isoelectric:         parseFloat(row[col[chem.PropIsoelectric]]),
		HydrophobicFraction: parseFloat(row[col[chem.PropHydrophobicFraction]]),
		AromaticFraction:    parseFloat(row[col[chem.PropAromaticFraction]]),
		PositiveFraction:    parseFloat(row[col[chem.PropPositiveFraction]]),
		NegativeFraction:    parseFloat(row[col[chem.PropNegativeFraction]]),
		PolarFraction:       parseFloat(row[col[chem.PropPolarFraction]]),
		CysteineCount:       int(parseFloat(row[col[chem.PropCysteineCount]])),
		Aggregation:         row[col[chem.PropAggregation]] == "true",
	}
	if v := row[col[colViolations]]; v != "" {
		rec.Violations = strings.Split(v, violationSep)
	}
	return rec
}

// WriteRanked writes the final ranked table, sorted by rank ascending.
func WriteRanked(path string, ranked []Ranked) error {
	rows := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		row := scoredRow(r.Record)
		row = append(row, formatFloat(r.CompositeScore), strconv.Itoa(r.Rank))
		rows = append(rows, row)
	}
	return writeTable(path, rankedHeader(), rows)
}

// ReadRanked reads a ranked table back, preserving row order.
func ReadRanked(path string) ([]Ranked, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	col, err := columnIndex(header, rankedHeader()...)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	ranked := make([]Ranked, 0, len(rows))
	for _, row := range rows {
		r := Ranked{
			Record:         parseScoredRecord(col, row),
			CompositeScore: parseFloat(row[col[colComposite]]),
		}
		r.Rank, _ = strconv.Atoi(row[col[colRank]])
		ranked = append(ranked, r)
	}
	return ranked, nil
}

// WriteRejects writes the validation-failure side table.
func WriteRejects(path string, rejects []Reject) error {
	rows := make([][]string, 0, len(rejects))
	for _, rej := range rejects {
		rows = append(rows, []string{rej.BackboneID, rej.DesignID, rej.Seq, rej.Reason})
	}
	return writeTable(path, []string{colBackboneID, colDesignID, colPeptideSeq, colReason}, rows)
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "write %s", path)
}

func readTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(all) == 0 {
		return nil, nil, errors.Errorf("parse %s: missing header row", path)
	}
	return all[0], all[1:], nil
}

// columnIndex maps the required column names to their positions,
// failing when any is absent.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("missing required column %q", name)
		}
	}
	return col, nil
}

func index(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// formatFloat renders floats with fixed precision so artifact files are
// byte-stable across runs; NaN is the documented sentinel for undefined
// values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
