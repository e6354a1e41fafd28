package tools

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// WriteBackboneIndex writes the backbone index table consumed by the
// sequence design stage.
func WriteBackboneIndex(path string, backbones []Backbone) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{{"backbone_id", "pdb_path", "length"}}
	for _, bb := range backbones {
		rows = append(rows, []string{bb.ID, bb.PDBPath, strconv.Itoa(bb.Length)})
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "write %s", path)
}

// ReadBackboneIndex reads a backbone index table.
func ReadBackboneIndex(path string) ([]Backbone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(rows) < 1 {
		return nil, errors.Errorf("parse %s: missing header row", path)
	}

	backbones := make([]Backbone, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			return nil, errors.Errorf("parse %s: short row", path)
		}
		length, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s: backbone length", path)
		}
		backbones = append(backbones, Backbone{ID: row[0], PDBPath: row[1], Length: length})
	}
	return backbones, nil
}

// WritePredictionIndex writes the prediction index table.
func WritePredictionIndex(path string, preds []Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{{"design_id", "model_path", "confidence"}}
	for _, p := range preds {
		rows = append(rows, []string{
			p.DesignID,
			p.ModelPath,
			strconv.FormatFloat(p.Confidence, 'f', 4, 64),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "write %s", path)
}

// ReadPredictionIndex reads a prediction index table.
func ReadPredictionIndex(path string) ([]Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(rows) < 1 {
		return nil, errors.Errorf("parse %s: missing header row", path)
	}

	preds := make([]Prediction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 3 {
			return nil, errors.Errorf("parse %s: short row", path)
		}
		conf, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s: confidence", path)
		}
		preds = append(preds, Prediction{DesignID: row[0], ModelPath: row[1], Confidence: conf})
	}
	return preds, nil
}
