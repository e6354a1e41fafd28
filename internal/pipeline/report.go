package pipeline

import (
	"context"
	"html/template"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
	"github.com/duyjimmypham/pepdesign/internal/tools"
)

// reportTopN caps the ranked table in the report; the full table stays
// in ranked.csv.
const reportTopN = 25

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"f4": func(v float64) string {
		if math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', 4, 64)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>pepdesign run {{.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #bbb; padding: 4px 10px; text-align: left; }
th { background: #eee; }
.filtered { color: #999; }
</style>
</head>
<body>
<h1>pepdesign run report</h1>
<p>run <code>{{.RunID}}</code>, mode <code>{{.Mode}}</code>, started {{.Started}}</p>

<h2>Stages</h2>
<table>
<tr><th>stage</th><th>status</th><th>duration (s)</th></tr>
{{range .Stages}}
<tr><td>{{.Name}}</td><td>{{if .Skipped}}skipped{{else}}completed{{end}}</td><td>{{printf "%.2f" .DurationS}}</td></tr>
{{end}}
</table>

<h2>Summary</h2>
<p>{{.Total}} designed sequences, {{.Passed}} passed filtering.</p>
{{if .Reference}}<p>reference peptide: <code>{{.Reference}}</code></p>{{end}}

<h2>Top designs</h2>
<table>
<tr><th>rank</th><th>design</th><th>sequence</th><th>composite</th><th>net charge</th><th>pI</th><th>hydrophobic</th>{{if .HasPredictions}}<th>confidence</th>{{end}}</tr>
{{range .Rows}}
<tr{{if .FilteredOut}} class="filtered"{{end}}>
<td>{{.Rank}}</td><td>{{.DesignID}}</td><td><code>{{.Seq}}</code></td>
<td>{{f4 .CompositeScore}}</td><td>{{f4 .NetCharge}}</td><td>{{f4 .Isoelectric}}</td><td>{{f4 .HydrophobicFraction}}</td>
{{if $.HasPredictions}}<td>{{if .HasConfidence}}{{f4 .Confidence}}{{else}}-{{end}}</td>{{end}}
</tr>
{{end}}
</table>
</body>
</html>
`))

type reportRow struct {
	Rank                int
	DesignID            string
	Seq                 string
	CompositeScore      float64
	NetCharge           float64
	Isoelectric         float64
	HydrophobicFraction float64
	FilteredOut         bool
	HasConfidence       bool
	Confidence          float64
}

type reportData struct {
	RunID          string
	Mode           string
	Started        string
	Stages         []StageResult
	Total          int
	Passed         int
	Reference      string
	HasPredictions bool
	Rows           []reportRow
}

// runReporting renders the human-readable run summary from the ranked
// table, the run journal and (when present) the prediction index.
func runReporting(_ context.Context, r *Run) error {
	ranked, err := pepdes.ReadRanked(r.RankedPath())
	if err != nil {
		return err
	}

	state, err := LoadState(r.StatePath())
	if err != nil {
		return err
	}

	data := reportData{
		RunID:   state.RunID,
		Mode:    state.Mode,
		Started: state.Started.Format("2006-01-02 15:04:05"),
		Stages:  state.Stages,
		Total:   len(ranked),
	}

	if r.Config.Target.Mode == config.ModeOptimizeExisting {
		ref, err := pepdes.LoadReference(r.ReferencePath())
		if err != nil {
			return err
		}
		data.Reference = ref.Sequence
	}

	confidence := map[string]float64{}
	if exists(r.PredictionsPath()) {
		preds, err := tools.ReadPredictionIndex(r.PredictionsPath())
		if err != nil {
			return err
		}
		data.HasPredictions = true
		for _, p := range preds {
			confidence[p.DesignID] = p.Confidence
		}
	}

	for _, rk := range ranked {
		if !rk.FilteredOut {
			data.Passed++
		}
		if len(data.Rows) == reportTopN {
			continue
		}

		row := reportRow{
			Rank:                rk.Rank,
			DesignID:            rk.DesignID,
			Seq:                 rk.Seq,
			CompositeScore:      rk.CompositeScore,
			NetCharge:           rk.Props.NetCharge,
			Isoelectric:         rk.Props.Isoelectric,
			HydrophobicFraction: rk.Props.HydrophobicFraction,
			FilteredOut:         rk.FilteredOut,
		}
		if conf, ok := confidence[rk.DesignID]; ok {
			row.HasConfidence = true
			row.Confidence = conf
		}
		data.Rows = append(data.Rows, row)
	}

	f, err := os.Create(r.ReportPath())
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	defer f.Close()

	if err := reportTmpl.Execute(f, data); err != nil {
		return errors.Wrap(err, "render report")
	}
	return nil
}
