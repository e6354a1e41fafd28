package pepdes

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

// ScoreOptions parameterize the scoring stage.
type ScoreOptions struct {
	// pH for the net charge calculation
	PH float64

	// number of concurrent property workers; <= 0 means NumCPU
	Workers int

	// disallowed aggregation motifs
	AggMotifs []string

	// hydrophobic run length flagged as aggregation-prone
	MaxHydrophobicRun int
}

// Score validates every record, computes physicochemical properties for
// the valid ones, and applies the filter. Property computation for
// distinct sequences is independent, so it is fanned out over a bounded
// worker pool; results are written back by input index, never by
// completion order, so output is deterministic for any worker count.
//
// Records failing validation are returned separately; a record-level
// problem never aborts the run.
func Score(ctx context.Context, records []Record, opts ScoreOptions, filter *Filter) (scored []Record, rejected []Reject, err error) {
	motifs := opts.AggMotifs
	if motifs == nil {
		motifs = chem.DefaultAggMotifs
	}

	scored = make([]Record, 0, len(records))
	for _, rec := range records {
		if verr := ValidateSequence(rec.Seq); verr != nil {
			stderr.Printf("rejecting %s: %v", rec.DesignID, verr)
			rejected = append(rejected, Reject{
				BackboneID: rec.BackboneID,
				DesignID:   rec.DesignID,
				Seq:        rec.Seq,
				Reason:     verr.Error(),
			})
			continue
		}
		scored = append(scored, rec)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := range scored {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec := &scored[i]
			rec.Props = chem.Compute(rec.Seq, opts.PH, motifs, opts.MaxHydrophobicRun)
			pass, violated := filter.Evaluate(rec.Props)
			rec.FilteredOut = !pass
			rec.Violations = violated
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "score sequences")
	}

	return scored, rejected, nil
}
