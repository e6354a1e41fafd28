package cmd

import (
	"github.com/spf13/cobra"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
)

// scoreCmd scores a sequence table outside a pipeline run.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute properties and apply filters over a sequence table",
	Long: `Compute properties and apply filters over a sequence table.

Reads a sequences CSV, computes the physicochemical property set for
every row and writes a scored CSV. Filter rules come from the scoring
section of the config file when one is given; without a config, no
filters apply and every valid sequence passes.`,
	RunE: scoreSequences,
}

// set flags
func init() {
	scoreCmd.Flags().StringP("in", "i", "", "input sequences CSV (required)")
	scoreCmd.Flags().StringP("out", "o", "", "output scored CSV (required)")
	scoreCmd.Flags().StringP("config", "c", "", "config file with scoring settings")
	scoreCmd.Flags().StringP("rejected", "j", "", "write rejected rows to this CSV")
	scoreCmd.Flags().Float64P("ph", "p", 0, "pH of the net-charge calculation, overriding the config")
	cobra.CheckErr(scoreCmd.MarkFlagRequired("in"))
	cobra.CheckErr(scoreCmd.MarkFlagRequired("out"))

	rootCmd.AddCommand(scoreCmd)
}

func scoreSequences(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	cfgPath, _ := cmd.Flags().GetString("config")
	rejectedPath, _ := cmd.Flags().GetString("rejected")
	ph, _ := cmd.Flags().GetFloat64("ph")

	c := config.New()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	if ph > 0 {
		c.Scoring.PH = ph
	}

	records, err := pepdes.ReadSequences(in)
	if err != nil {
		return err
	}

	filter, err := c.Filter()
	if err != nil {
		return err
	}

	scored, rejected, err := pepdes.Score(cmd.Context(), records, c.ScoreOptions(), filter)
	if err != nil {
		return err
	}

	passed := 0
	for _, rec := range scored {
		if !rec.FilteredOut {
			passed++
		}
	}
	stderr.Printf("scored %d sequences: %d passed, %d rejected", len(scored), passed, len(rejected))

	if rejectedPath != "" {
		if err := pepdes.WriteRejects(rejectedPath, rejected); err != nil {
			return err
		}
	}
	return pepdes.WriteScored(out, scored)
}
