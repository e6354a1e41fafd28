package cmd

import (
	"github.com/spf13/cobra"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
)

// rankCmd ranks a scored table outside a pipeline run.
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a scored sequence table by composite score",
	Long: `Rank a scored sequence table by composite score.

Sequences that passed filtering always rank ahead of filtered ones.
With --reference, the composite measures deviation from a reference
peptide's property profile instead of the generic ideal.`,
	RunE: rankSequences,
}

// set flags
func init() {
	rankCmd.Flags().StringP("in", "i", "", "input scored CSV (required)")
	rankCmd.Flags().StringP("out", "o", "", "output ranked CSV (required)")
	rankCmd.Flags().StringP("reference", "f", "", "reference properties JSON")
	rankCmd.Flags().StringP("config", "c", "", "config file with ranking weights")
	cobra.CheckErr(rankCmd.MarkFlagRequired("in"))
	cobra.CheckErr(rankCmd.MarkFlagRequired("out"))

	rootCmd.AddCommand(rankCmd)
}

func rankSequences(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	refPath, _ := cmd.Flags().GetString("reference")
	cfgPath, _ := cmd.Flags().GetString("config")

	weights := pepdes.DefaultWeights
	if cfgPath != "" {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		weights = c.Weights()
	}

	scored, err := pepdes.ReadScored(in)
	if err != nil {
		return err
	}

	var ref *pepdes.Reference
	if refPath != "" {
		loaded, err := pepdes.LoadReference(refPath)
		if err != nil {
			return err
		}
		ref = &loaded
	}

	ranked := pepdes.Rank(scored, weights, ref)
	stderr.Printf("ranked %d sequences", len(ranked))
	return pepdes.WriteRanked(out, ranked)
}
