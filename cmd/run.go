package cmd

import (
	"github.com/spf13/cobra"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pipeline"
)

// runCmd executes the full design pipeline from a config file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the peptide design pipeline from a config file",
	Long: `Run the peptide design pipeline from a config file.

Stages execute strictly in order and hand artifacts to each other
through files under the output directory. With --resume, stages whose
outputs already exist are skipped, so an interrupted run picks up where
it stopped.`,
	RunE: runPipeline,
}

// set flags
func init() {
	runCmd.Flags().StringP("config", "c", "", "path to the run config file (required)")
	runCmd.Flags().StringP("out", "o", "", "output directory, overriding the config")
	runCmd.Flags().BoolP("resume", "r", false, "skip stages whose outputs already exist")
	runCmd.Flags().BoolP("verbose", "v", false, "log external tool commands and output")
	cobra.CheckErr(runCmd.MarkFlagRequired("config"))

	rootCmd.AddCommand(runCmd)
}

// runPipeline loads and validates the config, then executes every
// enabled stage.
func runPipeline(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	out, _ := cmd.Flags().GetString("out")
	resume, _ := cmd.Flags().GetBool("resume")
	verbose, _ := cmd.Flags().GetBool("verbose")

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if out != "" {
		c.Global.OutputDir = out
	}
	if err := c.Validate(); err != nil {
		return err
	}

	run, err := pipeline.NewRun(c, resume, verbose)
	if err != nil {
		return err
	}
	return run.Execute(cmd.Context())
}
