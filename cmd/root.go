// Package cmd is for command line interactions with the pepdesign
// application
package cmd

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/duyjimmypham/pepdesign/config"
	"github.com/duyjimmypham/pepdesign/internal/pipeline"
)

// stderr is for warnings, progress, etc
var stderr = log.New(os.Stderr, "", 0)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pepdesign",
	Short: "Design peptide binders against a protein target",
	Long: `Design peptide binders against a protein target.

The run command executes the full pipeline: target preparation,
backbone generation, sequence design, scoring, ranking, optional
structure prediction and reporting. The score, rank and props commands
operate on individual artifacts outside a pipeline run.

Exit codes:
  0  success
  1  unexpected failure
  2  invalid configuration
  3  a pipeline stage failed`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). Errors map to distinct
// exit codes so scripts can tell bad input from a failed stage.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		stderr.Printf("%v", err)

		var cerr *config.Error
		var serr *pipeline.StageError
		switch {
		case errors.As(err, &cerr):
			os.Exit(2)
		case errors.As(err, &serr):
			os.Exit(3)
		}
		os.Exit(1)
	}
}
