package cmd

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duyjimmypham/pepdesign/internal/chem"
	"github.com/duyjimmypham/pepdesign/internal/pepdes"
)

// propsCmd prints the property set of a single peptide sequence.
var propsCmd = &cobra.Command{
	Use:   "props [seq]",
	Short: "Print the physicochemical properties of a peptide sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  printProps,
}

// set flags
func init() {
	propsCmd.Flags().Float64P("ph", "p", 7.4, "pH of the net-charge calculation")

	rootCmd.AddCommand(propsCmd)
}

func printProps(cmd *cobra.Command, args []string) error {
	ph, _ := cmd.Flags().GetFloat64("ph")

	seq := strings.ToUpper(strings.TrimSpace(args[0]))
	if err := pepdes.ValidateSequence(seq); err != nil {
		return err
	}

	props := chem.Compute(seq, ph, chem.DefaultAggMotifs, chem.DefaultMaxHydrophobicRun)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 3, ' ', 0)
	fmt.Fprintf(w, "sequence\t%s\n", seq)
	fmt.Fprintf(w, "length\t%d\n", props.Length)
	fmt.Fprintf(w, "net charge (pH %.1f)\t%.4f\n", ph, props.NetCharge)
	if math.IsNaN(props.Isoelectric) {
		fmt.Fprintf(w, "pI\tNaN\n")
	} else {
		fmt.Fprintf(w, "pI\t%.2f\n", props.Isoelectric)
	}
	fmt.Fprintf(w, "hydrophobic fraction\t%.4f\n", props.HydrophobicFraction)
	fmt.Fprintf(w, "aromatic fraction\t%.4f\n", props.AromaticFraction)
	fmt.Fprintf(w, "positive fraction\t%.4f\n", props.PositiveFraction)
	fmt.Fprintf(w, "negative fraction\t%.4f\n", props.NegativeFraction)
	fmt.Fprintf(w, "polar fraction\t%.4f\n", props.PolarFraction)
	fmt.Fprintf(w, "cysteines\t%d\n", props.CysteineCount)
	fmt.Fprintf(w, "aggregation risk\t%v\n", props.Aggregation)
	return w.Flush()
}
