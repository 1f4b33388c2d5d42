package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/piwi3910/Palletizer/internal/engine"
	"github.com/piwi3910/Palletizer/internal/logging"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <boxes.csv|boxes.xlsx>",
		Short: "Pack a box list under several settings variants side by side",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompare,
	}
	addPackFlags(cmd.Flags())
	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	boxes, err := importBoxes(args[0])
	if err != nil {
		return err
	}

	// Scenario runs would interleave their stage logs; keep only the table.
	results := engine.CompareScenarios(cmd.Context(), engine.BuildDefaultScenarios(cfg.Pack), boxes.Pool(),
		engine.WithLogger(logging.Discard()))

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tPALLETS\tLAYERS\tUNPLACED\tDENSITY\tERROR")
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\t%s\n",
			r.Scenario.Name, r.PalletsUsed, r.LayersUsed, r.UnplacedCount, r.Density, errText)
	}
	return tw.Flush()
}
