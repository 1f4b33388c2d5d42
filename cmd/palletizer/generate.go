package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/Palletizer/internal/importer"
)

func newGenerateCmd() *cobra.Command {
	d := importer.DefaultSampleOptions()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a reproducible synthetic box list as CSV",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "output file, default stdout")
	f.Int64("seed", 1, "random seed")
	f.Int("count", d.Count, "number of box lines")
	f.Int("min-side", d.MinSide, "smallest box side in mm")
	f.Int("max-side", d.MaxSide, "largest box side in mm")
	f.Int("heights", d.Heights, "number of distinct box heights")
	f.Int("max-weight", d.MaxWeight, "heaviest box weight")
	f.Int("max-qty", d.MaxQty, "largest quantity per line")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	seed, _ := f.GetInt64("seed")
	opts := importer.SampleOptions{}
	opts.Count, _ = f.GetInt("count")
	opts.MinSide, _ = f.GetInt("min-side")
	opts.MaxSide, _ = f.GetInt("max-side")
	opts.Heights, _ = f.GetInt("heights")
	opts.MaxWeight, _ = f.GetInt("max-weight")
	opts.MaxQty, _ = f.GetInt("max-qty")

	lines, err := importer.GenerateSample(seed, opts)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if path, _ := f.GetString("output"); path != "" {
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer out.Close()
		w = out
	}
	return importer.WriteSampleCSV(w, lines)
}
