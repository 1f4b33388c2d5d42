package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piwi3910/Palletizer/internal/engine"
	"github.com/piwi3910/Palletizer/internal/export"
	"github.com/piwi3910/Palletizer/internal/importer"
	"github.com/piwi3910/Palletizer/internal/metrics"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/project"
)

const packLogFile = "packed_boxes.log"

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <boxes.csv|boxes.xlsx>",
		Short: "Pack a box list and write the results to a new run directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runPack,
	}
	addPackFlags(cmd.Flags())
	cmd.Flags().String("output-dir", "", "root directory for run output")
	cmd.Flags().StringSlice("export", nil, "export formats: csv, xlsx, pdf, labels, dxf")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().Bool("pack-log", false, "log the pallet contents after every placement")
	return cmd
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	boxes, err := importBoxes(args[0])
	if err != nil {
		return err
	}

	runID := project.NewRunID()
	dir := project.RunDir(cfg.OutputDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	recorder := metrics.New()
	opts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithMetrics(recorder),
		engine.WithRunID(runID),
	}
	if on, _ := cmd.Flags().GetBool("pack-log"); on {
		f, err := os.Create(filepath.Join(dir, packLogFile))
		if err != nil {
			return fmt.Errorf("create packed-box log: %w", err)
		}
		defer f.Close()
		opts = append(opts, engine.WithSnapshotter(export.NewPackLog(f)))
	}

	res, buildErr := engine.NewPalletBuilder(cfg.Pack, opts...).Build(cmd.Context(), boxes.Pool())
	if buildErr != nil {
		slog.Error("packing incomplete", "error", buildErr)
	}

	files, exportErr := export.WriteAll(dir, res, cfg.Pack, cfg.Exports)
	if exportErr != nil {
		slog.Error("export failed", "error", exportErr)
	}

	manifest := project.NewManifest(args[0], len(boxes.Boxes), cfg.Pack, res, files)
	if err := errors.Join(buildErr, exportErr); err != nil {
		manifest.Error = err.Error()
	}
	if err := project.WriteRun(dir, manifest, res); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("metrics textfile not written", "path", cfg.MetricsFile, "error", err)
		}
	}

	printSummary(cmd.OutOrStdout(), dir, res)
	return errors.Join(buildErr, exportErr)
}

// importBoxes reads a box list and logs import warnings. Any import error
// aborts the run.
func importBoxes(path string) (importer.ImportResult, error) {
	result := importer.ImportFile(path)
	for _, w := range result.Warnings {
		slog.Warn("import", "file", path, "warning", w)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			slog.Error("import", "file", path, "error", e)
		}
		return result, fmt.Errorf("import %s: %d errors, first: %s", path, len(result.Errors), result.Errors[0])
	}
	slog.Info("boxes imported", "file", path, "boxes", len(result.Boxes))
	return result, nil
}

func printSummary(w io.Writer, dir string, res model.PackResult) {
	fmt.Fprintf(w, "run %s\n", res.RunID)
	fmt.Fprintf(w, "  pallets:  %d\n", len(res.Pallets))
	fmt.Fprintf(w, "  layers:   %d\n", len(res.Layers))
	fmt.Fprintf(w, "  placed:   %d\n", res.PlacedBoxes())
	fmt.Fprintf(w, "  unplaced: %d\n", len(res.Unplaced))
	fmt.Fprintf(w, "  density:  %.1f%%\n", res.TotalDensity())
	fmt.Fprintf(w, "  output:   %s\n", dir)
}
