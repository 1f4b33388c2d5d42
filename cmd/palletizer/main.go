// Palletizer: 3D pallet packing from a box list
//
// Clusters boxes into height layers, selects a layer set by exact set
// covering and stacks the layers onto as few pallets as possible. Results
// are written as CSV tables, an XLSX workbook, a PDF report, QR pallet
// labels and DXF wireframes.
//
// Build:
//   go build -o palletizer ./cmd/palletizer
//
// Usage:
//   palletizer generate -o boxes.csv
//   palletizer pack boxes.csv --export csv,pdf,labels
//   palletizer compare boxes.csv

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/piwi3910/Palletizer/internal/logging"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/project"
)

// flagKeys maps command-line flags to config keys. Flags missing from a
// command are skipped when binding.
var flagKeys = map[string]string{
	"pallet-width":      "pack.pallet_width",
	"pallet-depth":      "pack.pallet_depth",
	"pallet-height":     "pack.pallet_height",
	"capacity":          "pack.pallet_capacity",
	"stack-height":      "pack.stack_height",
	"mode":              "pack.mode",
	"iterations":        "pack.iterations",
	"workers":           "pack.workers",
	"seed":              "pack.seed",
	"alternates":        "pack.alternates",
	"migrate":           "pack.migrate",
	"solver-time-limit": "pack.solver_time_limit",
	"output-dir":        "output_dir",
	"export":            "exports",
	"log-level":         "log_level",
	"log-file":          "log_file",
	"metrics-file":      "metrics_file",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "palletizer",
		Short:         "Pack boxes onto pallets in height layers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.String("config", project.DefaultConfigPath(), "config file (json, yaml or toml)")
	pf.String("env-file", ".env", "dotenv file with PALLETIZER_* overrides")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "also write JSON logs to this rotated file")

	root.AddCommand(newPackCmd(), newCompareCmd(), newGenerateCmd(), newConfigCmd(), newRunsCmd())
	return root
}

// addPackFlags registers the packing settings on a command. Defaults are
// informational only; unset flags never override the config file.
func addPackFlags(flags *pflag.FlagSet) {
	d := model.DefaultSettings()
	flags.Int("pallet-width", d.PalletWidth, "pallet width in mm")
	flags.Int("pallet-depth", d.PalletDepth, "pallet depth in mm")
	flags.Int("pallet-height", d.PalletHeight, "pallet height in mm")
	flags.Int("capacity", d.PalletCapacity, "pallet weight capacity")
	flags.Int("stack-height", d.StackHeight, "maximum stack height per pallet in mm")
	flags.String("mode", string(d.Mode), "packing mode: layered or direct")
	flags.Int("iterations", d.Iterations, "layer construction attempts per height cluster")
	flags.Int("workers", d.Workers, "parallel layer construction workers")
	flags.Int64("seed", d.Seed, "random seed")
	flags.Int("alternates", d.Alternates, "runner-up layers kept per cluster")
	flags.Bool("migrate", d.Migrate, "move boxes out of sparse layers")
	flags.Duration("solver-time-limit", d.SolverTimeLimit, "time limit per integer program")
}

// loadConfig reads .env, the config file, the environment and the flags of
// cmd, then installs the logger. The returned closer flushes the log file.
func loadConfig(cmd *cobra.Command) (model.AppConfig, io.Closer, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return model.AppConfig{}, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	loader := project.NewLoader()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := loader.BindFlag(key, f); err != nil {
				return model.AppConfig{}, nil, err
			}
		}
	}
	path, _ := flags.GetString("config")
	cfg, err := loader.Load(path)
	if err != nil {
		return model.AppConfig{}, nil, err
	}
	if err := validateSettings(cfg.Pack); err != nil {
		return model.AppConfig{}, nil, err
	}

	closer, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: cmd.ErrOrStderr()})
	if err != nil {
		return model.AppConfig{}, nil, err
	}
	slog.Debug("configuration loaded", "config", path, "mode", string(cfg.Pack.Mode))
	return cfg, closer, nil
}

func validateSettings(s model.PackSettings) error {
	switch {
	case s.PalletWidth <= 0 || s.PalletDepth <= 0 || s.PalletHeight <= 0:
		return fmt.Errorf("pallet dimensions must be positive, got %s", s.Pallet())
	case s.PalletCapacity <= 0:
		return fmt.Errorf("pallet capacity must be positive, got %d", s.PalletCapacity)
	case s.Mode != model.ModeLayered && s.Mode != model.ModeDirect:
		return fmt.Errorf("unknown mode %q", s.Mode)
	case s.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d", s.Iterations)
	}
	return nil
}
