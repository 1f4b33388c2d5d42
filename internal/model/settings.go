package model

import "time"

// Mode selects how boxes are assigned to pallets.
type Mode string

const (
	ModeLayered Mode = "layered" // Cluster into layers, migrate, select and stack (default)
	ModeDirect  Mode = "direct"  // Box-by-box 3D greedy placement into free spaces
)

// PackSettings holds pallet geometry and the packing engine's budgets.
type PackSettings struct {
	// Pallet geometry
	PalletWidth    int `json:"pallet_width" mapstructure:"pallet_width"`       // mm along x
	PalletDepth    int `json:"pallet_depth" mapstructure:"pallet_depth"`       // mm along y
	PalletHeight   int `json:"pallet_height" mapstructure:"pallet_height"`     // mm along z
	PalletCapacity int `json:"pallet_capacity" mapstructure:"pallet_capacity"` // max load weight
	StackHeight    int `json:"stack_height" mapstructure:"stack_height"`       // per-pallet layer stack budget

	// Engine
	Mode            Mode          `json:"mode" mapstructure:"mode"`
	// Iterations caps layer construction attempts per cluster. The search
	// stops sooner when, with no alternates kept, a layer holds every box or
	// fills the footprint, or when a worker sees max(200, Iterations/20)
	// attempts in a row without improvement.
	Iterations      int           `json:"iterations" mapstructure:"iterations"`
	Workers         int           `json:"workers" mapstructure:"workers"`                   // parallel construction workers, 0 = 1
	Seed            int64         `json:"seed" mapstructure:"seed"`                         // random seed for reproducible runs
	Alternates      int           `json:"alternates" mapstructure:"alternates"`             // runner-up layers kept per cluster
	Migrate         bool          `json:"migrate" mapstructure:"migrate"`                   // move boxes out of sparse layers
	SolverTimeLimit time.Duration `json:"solver_time_limit" mapstructure:"solver_time_limit"` // per integer program
}

// Pallet returns the pallet's dimensions as a cuboid.
func (s PackSettings) Pallet() Cuboid {
	return Cuboid{Width: s.PalletWidth, Depth: s.PalletDepth, Height: s.PalletHeight}
}

// EffectiveStackHeight returns the usable stack height: the configured
// budget, never more than the pallet height.
func (s PackSettings) EffectiveStackHeight() int {
	if s.StackHeight <= 0 || s.StackHeight > s.PalletHeight {
		return s.PalletHeight
	}
	return s.StackHeight
}

func DefaultSettings() PackSettings {
	return PackSettings{
		PalletWidth:     1200,
		PalletDepth:     800,
		PalletHeight:    2200,
		PalletCapacity:  1500,
		StackHeight:     2055,
		Mode:            ModeLayered,
		Iterations:      40000,
		Workers:         1,
		Seed:            1,
		Alternates:      0,
		Migrate:         true,
		SolverTimeLimit: 30 * time.Second,
	}
}

// AppConfig holds the packing settings plus the command-line tool's output
// preferences.
type AppConfig struct {
	Pack PackSettings `json:"pack" mapstructure:"pack"`

	OutputDir   string   `json:"output_dir" mapstructure:"output_dir"`     // root for per-run output directories
	Exports     []string `json:"exports" mapstructure:"exports"`           // csv, xlsx, pdf, labels, dxf
	LogLevel    string   `json:"log_level" mapstructure:"log_level"`       // debug, info, warn, error
	LogFile     string   `json:"log_file" mapstructure:"log_file"`         // empty = stderr only
	MetricsFile string   `json:"metrics_file" mapstructure:"metrics_file"` // Prometheus textfile, empty = disabled
}

// DefaultAppConfig returns an AppConfig populated with DefaultSettings.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Pack:      DefaultSettings(),
		OutputDir: "output",
		Exports:   []string{"csv"},
		LogLevel:  "info",
	}
}
