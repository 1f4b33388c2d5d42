package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/Palletizer/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.PackSettings
}

// ComparisonResult holds the packing result and computed statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario      ComparisonScenario
	Result        model.PackResult
	PalletsUsed   int
	LayersUsed    int
	Density       float64
	UnplacedCount int
	Err           error
}

// CompareScenarios packs the same boxes under each scenario and returns the
// results in scenario order. This enables side-by-side comparison of
// different engine parameters (e.g., mode, stack height, migration).
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, boxes map[string]model.Box, opts ...Option) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		pb := NewPalletBuilder(scenario.Settings, opts...)
		result, err := pb.Build(ctx, boxes)

		layers := 0
		for _, p := range result.Pallets {
			layers += len(p.Layers)
		}

		results = append(results, ComparisonResult{
			Scenario:      scenario,
			Result:        result,
			PalletsUsed:   len(result.Pallets),
			LayersUsed:    layers,
			Density:       result.TotalDensity(),
			UnplacedCount: len(result.Unplaced),
			Err:           err,
		})
		if ctx.Err() != nil {
			break
		}
	}

	return results
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current settings, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(base model.PackSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: base,
		},
	}

	// Scenario: the other placement mode
	alt := base
	if base.Mode == model.ModeDirect {
		alt.Mode = model.ModeLayered
		scenarios = append(scenarios, ComparisonScenario{Name: "Layered", Settings: alt})
	} else {
		alt.Mode = model.ModeDirect
		scenarios = append(scenarios, ComparisonScenario{Name: "Direct 3D", Settings: alt})
	}

	if base.Mode != model.ModeDirect {
		// Scenario: toggle migration
		toggled := base
		toggled.Migrate = !base.Migrate
		name := "No Migration"
		if toggled.Migrate {
			name = "With Migration"
		}
		scenarios = append(scenarios, ComparisonScenario{Name: name, Settings: toggled})

		// Scenario: alternates give the set cover real choices
		if base.Alternates == 0 {
			withAlt := base
			withAlt.Alternates = 2
			scenarios = append(scenarios, ComparisonScenario{Name: "2 Alternate Layers", Settings: withAlt})
		}
	}

	// Scenario: full pallet height as stack budget
	if base.EffectiveStackHeight() < base.PalletHeight {
		full := base
		full.StackHeight = base.PalletHeight
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Stack %dmm (full height)", full.StackHeight),
			Settings: full,
		})
	}

	return scenarios
}
