package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/piwi3910/Palletizer/internal/model"
)

const (
	manifestVersion = "1.0.0"
	manifestFile    = "manifest.json"
	resultFile      = "result.json"
)

// Summary holds the headline numbers of a run.
type Summary struct {
	Boxes    int     `json:"boxes"`
	Placed   int     `json:"placed"`
	Unplaced int     `json:"unplaced"`
	Pallets  int     `json:"pallets"`
	Layers   int     `json:"layers"`
	Density  float64 `json:"density_percent"`
}

// Manifest describes one packing run and the files it produced.
type Manifest struct {
	Version   string             `json:"version"`
	RunID     string             `json:"run_id"`
	CreatedAt string             `json:"created_at"`
	Input     string             `json:"input,omitempty"`
	Settings  model.PackSettings `json:"settings"`
	Summary   Summary            `json:"summary"`
	Files     []string           `json:"files"`
	Error     string             `json:"error,omitempty"`
}

// NewRunID returns a new, time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// RunDir returns the output directory of a run under root.
func RunDir(root, runID string) string {
	return filepath.Join(root, runID)
}

// NewManifest builds the manifest for a finished run. boxes is the number
// of boxes that went into the run.
func NewManifest(input string, boxes int, settings model.PackSettings, res model.PackResult, files []string) Manifest {
	created := time.Now().UTC()
	if id, err := ulid.Parse(res.RunID); err == nil {
		created = ulid.Time(id.Time()).UTC()
	}
	rel := make([]string, len(files))
	for i, f := range files {
		rel[i] = filepath.Base(f)
	}
	return Manifest{
		Version:   manifestVersion,
		RunID:     res.RunID,
		CreatedAt: created.Format(time.RFC3339),
		Input:     input,
		Settings:  settings,
		Summary: Summary{
			Boxes:    boxes,
			Placed:   res.PlacedBoxes(),
			Unplaced: len(res.Unplaced),
			Pallets:  len(res.Pallets),
			Layers:   len(res.Layers),
			Density:  res.TotalDensity(),
		},
		Files: rel,
	}
}

// WriteRun writes manifest.json and result.json into dir.
func WriteRun(dir string, m Manifest, res model.PackResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, resultFile), res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, manifestFile), m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads the manifest of the run stored in dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version == "" {
		return Manifest{}, fmt.Errorf("invalid manifest: missing version field")
	}
	if m.Files == nil {
		m.Files = []string{}
	}
	return m, nil
}

// ReadResult reads the packing result stored in a run directory.
func ReadResult(dir string) (model.PackResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, resultFile))
	if err != nil {
		return model.PackResult{}, fmt.Errorf("failed to read result: %w", err)
	}
	var res model.PackResult
	if err := json.Unmarshal(data, &res); err != nil {
		return model.PackResult{}, fmt.Errorf("failed to parse result: %w", err)
	}
	return res, nil
}

// ListRuns returns the run ids found under root, newest first. Directories
// whose names are not run ids are ignored.
func ListRuns(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	runs := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := ulid.ParseStrict(e.Name()); err != nil {
			continue
		}
		runs = append(runs, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
