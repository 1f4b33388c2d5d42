// Package metrics exposes Prometheus collectors for packing runs. A run can
// dump them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piwi3910/Palletizer/internal/model"
)

const namespace = "palletizer"

// Recorder holds the collectors of one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	layers        *prometheus.GaugeVec
	solverRuns    *prometheus.CounterVec
	boxes         *prometheus.CounterVec
	pallets       prometheus.Counter
	density       prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		layers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layers",
			Help:      "Number of layers after each pipeline stage.",
		}, []string{"stage"}),
		solverRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_runs_total",
			Help:      "Integer program solves by problem and outcome.",
		}, []string{"problem", "outcome"}),
		boxes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boxes_total",
			Help:      "Boxes handled, by outcome.",
		}, []string{"outcome"}),
		pallets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pallets_total",
			Help:      "Pallets built.",
		}),
		density: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "density_percent",
			Help:      "Volume usage of the last run across all pallets.",
		}),
	}
	r.registry.MustRegister(r.stageDuration, r.layers, r.solverRuns, r.boxes, r.pallets, r.density)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Stage starts timing a stage; call the returned func when it ends.
func (r *Recorder) Stage(stage string) func() {
	start := time.Now()
	return func() {
		if r != nil {
			r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		}
	}
}

// Layers records how many layers a stage produced.
func (r *Recorder) Layers(stage string, n int) {
	if r != nil {
		r.layers.WithLabelValues(stage).Set(float64(n))
	}
}

// SolverRun counts one integer program solve.
func (r *Recorder) SolverRun(problem, outcome string) {
	if r != nil {
		r.solverRuns.WithLabelValues(problem, outcome).Inc()
	}
}

// Result records the totals of a finished run.
func (r *Recorder) Result(res model.PackResult) {
	if r == nil {
		return
	}
	r.boxes.WithLabelValues("placed").Add(float64(res.PlacedBoxes()))
	r.boxes.WithLabelValues("unplaced").Add(float64(len(res.Unplaced)))
	r.pallets.Add(float64(len(res.Pallets)))
	r.density.Set(res.TotalDensity())
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
