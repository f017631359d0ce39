package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline timings and volumes.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	trials        *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alat",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alat",
			Name:      "trials_total",
			Help:      "Trials processed, by analysis condition.",
		}, []string{"condition"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alat",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.stageDuration, m.trials, m.runs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) addTrials(condition string, n int) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues(condition).Add(float64(n))
}

func (m *Metrics) runDone(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps everything g gathers in the node-exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
