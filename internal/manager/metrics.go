package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	modelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wromgpt",
			Subsystem: "model",
			Name:      "loaded",
			Help:      "1 when the model is loaded and serving, 0 otherwise",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wromgpt",
			Subsystem: "model",
			Name:      "generations_total",
			Help:      "Total generations by outcome (ok, error, canceled)",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wromgpt",
			Subsystem: "model",
			Name:      "generation_duration_seconds",
			Help:      "Duration of backend generation calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	generationsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wromgpt",
			Subsystem: "model",
			Name:      "generations_inflight",
			Help:      "Generations currently running in the backend",
		},
	)
)

func init() {
	prometheus.MustRegister(modelLoaded, generationsTotal, generationDuration, generationsInflight)
}
