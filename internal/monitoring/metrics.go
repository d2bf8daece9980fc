// Package monitoring exposes prometheus metrics for the disruption engine.
package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cluster-nemesis/internal/nemesis"
)

var (
	once sync.Once

	DisruptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nemesis",
		Name:      "disruptions_total",
		Help:      "Total number of executed disruptions by action and result",
	}, []string{"action", "result"})

	DisruptionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nemesis",
		Name:      "disruption_duration_seconds",
		Help:      "Wall-clock duration of executed disruptions",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	}, []string{"action"})

)

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(DisruptionsTotal)
		prometheus.MustRegister(DisruptionDuration)
	})
}

// NewCycleCounter exposes a scheduler's completed cycle count as a counter.
// Unlike the event-driven collectors above it reads the count on scrape, so
// single-shot disruptions outside the loop do not inflate it.
func NewCycleCounter(count func() uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "nemesis",
		Name:      "cycles_total",
		Help:      "Total number of completed scheduling cycles",
	}, func() float64 { return float64(count()) })
}

// RegisterCycleCounter registers a cycle counter with the default registry.
func RegisterCycleCounter(count func() uint64) {
	prometheus.MustRegister(NewCycleCounter(count))
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds disruption events into the prometheus collectors. It
// implements nemesis.Sink.
type Recorder struct{}

var _ nemesis.Sink = Recorder{}

func NewRecorder() Recorder {
	Register()
	return Recorder{}
}

func (Recorder) Record(event nemesis.Event) {
	result := "success"
	if event.Err != nil {
		result = "failure"
	}
	DisruptionsTotal.WithLabelValues(event.Action, result).Inc()
	DisruptionDuration.WithLabelValues(event.Action).Observe(event.Duration.Seconds())
}
