package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sense"

// Metrics counts what happens to the settings record. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	loads         *prometheus.CounterVec
	faults        *prometheus.CounterVec
	applies       *prometheus.CounterVec
	applyDuration prometheus.Histogram
	pushes        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		loads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_loads_total",
			Help:      "Settings load outcomes at boot, by final state",
		}, []string{"state"}),
		faults: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_faults_total",
			Help:      "Settings faults signalled on the status LED, by fault code",
		}, []string{"code"}),
		applies: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_applies_total",
			Help:      "Settings apply requests, by result",
		}, []string{"result"}),
		applyDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settings_apply_duration_seconds",
			Help:      "Time from candidate validation to commit",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		pushes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_field_pushes_total",
			Help:      "Capture fields pushed to the camera driver, by field and result",
		}, []string{"field", "result"}),
	}
}

func (m *Metrics) ObserveLoad(state string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveFault(code int) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveApply(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.applies.WithLabelValues(result).Inc()
	m.applyDuration.Observe(took.Seconds())
}

func (m *Metrics) ObservePush(field string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.pushes.WithLabelValues(field, result).Inc()
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
