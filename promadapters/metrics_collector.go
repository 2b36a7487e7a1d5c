// Package promadapters provides a Prometheus-backed implementation of the
// circulation metrics interface.
package promadapters

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/libradesk/circulation-go/circulation"
)

// MetricsCollector implements circulation.MetricsCollector on the Prometheus
// client library. Collectors are created on first use and registered with
// the configured Registerer.
//
// Prometheus requires a fixed label set per metric name: the label keys of
// the first observation define the vector, and later observations must use
// the same keys or they are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a collector registering with the given
// Registerer, typically prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes a duration in seconds into a histogram.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.histogram(metricName, labelKeys(labels))
	if histogram == nil {
		return
	}

	observer, err := histogram.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	observer.Observe(duration.Seconds())
}

// IncrementCounter increments a monotonic counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.counter(metricName, labelKeys(labels))
	if counter == nil {
		return
	}

	metricWith, err := counter.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	metricWith.Inc()
}

// RecordValue sets a gauge to the given value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	gauge := m.gauge(metricName, labelKeys(labels))
	if gauge == nil {
		return
	}

	metricWith, err := gauge.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	metricWith.Set(value)
}

func (m *MetricsCollector) histogram(name string, keys []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "circulation operation duration",
		Buckets: prometheus.DefBuckets,
	}, keys)

	if err := m.registerer.Register(histogram); err != nil {
		return nil
	}

	m.histograms[name] = histogram

	return histogram
}

func (m *MetricsCollector) counter(name string, keys []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "circulation operation counter",
	}, keys)

	if err := m.registerer.Register(counter); err != nil {
		return nil
	}

	m.counters[name] = counter

	return counter
}

func (m *MetricsCollector) gauge(name string, keys []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "circulation current value",
	}, keys)

	if err := m.registerer.Register(gauge); err != nil {
		return nil
	}

	m.gauges[name] = gauge

	return gauge
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

var _ circulation.MetricsCollector = (*MetricsCollector)(nil)
