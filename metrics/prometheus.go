// Package metrics adapts a Prometheus registry to the
// core.MetricsRecorder contract. Collectors are created lazily per
// metric name and label signature; metric names are normalized to the
// Prometheus charset (dots become underscores).
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-session/core"
)

type PrometheusRecorder struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

type Option func(*PrometheusRecorder)

func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(r *PrometheusRecorder) {
		if registerer != nil {
			r.registerer = registerer
		}
	}
}

func WithNamespace(namespace string) Option {
	return func(r *PrometheusRecorder) {
		r.namespace = namespace
	}
}

func NewPrometheusRecorder(options ...Option) *PrometheusRecorder {
	r := &PrometheusRecorder{
		registerer: prometheus.DefaultRegisterer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *PrometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	labels := labelNames(tags)
	vec := r.counter(normalizeName(name), labels)
	if vec == nil {
		return
	}
	vec.With(labelValues(labels, tags)).Add(float64(value))
}

func (r *PrometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	labels := labelNames(tags)
	vec := r.histogram(normalizeName(name), labels)
	if vec == nil {
		return
	}
	vec.With(labelValues(labels, tags)).Observe(value)
}

func (r *PrometheusRecorder) counter(name string, labels []string) *prometheus.CounterVec {
	key := name + "|" + strings.Join(labels, ",")

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[key]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			vec = already.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil
		}
	}
	r.counters[key] = vec
	return vec
}

func (r *PrometheusRecorder) histogram(name string, labels []string) *prometheus.HistogramVec {
	key := name + "|" + strings.Join(labels, ",")

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[key]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Buckets:   prometheus.DefBuckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			vec = already.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil
		}
	}
	r.histograms[key] = vec
	return vec
}

func labelNames(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, normalizeName(name))
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	normalized := make(map[string]string, len(tags))
	for name, value := range tags {
		normalized[normalizeName(name)] = value
	}
	values := prometheus.Labels{}
	for _, label := range labels {
		values[label] = normalized[label]
	}
	return values
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)
