// Package metrics 通过 Prometheus 暴露转换计数与耗时。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess 为成功生成文档的转换所用的 phase 标签值。
const OutcomeSuccess = "success"

type Metrics struct {
	registry *prometheus.Registry

	conversions *prometheus.CounterVec
	duration    prometheus.Histogram
	items       prometheus.Histogram
}

// New 在新的 registry 上注册各采集器，以及 Go 运行时与进程采集器。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boleta58_conversions_total",
			Help: "Conversions by outcome; failures are labelled with the phase that failed.",
		}, []string{"phase"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boleta58_conversion_duration_seconds",
			Help:    "Wall time of a conversion, extraction through rendering.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boleta58_items_per_receipt",
			Help:    "Item rows recovered per converted receipt.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
	m.registry.MustRegister(
		m.conversions,
		m.duration,
		m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordConversion 记录一次转换；只有成功的转换才观测 items。
func (m *Metrics) RecordConversion(phase string, d time.Duration, items int) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(phase).Inc()
	m.duration.Observe(d.Seconds())
	if phase == OutcomeSuccess {
		m.items.Observe(float64(items))
	}
}

// Conversions 返回某个 phase 标签对应的计数器。
func (m *Metrics) Conversions(phase string) prometheus.Counter {
	return m.conversions.WithLabelValues(phase)
}

// Registry 返回采集器所在的 registry。
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 以 Prometheus 文本格式输出 registry。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
