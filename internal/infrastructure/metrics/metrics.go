// Package metrics exposes Prometheus collectors for netmap-core: probe
// outcomes, monitor refresh cycles, inventory gauges, discovery scans and
// HTTP traffic.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh cycle and scan outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeCoalesced = "coalesced"
	OutcomeFailed    = "failed"
)

// Collector bundles the service's Prometheus metrics. A nil *Collector
// is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Probes        *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	RefreshCycles *prometheus.CounterVec
	DevicesTotal  prometheus.Gauge
	DevicesOnline prometheus.Gauge
	Scans         *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// NewCollector registers the netmap metrics against reg, defaulting to
// the global registry when nil. Registering twice on the same registry
// returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	probes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netmap_probes_total",
		Help: "Reachability probes, labeled by method and result (online, offline, error).",
	}, []string{"method", "result"}), "netmap_probes_total")
	if err != nil {
		return nil, err
	}

	probeDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netmap_probe_duration_seconds",
		Help:    "Reachability probe latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"}), "netmap_probe_duration_seconds")
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netmap_refresh_cycles_total",
		Help: "Status monitor refresh cycles, labeled by outcome (completed, cancelled, coalesced).",
	}, []string{"outcome"}), "netmap_refresh_cycles_total")
	if err != nil {
		return nil, err
	}

	total, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmap_devices",
		Help: "Devices currently in the inventory.",
	}), "netmap_devices")
	if err != nil {
		return nil, err
	}

	online, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netmap_devices_online",
		Help: "Devices whose last probe found them reachable.",
	}), "netmap_devices_online")
	if err != nil {
		return nil, err
	}

	scans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netmap_discovery_scans_total",
		Help: "Subnet scans, labeled by outcome (completed, failed).",
	}, []string{"outcome"}), "netmap_discovery_scans_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netmap_http_requests_total",
		Help: "HTTP requests, labeled by method, route pattern and status code.",
	}, []string{"method", "route", "code"}), "netmap_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netmap_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"}), "netmap_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Probes:        probes,
		ProbeDuration: probeDuration,
		RefreshCycles: cycles,
		DevicesTotal:  total,
		DevicesOnline: online,
		Scans:         scans,
		HTTPRequests:  requests,
		HTTPDuration:  durations,
	}, nil
}

// ObserveProbe records one probe. err marks a probe that could not run.
func (c *Collector) ObserveProbe(method string, online bool, err error, d time.Duration) {
	if c == nil {
		return
	}
	result := "offline"
	switch {
	case err != nil:
		result = "error"
	case online:
		result = "online"
	}
	if method == "" {
		method = "none"
	}
	c.Probes.WithLabelValues(method, result).Inc()
	c.ProbeDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveRefreshCycle records a monitor cycle outcome.
func (c *Collector) ObserveRefreshCycle(outcome string) {
	if c == nil {
		return
	}
	c.RefreshCycles.WithLabelValues(outcome).Inc()
}

// SetDeviceCounts updates the inventory gauges.
func (c *Collector) SetDeviceCounts(total, online int) {
	if c == nil {
		return
	}
	c.DevicesTotal.Set(float64(total))
	c.DevicesOnline.Set(float64(online))
}

// ObserveScan records a discovery scan outcome.
func (c *Collector) ObserveScan(err error) {
	if c == nil {
		return
	}
	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeFailed
	}
	c.Scans.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the matched route
// pattern, never the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
