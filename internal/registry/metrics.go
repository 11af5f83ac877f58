package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "metahub"

// Collector exports registry statistics as Prometheus metrics. Values are read
// from Statistics on every scrape.
type Collector struct {
	registry *Registry

	providers       *prometheus.Desc
	registrations   *prometheus.Desc
	instances       *prometheus.Desc
	resolutions     *prometheus.Desc
	resolutionTime  *prometheus.Desc
	healthChecks    *prometheus.Desc
	healthCheckTime *prometheus.Desc
	cacheLookups    *prometheus.Desc
	providerHealthy *prometheus.Desc
}

// NewCollector returns a collector bound to r.
func NewCollector(r *Registry) *Collector {
	return &Collector{
		registry: r,
		providers: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "providers"),
			"Configured providers by health status.",
			[]string{"status"}, nil),
		registrations: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "registrations"),
			"Registered constructors by capability.",
			[]string{"capability"}, nil),
		instances: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "cached_instances"),
			"Cached provider instances by capability.",
			[]string{"capability"}, nil),
		resolutions: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "resolutions_total"),
			"Capability resolutions by outcome.",
			[]string{"outcome"}, nil),
		resolutionTime: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "resolution_seconds_avg"),
			"Running average resolution latency.",
			nil, nil),
		healthChecks: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "health_checks_total"),
			"Provider health checks by outcome.",
			[]string{"outcome"}, nil),
		healthCheckTime: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "health_check_seconds_avg"),
			"Running average health check latency.",
			nil, nil),
		cacheLookups: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "registry", "cache_lookups_total"),
			"Instance cache lookups by result.",
			[]string{"result"}, nil),
		providerHealthy: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "provider", "healthy"),
			"1 when the provider passed its last health check.",
			[]string{"provider"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.providers
	ch <- c.registrations
	ch <- c.instances
	ch <- c.resolutions
	ch <- c.resolutionTime
	ch <- c.healthChecks
	ch <- c.healthCheckTime
	ch <- c.cacheLookups
	ch <- c.providerHealthy
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.registry.Statistics()

	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}
	counter := func(desc *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(c.providers, float64(stats.HealthyProviders), string(HealthHealthy))
	gauge(c.providers, float64(stats.UnhealthyProviders), string(HealthUnhealthy))
	gauge(c.providers, float64(stats.UnknownProviders), string(HealthUnknown))

	for capability, n := range stats.Factory.RegistrationsByCapability {
		gauge(c.registrations, float64(n), string(capability))
	}
	for capability, n := range stats.Factory.InstancesByCapability {
		gauge(c.instances, float64(n), string(capability))
	}

	counter(c.resolutions, stats.ResolutionSuccesses, "success")
	counter(c.resolutions, stats.ResolutionFailures-stats.ResolutionTimeouts, "empty")
	counter(c.resolutions, stats.ResolutionTimeouts, "timeout")
	gauge(c.resolutionTime, stats.AverageResolutionTime.Seconds())

	counter(c.healthChecks, stats.HealthChecks-stats.HealthCheckFailures, "healthy")
	counter(c.healthChecks, stats.HealthCheckFailures, "unhealthy")
	gauge(c.healthCheckTime, stats.AverageHealthCheckTime.Seconds())

	counter(c.cacheLookups, stats.Factory.CacheHits, "hit")
	counter(c.cacheLookups, stats.Factory.CacheMisses, "miss")

	for _, id := range c.registry.Providers() {
		h, ok := c.registry.ProviderHealth(id)
		if !ok {
			continue
		}
		v := 0.0
		if h.Status == HealthHealthy {
			v = 1
		}
		gauge(c.providerHealthy, v, id)
	}
}
