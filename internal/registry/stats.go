package registry

import (
	"sync"
	"time"
)

// counters accumulates resolution and health-check activity.
type counters struct {
	mu sync.Mutex

	resolutions        int64
	resolutionSuccess  int64
	resolutionFailures int64
	resolutionTimeouts int64
	avgResolution      time.Duration

	healthChecks       int64
	healthFailures     int64
	avgHealthCheck     time.Duration
	lastHealthCheckRun time.Time
}

// runningAverage folds sample into avg, which currently averages n-1 samples.
func runningAverage(avg time.Duration, n int64, sample time.Duration) time.Duration {
	if n <= 1 {
		return sample
	}
	return avg + (sample-avg)/time.Duration(n)
}

func (c *counters) recordResolution(elapsed time.Duration, resolved int, timedOut bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutions++
	switch {
	case timedOut:
		c.resolutionTimeouts++
		c.resolutionFailures++
	case resolved == 0:
		c.resolutionFailures++
	default:
		c.resolutionSuccess++
	}
	c.avgResolution = runningAverage(c.avgResolution, c.resolutions, elapsed)
}

func (c *counters) recordHealthCheck(elapsed time.Duration, healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthChecks++
	if !healthy {
		c.healthFailures++
	}
	c.avgHealthCheck = runningAverage(c.avgHealthCheck, c.healthChecks, elapsed)
}

func (c *counters) recordHealthRun(at time.Time) {
	c.mu.Lock()
	c.lastHealthCheckRun = at
	c.mu.Unlock()
}

func (c *counters) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutions, c.resolutionSuccess, c.resolutionFailures, c.resolutionTimeouts = 0, 0, 0, 0
	c.avgResolution = 0
	c.healthChecks, c.healthFailures = 0, 0
	c.avgHealthCheck = 0
	c.lastHealthCheckRun = time.Time{}
}

// Statistics merges factory counts with registry health and latency figures.
type Statistics struct {
	Factory FactoryStatistics

	TotalProviders     int
	ActiveProviders    int // enabled
	HealthyProviders   int
	UnhealthyProviders int
	UnknownProviders   int

	Resolutions           int64
	ResolutionSuccesses   int64
	ResolutionFailures    int64
	ResolutionTimeouts    int64
	AverageResolutionTime time.Duration

	HealthChecks           int64
	HealthCheckFailures    int64
	AverageHealthCheckTime time.Duration
	LastHealthCheckRun     time.Time

	Monitoring bool
}

// Statistics returns a point-in-time snapshot.
func (r *Registry) Statistics() Statistics {
	stats := Statistics{Factory: r.factory.Statistics()}

	r.mu.RLock()
	for _, e := range r.entries {
		stats.TotalProviders++
		if e.config.Enabled {
			stats.ActiveProviders++
		}
		switch e.health {
		case HealthHealthy:
			stats.HealthyProviders++
		case HealthUnhealthy:
			stats.UnhealthyProviders++
		default:
			stats.UnknownProviders++
		}
	}
	r.mu.RUnlock()

	r.stats.mu.Lock()
	stats.Resolutions = r.stats.resolutions
	stats.ResolutionSuccesses = r.stats.resolutionSuccess
	stats.ResolutionFailures = r.stats.resolutionFailures
	stats.ResolutionTimeouts = r.stats.resolutionTimeouts
	stats.AverageResolutionTime = r.stats.avgResolution
	stats.HealthChecks = r.stats.healthChecks
	stats.HealthCheckFailures = r.stats.healthFailures
	stats.AverageHealthCheckTime = r.stats.avgHealthCheck
	stats.LastHealthCheckRun = r.stats.lastHealthCheckRun
	r.stats.mu.Unlock()

	stats.Monitoring = r.IsMonitoring()
	return stats
}
