package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"golang.org/x/sync/errgroup"
)

// HealthReport is the outcome of checking one identity.
type HealthReport struct {
	ProviderID string
	Capability provider.Capability // the capability whose instance was checked
	Result     provider.HealthResult
	Status     HealthStatus
	RetryCount int
	Evicted    bool
}

// PerformHealthChecks checks every registered identity once. Health is
// tracked per identity: the instance of its first capability in canonical
// order stands in for all of them. A failure increments the retry count and
// marks the identity unhealthy; once the count reaches the identity's
// maximum, its cached instances are evicted on every further failure. The
// registration itself is never removed. Failures never escape as errors.
func (r *Registry) PerformHealthChecks(ctx context.Context) []HealthReport {
	ids := r.Providers()
	reports := make([]HealthReport, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.HealthCheckConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			reports[i] = r.checkProvider(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	r.stats.recordHealthRun(r.now())

	out := reports[:0]
	for _, rep := range reports {
		if rep.ProviderID != "" {
			out = append(out, rep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}

func (r *Registry) checkProvider(ctx context.Context, id string) HealthReport {
	caps := r.factory.ProviderCapabilities(id)
	cfg, gen, ok := r.configSnapshot(id)
	if len(caps) == 0 || !ok {
		return HealthReport{}
	}
	capability := caps[0]
	logger := r.logger.With(log.String("provider", id), log.String("capability", string(capability)))

	result := r.checkInstance(ctx, id, capability, cfg, gen)
	r.stats.recordHealthCheck(result.ResponseTime, result.Healthy)

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return HealthReport{}
	}
	previous := e.health
	e.lastHealthCheck = result.Timestamp
	if result.Healthy {
		e.health = HealthHealthy
		e.retryCount = 0
	} else {
		e.health = HealthUnhealthy
		e.retryCount++
	}
	report := HealthReport{
		ProviderID: id,
		Capability: capability,
		Result:     result,
		Status:     e.health,
		RetryCount: e.retryCount,
		Evicted:    !result.Healthy && e.retryCount >= e.maxRetries,
	}
	maxRetries := e.maxRetries
	r.mu.Unlock()

	if previous != report.Status {
		logger.Info("provider health changed",
			log.String("from", string(previous)),
			log.String("to", string(report.Status)))
	}
	if result.Healthy {
		return report
	}

	r.factory.RecordInstanceError(id, capability, errors.New(result.Error))
	logger.Warn("provider health check failed",
		log.String("error", result.Error),
		log.Int("retry_count", report.RetryCount),
		log.Int("max_retries", maxRetries))

	if report.Evicted {
		evicted := r.factory.RemoveProviderInstances(id)
		logger.Warn("evicting instances of failing provider",
			log.Int("retry_count", report.RetryCount),
			log.Int("evicted", evicted))
	}
	return report
}

// checkInstance obtains an instance and runs its health check under the
// configured timeout. Construction failures and panics count as unhealthy.
// Checks do not count as accesses, so an instance only the monitor uses still
// goes stale.
func (r *Registry) checkInstance(ctx context.Context, id string, capability provider.Capability, cfg provider.ProviderConfig, gen uint64) provider.HealthResult {
	start := time.Now()
	fail := func(msg string) provider.HealthResult {
		return provider.HealthResult{
			Healthy:      false,
			ResponseTime: time.Since(start),
			Error:        msg,
			Timestamp:    time.Now(),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.cfg.HealthCheckTimeout)
	defer cancel()

	inst, _, err := r.factory.getOrCreate(checkCtx, id, capability, cfg, gen, false)
	if err != nil {
		return fail("provider instance unavailable")
	}

	result, err := provider.ExecuteWithTimeout(checkCtx, r.cfg.HealthCheckTimeout, id+" health check timed out",
		func(ctx context.Context) (res provider.HealthResult, err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("health check panicked: %v", p)
				}
			}()
			return inst.HealthCheck(ctx), nil
		})
	if err != nil {
		return fail(err.Error())
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	if result.ResponseTime == 0 {
		result.ResponseTime = time.Since(start)
	}
	if !result.Healthy && result.Error == "" {
		result.Error = "health check reported unhealthy"
	}
	return result
}

// StartHealthMonitoring runs PerformHealthChecks, and stale instance cleanup
// when enabled, on every HealthCheckInterval tick until StopHealthMonitoring
// is called or ctx ends. Calling it while monitoring is running does nothing;
// once ctx has ended monitoring can be started again.
func (r *Registry) StartHealthMonitoring(ctx context.Context) {
	r.monitorMu.Lock()
	defer r.monitorMu.Unlock()
	if r.stop != nil {
		r.logger.Debug("health monitoring already running")
		return
	}

	stop, done := make(chan struct{}), make(chan struct{})
	r.stop, r.done = stop, done
	interval := r.cfg.HealthCheckInterval

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				r.monitorMu.Lock()
				if r.stop == stop {
					r.stop, r.done = nil, nil
				}
				r.monitorMu.Unlock()
				r.logger.Info("health monitoring ended with its context", log.Err(ctx.Err()))
				return
			case <-ticker.C:
				r.PerformHealthChecks(ctx)
				if r.cfg.StaleCleanupEnabled {
					r.factory.CleanupStaleInstances(r.cfg.StaleInstanceMaxAge)
				}
			}
		}
	}()

	r.logger.Info("health monitoring started",
		log.Duration("interval", interval),
		log.Bool("stale_cleanup", r.cfg.StaleCleanupEnabled))
}

// StopHealthMonitoring stops the monitoring loop and waits for an in-flight
// round to finish.
func (r *Registry) StopHealthMonitoring() {
	r.monitorMu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.monitorMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	r.logger.Info("health monitoring stopped")
}

// IsMonitoring reports whether the monitoring loop is running.
func (r *Registry) IsMonitoring() bool {
	r.monitorMu.Lock()
	defer r.monitorMu.Unlock()
	return r.stop != nil
}
