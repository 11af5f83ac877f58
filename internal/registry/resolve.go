package registry

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/google/uuid"
)

// Result is one resolved provider instance.
type Result struct {
	Provider     provider.Instance
	ProviderID   string
	Capability   provider.Capability
	ResponseTime time.Duration
	FromCache    bool
	ResolutionID string
}

type candidate struct {
	id         string
	config     provider.ProviderConfig
	generation uint64
}

// candidates applies the filters of o to the providers registered for
// capability and returns them sorted and truncated.
func (r *Registry) candidates(capability provider.Capability, o ResolveOptions) []candidate {
	ids := r.factory.ProvidersForCapability(capability)

	r.mu.RLock()
	out := make([]candidate, 0, len(ids))
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		if o.EnabledOnly && !e.config.Enabled {
			continue
		}
		if o.HealthyOnly && e.health == HealthUnhealthy {
			continue
		}
		if slices.Contains(o.Exclude, id) {
			continue
		}
		if len(o.Include) > 0 && !slices.Contains(o.Include, id) {
			continue
		}
		out = append(out, candidate{id: id, config: e.config.Clone(), generation: r.factory.generation(id)})
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if o.PriorityOrder == Descending {
			return out[i].config.Priority > out[j].config.Priority
		}
		return out[i].config.Priority < out[j].config.Priority
	})

	if o.MaxProviders > 0 && len(out) > o.MaxProviders {
		out = out[:o.MaxProviders]
	}
	return out
}

// ResolveMultipleCapabilities returns instances of every eligible provider for
// capability, in priority order. Candidates are constructed concurrently
// under one batch deadline. A candidate that fails is logged and left out; if
// the deadline passes before every candidate finishes, the result is empty.
func (r *Registry) ResolveMultipleCapabilities(ctx context.Context, capability provider.Capability, opts ...ResolveOption) []Result {
	if !capability.Valid() {
		r.logger.Warn("resolve requested for unknown capability", log.String("capability", string(capability)))
		return []Result{}
	}

	o := r.resolveOptions(opts)
	resolutionID := uuid.NewString()
	logger := r.logger.With(
		log.String("capability", string(capability)),
		log.String("resolution_id", resolutionID))
	if len(o.Hints) > 0 {
		logger.Debug("resolution hints", log.Any("hints", o.Hints))
	}

	start := time.Now()
	cands := r.candidates(capability, o)
	if len(cands) == 0 {
		logger.Debug("no eligible providers")
		r.stats.recordResolution(time.Since(start), 0, false)
		return []Result{}
	}

	batchCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	slots := make([]*Result, len(cands))
	var wg sync.WaitGroup
	for i, c := range cands {
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()
			began := time.Now()
			inst, fromCache, err := r.factory.getOrCreate(batchCtx, c.id, capability, c.config, c.generation, true)
			if err != nil {
				if batchCtx.Err() == nil {
					logger.Warn("provider resolution failed", log.String("provider", c.id), log.Err(err))
					r.factory.RecordInstanceError(c.id, capability, err)
				}
				return
			}
			slots[i] = &Result{
				Provider:     inst,
				ProviderID:   c.id,
				Capability:   capability,
				ResponseTime: time.Since(began),
				FromCache:    fromCache,
				ResolutionID: resolutionID,
			}
		}(i, c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
		// Completion and deadline can race; prefer the finished batch.
		select {
		case <-done:
		default:
			logger.Warn("provider resolution timed out",
				log.Duration("timeout", o.Timeout),
				log.Int("candidates", len(cands)))
			r.stats.recordResolution(time.Since(start), 0, true)
			return []Result{}
		}
	}

	results := make([]Result, 0, len(cands))
	for _, res := range slots {
		if res != nil {
			results = append(results, *res)
		}
	}

	elapsed := time.Since(start)
	r.stats.recordResolution(elapsed, len(results), false)
	logger.Debug("resolved providers",
		log.Int("candidates", len(cands)),
		log.Int("resolved", len(results)),
		log.Duration("duration", elapsed))
	return results
}

// ResolveCapability returns the top-ranked provider for capability, or nil
// when none resolved.
func (r *Registry) ResolveCapability(ctx context.Context, capability provider.Capability, opts ...ResolveOption) *Result {
	results := r.ResolveMultipleCapabilities(ctx, capability, append(slices.Clone(opts), WithMaxProviders(1))...)
	if len(results) == 0 {
		return nil
	}
	return &results[0]
}

// Resolve resolves capability and returns the instance as T, typically the
// capability's interface such as provider.MetadataProvider.
func Resolve[T provider.Instance](ctx context.Context, r *Registry, capability provider.Capability, opts ...ResolveOption) (T, bool) {
	var zero T
	res := r.ResolveCapability(ctx, capability, opts...)
	if res == nil {
		return zero, false
	}
	inst, ok := res.Provider.(T)
	return inst, ok
}

// ResolveAll is Resolve for every eligible provider, keeping priority order.
func ResolveAll[T provider.Instance](ctx context.Context, r *Registry, capability provider.Capability, opts ...ResolveOption) []T {
	results := r.ResolveMultipleCapabilities(ctx, capability, opts...)
	out := make([]T, 0, len(results))
	for _, res := range results {
		if inst, ok := res.Provider.(T); ok {
			out = append(out, inst)
		}
	}
	return out
}
