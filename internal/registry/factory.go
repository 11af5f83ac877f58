package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
)

// instanceKey identifies one (provider, capability) pair in both the
// constructor table and the instance cache.
type instanceKey struct {
	providerID string
	capability provider.Capability
}

type registration struct {
	constructor provider.Constructor
	seq         uint64
}

// cacheEntry wraps a constructed instance with usage counters.
type cacheEntry struct {
	instance  provider.Instance
	createdAt time.Time

	accessCount  atomic.Int64
	lastAccessed atomic.Int64 // unix nanoseconds
	errorCount   atomic.Int64

	errMu     sync.Mutex
	lastError error
}

func (e *cacheEntry) touch(now time.Time) {
	e.accessCount.Add(1)
	e.lastAccessed.Store(now.UnixNano())
}

// InstanceInfo is a read-only snapshot of a cached instance's counters.
type InstanceInfo struct {
	ProviderID   string
	Capability   provider.Capability
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	ErrorCount   int64
	LastError    string
}

// FactoryStatistics aggregates the constructor table and instance cache.
type FactoryStatistics struct {
	TotalRegistrations        int
	TotalInstances            int
	RegistrationsByCapability map[provider.Capability]int
	InstancesByCapability     map[provider.Capability]int
	RegistrationsByProvider   map[string]int
	InstancesByProvider       map[string]int

	Constructions        int64
	ConstructionFailures int64
	CacheHits            int64
	CacheMisses          int64
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClock replaces time.Now, used for access timestamps and stale cleanup.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// Factory maps (provider, capability) pairs to constructors and caches the
// instances they build. A capability is supported by a provider exactly when a
// constructor is registered for the pair.
type Factory struct {
	logger log.Logger
	now    func() time.Time

	// mu guards constructors, seq and the eviction generations. Storing into
	// instances also happens under mu so that eviction and cache population
	// cannot interleave.
	mu           sync.RWMutex
	constructors map[instanceKey]registration
	seq          uint64
	generations  map[string]uint64
	clears       uint64

	instances *csmap.CsMap[instanceKey, *cacheEntry]

	constructions        atomic.Int64
	constructionFailures atomic.Int64
	cacheHits            atomic.Int64
	cacheMisses          atomic.Int64
}

// NewFactory creates an empty Factory.
func NewFactory(logger log.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = log.Nop()
	}
	f := &Factory{
		logger:       logger,
		now:          time.Now,
		constructors: make(map[instanceKey]registration),
		generations:  make(map[string]uint64),
		instances:    csmap.Create[instanceKey, *cacheEntry](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterProvider stores constructor for (providerID, capability). An existing
// constructor for the pair is replaced and the replacement logged as a warning;
// its cached instance is evicted so the new constructor is used next time.
func (f *Factory) RegisterProvider(providerID string, capability provider.Capability, constructor provider.Constructor) error {
	if providerID == "" {
		return ErrInvalidIdentity
	}
	if !capability.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, capability)
	}
	if constructor == nil {
		return ErrNoConstructor
	}

	key := instanceKey{providerID, capability}

	f.mu.Lock()
	prev, exists := f.constructors[key]
	seq := prev.seq
	if !exists {
		f.seq++
		seq = f.seq
	}
	f.constructors[key] = registration{constructor: constructor, seq: seq}
	if exists {
		f.generations[providerID]++
		f.instances.Delete(key)
	}
	f.mu.Unlock()

	if exists {
		f.logger.Warn("overwriting provider constructor",
			log.String("provider", providerID),
			log.String("capability", string(capability)))
		return nil
	}
	f.logger.Debug("registered provider constructor",
		log.String("provider", providerID),
		log.String("capability", string(capability)))
	return nil
}

// RegisterProviderCapabilities registers several capabilities for one
// provider. Capabilities are registered in canonical order; the first invalid
// entry aborts the rest.
func (f *Factory) RegisterProviderCapabilities(providerID string, constructors map[provider.Capability]provider.Constructor) error {
	for _, capability := range sortedCapabilities(constructors) {
		if err := f.RegisterProvider(providerID, capability, constructors[capability]); err != nil {
			return fmt.Errorf("register %s/%s: %w", providerID, capability, err)
		}
	}
	return nil
}

// UnregisterProvider removes the constructor for the pair and evicts its cached
// instance. It reports whether a constructor was removed.
func (f *Factory) UnregisterProvider(providerID string, capability provider.Capability) bool {
	key := instanceKey{providerID, capability}

	f.mu.Lock()
	_, exists := f.constructors[key]
	if exists {
		delete(f.constructors, key)
		f.generations[providerID]++
		f.instances.Delete(key)
	}
	f.mu.Unlock()

	if exists {
		f.logger.Info("unregistered provider capability",
			log.String("provider", providerID),
			log.String("capability", string(capability)))
	}
	return exists
}

// UnregisterProviderAllCapabilities removes every capability of providerID and
// returns how many were removed.
func (f *Factory) UnregisterProviderAllCapabilities(providerID string) int {
	removed := 0
	f.mu.Lock()
	for key := range f.constructors {
		if key.providerID != providerID {
			continue
		}
		delete(f.constructors, key)
		f.instances.Delete(key)
		removed++
	}
	if removed > 0 {
		f.generations[providerID]++
	}
	f.mu.Unlock()

	if removed > 0 {
		f.logger.Info("unregistered provider",
			log.String("provider", providerID),
			log.Int("capabilities", removed))
	}
	return removed
}

// generation changes every time instances of providerID are evicted. An
// instance constructed across a change is not cached.
func (f *Factory) generation(providerID string) uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.generationLocked(providerID)
}

func (f *Factory) generationLocked(providerID string) uint64 {
	return f.generations[providerID] + f.clears
}

func (f *Factory) constructor(key instanceKey) (provider.Constructor, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	reg, ok := f.constructors[key]
	return reg.constructor, ok
}

// CreateProvider builds a fresh, uncached instance. Missing constructors,
// construction errors and panics, and instances that do not implement the
// capability are logged and reported as nil.
func (f *Factory) CreateProvider(ctx context.Context, providerID string, capability provider.Capability, cfg provider.ProviderConfig) provider.Instance {
	inst, err := f.create(ctx, providerID, capability, cfg)
	if err != nil {
		return nil
	}
	return inst
}

func (f *Factory) create(ctx context.Context, providerID string, capability provider.Capability, cfg provider.ProviderConfig) (inst provider.Instance, err error) {
	logger := f.logger.With(
		log.String("provider", providerID),
		log.String("capability", string(capability)))

	ctor, ok := f.constructor(instanceKey{providerID, capability})
	if !ok {
		logger.Warn("no constructor registered")
		return nil, fmt.Errorf("%w for %s/%s", ErrNoConstructor, providerID, capability)
	}

	f.constructions.Add(1)
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("constructor panicked: %v", r)
		}
		if err != nil {
			f.constructionFailures.Add(1)
			logger.Warn("provider construction failed", log.Err(err))
		}
	}()

	inst, err = ctor(ctx, cfg.Clone(), logger)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("constructor returned no instance")
	}
	if !provider.Implements(capability, inst) {
		return nil, fmt.Errorf("instance %T does not implement %s", inst, capability)
	}
	return inst, nil
}

// GetOrCreateProvider returns the cached instance for the pair, bumping its
// access counters, or constructs and caches a new one. It returns nil when
// construction fails.
func (f *Factory) GetOrCreateProvider(ctx context.Context, providerID string, capability provider.Capability, cfg provider.ProviderConfig) provider.Instance {
	inst, _, err := f.getOrCreate(ctx, providerID, capability, cfg, f.generation(providerID), true)
	if err != nil {
		return nil
	}
	return inst
}

// getOrCreate is GetOrCreateProvider reporting whether the instance came from
// the cache and why construction failed. gen is the eviction generation
// observed when cfg was read. A constructed instance is cached only if ctx is
// still live, the constructor is still registered and no eviction of the
// provider happened since gen. With touch false the access counters of a
// cached instance are left alone.
func (f *Factory) getOrCreate(ctx context.Context, providerID string, capability provider.Capability, cfg provider.ProviderConfig, gen uint64, touch bool) (provider.Instance, bool, error) {
	key := instanceKey{providerID, capability}

	if entry, ok := f.instances.Load(key); ok {
		if touch {
			entry.touch(f.now())
		}
		f.cacheHits.Add(1)
		return entry.instance, true, nil
	}
	f.cacheMisses.Add(1)

	inst, err := f.create(ctx, providerID, capability, cfg)
	if err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		f.logger.Debug("discarding instance constructed after deadline",
			log.String("provider", providerID),
			log.String("capability", string(capability)))
		return nil, false, err
	}
	if _, ok := f.constructors[key]; !ok {
		return nil, false, fmt.Errorf("%w for %s/%s", ErrNoConstructor, providerID, capability)
	}
	if f.generationLocked(providerID) != gen {
		f.logger.Debug("not caching instance built before eviction",
			log.String("provider", providerID),
			log.String("capability", string(capability)))
		return inst, false, nil
	}
	// Another caller may have won the race to construct.
	if existing, ok := f.instances.Load(key); ok {
		if touch {
			existing.touch(f.now())
		}
		return existing.instance, true, nil
	}

	now := f.now()
	entry := &cacheEntry{instance: inst, createdAt: now}
	entry.lastAccessed.Store(now.UnixNano())
	if touch {
		entry.accessCount.Add(1)
	}
	f.instances.Store(key, entry)

	f.logger.Debug("cached provider instance",
		log.String("provider", providerID),
		log.String("capability", string(capability)))
	return inst, false, nil
}

// GetCachedInstance returns the cached instance without constructing one.
func (f *Factory) GetCachedInstance(providerID string, capability provider.Capability) provider.Instance {
	if entry, ok := f.instances.Load(instanceKey{providerID, capability}); ok {
		return entry.instance
	}
	return nil
}

// InstanceInfo returns the counters of the cached instance for the pair.
func (f *Factory) InstanceInfo(providerID string, capability provider.Capability) (InstanceInfo, bool) {
	entry, ok := f.instances.Load(instanceKey{providerID, capability})
	if !ok {
		return InstanceInfo{}, false
	}
	info := InstanceInfo{
		ProviderID:   providerID,
		Capability:   capability,
		CreatedAt:    entry.createdAt,
		LastAccessed: time.Unix(0, entry.lastAccessed.Load()),
		AccessCount:  entry.accessCount.Load(),
		ErrorCount:   entry.errorCount.Load(),
	}
	entry.errMu.Lock()
	if entry.lastError != nil {
		info.LastError = entry.lastError.Error()
	}
	entry.errMu.Unlock()
	return info, true
}

// RemoveInstance evicts the cached instance for the pair. Constructions of
// the provider already in flight will not be cached.
func (f *Factory) RemoveInstance(providerID string, capability provider.Capability) bool {
	key := instanceKey{providerID, capability}

	f.mu.Lock()
	f.generations[providerID]++
	_, ok := f.instances.Load(key)
	if ok {
		f.instances.Delete(key)
	}
	f.mu.Unlock()

	if ok {
		f.logger.Debug("evicted provider instance",
			log.String("provider", providerID),
			log.String("capability", string(capability)))
	}
	return ok
}

// RemoveProviderInstances evicts every cached instance of providerID.
// Constructions of the provider already in flight will not be cached.
func (f *Factory) RemoveProviderInstances(providerID string) int {
	f.mu.Lock()
	f.generations[providerID]++
	keys := f.cachedKeys(func(key instanceKey, _ *cacheEntry) bool {
		return key.providerID == providerID
	})
	for _, key := range keys {
		f.instances.Delete(key)
	}
	f.mu.Unlock()

	if len(keys) > 0 {
		f.logger.Info("evicted provider instances",
			log.String("provider", providerID),
			log.Int("count", len(keys)))
	}
	return len(keys)
}

// ClearAllInstances empties the instance cache. Constructions already in
// flight will not be cached.
func (f *Factory) ClearAllInstances() int {
	f.mu.Lock()
	f.clears++
	keys := f.cachedKeys(func(instanceKey, *cacheEntry) bool { return true })
	for _, key := range keys {
		f.instances.Delete(key)
	}
	f.mu.Unlock()

	if len(keys) > 0 {
		f.logger.Info("cleared provider instance cache", log.Int("count", len(keys)))
	}
	return len(keys)
}

// CleanupStaleInstances evicts every instance not accessed within maxAge and
// returns how many were removed.
func (f *Factory) CleanupStaleInstances(maxAge time.Duration) int {
	cutoff := f.now().Add(-maxAge).UnixNano()
	keys := f.cachedKeys(func(_ instanceKey, entry *cacheEntry) bool {
		return entry.lastAccessed.Load() < cutoff
	})
	for _, key := range keys {
		f.instances.Delete(key)
	}
	if len(keys) > 0 {
		f.logger.Info("removed stale provider instances",
			log.Int("count", len(keys)),
			log.Duration("max_age", maxAge))
	}
	return len(keys)
}

// cachedKeys collects matching keys first; deleting while ranging would
// re-enter the shard lock.
func (f *Factory) cachedKeys(match func(instanceKey, *cacheEntry) bool) []instanceKey {
	var keys []instanceKey
	f.instances.Range(func(key instanceKey, entry *cacheEntry) bool {
		if match(key, entry) {
			keys = append(keys, key)
		}
		return false
	})
	return keys
}

// RecordInstanceError counts a failure against the cached instance for the
// pair. Failures for pairs without a cached instance are only logged.
func (f *Factory) RecordInstanceError(providerID string, capability provider.Capability, err error) {
	entry, ok := f.instances.Load(instanceKey{providerID, capability})
	if !ok {
		f.logger.Debug("error recorded for uncached instance",
			log.String("provider", providerID),
			log.String("capability", string(capability)),
			log.Err(err))
		return
	}
	entry.errorCount.Add(1)
	entry.errMu.Lock()
	entry.lastError = err
	entry.errMu.Unlock()
}

// HasProviderCapability reports whether a constructor is registered for the pair.
func (f *Factory) HasProviderCapability(providerID string, capability provider.Capability) bool {
	_, ok := f.constructor(instanceKey{providerID, capability})
	return ok
}

// ProviderCapabilities lists the capabilities registered for providerID in
// canonical order.
func (f *Factory) ProviderCapabilities(providerID string) []provider.Capability {
	f.mu.RLock()
	defer f.mu.RUnlock()

	caps := []provider.Capability{}
	for _, capability := range provider.AllCapabilities {
		if _, ok := f.constructors[instanceKey{providerID, capability}]; ok {
			caps = append(caps, capability)
		}
	}
	return caps
}

// ProvidersForCapability lists the providers registered for capability in
// registration order.
func (f *Factory) ProvidersForCapability(capability provider.Capability) []string {
	f.mu.RLock()
	type ordered struct {
		id  string
		seq uint64
	}
	var found []ordered
	for key, reg := range f.constructors {
		if key.capability == capability {
			found = append(found, ordered{key.providerID, reg.seq})
		}
	}
	f.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	ids := make([]string, len(found))
	for i, o := range found {
		ids[i] = o.id
	}
	return ids
}

// RegisteredProviders lists every provider with at least one constructor,
// ordered by first registration.
func (f *Factory) RegisteredProviders() []string {
	f.mu.RLock()
	first := make(map[string]uint64)
	for key, reg := range f.constructors {
		if seq, ok := first[key.providerID]; !ok || reg.seq < seq {
			first[key.providerID] = reg.seq
		}
	}
	f.mu.RUnlock()

	ids := make([]string, 0, len(first))
	for id := range first {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return first[ids[i]] < first[ids[j]] })
	return ids
}

// Statistics returns registration and cache counts.
func (f *Factory) Statistics() FactoryStatistics {
	stats := FactoryStatistics{
		RegistrationsByCapability: make(map[provider.Capability]int),
		InstancesByCapability:     make(map[provider.Capability]int),
		RegistrationsByProvider:   make(map[string]int),
		InstancesByProvider:       make(map[string]int),
		Constructions:             f.constructions.Load(),
		ConstructionFailures:      f.constructionFailures.Load(),
		CacheHits:                 f.cacheHits.Load(),
		CacheMisses:               f.cacheMisses.Load(),
	}

	f.mu.RLock()
	for key := range f.constructors {
		stats.TotalRegistrations++
		stats.RegistrationsByCapability[key.capability]++
		stats.RegistrationsByProvider[key.providerID]++
	}
	f.mu.RUnlock()

	f.instances.Range(func(key instanceKey, _ *cacheEntry) bool {
		stats.TotalInstances++
		stats.InstancesByCapability[key.capability]++
		stats.InstancesByProvider[key.providerID]++
		return false
	})
	return stats
}

// resetCounters zeroes the construction and cache counters.
func (f *Factory) resetCounters() {
	f.constructions.Store(0)
	f.constructionFailures.Store(0)
	f.cacheHits.Store(0)
	f.cacheMisses.Store(0)
}

func sortedCapabilities[V any](m map[provider.Capability]V) []provider.Capability {
	caps := make([]provider.Capability, 0, len(m))
	for c := range m {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool {
		oi, oj := caps[i].Ordinal(), caps[j].Ordinal()
		if oi != oj {
			return oi < oj
		}
		return caps[i] < caps[j]
	})
	return caps
}
