package registry

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
)

// HealthStatus is the identity-level health of a provider.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// entry is the registry's runtime record for one provider identity.
type entry struct {
	config          provider.ProviderConfig
	health          HealthStatus
	lastHealthCheck time.Time
	retryCount      int
	maxRetries      int
	registeredAt    time.Time
}

// ProviderHealth is a snapshot of an identity's health bookkeeping.
type ProviderHealth struct {
	Status       HealthStatus
	LastCheck    time.Time
	RetryCount   int
	MaxRetries   int
	RegisteredAt time.Time
}

// ProviderStatus combines configuration with live cache and health state.
type ProviderStatus struct {
	ProviderID string
	Config     provider.ProviderConfig
	Health     HealthStatus
	Healthy    bool
	Cached     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory makes the registry use f instead of creating its own Factory.
func WithFactory(f *Factory) Option {
	return func(r *Registry) {
		if f != nil {
			r.factory = f
		}
	}
}

// Registry owns per-provider configuration and health, and resolves
// capabilities to provider instances through its Factory.
type Registry struct {
	cfg     Config
	logger  log.Logger
	factory *Factory
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry

	stats counters

	monitorMu sync.Mutex
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Registry. Zero fields of cfg take their defaults.
func New(cfg Config, logger log.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	r := &Registry{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = NewFactory(logger)
	}
	r.now = r.factory.now
	return r
}

// Factory returns the underlying constructor registry.
func (r *Registry) Factory() *Factory { return r.factory }

// Config returns the effective registry configuration.
func (r *Registry) Config() Config { return r.cfg }

func normalizeIdentity(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidIdentity
	}
	return id, nil
}

func (r *Registry) prepareConfig(id string, cfg provider.ProviderConfig) (provider.ProviderConfig, error) {
	if cfg.ID == "" {
		cfg.ID = id
	}
	if cfg.ID != id {
		return cfg, fmt.Errorf("config id %q does not match provider %q", cfg.ID, id)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg.Clone(), nil
}

// RegisterProvider registers constructor for (id, capability) and stores cfg
// as the identity's configuration.
func (r *Registry) RegisterProvider(id string, capability provider.Capability, constructor provider.Constructor, cfg provider.ProviderConfig) error {
	return r.RegisterProviderWithCapabilities(id, map[provider.Capability]provider.Constructor{capability: constructor}, cfg)
}

// RegisterProviderWithCapabilities registers several capabilities for one
// identity. The entry is created with unknown health on first registration;
// later registrations replace the configuration and keep health state. A
// changed configuration evicts the identity's cached instances.
func (r *Registry) RegisterProviderWithCapabilities(id string, constructors map[provider.Capability]provider.Constructor, cfg provider.ProviderConfig) error {
	id, err := normalizeIdentity(id)
	if err != nil {
		return err
	}
	if len(constructors) == 0 {
		return ErrNoConstructor
	}
	for capability, ctor := range constructors {
		if !capability.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCapability, capability)
		}
		if ctor == nil {
			return fmt.Errorf("%w for %s/%s", ErrNoConstructor, id, capability)
		}
	}
	cfg, err = r.prepareConfig(id, cfg)
	if err != nil {
		return err
	}

	if err := r.factory.RegisterProviderCapabilities(id, constructors); err != nil {
		return err
	}

	r.mu.Lock()
	e, exists := r.entries[id]
	changed := false
	if exists {
		changed = !reflect.DeepEqual(e.config, cfg)
		e.config = cfg
	} else {
		r.entries[id] = &entry{
			config:       cfg,
			health:       HealthUnknown,
			maxRetries:   r.cfg.MaxRetries,
			registeredAt: r.now(),
		}
	}
	r.mu.Unlock()

	if changed {
		r.factory.RemoveProviderInstances(id)
	}

	caps := sortedCapabilities(constructors)
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	r.logger.Info("registered provider",
		log.String("provider", id),
		log.Strings("capabilities", names),
		log.Int("priority", cfg.Priority),
		log.Bool("enabled", cfg.Enabled))
	return nil
}

// UnregisterProvider removes one capability of id. The identity's entry is
// dropped once its last capability is gone.
func (r *Registry) UnregisterProvider(id string, capability provider.Capability) bool {
	if !r.factory.UnregisterProvider(id, capability) {
		return false
	}
	if len(r.factory.ProviderCapabilities(id)) == 0 {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
	}
	return true
}

// UnregisterProviderAll removes every capability and the entry of id.
func (r *Registry) UnregisterProviderAll(id string) int {
	removed := r.factory.UnregisterProviderAllCapabilities(id)
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	return removed
}

// UpdateProviderConfig applies update to the stored configuration of id and
// evicts every cached instance of id. The identity itself cannot change.
func (r *Registry) UpdateProviderConfig(id string, update provider.ConfigUpdate) error {
	id, err := normalizeIdentity(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	next := update.Apply(e.config)
	next.ID = id
	if err := next.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}
	e.config = next
	r.mu.Unlock()

	evicted := r.factory.RemoveProviderInstances(id)
	r.logger.Info("updated provider config",
		log.String("provider", id),
		log.Bool("enabled", next.Enabled),
		log.Int("priority", next.Priority),
		log.Int("evicted", evicted))
	return nil
}

// ProviderConfig returns a copy of the stored configuration of id.
func (r *Registry) ProviderConfig(id string) (provider.ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return provider.ProviderConfig{}, false
	}
	return e.config.Clone(), true
}

// configSnapshot returns the configuration of id together with the eviction
// generation it was current at. Config changes are stored before the evictions
// they trigger, so an instance built from an outdated config is never cached.
func (r *Registry) configSnapshot(id string) (provider.ProviderConfig, uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return provider.ProviderConfig{}, 0, false
	}
	return e.config.Clone(), r.factory.generation(id), true
}

// ProviderHealth returns the health bookkeeping of id.
func (r *Registry) ProviderHealth(id string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return ProviderHealth{}, false
	}
	return ProviderHealth{
		Status:       e.health,
		LastCheck:    e.lastHealthCheck,
		RetryCount:   e.retryCount,
		MaxRetries:   e.maxRetries,
		RegisteredAt: e.registeredAt,
	}, true
}

// ProvidersForCapability describes every configured provider registered for
// capability, in registration order.
func (r *Registry) ProvidersForCapability(capability provider.Capability) []ProviderStatus {
	ids := r.factory.ProvidersForCapability(capability)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(ids))
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		out = append(out, ProviderStatus{
			ProviderID: id,
			Config:     e.config.Clone(),
			Health:     e.health,
			Healthy:    e.health == HealthHealthy,
			Cached:     r.factory.GetCachedInstance(id, capability) != nil,
		})
	}
	return out
}

// AvailableCapabilities lists the capabilities of id in canonical order. It
// returns an empty list for malformed or unknown identities.
func (r *Registry) AvailableCapabilities(id string) []provider.Capability {
	normalized, err := normalizeIdentity(id)
	if err != nil {
		r.logger.Warn("invalid provider identity", log.String("provider", id))
		return []provider.Capability{}
	}

	r.mu.RLock()
	_, ok := r.entries[normalized]
	r.mu.RUnlock()
	if !ok {
		r.logger.Debug("capabilities requested for unknown provider", log.String("provider", normalized))
		return []provider.Capability{}
	}
	return r.factory.ProviderCapabilities(normalized)
}

// Providers lists every configured identity ordered by first registration.
func (r *Registry) Providers() []string {
	registered := r.factory.RegisteredProviders()

	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(registered))
	for _, id := range registered {
		if _, ok := r.entries[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown stops health monitoring and clears the instance cache and every
// stored configuration.
func (r *Registry) Shutdown() {
	r.StopHealthMonitoring()
	cleared := r.factory.ClearAllInstances()

	r.mu.Lock()
	providers := len(r.entries)
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	r.logger.Info("registry shut down",
		log.Int("providers", providers),
		log.Int("instances", cleared))
}

// Reset clears the instance cache and zeroes counters and health state while
// keeping registrations.
func (r *Registry) Reset() {
	r.factory.ClearAllInstances()
	r.factory.resetCounters()

	r.mu.Lock()
	for _, e := range r.entries {
		e.health = HealthUnknown
		e.retryCount = 0
		e.lastHealthCheck = time.Time{}
	}
	r.mu.Unlock()

	r.stats.reset()
}
