package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/google/go-cmp/cmp"
)

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	r := New(cfg, log.Nop())
	t.Cleanup(r.Shutdown)
	return r
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()

	tests := []struct {
		name       string
		id         string
		capability provider.Capability
		ctor       provider.Constructor
		cfg        provider.ProviderConfig
		wantErr    error
		wantCode   provider.ErrorCode
	}{
		{"blank identity", "   ", provider.CapabilityMetadata, b.constructor(), testConfig("x", 1), ErrInvalidIdentity, ""},
		{"unknown capability", "tmdb", "music", b.constructor(), testConfig("tmdb", 1), ErrUnknownCapability, ""},
		{"nil constructor", "tmdb", provider.CapabilityMetadata, nil, testConfig("tmdb", 1), ErrNoConstructor, ""},
		{"missing name", "tmdb", provider.CapabilityMetadata, b.constructor(), provider.ProviderConfig{ID: "tmdb", Type: "metadata"}, nil, provider.CodeMissingConfig},
		{"negative priority", "tmdb", provider.CapabilityMetadata, b.constructor(), testConfig("tmdb", -3), nil, provider.CodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RegisterProvider(tt.id, tt.capability, tt.ctor, tt.cfg)
			if err == nil {
				t.Fatal("RegisterProvider() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantCode != "" && provider.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %q, want %q", provider.CodeOf(err), tt.wantCode)
			}
		})
	}
	if got := r.Providers(); len(got) != 0 {
		t.Errorf("Providers() = %v after failed registrations", got)
	}
}

func TestRegistryRegisterDefaultsConfigID(t *testing.T) {
	r := newTestRegistry(t, Config{})
	cfg := testConfig("", 1)
	cfg.Name = "TMDB"
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), cfg)

	got, ok := r.ProviderConfig("tmdb")
	if !ok || got.ID != "tmdb" {
		t.Errorf("ProviderConfig() = %+v, %v", got, ok)
	}
	h, _ := r.ProviderHealth("tmdb")
	if h.Status != HealthUnknown || h.RetryCount != 0 || h.MaxRetries != 3 {
		t.Errorf("initial health = %+v", h)
	}
}

func TestRegistryPriorityOrdering(t *testing.T) {
	r := newTestRegistry(t, Config{})

	// Lower priority numbers take longer to construct so completion order is
	// the reverse of priority order.
	for _, p := range []struct {
		id       string
		priority int
		delay    time.Duration
	}{
		{"p30", 30, 0},
		{"p10", 10, 40 * time.Millisecond},
		{"p20", 20, 20 * time.Millisecond},
	} {
		b := newFakeBackend()
		b.delay = p.delay
		mustRegister(t, r, p.id, provider.CapabilityMetadata, b, testConfig(p.id, p.priority))
	}

	got := resultIDs(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilityMetadata))
	if diff := cmp.Diff([]string{"p10", "p20", "p30"}, got); diff != "" {
		t.Errorf("ascending order mismatch (-want +got):\n%s", diff)
	}

	got = resultIDs(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilityMetadata, WithPriorityOrder(Descending)))
	if diff := cmp.Diff([]string{"p30", "p20", "p10"}, got); diff != "" {
		t.Errorf("descending order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryTiesKeepRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t, Config{})
	for _, id := range []string{"c", "a", "b"} {
		mustRegister(t, r, id, provider.CapabilitySearch, newFakeBackend(), testConfig(id, 10))
	}

	got := resultIDs(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilitySearch))
	if diff := cmp.Diff([]string{"c", "a", "b"}, got); diff != "" {
		t.Errorf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryFilterComposition(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})

	mustRegister(t, r, "healthy", provider.CapabilityMetadata, newFakeBackend(), testConfig("healthy", 1))

	disabled := testConfig("disabled", 2)
	disabled.Enabled = false
	mustRegister(t, r, "disabled", provider.CapabilityMetadata, newFakeBackend(), disabled)

	sick := newFakeBackend()
	sick.healthy.Store(false)
	mustRegister(t, r, "sick", provider.CapabilityMetadata, sick, testConfig("sick", 3))

	mustRegister(t, r, "other", provider.CapabilityMetadata, newFakeBackend(), testConfig("other", 4))

	r.PerformHealthChecks(ctx)

	tests := []struct {
		name string
		opts []ResolveOption
		want []string
	}{
		{"defaults", nil, []string{"healthy", "other"}},
		{"include disabled", []ResolveOption{WithEnabledOnly(false)}, []string{"healthy", "disabled", "other"}},
		{"include unhealthy", []ResolveOption{WithHealthyOnly(false)}, []string{"healthy", "sick", "other"}},
		{"no filters", []ResolveOption{WithEnabledOnly(false), WithHealthyOnly(false)}, []string{"healthy", "disabled", "sick", "other"}},
		{"exclude", []ResolveOption{WithExclude("healthy")}, []string{"other"}},
		{"exclude beats filters off", []ResolveOption{WithHealthyOnly(false), WithExclude("sick", "healthy")}, []string{"other"}},
		{"include list", []ResolveOption{WithInclude("other", "sick")}, []string{"other"}},
		{"max providers", []ResolveOption{WithEnabledOnly(false), WithHealthyOnly(false), WithMaxProviders(2)}, []string{"healthy", "disabled"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultIDs(r.ResolveMultipleCapabilities(ctx, provider.CapabilityMetadata, tt.opts...))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("resolved providers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistryDefaultMaxProviders(t *testing.T) {
	r := newTestRegistry(t, Config{})
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		mustRegister(t, r, id, provider.CapabilitySearch, newFakeBackend(), testConfig(id, 1))
	}

	if got := len(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilitySearch)); got != 5 {
		t.Errorf("default resolution returned %d providers, want 5", got)
	}
	if got := len(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilitySearch, WithMaxProviders(0))); got != 7 {
		t.Errorf("uncapped resolution returned %d providers, want 7", got)
	}
}

func TestRegistryResolveResultFields(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("tmdb", 1))

	first := r.ResolveCapability(ctx, provider.CapabilityMetadata)
	second := r.ResolveCapability(ctx, provider.CapabilityMetadata)
	if first == nil || second == nil {
		t.Fatal("ResolveCapability() = nil")
	}
	if first.FromCache || !second.FromCache {
		t.Errorf("FromCache = %v then %v, want false then true", first.FromCache, second.FromCache)
	}
	if first.Provider != second.Provider {
		t.Error("second resolution did not reuse the cached instance")
	}
	if first.ResolutionID == "" || first.ResolutionID == second.ResolutionID {
		t.Errorf("resolution ids %q and %q should be distinct and non-empty", first.ResolutionID, second.ResolutionID)
	}
	if first.Capability != provider.CapabilityMetadata || first.ProviderID != "tmdb" {
		t.Errorf("unexpected result %+v", first)
	}
}

func TestRegistryResolveNothing(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})

	if res := r.ResolveCapability(ctx, provider.CapabilityStreams); res != nil {
		t.Errorf("ResolveCapability() with no providers = %+v, want nil", res)
	}
	if got := r.ResolveMultipleCapabilities(ctx, provider.Capability("bogus")); len(got) != 0 {
		t.Errorf("unknown capability resolved %v", got)
	}
}

func TestRegistryFailedCandidateDoesNotAbortOthers(t *testing.T) {
	r := newTestRegistry(t, Config{})

	broken := newFakeBackend()
	broken.err = errConstruct
	mustRegister(t, r, "broken", provider.CapabilityMetadata, broken, testConfig("broken", 1))
	mustRegister(t, r, "working", provider.CapabilityMetadata, newFakeBackend(), testConfig("working", 2))

	got := resultIDs(r.ResolveMultipleCapabilities(context.Background(), provider.CapabilityMetadata))
	if diff := cmp.Diff([]string{"working"}, got); diff != "" {
		t.Errorf("resolved providers mismatch (-want +got):\n%s", diff)
	}

	res := r.ResolveCapability(context.Background(), provider.CapabilityMetadata)
	if res != nil {
		t.Errorf("top-ranked candidate failed, ResolveCapability() = %s, want nil", res.ProviderID)
	}
}

func TestRegistryTimeoutYieldsEmpty(t *testing.T) {
	r := newTestRegistry(t, Config{})
	for _, id := range []string{"slow1", "slow2"} {
		b := newFakeBackend()
		b.delay = 150 * time.Millisecond
		mustRegister(t, r, id, provider.CapabilityMetadata, b, testConfig(id, 1))
	}

	start := time.Now()
	got := r.ResolveMultipleCapabilities(context.Background(), provider.CapabilityMetadata, WithTimeout(20*time.Millisecond))
	if len(got) != 0 {
		t.Errorf("ResolveMultipleCapabilities() = %v, want empty", resultIDs(got))
	}
	if elapsed := time.Since(start); elapsed > 120*time.Millisecond {
		t.Errorf("resolution took %s, did not honor the batch deadline", elapsed)
	}

	// Constructions finishing after the deadline must not populate the cache.
	time.Sleep(250 * time.Millisecond)
	for _, id := range []string{"slow1", "slow2"} {
		if r.Factory().GetCachedInstance(id, provider.CapabilityMetadata) != nil {
			t.Errorf("late construction of %s was cached", id)
		}
	}

	stats := r.Statistics()
	if stats.ResolutionTimeouts != 1 {
		t.Errorf("ResolutionTimeouts = %d, want 1", stats.ResolutionTimeouts)
	}
}

func TestRegistryUpdateProviderConfigEvicts(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()
	err := r.RegisterProviderWithCapabilities("tmdb", map[provider.Capability]provider.Constructor{
		provider.CapabilityMetadata: b.constructor(),
		provider.CapabilitySearch:   b.constructor(),
	}, testConfig("tmdb", 10))
	if err != nil {
		t.Fatal(err)
	}

	r.ResolveCapability(ctx, provider.CapabilityMetadata)
	r.ResolveCapability(ctx, provider.CapabilitySearch)

	priority := 1
	if err := r.UpdateProviderConfig("tmdb", provider.ConfigUpdate{
		Priority: &priority,
		Settings: map[string]interface{}{"language": "de-DE"},
	}); err != nil {
		t.Fatalf("UpdateProviderConfig() error = %v", err)
	}

	for _, c := range []provider.Capability{provider.CapabilityMetadata, provider.CapabilitySearch} {
		if r.Factory().GetCachedInstance("tmdb", c) != nil {
			t.Errorf("%s instance survived config update", c)
		}
	}

	res := r.ResolveCapability(ctx, provider.CapabilityMetadata)
	if res == nil || res.FromCache {
		t.Fatalf("resolution after update = %+v, want fresh instance", res)
	}
	cfg := res.Provider.Config()
	if cfg.Priority != 1 || cfg.StringSetting("language", "") != "de-DE" {
		t.Errorf("rebuilt instance config = %+v", cfg)
	}
	if got := b.calls.Load(); got != 3 {
		t.Errorf("constructor calls = %d, want 3", got)
	}
}

func TestRegistryConfigUpdateDuringConstruction(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	ctor := func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return b.constructor()(ctx, cfg, logger)
	}

	cfg := testConfig("tmdb", 1)
	cfg.Connection.APIKey = "old-key"
	if err := r.RegisterProvider("tmdb", provider.CapabilityMetadata, ctor, cfg); err != nil {
		t.Fatal(err)
	}

	resolved := make(chan *Result, 1)
	go func() { resolved <- r.ResolveCapability(ctx, provider.CapabilityMetadata) }()
	<-entered
	if err := r.UpdateProviderConfig("tmdb", provider.ConfigUpdate{
		Connection: &provider.ConnectionConfig{APIKey: "new-key"},
	}); err != nil {
		t.Fatalf("UpdateProviderConfig() error = %v", err)
	}
	close(release)

	if res := <-resolved; res == nil || res.FromCache {
		t.Fatalf("in-flight resolution = %+v, want an uncached instance", res)
	}
	if inst := r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata); inst != nil {
		t.Fatalf("instance with api key %q cached across the config update", inst.Config().Connection.APIKey)
	}

	res := r.ResolveCapability(ctx, provider.CapabilityMetadata)
	if res == nil {
		t.Fatal("resolution after update found nothing")
	}
	if got := res.Provider.Config().Connection.APIKey; got != "new-key" {
		t.Errorf("api key = %q, want new-key", got)
	}
	cached := r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata)
	if cached == nil || cached.Config().Connection.APIKey != "new-key" {
		t.Errorf("cached instance = %v, want one built with new-key", cached)
	}
}

func TestRegistryUpdateProviderConfigErrors(t *testing.T) {
	r := newTestRegistry(t, Config{})
	if err := r.UpdateProviderConfig("missing", provider.ConfigUpdate{}); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("UpdateProviderConfig(missing) error = %v, want ErrProviderNotFound", err)
	}
	if err := r.UpdateProviderConfig(" ", provider.ConfigUpdate{}); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("UpdateProviderConfig(blank) error = %v, want ErrInvalidIdentity", err)
	}

	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("tmdb", 1))
	negative := -1
	err := r.UpdateProviderConfig("tmdb", provider.ConfigUpdate{Priority: &negative})
	if provider.CodeOf(err) != provider.CodeInvalidConfig {
		t.Errorf("invalid update error = %v, want INVALID_CONFIG", err)
	}
	if cfg, _ := r.ProviderConfig("tmdb"); cfg.Priority != 1 {
		t.Errorf("rejected update was applied: priority = %d", cfg.Priority)
	}
}

func TestRegistryProviderConfigIsCopy(t *testing.T) {
	r := newTestRegistry(t, Config{})
	cfg := testConfig("tmdb", 1)
	cfg.Settings = map[string]interface{}{"language": "en-US"}
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), cfg)

	got, _ := r.ProviderConfig("tmdb")
	got.Settings["language"] = "xx"
	got.Enabled = false

	again, _ := r.ProviderConfig("tmdb")
	if again.StringSetting("language", "") != "en-US" || !again.Enabled {
		t.Errorf("stored config mutated through copy: %+v", again)
	}
}

func TestRegistryAvailableCapabilities(t *testing.T) {
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()
	_ = r.RegisterProviderWithCapabilities("tmdb", map[provider.Capability]provider.Constructor{
		provider.CapabilitySearch:   b.constructor(),
		provider.CapabilityMetadata: b.constructor(),
	}, testConfig("tmdb", 1))

	tests := []struct {
		id   string
		want []provider.Capability
	}{
		{"tmdb", []provider.Capability{provider.CapabilityMetadata, provider.CapabilitySearch}},
		{" tmdb ", []provider.Capability{provider.CapabilityMetadata, provider.CapabilitySearch}},
		{"", []provider.Capability{}},
		{"   ", []provider.Capability{}},
		{"unknown", []provider.Capability{}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, r.AvailableCapabilities(tt.id)); diff != "" {
			t.Errorf("AvailableCapabilities(%q) mismatch (-want +got):\n%s", tt.id, diff)
		}
	}
}

func TestRegistryProvidersForCapability(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("tmdb", 1))
	mustRegister(t, r, "omdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("omdb", 2))

	r.PerformHealthChecks(ctx)
	r.Factory().RemoveInstance("omdb", provider.CapabilityMetadata)

	got := r.ProvidersForCapability(provider.CapabilityMetadata)
	if len(got) != 2 {
		t.Fatalf("ProvidersForCapability() returned %d entries, want 2", len(got))
	}
	want := []ProviderStatus{
		{ProviderID: "tmdb", Config: testConfig("tmdb", 1), Health: HealthHealthy, Healthy: true, Cached: true},
		{ProviderID: "omdb", Config: testConfig("omdb", 2), Health: HealthHealthy, Healthy: true, Cached: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProvidersForCapability() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryUnregister(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()
	_ = r.RegisterProviderWithCapabilities("tmdb", map[provider.Capability]provider.Constructor{
		provider.CapabilityMetadata: b.constructor(),
		provider.CapabilitySearch:   b.constructor(),
	}, testConfig("tmdb", 1))
	r.ResolveCapability(ctx, provider.CapabilityMetadata)

	if !r.UnregisterProvider("tmdb", provider.CapabilityMetadata) {
		t.Fatal("UnregisterProvider() = false")
	}
	if r.UnregisterProvider("tmdb", provider.CapabilityMetadata) {
		t.Error("second UnregisterProvider() = true")
	}
	if r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata) != nil {
		t.Error("cache entry survived unregistration")
	}
	if _, ok := r.ProviderConfig("tmdb"); !ok {
		t.Error("entry removed while a capability remains")
	}

	if got := r.UnregisterProviderAll("tmdb"); got != 1 {
		t.Errorf("UnregisterProviderAll() = %d, want 1", got)
	}
	if _, ok := r.ProviderConfig("tmdb"); ok {
		t.Error("entry survived UnregisterProviderAll")
	}
}

func TestRegistryReset(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	sick := newFakeBackend()
	sick.healthy.Store(false)
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, sick, testConfig("tmdb", 1))

	r.PerformHealthChecks(ctx)
	r.ResolveMultipleCapabilities(ctx, provider.CapabilityMetadata, WithHealthyOnly(false))

	r.Reset()

	stats := r.Statistics()
	if stats.Resolutions != 0 || stats.HealthChecks != 0 || stats.Factory.TotalInstances != 0 || stats.Factory.Constructions != 0 {
		t.Errorf("counters not cleared: %+v", stats)
	}
	if stats.Factory.TotalRegistrations != 1 || stats.TotalProviders != 1 {
		t.Errorf("registrations lost on reset: %+v", stats)
	}
	if h, _ := r.ProviderHealth("tmdb"); h.Status != HealthUnknown || h.RetryCount != 0 {
		t.Errorf("health after reset = %+v", h)
	}
}

func TestRegistryShutdown(t *testing.T) {
	ctx := context.Background()
	r := New(Config{HealthCheckInterval: time.Hour}, log.Nop())
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("tmdb", 1))
	r.ResolveCapability(ctx, provider.CapabilityMetadata)
	r.StartHealthMonitoring(ctx)

	r.Shutdown()

	if r.IsMonitoring() {
		t.Error("monitoring still running after shutdown")
	}
	if r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata) != nil {
		t.Error("instance cache not cleared")
	}
	if _, ok := r.ProviderConfig("tmdb"); ok {
		t.Error("config not cleared")
	}
	if res := r.ResolveCapability(ctx, provider.CapabilityMetadata); res != nil {
		t.Error("resolution succeeded after shutdown")
	}
}

func TestRegistryStatistics(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, newFakeBackend(), testConfig("tmdb", 1))
	disabled := testConfig("omdb", 2)
	disabled.Enabled = false
	mustRegister(t, r, "omdb", provider.CapabilityMetadata, newFakeBackend(), disabled)

	r.ResolveCapability(ctx, provider.CapabilityMetadata)
	r.ResolveCapability(ctx, provider.CapabilityStreams)

	stats := r.Statistics()
	if stats.TotalProviders != 2 || stats.ActiveProviders != 1 || stats.UnknownProviders != 2 {
		t.Errorf("provider counts = %+v", stats)
	}
	if stats.Resolutions != 2 || stats.ResolutionSuccesses != 1 || stats.ResolutionFailures != 1 {
		t.Errorf("resolution counts = %d/%d/%d, want 2/1/1",
			stats.Resolutions, stats.ResolutionSuccesses, stats.ResolutionFailures)
	}
	if stats.Factory.InstancesByProvider["tmdb"] != 1 {
		t.Errorf("InstancesByProvider = %v", stats.Factory.InstancesByProvider)
	}
}

func TestResolveTyped(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	mustRegister(t, r, "tmdb", provider.CapabilitySearch, newFakeBackend(), testConfig("tmdb", 1))

	searcher, ok := Resolve[provider.SearchProvider](ctx, r, provider.CapabilitySearch)
	if !ok {
		t.Fatal("Resolve[SearchProvider]() not ok")
	}
	results, err := searcher.Search(ctx, provider.SearchRequest{Query: "Alien"})
	if err != nil || len(results) != 1 || results[0].Title != "Alien" {
		t.Errorf("Search() = %v, %v", results, err)
	}

	if _, ok := Resolve[provider.StreamsProvider](ctx, r, provider.CapabilityStreams); ok {
		t.Error("Resolve[StreamsProvider]() ok with no stream providers")
	}
	if got := ResolveAll[provider.SearchProvider](ctx, r, provider.CapabilitySearch); len(got) != 1 {
		t.Errorf("ResolveAll() returned %d providers, want 1", len(got))
	}
}

func TestRegistryReRegistrationWithNewConfigEvicts(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Config{})
	b := newFakeBackend()
	mustRegister(t, r, "tmdb", provider.CapabilityMetadata, b, testConfig("tmdb", 1))
	r.ResolveCapability(ctx, provider.CapabilityMetadata)

	// Same config for another capability keeps the cache.
	mustRegister(t, r, "tmdb", provider.CapabilitySearch, b, testConfig("tmdb", 1))
	if r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata) == nil {
		t.Error("unchanged config evicted the cache")
	}

	mustRegister(t, r, "tmdb", provider.CapabilitySearch, b, testConfig("tmdb", 7))
	if r.Factory().GetCachedInstance("tmdb", provider.CapabilityMetadata) != nil {
		t.Error("changed config did not evict the cache")
	}
	if cfg, _ := r.ProviderConfig("tmdb"); cfg.Priority != 7 {
		t.Errorf("priority = %d, want 7", cfg.Priority)
	}
}
