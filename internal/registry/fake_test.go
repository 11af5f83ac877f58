package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeProvider implements metadata and search. Health is driven by the
// healthy flag shared with its fakeBackend.
type fakeProvider struct {
	provider.Base
	backend *fakeBackend
}

func (f *fakeProvider) Metadata(ctx context.Context, req provider.FetchRequest) (*provider.Metadata, error) {
	return &provider.Metadata{Core: provider.CoreMetadata{Title: req.Name}}, nil
}

func (f *fakeProvider) Search(ctx context.Context, req provider.SearchRequest) ([]provider.SearchResult, error) {
	return []provider.SearchResult{{Provider: f.ID(), Title: req.Query}}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) provider.HealthResult {
	if f.backend.healthy.Load() {
		return provider.HealthResult{Healthy: true, Timestamp: time.Now()}
	}
	return provider.HealthResult{Healthy: false, Error: "backend down", Timestamp: time.Now()}
}

// metadataOnly lacks Search, so it cannot serve the search capability.
type metadataOnly struct {
	provider.Base
}

func (m *metadataOnly) Metadata(ctx context.Context, req provider.FetchRequest) (*provider.Metadata, error) {
	return &provider.Metadata{}, nil
}

// fakeBackend builds fakeProviders and counts constructions.
type fakeBackend struct {
	healthy atomic.Bool
	calls   atomic.Int32
	delay   time.Duration
	err     error
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.healthy.Store(true)
	return b
}

func (b *fakeBackend) constructor() provider.Constructor {
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		b.calls.Add(1)
		if b.delay > 0 {
			time.Sleep(b.delay)
		}
		if b.err != nil {
			return nil, b.err
		}
		base, err := provider.NewBase(cfg, logger)
		if err != nil {
			return nil, err
		}
		return &fakeProvider{Base: base, backend: b}, nil
	}
}

func testConfig(id string, priority int) provider.ProviderConfig {
	return provider.ProviderConfig{
		ID:       id,
		Name:     id,
		Type:     "metadata",
		Enabled:  true,
		Priority: priority,
	}
}

func newObservedLogger() (log.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return log.FromZap(zap.New(core)), logs
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errConstruct = errors.New("construct failed")

func resultIDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ProviderID
	}
	return ids
}

func mustRegister(t *testing.T, r *Registry, id string, capability provider.Capability, b *fakeBackend, cfg provider.ProviderConfig) {
	t.Helper()
	if err := r.RegisterProvider(id, capability, b.constructor(), cfg); err != nil {
		t.Fatalf("RegisterProvider(%s) error = %v", id, err)
	}
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
