package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// Registry maps PubSubSystem config values to transport builders. Transport
// packages register themselves from init, so importing a transport package is
// all it takes to make it selectable.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

type registration struct {
	builder Builder
	caps    Capabilities
	hasCaps bool
}

// DefaultRegistry backs the package-level Register/Build helpers and is the
// registry the bus consults unless handed its own.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty transport registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register makes a transport selectable under the given name. The name must
// match the PubSubSystem config value (e.g. "rabbitmq").
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entries[name]
	entry.builder = builder
	r.entries[name] = entry
}

// RegisterWithCapabilities registers a builder together with the delivery
// guarantees its backend provides.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registration{builder: builder, caps: caps, hasCaps: true}
}

// GetCapabilities reports the capabilities of a registered transport. An
// unknown name yields a zero set carrying just the name, which callers read
// as "assume nothing".
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.entries[name]; ok && entry.hasCaps {
		return entry.caps
	}
	return Capabilities{Name: name}
}

// Build constructs the transport selected by cfg.GetPubSubSystem().
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	name := cfg.GetPubSubSystem()

	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok || entry.builder == nil {
		return Transport{}, fmt.Errorf("unknown transport: %q (registered: %v)", name, r.Names())
	}

	return entry.builder(ctx, cfg, logger)
}

// Names returns the registered transport names, sorted so error messages and
// logs stay stable.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a transport is registered under the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Register adds a transport builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds a transport builder and its capabilities to
// the default registry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build creates a transport using the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
