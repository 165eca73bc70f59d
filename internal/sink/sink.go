package sink

import (
	"fmt"
	"sync"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

// Sink receives normalized event records. Emit is called once per accepted
// event, synchronously, in the order the poll loop accepted them; an error
// affects only that one event.
type Sink interface {
	// Emit delivers one record. The record is owned by the caller and must
	// not be retained after Emit returns.
	Emit(rec event.Record) error
	// Close releases any resources. Called once at shutdown.
	Close() error
}

// Factory builds sinks of one type from config params.
type Factory interface {
	// Type returns the string key this factory is registered under.
	Type() string
	// Validate checks params at config-validation time.
	Validate(params map[string]interface{}) error
	// New builds a sink instance for one input.
	New(params map[string]interface{}) (Sink, error)
}

// Registry maps sink type strings to their factories.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Panics on duplicate type to surface
// misconfiguration early.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[f.Type()]; exists {
		panic(fmt.Sprintf("sink registry: duplicate type %q", f.Type()))
	}
	r.factories[f.Type()] = f
}

// Get returns the factory for the given type.
func (r *Registry) Get(sinkType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[sinkType]
	if !ok {
		return nil, fmt.Errorf("no factory registered for sink type %q", sinkType)
	}
	return f, nil
}

// Types returns all registered sink type strings.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}

// Defaults returns a registry with all built-in sink types.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(&stdoutFactory{})
	r.Register(&sqliteFactory{})
	r.Register(&webhookFactory{})
	return r
}
