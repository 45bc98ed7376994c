// cartstate/cartstore/registry.go

package cartstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry hands out one shared instance per store name. Instances are
// built lazily by the store's factory on first use and live until Reset.
type Registry struct {
	mu        sync.Mutex
	instances map[string]any
	log       logrus.FieldLogger
}

// NewRegistry returns an empty registry. A nil logger falls back to the
// logrus standard logger.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		instances: make(map[string]any),
		log:       logger.WithField("component", "cartstore.registry"),
	}
}

// Has reports whether an instance has been created for name.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.instances[name]
	return ok
}

// Names lists the stores that currently hold an instance, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops the instance stored under name. The next Use builds a new one.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	_, ok := r.instances[name]
	delete(r.instances, name)
	r.mu.Unlock()

	if ok {
		r.log.WithField("store", name).Debug("store instance dropped")
	}
}

// ResetAll drops every instance.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	n := len(r.instances)
	r.instances = make(map[string]any)
	r.mu.Unlock()

	r.log.WithField("count", n).Debug("all store instances dropped")
}

func (r *Registry) lookup(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.instances[name]
	return v, ok
}

// publish stores v under name unless another caller got there first, and
// returns whichever instance ended up registered.
func (r *Registry) publish(name string, v any) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.instances[name]; ok {
		return existing, false
	}
	r.instances[name] = v
	return v, true
}

// Definition binds a store name to the factory of its initial value.
type Definition[T any] struct {
	name    string
	factory func() *T
}

// Define declares a store. The factory must not fail and must not call
// back into a Registry.
func Define[T any](name string, factory func() *T) Definition[T] {
	if name == "" {
		panic("cartstore: store name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("cartstore: store %q has no factory", name))
	}
	return Definition[T]{name: name, factory: factory}
}

// Name is the key the store is registered under.
func (d Definition[T]) Name() string {
	return d.name
}

// Use returns the instance of this store held by r, building it with the
// factory on first access. Every call against the same registry returns
// the same pointer until the store is reset.
func (d Definition[T]) Use(r *Registry) *T {
	if v, ok := r.lookup(d.name); ok {
		return d.cast(v)
	}

	// Build outside the lock; the re-check in publish keeps one winner.
	v, created := r.publish(d.name, d.factory())
	if created {
		r.log.WithField("store", d.name).Debug("store instance created")
	}
	return d.cast(v)
}

func (d Definition[T]) cast(v any) *T {
	inst, ok := v.(*T)
	if !ok {
		panic(fmt.Sprintf("cartstore: store %q holds %T, not %T", d.name, v, inst))
	}
	return inst
}
