package reactive

import (
	"fmt"
	"sort"
	"sync"

	"reactivegraph/pkg/graph"
)

// Properties is the name to property map of one instance. Reads run
// concurrently; structural writes are serialized per container.
type Properties struct {
	owner string

	mu    sync.RWMutex
	items map[string]*Property
	limit int
}

// NewProperties constructs an empty container for the owning instance id.
func NewProperties(owner string) *Properties {
	return &Properties{owner: owner, items: make(map[string]*Property)}
}

// Add creates a property. Names are unique within a container.
func (c *Properties) Add(name string, mutability graph.Mutability, value any) (*Property, error) {
	if name == "" {
		return nil, fmt.Errorf("%s: property name required", c.owner)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[name]; exists {
		return nil, fmt.Errorf("%s.%s: %w", c.owner, name, ErrPropertyAlreadyExists)
	}
	p := NewProperty(c.owner, name, mutability, value)
	p.SetPropagationLimit(c.limit)
	c.items[name] = p
	return p, nil
}

// Remove deletes a property and drops its observers.
func (c *Properties) Remove(name string) error {
	c.mu.Lock()
	p, ok := c.items[name]
	if ok {
		delete(c.items, name)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s.%s: %w", c.owner, name, ErrPropertyNotFound)
	}
	p.RemoveObservers()
	return nil
}

// Get returns the named property.
func (c *Properties) Get(name string) (*Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[name]
	return p, ok
}

// Has reports whether the property exists.
func (c *Properties) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Names returns the sorted property names.
func (c *Properties) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.items))
	for name := range c.items {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of properties.
func (c *Properties) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Values returns a deep copy of every property value keyed by name.
func (c *Properties) Values() map[string]any {
	c.mu.RLock()
	props := make([]*Property, 0, len(c.items))
	for _, p := range c.items {
		props = append(props, p)
	}
	c.mu.RUnlock()
	out := make(map[string]any, len(props))
	for _, p := range props {
		out[p.Name()] = p.Get()
	}
	return out
}

// All returns the properties sorted by name.
func (c *Properties) All() []*Property {
	c.mu.RLock()
	out := make([]*Property, 0, len(c.items))
	for _, p := range c.items {
		out = append(out, p)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// SetPropagationLimit applies the nesting limit to current and future properties.
func (c *Properties) SetPropagationLimit(limit int) {
	c.mu.Lock()
	c.limit = limit
	props := make([]*Property, 0, len(c.items))
	for _, p := range c.items {
		props = append(props, p)
	}
	c.mu.Unlock()
	for _, p := range props {
		p.SetPropagationLimit(limit)
	}
}

// RemoveAllObservers clears observers on every property.
func (c *Properties) RemoveAllObservers() {
	for _, p := range c.All() {
		p.RemoveObservers()
	}
}
