package behaviour

import (
	"sync"

	"reactivegraph/pkg/reactive"
)

type observerRef struct {
	target reactive.Instance
	name   string
	handle reactive.HandleID
}

// ObserverContainer subscribes observers for one behaviour and remembers
// every handle it created, so RemoveAll unsubscribes exactly those observers
// and leaves foreign subscriptions in place. Subscriptions usually target the
// behaviour's own instance; relation behaviours also observe their endpoints
// through ObserveOn.
type ObserverContainer struct {
	instance reactive.Instance

	mu   sync.Mutex
	refs []observerRef
}

// NewObserverContainer constructs a container bound to the instance.
func NewObserverContainer(instance reactive.Instance) *ObserverContainer {
	return &ObserverContainer{instance: instance}
}

// Observe subscribes fn on the named property of the bound instance.
func (c *ObserverContainer) Observe(name string, fn reactive.Observer) (reactive.HandleID, error) {
	return c.ObserveOn(c.instance, name, fn)
}

// ObserveOn subscribes fn on the named property of target.
func (c *ObserverContainer) ObserveOn(target reactive.Instance, name string, fn reactive.Observer) (reactive.HandleID, error) {
	handle := reactive.NewHandleID()
	if err := c.observe(target, name, fn, handle); err != nil {
		return reactive.HandleID{}, err
	}
	return handle, nil
}

// ObserveWithHandle subscribes fn on the bound instance under the caller's handle.
func (c *ObserverContainer) ObserveWithHandle(name string, fn reactive.Observer, handle reactive.HandleID) error {
	return c.observe(c.instance, name, fn, handle)
}

func (c *ObserverContainer) observe(target reactive.Instance, name string, fn reactive.Observer, handle reactive.HandleID) error {
	if err := target.ObserveWithHandle(name, fn, handle); err != nil {
		return err
	}
	c.mu.Lock()
	c.refs = append(c.refs, observerRef{target: target, name: name, handle: handle})
	c.mu.Unlock()
	return nil
}

// Remove unsubscribes one handle on the named property of the bound instance.
func (c *ObserverContainer) Remove(name string, handle reactive.HandleID) bool {
	c.mu.Lock()
	var found *observerRef
	for i := range c.refs {
		r := c.refs[i]
		if r.target == c.instance && r.name == name && r.handle == handle {
			found = &r
			c.refs = append(c.refs[:i:i], c.refs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	if found == nil {
		return false
	}
	return found.target.RemoveObserver(found.name, found.handle)
}

// RemoveObservers unsubscribes every handle this container holds on one
// property of the bound instance.
func (c *ObserverContainer) RemoveObservers(name string) {
	c.mu.Lock()
	var drop []observerRef
	kept := c.refs[:0:0]
	for _, r := range c.refs {
		if r.target == c.instance && r.name == name {
			drop = append(drop, r)
			continue
		}
		kept = append(kept, r)
	}
	c.refs = kept
	c.mu.Unlock()
	for _, r := range drop {
		r.target.RemoveObserver(r.name, r.handle)
	}
}

// RemoveAll unsubscribes every handle this container holds. Safe to call
// repeatedly.
func (c *ObserverContainer) RemoveAll() {
	c.mu.Lock()
	all := c.refs
	c.refs = nil
	c.mu.Unlock()
	for _, r := range all {
		r.target.RemoveObserver(r.name, r.handle)
	}
}

// Count returns the number of live handles.
func (c *ObserverContainer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}
