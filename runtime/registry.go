package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

// Registry maps online identities to their outbound delivery handles.
// The lock guards only map operations; callers perform any network I/O
// after it is released, so a slow peer never blocks presence updates.
type Registry struct {
	mu    sync.RWMutex
	sinks map[domain.Identity]contract.FrameSink
}

func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[domain.Identity]contract.FrameSink),
	}
}

var _ contract.Registry = (*Registry)(nil)

// Register inserts or overwrites the delivery handle for an identity.
// Overwrite is deliberate: the last authenticator wins.
func (r *Registry) Register(identity domain.Identity, sink contract.FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[identity] = sink
}

// Lookup returns the delivery handle for an identity, if online.
func (r *Registry) Lookup(identity domain.Identity) (contract.FrameSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[identity]
	return sink, ok
}

// Deregister removes the entry if present. Idempotent.
func (r *Registry) Deregister(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, identity)
}

// DeregisterSink removes the entry only while it still points at the
// given handle. A session that lost its identity to a later
// authenticator must not evict that live entry on its way out.
func (r *Registry) DeregisterSink(identity domain.Identity, sink contract.FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sinks[identity]; ok && current == sink {
		delete(r.sinks, identity)
	}
}

// Online reports the number of registered identities.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
