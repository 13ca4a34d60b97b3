// Package registry implements canonical, typed, keyed storage for entities
// with merge/replace semantics and change notification.
//
// Entities embed Node, which carries the canonical key, the subscriber list
// and the successor reference. Once an entity has been merged away its Node
// points at the survivor, and Resolve transparently follows that chain (with
// path compression) so stale handles keep working across any number of
// merges.
package registry

import (
	"errors"
	"fmt"
)

// Kind identifies a concrete entity kind. Each kind has its own key space.
type Kind string

// ErrStaleReference reports an operation through an entity handle that has
// been superseded and whose successor chain cannot be followed. Transparent
// forwarding normally prevents this; it surfaces only when an entity is
// removed without a successor.
var ErrStaleReference = errors.New("registry: stale reference to superseded entity")

// Subscriber is notified when the entity it is attached to changes. For an
// in-place change old and new are the same entity; for a merge old is the
// superseded entity and new its survivor. Subscribers of a merged entity are
// automatically re-subscribed to the survivor.
type Subscriber func(old, new Entity)

// Node is the registry-facing state every entity embeds.
type Node struct {
	key       string
	successor Entity
	subs      []Subscriber
	live      bool
}

// Entity is implemented by embedding Node; Kind must be supplied by the
// concrete type.
type Entity interface {
	Kind() Kind
	node() *Node
}

func (n *Node) node() *Node { return n }

// Key returns the entity's canonical key, following the successor chain.
func Key(e Entity) string { return Resolve(e).node().key }

// Live reports whether e (after forwarding) is currently registered.
func Live(e Entity) bool { return Resolve(e).node().live }

// Resolve follows the successor chain to the final survivor, compressing the
// path so repeated dereferences are cheap.
func Resolve(e Entity) Entity {
	n := e.node()
	if n.successor == nil {
		return e
	}
	final := Resolve(n.successor)
	n.successor = final
	return final
}

// Registry owns all entities for a session. It is not safe for concurrent
// use; the engine is single-threaded by design.
type Registry struct {
	kinds    map[Kind]map[string]Entity
	order    map[Kind][]Entity
	subkinds map[Kind][]Kind
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		kinds:    make(map[Kind]map[string]Entity),
		order:    make(map[Kind][]Entity),
		subkinds: make(map[Kind][]Kind),
	}
}

// DeclareSubkind records that sub is a subordinate kind of parent, so that
// ElementsRecursive(parent) includes sub's elements.
func (r *Registry) DeclareSubkind(parent, sub Kind) {
	r.subkinds[parent] = append(r.subkinds[parent], sub)
}

// Get returns the live entity with the given kind and key, or nil.
func (r *Registry) Get(k Kind, key string) Entity {
	return r.kinds[k][key]
}

// Register adds an entity under its key. The key must be set via SetKey (or
// Register's key argument) before registration and be unique within the kind.
func (r *Registry) Register(e Entity, key string) error {
	n := e.node()
	if n.live {
		return fmt.Errorf("registry: %s %q already registered", e.Kind(), n.key)
	}
	if existing := r.Get(e.Kind(), key); existing != nil {
		return fmt.Errorf("registry: %s %q already exists", e.Kind(), key)
	}
	n.key = key
	n.live = true
	if r.kinds[e.Kind()] == nil {
		r.kinds[e.Kind()] = make(map[string]Entity)
	}
	r.kinds[e.Kind()][key] = e
	r.order[e.Kind()] = append(r.order[e.Kind()], e)
	return nil
}

// Elements returns the live entities of exactly kind k, in registration
// order. Deterministic iteration keeps merge cascades reproducible.
func (r *Registry) Elements(k Kind) []Entity {
	var out []Entity
	for _, e := range r.order[k] {
		if e.node().live {
			out = append(out, e)
		}
	}
	return out
}

// ElementsRecursive returns the live entities of kind k and all its declared
// subordinate kinds.
func (r *Registry) ElementsRecursive(k Kind) []Entity {
	out := r.Elements(k)
	for _, sub := range r.subkinds[k] {
		out = append(out, r.ElementsRecursive(sub)...)
	}
	return out
}

// Count returns the number of live entities of exactly kind k.
func (r *Registry) Count(k Kind) int {
	return len(r.Elements(k))
}

// Subscribe attaches s to the (resolved) entity's change notifications.
func (r *Registry) Subscribe(e Entity, s Subscriber) {
	n := Resolve(e).node()
	n.subs = append(n.subs, s)
}

// Broadcast notifies every subscriber of an in-place change to e.
func (r *Registry) Broadcast(e Entity) {
	e = Resolve(e)
	subs := append([]Subscriber(nil), e.node().subs...)
	for _, s := range subs {
		s(e, e)
	}
}

// UpdateKey renames a live entity. If an entity with newKey already exists
// this is not a rename but a merge: old is replaced by the existing entity
// and the survivor is returned. Otherwise the entity is renamed in place, its
// subscribers are notified, and the entity itself is returned.
func (r *Registry) UpdateKey(e Entity, newKey string) (Entity, error) {
	e = Resolve(e)
	n := e.node()
	if !n.live {
		return nil, fmt.Errorf("%w: %s %q", ErrStaleReference, e.Kind(), n.key)
	}
	if n.key == newKey {
		return e, nil
	}
	if existing := r.Get(e.Kind(), newKey); existing != nil && existing != e {
		if err := r.Replace(e, existing); err != nil {
			return nil, err
		}
		return Resolve(existing), nil
	}
	delete(r.kinds[e.Kind()], n.key)
	n.key = newKey
	r.kinds[e.Kind()][newKey] = e
	r.Broadcast(e)
	return e, nil
}

// Replace merges old into new: old's subscribers are notified with the
// survivor and re-subscribed to it, old is removed from storage, and old's
// successor is set so all future access through old forwards to new.
func (r *Registry) Replace(old, new Entity) error {
	old, new = Resolve(old), Resolve(new)
	if old == new {
		return nil
	}
	if old.Kind() != new.Kind() {
		return fmt.Errorf("registry: cannot replace %s with %s", old.Kind(), new.Kind())
	}
	on := old.node()
	if !on.live {
		return fmt.Errorf("%w: %s %q", ErrStaleReference, old.Kind(), on.key)
	}
	delete(r.kinds[old.Kind()], on.key)
	on.live = false
	on.successor = new

	subs := on.subs
	on.subs = nil
	nn := new.node()
	nn.subs = append(nn.subs, subs...)
	for _, s := range subs {
		s(old, new)
	}
	return nil
}

// Discard removes a live entity from storage without a successor. Later
// access through the handle is a stale-reference hazard, so this is reserved
// for terminal states (e.g. trivially satisfied expressions).
func (r *Registry) Discard(e Entity) error {
	e = Resolve(e)
	n := e.node()
	if !n.live {
		return fmt.Errorf("%w: %s %q", ErrStaleReference, e.Kind(), n.key)
	}
	delete(r.kinds[e.Kind()], n.key)
	n.live = false
	n.subs = nil
	return nil
}

// IdentityFunc computes a kind-specific structural identity for an entity.
// Entities with equal identities are duplicates of each other.
type IdentityFunc func(Entity) string

// MergeHook runs before a duplicate is replaced by the retained entity, so
// callers can copy measures or other state onto the survivor.
type MergeHook func(keep, drop Entity) error

// RemoveDuplicates groups the live elements of kind k by identity and merges
// every group down to its first-registered member. It loops to a fixed point:
// merging can itself re-key survivors and surface further duplicates. Each
// merge strictly reduces the live element count, so the loop terminates.
func (r *Registry) RemoveDuplicates(k Kind, identity IdentityFunc, hook MergeHook) error {
	for {
		merged := false
		byIdentity := make(map[string]Entity)
		for _, e := range r.Elements(k) {
			id := identity(e)
			keep, ok := byIdentity[id]
			if !ok {
				byIdentity[id] = e
				continue
			}
			if hook != nil {
				if err := hook(keep, e); err != nil {
					return err
				}
			}
			if err := r.Replace(e, keep); err != nil {
				return err
			}
			merged = true
		}
		if !merged {
			return nil
		}
	}
}
