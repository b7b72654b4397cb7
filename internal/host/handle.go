package host

import (
	"errors"
	"strconv"
	"sync"
)

// ErrGone means a handle no longer resolves to a live object
var ErrGone = errors.New("host object is gone")

// Handle is an opaque identity of a host object.
// Copies refer to the same object; the object itself is never owned.
type Handle struct {
	id uint64
}

// IsZero reports whether the handle was never issued
func (h Handle) IsZero() bool { return h.id == 0 }

func (h Handle) String() string { return "handle#" + strconv.FormatUint(h.id, 10) }

// Registry resolves handles back to live objects
type Registry[T any] struct {
	mu    sync.RWMutex
	next  uint64
	items map[Handle]T
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[Handle]T)}
}

// Register stores an object and issues its handle
func (r *Registry[T]) Register(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := Handle{id: r.next}
	r.items[h] = v
	return h
}

// Resolve looks up the live object
func (r *Registry[T]) Resolve(h Handle) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[h]
	return v, ok
}

// Remove forgets the object; later lookups fail
func (r *Registry[T]) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, h)
}

// Len returns the number of live objects
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
