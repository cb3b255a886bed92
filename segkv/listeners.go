package segkv

import "sync/atomic"

// listenerRegistry is a copy-on-write list of RemovalListener callbacks (spec
// §4.4 "Listeners": "copy-on-write... readers never synchronize", spec §9
// "Listener copy-on-write list -> an atomically swapped immutable vector of
// callbacks"). Grounded on the teacher's composite.go pattern of holding a plain
// slice of children and rebuilding it wholesale on Add/Remove, swapped here for an
// atomic.Pointer so concurrent Notify calls never take a lock.
type listenerRegistry struct {
	listeners atomic.Pointer[[]registeredListener]
}

type registeredListener struct {
	id int64
	fn RemovalListener
}

var listenerIDs atomic.Int64

func newListenerRegistry() *listenerRegistry {
	r := &listenerRegistry{}
	empty := []registeredListener{}
	r.listeners.Store(&empty)
	return r
}

// Register adds fn to the registry and returns a handle that Unregister accepts.
// Invocation order is registration order (spec §4.4).
func (r *listenerRegistry) Register(fn RemovalListener) int64 {
	id := listenerIDs.Add(1)
	for {
		old := r.listeners.Load()
		next := make([]registeredListener, len(*old), len(*old)+1)
		copy(next, *old)
		next = append(next, registeredListener{id: id, fn: fn})
		if r.listeners.CompareAndSwap(old, &next) {
			return id
		}
	}
}

// Unregister removes the listener previously returned by Register, if still
// present. Safe to call more than once.
func (r *listenerRegistry) Unregister(id int64) {
	for {
		old := r.listeners.Load()
		idx := -1
		for i, l := range *old {
			if l.id == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		next := make([]registeredListener, 0, len(*old)-1)
		next = append(next, (*old)[:idx]...)
		next = append(next, (*old)[idx+1:]...)
		if r.listeners.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Notify invokes every registered listener with removed, in registration order.
// A panicking listener is recovered and logged rather than aborting the caller's
// mutation (spec §4.4: "exceptions in a listener do not abort the operation but
// are logged").
func (r *listenerRegistry) Notify(removed map[string]*Entry) {
	if len(removed) == 0 {
		return
	}
	for _, l := range *r.listeners.Load() {
		r.invokeSafely(l.fn, removed)
	}
}

func (r *listenerRegistry) invokeSafely(fn RemovalListener, removed map[string]*Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			logListenerPanic(rec)
		}
	}()
	fn(removed)
}
