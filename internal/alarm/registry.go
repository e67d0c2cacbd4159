package alarm

import "sync"

// Registry is the process-wide map from recipient user id to that user's
// live emitter. One connection per browser means one emitter per connect,
// and the registry holds at most one per user: a reconnect replaces the
// previous emitter (last write wins), orphaning the old handle.
//
// Registrations, lookups and removals interleave freely across HTTP handler
// goroutines and stream teardown, so the map must be atomic per key without
// serializing unrelated users. sync.Map gives exactly that.
type Registry struct {
	emitters sync.Map // userID (uint) -> *Emitter
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores the emitter for the user, replacing any previous one
func (r *Registry) Register(userID uint, emitter *Emitter) {
	r.emitters.Store(userID, emitter)
}

// Lookup returns the user's current emitter, if any
func (r *Registry) Lookup(userID uint) (*Emitter, bool) {
	value, ok := r.emitters.Load(userID)
	if !ok {
		return nil, false
	}
	return value.(*Emitter), true
}

// Remove drops the user's registration. Removing an absent entry is a no-op.
func (r *Registry) Remove(userID uint) {
	r.emitters.Delete(userID)
}

// RemoveEmitter drops the registration only while emitter is still the
// user's current one. Teardown of a replaced emitter must not evict the
// replacement that won the reconnect race.
func (r *Registry) RemoveEmitter(userID uint, emitter *Emitter) {
	r.emitters.CompareAndDelete(userID, emitter)
}

// Count returns the number of registered emitters
func (r *Registry) Count() int {
	n := 0
	r.emitters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
