package session

import "sync"

// ResolvedApp is the single shared "product currently believed to be in view"
// value. It is owned by the session manager, which clears it whenever the
// session is not actively tracking a resolved store product; collaborators
// hold the handle and read it.
type ResolvedApp struct {
	mu sync.RWMutex
	id string
}

func (r *ResolvedApp) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

func (r *ResolvedApp) set(id string) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

func (r *ResolvedApp) clear() {
	r.set("")
}
