package watcher

import "sync"

// Feed is a push-driven Source. The local API publishes host routing events
// into it; the watcher consumes them.
type Feed struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]func(Location)
	current *Location
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]func(Location))}
}

// Publish records the location and fans it out to subscribers in
// delivery order.
func (f *Feed) Publish(loc Location) {
	f.mu.Lock()
	f.current = &loc
	fns := make([]func(Location), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
}

func (f *Feed) Subscribe(fn func(Location)) (stop func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Feed) Location() (Location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return Location{}, false
	}
	return *f.current, true
}
