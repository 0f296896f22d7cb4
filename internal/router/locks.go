package router

import "sync"

type pathLock struct {
	sync.Mutex
	refs int
}

// pathLocks hands out one mutex per file path. entries are dropped once
// nobody holds or waits for them.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

// acquire locks name and returns the matching unlock func.
func (p *pathLocks) acquire(name string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*pathLock)
	}
	l, ok := p.locks[name]
	if !ok {
		l = &pathLock{}
		p.locks[name] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, name)
		}
		p.mu.Unlock()
	}
}
