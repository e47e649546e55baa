package cursor

import "sync"

// Locker keeps two runs of the same job from overlapping inside one process.
type Locker struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewLocker() *Locker {
	return &Locker{running: map[string]bool{}}
}

// TryLock claims job. ok is false when it is already held; otherwise unlock
// must be called once the run finishes.
func (l *Locker) TryLock(job string) (unlock func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running[job] {
		return nil, false
	}
	l.running[job] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.running, job)
			l.mu.Unlock()
		})
	}, true
}
