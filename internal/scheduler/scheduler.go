// Package scheduler runs at most one delayed, cancellable action per
// session id. Timers are process local: a restart loses pending
// countdowns and the affected sessions stay active until stopped.
package scheduler

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule arms a one-shot timer for id. If a timer for id is already
// registered the call is a no-op and reports false. The registration is
// cleared before fn runs, so fn may re-arm if it needs to.
func (s *Scheduler) Schedule(id string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[id]; ok {
		return false
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.clear(id)
		fn()
	})
	return true
}

// Cancel stops and removes any pending timer for id. Cancelling an
// unknown or already-fired id is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending reports whether a timer is currently registered for id.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *Scheduler) clear(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()
}
