package login

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// inflight keeps at most one login call running per view key. Duplicate
// submissions wait for the running call and share its outcome.
type inflight struct {
	group   singleflight.Group
	pending *cache.Cache

	mu      sync.Mutex
	waiting map[string]int
}

func newInflight(ttl time.Duration) *inflight {
	return &inflight{
		pending: cache.New(ttl, 2*ttl),
		waiting: make(map[string]int),
	}
}

// do runs fn unless a call for key is already pending. leader reports whether
// this caller ran fn.
func (f *inflight) do(key string, fn func() Outcome) (outcome Outcome, leader bool) {
	f.attach(key, 1)
	defer f.attach(key, -1)

	v, _, _ := f.group.Do(key, func() (any, error) {
		leader = true
		f.pending.SetDefault(key, time.Now())
		pendingLogins.Inc()
		defer func() {
			f.pending.Delete(key)
			pendingLogins.Dec()
		}()
		return fn(), nil
	})
	return v.(Outcome), leader
}

func (f *inflight) attach(key string, delta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiting[key] += delta
	if f.waiting[key] <= 0 {
		delete(f.waiting, key)
	}
	waitingSubmissions.Add(float64(delta))
}

// waiters counts the submissions for key that are running or waiting on a call.
func (f *inflight) waiters(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiting[key]
}

func (f *inflight) submitting(key string) bool {
	_, ok := f.pending.Get(key)
	return ok
}
