package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry hands out named counters and remembers the last observed duration per name.
type Registry struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	durations map[string]time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Counter),
		durations: make(map[string]time.Duration),
	}
}

// Counter returns the counter registered under name, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[name]
	if !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) ObserveDuration(name string, d time.Duration) {
	r.mu.Lock()
	r.durations[name] = d
	r.mu.Unlock()
}

type Snapshot struct {
	Counters  map[string]uint64 `json:"counters"`
	Durations map[string]string `json:"durations"`
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Counters:  make(map[string]uint64, len(r.counters)),
		Durations: make(map[string]string, len(r.durations)),
	}
	for name, c := range r.counters {
		s.Counters[name] = c.Load()
	}
	for name, d := range r.durations {
		s.Durations[name] = d.String()
	}
	return s
}
