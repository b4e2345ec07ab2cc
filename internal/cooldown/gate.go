package cooldown

import (
	"sort"
	"sync"
	"time"
)

// Gate rate-limits alerts per metric. It owns all last-alert timestamps;
// a metric with no entry, or whose entry has aged past the cooldown, may
// alert again. The check-and-set in TryAcquire is atomic so two concurrent
// evaluations of the same metric cannot both pass.
type Gate struct {
	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// State describes one metric's position in the cooldown cycle.
type State struct {
	Metric      string    `json:"metric"`
	LastAlertAt time.Time `json:"last_alert_at"`
	Suppressed  bool      `json:"suppressed"`
	Remaining   int64     `json:"remaining_seconds"`
}

// NewGate creates an empty gate: every metric starts cooled down.
func NewGate() *Gate {
	return &Gate{lastAlert: make(map[string]time.Time)}
}

// TryAcquire reports whether an alert for the metric may be dispatched now.
// On success it records now as the last-alert time; on failure state is
// left unchanged. The transition back to cooled-down is lazy: it happens
// simply by enough time having passed at the next call.
func (g *Gate) TryAcquire(name string, now time.Time, cooldown time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastAlert[name]
	if ok && now.Sub(last) < cooldown {
		return false
	}
	g.lastAlert[name] = now
	return true
}

// Remaining returns how long until the metric may alert again; zero when
// it is already permitted.
func (g *Gate) Remaining(name string, now time.Time, cooldown time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastAlert[name]
	if !ok {
		return 0
	}
	rem := cooldown - now.Sub(last)
	if rem < 0 {
		return 0
	}
	return rem
}

// Snapshot returns the state of every metric that has alerted at least once.
func (g *Gate) Snapshot(now time.Time, cooldown time.Duration) []State {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]State, 0, len(g.lastAlert))
	for name, last := range g.lastAlert {
		rem := cooldown - now.Sub(last)
		if rem < 0 {
			rem = 0
		}
		out = append(out, State{
			Metric:      name,
			LastAlertAt: last,
			Suppressed:  rem > 0,
			Remaining:   int64(rem / time.Second),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}
