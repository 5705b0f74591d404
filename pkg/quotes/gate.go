package quotes

import (
    "sync"
    "time"
)

// Gate is the process-wide rate-limit cooldown. One upstream throttle signal
// blocks live fetches for every symbol, since the provider enforces a single
// shared quota.
type Gate struct {
    mu           sync.Mutex
    blockedUntil time.Time
    now          func() time.Time
}

// NewGate returns an open gate.
func NewGate() *Gate {
    return &Gate{now: time.Now}
}

// Blocked reports whether the cooldown is still active.
func (g *Gate) Blocked() bool {
    g.mu.Lock()
    defer g.mu.Unlock()
    return g.now().Before(g.blockedUntil)
}

// Trip starts a cooldown of the given duration. The deadline is overwritten
// unconditionally; repeated trips do not stack.
func (g *Gate) Trip(cooldown time.Duration) {
    g.mu.Lock()
    defer g.mu.Unlock()
    g.blockedUntil = g.now().Add(cooldown)
}
