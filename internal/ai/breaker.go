package ai

import (
    "strings"
    "sync"
    "time"
)

// Breaker is an in-process circuit breaker keyed by provider:model with
// exponential cooldown backoff.
type Breaker struct {
    mu          sync.Mutex
    baseBackoff time.Duration
    maxBackoff  time.Duration
    until       map[string]time.Time
    attempts    map[string]int
}

func NewBreaker(base, max time.Duration) *Breaker {
    if base <= 0 { base = 30 * time.Second }
    if max <= 0 { max = 5 * time.Minute }
    return &Breaker{
        baseBackoff: base,
        maxBackoff:  max,
        until:       map[string]time.Time{},
        attempts:    map[string]int{},
    }
}

func key(provider, model string) string {
    return strings.ToLower(provider) + ":" + strings.ToLower(model)
}

// IsOpen returns true if the breaker is open (cooldown active).
func (b *Breaker) IsOpen(provider, model string) bool {
    b.mu.Lock()
    defer b.mu.Unlock()
    return time.Now().Before(b.until[key(provider, model)])
}

// Open sets/extends the cooldown with exponential backoff per attempt.
func (b *Breaker) Open(provider, model string) {
    k := key(provider, model)
    b.mu.Lock()
    defer b.mu.Unlock()
    b.attempts[k]++
    // Double per attempt but stop once the cap is reached; a shift would
    // overflow the duration during a long outage.
    d := b.baseBackoff
    for i := 1; i < b.attempts[k] && d < b.maxBackoff; i++ {
        d *= 2
    }
    if d > b.maxBackoff { d = b.maxBackoff }
    b.until[k] = time.Now().Add(d)
}

// Close resets the breaker for provider/model.
func (b *Breaker) Close(provider, model string) {
    k := key(provider, model)
    b.mu.Lock()
    defer b.mu.Unlock()
    delete(b.until, k)
    delete(b.attempts, k)
}
