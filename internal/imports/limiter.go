package imports

// limiter.go bounds how much import work runs at once.
//
// Limiter caps the number of previews and commits processed in parallel.
// When all slots are taken, callers wait up to maxWait before failing with
// ErrTooManyImports. WaitForDrain lets shutdown wait for in-flight work.
//
// TargetLocks serializes commits against the same target table inside this
// process. Stores that are shared between processes take their own lock as
// well (the PostgreSQL store uses an advisory lock).

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when no slot frees up before the wait timeout.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

const (
	DefaultMaxConcurrentImports = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// Limiter is a counting semaphore for import work.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter creates a limiter with maxConcurrent slots.
// Non-positive arguments fall back to the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most the configured time.
// Callers must Release the slot when done.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// ActiveCount returns the number of slots in use.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no slot is in use or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot for health output.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}

// TargetLocks hands out one mutual-exclusion lock per target name.
// The zero value is not usable; create it with NewTargetLocks.
type TargetLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewTargetLocks() *TargetLocks {
	return &TargetLocks{locks: make(map[string]chan struct{})}
}

// Lock blocks until the target is free or ctx is done.
// The returned function releases the lock and must be called exactly once.
func (t *TargetLocks) Lock(ctx context.Context, target string) (func(), error) {
	t.mu.Lock()
	ch, ok := t.locks[target]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[target] = ch
	}
	t.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
