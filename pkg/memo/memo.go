// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memo provides compute-once cells for lazily derived paper fields.
// A cell moves from Uncomputed to either Computed or Failed exactly once and
// never recomputes. A failure is cached like a value.
package memo

import "sync"

// State is the lifecycle position of a Cell.
type State int

const (
	Uncomputed State = iota
	Computed
	Failed
)

func (s State) String() string {
	switch s {
	case Computed:
		return "computed"
	case Failed:
		return "failed"
	default:
		return "uncomputed"
	}
}

// Cell holds a lazily computed value. The zero value is an Uncomputed cell.
// Resolve is safe for concurrent use; the compute function runs at most once.
type Cell[T any] struct {
	once  sync.Once
	mu    sync.RWMutex
	state State
	value T
}

// Resolve runs compute on the first call and caches its outcome. The boolean
// result reports whether the cell holds a value (false means Failed). Later
// calls return the cached outcome without invoking compute.
func (c *Cell[T]) Resolve(compute func() (T, bool)) (T, bool) {
	c.once.Do(func() {
		v, ok := compute()
		c.mu.Lock()
		defer c.mu.Unlock()
		if ok {
			c.value = v
			c.state = Computed
		} else {
			c.state = Failed
		}
	})
	return c.Get()
}

// Get returns the cached value without computing. It reports false for
// both Uncomputed and Failed cells; use State to tell them apart.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Computed {
		var zero T
		return zero, false
	}
	return c.value, true
}

// State returns the current lifecycle state.
func (c *Cell[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Set stores a precomputed value. It has no effect once the cell has been
// resolved and reports whether the value was stored.
func (c *Cell[T]) Set(v T) bool {
	stored := false
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.value = v
		c.state = Computed
		stored = true
	})
	return stored
}
