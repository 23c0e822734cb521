package volume

import (
	"context"
	"sync"
)

// DryRun reads through to a store but keeps writes in memory.
// After the first Set, Get returns the remembered value.
type DryRun struct {
	store   Store
	mu      sync.Mutex
	percent int
	written bool
	writes  int
}

// NewDryRun wraps store
func NewDryRun(store Store) *DryRun {
	return &DryRun{store: store}
}

// Get returns the last remembered write, or the wrapped store's volume
func (d *DryRun) Get(ctx context.Context) (int, error) {
	d.mu.Lock()
	if d.written {
		defer d.mu.Unlock()
		return d.percent, nil
	}
	d.mu.Unlock()

	return d.store.Get(ctx)
}

// Set remembers percent without touching the wrapped store
func (d *DryRun) Set(ctx context.Context, percent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.percent = clampPercent(percent)
	d.written = true
	d.writes++
	return nil
}

// Writes returns how many writes were swallowed
func (d *DryRun) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
