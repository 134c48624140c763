package owner

import (
	"context"
	"sync/atomic"
)

// SnapshotLoader produces a fresh directory snapshot. *Loader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LoadResult is delivered by LoadAsync.
type LoadResult struct {
	Snapshot *Snapshot
	Err      error
}

// Directory holds the current snapshot on behalf of a caller and announces every
// replacement. Concurrent loads are not serialised: whichever completes last wins,
// so callers should not trigger a load while one is in flight.
type Directory struct {
	loader   SnapshotLoader
	current  atomic.Pointer[Snapshot]
	onUpdate func(*Snapshot)
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithUpdateListener registers the DirectoryUpdated callback. It runs on the
// goroutine that replaced the snapshot, after the replacement.
func WithUpdateListener(fn func(*Snapshot)) DirectoryOption {
	return func(d *Directory) { d.onUpdate = fn }
}

// NewDirectory creates a directory with an empty current snapshot.
func NewDirectory(loader SnapshotLoader, opts ...DirectoryOption) *Directory {
	d := &Directory{loader: loader}
	for _, opt := range opts {
		opt(d)
	}
	d.current.Store(Empty())
	return d
}

// Current returns the current snapshot; never nil.
func (d *Directory) Current() *Snapshot {
	return d.current.Load()
}

// Load runs the loader, replaces the current snapshot and fires one update.
// On a partial failure the partial snapshot is installed and the *LoadError returned.
func (d *Directory) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := d.loader.Load(ctx)
	if snap == nil {
		snap = Empty()
	}
	d.replace(snap)
	return snap, err
}

// LoadAsync runs Load on a new goroutine. The channel yields exactly one result
// and is then closed.
func (d *Directory) LoadAsync(ctx context.Context) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	go func() {
		defer close(out)
		snap, err := d.Load(ctx)
		out <- LoadResult{Snapshot: snap, Err: err}
	}()
	return out
}

// Invalidate clears the directory and fires one update without touching the store.
func (d *Directory) Invalidate() {
	d.replace(Empty())
}

func (d *Directory) replace(snap *Snapshot) {
	d.current.Store(snap)
	if d.onUpdate != nil {
		d.onUpdate(snap)
	}
}
