package pipeline

import (
	"context"
	"sync"
)

// Distributor holds the single most recent frame and serves it to any
// number of independent stream consumers. Publish is O(1) and never blocks
// on consumer speed; consumers that fall behind silently skip intermediate
// frames rather than building a backlog.
//
// Consumers do not register anywhere: each one carries its own cursor (the
// sequence number it last saw) and waits on a notification channel that is
// closed whenever a newer frame lands. Disconnecting is just abandoning the
// wait via context cancellation, so there is no registration to leak.
type Distributor struct {
	mu     sync.Mutex
	latest *Frame
	// next is closed and replaced on every publish, waking all waiters.
	next chan struct{}
}

// NewDistributor returns an empty distributor.
func NewDistributor() *Distributor {
	return &Distributor{next: make(chan struct{})}
}

// Publish replaces the held latest frame. The frame must not be mutated
// after this call.
func (d *Distributor) Publish(f *Frame) {
	d.mu.Lock()
	d.latest = f
	close(d.next)
	d.next = make(chan struct{})
	d.mu.Unlock()
}

// Latest returns the current frame without waiting, or nil if nothing has
// been published yet.
func (d *Distributor) Latest() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Next blocks until a frame with a sequence number greater than after is
// available, then returns it. Frames are always returned in increasing
// sequence order for a given consumer; a slow consumer observes gaps.
// Cancelling ctx detaches the caller immediately.
func (d *Distributor) Next(ctx context.Context, after uint64) (*Frame, error) {
	for {
		d.mu.Lock()
		f, wait := d.latest, d.next
		d.mu.Unlock()

		if f != nil && f.Seq > after {
			return f, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}
