package audio

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Fanout reads one source and hands every frame to each of its branches,
// so several consumers can share a single capture stream.
type Fanout struct {
	src      Source
	branches []*branch

	mu  sync.Mutex
	err error // Set once the pump stops
}

type branch struct {
	parent *Fanout
	frames chan []int16
}

// NewFanout creates n branches over src. Each branch buffers up to depth frames.
func NewFanout(src Source, n, depth int) *Fanout {
	if depth < 1 {
		depth = 1
	}
	f := &Fanout{src: src}
	for i := 0; i < n; i++ {
		f.branches = append(f.branches, &branch{parent: f, frames: make(chan []int16, depth)})
	}
	return f
}

// Branch returns the i-th consumer. Closing a branch does not close the source.
func (f *Fanout) Branch(i int) Source {
	return f.branches[i]
}

// Run pumps frames until the context is canceled or the source fails.
// Branches see the source error after their buffered frames; a canceled
// context ends them with io.EOF.
func (f *Fanout) Run(ctx context.Context) error {
	err := f.pump(ctx)

	f.mu.Lock()
	f.err = err
	if err == nil {
		f.err = io.EOF
	}
	f.mu.Unlock()

	for _, b := range f.branches {
		close(b.frames)
	}

	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (f *Fanout) pump(ctx context.Context) error {
	for {
		frame, err := f.src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, b := range f.branches {
			// Each branch gets its own copy
			out := make([]int16, len(frame))
			copy(out, frame)

			select {
			case b.frames <- out:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Close closes the underlying source
func (f *Fanout) Close() error {
	return f.src.Close()
}

func (b *branch) ReadFrame(ctx context.Context) ([]int16, error) {
	select {
	case frame, ok := <-b.frames:
		if !ok {
			b.parent.mu.Lock()
			defer b.parent.mu.Unlock()
			return nil, b.parent.err
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *branch) Close() error {
	return nil
}
