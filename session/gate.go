package session

import (
	"context"
	"sync"
)

// gate is a binary broadcast signal. When open, waiters pass through at
// once; when shut, all waiters block until the gate opens again. It
// carries no payload and keeps no count: repeated shuts (or opens)
// collapse into one.
type gate struct {
	mu sync.Mutex
	ch chan struct{}
}

func newGate() *gate {
	g := &gate{ch: make(chan struct{})}
	close(g.ch)
	return g
}

func (g *gate) shut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
	}
}

func (g *gate) open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
	default:
		close(g.ch)
	}
}

// wait blocks until the gate is open or the context ends. A gate that
// reopens and shuts again while the caller is between the load and the
// receive still releases the caller: it saw an open gate.
func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
