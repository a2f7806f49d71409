package session

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-session/core"
)

// executor gives the Sync wrappers a private execution context: each
// blocking call runs its operation on a fresh goroutine and waits for
// it, and calls are serialized so a session runs at most one blocking
// operation at a time. Re-entering a Sync wrapper from code already
// running on the executor would deadlock against the mutex, so it is
// detected by goroutine id and rejected up front.
type executor struct {
	mu  sync.Mutex
	gid atomic.Uint64
}

func (e *executor) run(task func(ctx context.Context) error) error {
	if id := currentGoroutineID(); id != 0 && id == e.gid.Load() {
		return core.NewUsageError("session: blocking call made from within a blocking operation, use the context variant instead")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		e.gid.Store(currentGoroutineID())
		defer e.gid.Store(0)
		done <- task(context.Background())
	}()
	return <-done
}

// currentGoroutineID parses the goroutine header out of a stack dump.
// Returns 0 when the header is not in the expected shape.
func currentGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
