// Package lock serializes applies against one project. The memory locker
// covers a single process; the Redis locker covers server replicas sharing a
// project volume.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when another holder owns the lock
var ErrLocked = errors.New("project is locked by another run")

// ErrNotHeld is returned when releasing a lock that expired or was taken over
var ErrNotHeld = errors.New("lock is no longer held")

// Release gives a lock back
type Release func(ctx context.Context) error

// Locker hands out named locks
type Locker interface {
	// TryLock takes key or fails with ErrLocked
	TryLock(ctx context.Context, key string) (Release, error)
}

// Lock waits until key is free, polling every interval, or ctx is done
func Lock(ctx context.Context, l Locker, key string, interval time.Duration) (Release, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		release, err := l.TryLock(ctx, key)
		if !errors.Is(err, ErrLocked) {
			return release, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// MemoryLocker is an in-process Locker
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]string
}

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]string)}
}

func (m *MemoryLocker) TryLock(_ context.Context, key string) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	m.held[key] = token

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.held[key] != token {
			return ErrNotHeld
		}
		delete(m.held, key)
		return nil
	}, nil
}
