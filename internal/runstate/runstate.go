// Package runstate rejects overlapping runs of the same operation, both
// inside one process (Guard) and across processes (FileLock).
package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"chapterize/internal/services"
)

// ErrBusy is returned when an operation of the same class is already running.
var ErrBusy = services.ErrBusy

// State is the run state of an operation class.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Guard tracks one operation class. The zero value is an idle guard.
type Guard struct {
	mu    sync.Mutex
	name  string
	state State
}

// NewGuard returns an idle guard labelled for error messages.
func NewGuard(name string) *Guard {
	return &Guard{name: name}
}

// TryStart moves the guard to Running. The returned release func moves it
// back to Idle and is safe to call more than once.
func (g *Guard) TryStart() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Running {
		return nil, fmt.Errorf("%s: %w", g.label(), ErrBusy)
	}
	g.state = Running
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.state = Idle
			g.mu.Unlock()
		})
	}, nil
}

// State reports the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) label() string {
	if g.name == "" {
		return "operation"
	}
	return g.name
}

// FileLock is an advisory lock file held for the length of a run.
type FileLock struct {
	path string
	lock *flock.Flock
}

// AcquireFileLock takes the lock at path without blocking. Another holder
// yields ErrBusy.
func AcquireFileLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s held by another process: %w", path, ErrBusy)
	}
	return &FileLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// Release unlocks the file. The lock file itself is left in place.
func (l *FileLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
