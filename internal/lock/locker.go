package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyHeld is returned when this Locker instance already holds a
	// lock; a process operates one profile at a time.
	ErrAlreadyHeld = errors.New("another profile is already locked")

	// ErrHeldElsewhere is returned when the on-disk lock belongs to a live
	// process other than ours.
	ErrHeldElsewhere = errors.New("profile is locked by another instance")
)

// Locker hands out per-name advisory locks backed by lock files. A Locker
// holds at most one Guard at a time. Instances are independent: tests run
// one Locker per simulated process against a shared directory.
type Locker struct {
	dir string
	log zerolog.Logger

	mu  sync.Mutex
	cur *Guard
}

// New returns a Locker writing lock files into dir.
func New(dir string, log zerolog.Logger) *Locker {
	return &Locker{dir: dir, log: log}
}

// Guard is the ownership token for one acquired lock. Release is
// idempotent, so cleanup paths may release speculatively.
type Guard struct {
	l        *Locker
	name     string
	path     string
	released bool
}

// Name returns the profile name the guard was acquired for.
func (g *Guard) Name() string {
	g.l.mu.Lock()
	defer g.l.mu.Unlock()
	return g.name
}

// HasLock reports whether this Locker currently holds any lock.
func (l *Locker) HasLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur != nil
}

// LockName returns the name of the held lock, or "".
func (l *Locker) LockName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return ""
	}
	return l.cur.name
}

// TryLock acquires the lock for name. It fails with ErrAlreadyHeld when
// this Locker already holds one and ErrHeldElsewhere when another live
// instance owns the lock file. A lock file left behind by a dead process is
// replaced silently.
func (l *Locker) TryLock(name string) (*Guard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur != nil {
		return nil, ErrAlreadyHeld
	}
	path := l.lockPath(name)
	if err := l.acquire(path); err != nil {
		return nil, err
	}
	l.cur = &Guard{l: l, name: name, path: path}
	return l.cur, nil
}

// Unlock releases the held lock if any. Safe to call when nothing is held.
func (l *Locker) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur != nil {
		l.cur.releaseLocked()
	}
}

// AssertLock verifies the lock is held for exactly name before a
// persistence operation. Writing without it risks racing another instance,
// so a violation panics instead of returning an error.
func (l *Locker) AssertLock(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		panic(fmt.Sprintf("lock: no lock held, expected %q", name))
	}
	if l.cur.name != name {
		panic(fmt.Sprintf("lock: held for %q, expected %q", l.cur.name, name))
	}
}

// Release drops the lock. Calling it again, or after the guard was moved by
// Relock, is a no-op.
func (g *Guard) Release() {
	g.l.mu.Lock()
	defer g.l.mu.Unlock()
	g.releaseLocked()
}

func (g *Guard) releaseLocked() {
	if g.released {
		return
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		g.l.log.Warn().Err(err).Str("path", g.path).Msg("could not remove lock file")
	}
	g.released = true
	if g.l.cur == g {
		g.l.cur = nil
	}
}

// Relock moves the guard to newName, acquiring the new lock file before
// releasing the old one. On failure the old lock stays held. At every
// instant at least one of the two lock files exists.
func (g *Guard) Relock(newName string) error {
	g.l.mu.Lock()
	defer g.l.mu.Unlock()

	if g.released || g.l.cur != g {
		return errors.New("lock: relock on released guard")
	}
	newPath := g.l.lockPath(newName)
	if err := g.l.acquire(newPath); err != nil {
		return err
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		g.l.log.Warn().Err(err).Str("path", g.path).Msg("could not remove old lock file")
	}
	g.name = newName
	g.path = newPath
	return nil
}

func (l *Locker) lockPath(name string) string {
	return filepath.Join(l.dir, name+".lock")
}

// acquire creates the lock file exclusively, stealing it once if the
// recorded owner is dead.
func (l *Locker) acquire(path string) error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return werr
			}
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}
		if !lockIsStale(path) {
			return ErrHeldElsewhere
		}
		l.log.Warn().Str("path", path).Msg("replacing stale lock file")
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return ErrHeldElsewhere
}

// lockIsStale reports whether the lock file's recorded process is gone.
// Unreadable or garbled contents count as stale: there is no owner to wait
// for.
func lockIsStale(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return true
	}
	if pid == os.Getpid() {
		return false
	}
	// Signal 0 probes existence without delivering anything.
	err = syscall.Kill(pid, 0)
	return err != nil && !errors.Is(err, syscall.EPERM)
}
