package lock_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"waxwing/internal/lock"
)

func TestTryLock_SecondNameRejected(t *testing.T) {
	l := lock.New(t.TempDir(), zerolog.Nop())

	g, err := l.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !l.HasLock() || l.LockName() != "alice" {
		t.Fatalf("HasLock=%v LockName=%q after acquire", l.HasLock(), l.LockName())
	}

	if _, err := l.TryLock("bob"); !errors.Is(err, lock.ErrAlreadyHeld) {
		t.Fatalf("second TryLock: got %v, want ErrAlreadyHeld", err)
	}

	g.Release()
	if l.HasLock() {
		t.Fatal("HasLock after Release")
	}
	if _, err := l.TryLock("bob"); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
}

func TestTryLock_OtherInstanceBlocks(t *testing.T) {
	dir := t.TempDir()
	first := lock.New(dir, zerolog.Nop())
	second := lock.New(dir, zerolog.Nop())

	g, err := first.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	if _, err := second.TryLock("alice"); !errors.Is(err, lock.ErrHeldElsewhere) {
		t.Fatalf("cross-instance TryLock: got %v, want ErrHeldElsewhere", err)
	}

	g.Release()
	g2, err := second.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	g2.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	l := lock.New(t.TempDir(), zerolog.Nop())
	g, err := l.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	g.Release()
	g.Release()
	l.Unlock() // nothing held, still a no-op
}

func TestRelock_NeverFullyUnlocked(t *testing.T) {
	dir := t.TempDir()
	l := lock.New(dir, zerolog.Nop())

	g, err := l.TryLock("old")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := g.Relock("new"); err != nil {
		t.Fatalf("Relock: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "new.lock")); err != nil {
		t.Fatalf("new lock file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "old.lock")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("old lock file still present: %v", err)
	}
	if l.LockName() != "new" {
		t.Fatalf("LockName=%q after relock", l.LockName())
	}
	l.AssertLock("new")
}

func TestRelock_FailureKeepsOldLock(t *testing.T) {
	dir := t.TempDir()
	l := lock.New(dir, zerolog.Nop())
	other := lock.New(dir, zerolog.Nop())

	blocker, err := other.TryLock("new")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer blocker.Release()

	g, err := l.TryLock("old")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := g.Relock("new"); !errors.Is(err, lock.ErrHeldElsewhere) {
		t.Fatalf("Relock onto held name: got %v, want ErrHeldElsewhere", err)
	}

	if l.LockName() != "old" {
		t.Fatalf("LockName=%q after failed relock", l.LockName())
	}
	if _, err := os.Stat(filepath.Join(dir, "old.lock")); err != nil {
		t.Fatalf("old lock file missing after failed relock: %v", err)
	}
}

func TestTryLock_StaleGarbageStolen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alice.lock")
	if err := os.WriteFile(path, []byte("not a pid"), 0o600); err != nil {
		t.Fatalf("seed lock file: %v", err)
	}

	l := lock.New(dir, zerolog.Nop())
	g, err := l.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock over garbage lock: %v", err)
	}
	g.Release()
}

func TestTryLock_DeadOwnerStolen(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run helper process: %v", err)
	}
	deadPID := cmd.Process.Pid

	dir := t.TempDir()
	path := filepath.Join(dir, "alice.lock")
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID)+"\n"), 0o600); err != nil {
		t.Fatalf("seed lock file: %v", err)
	}

	l := lock.New(dir, zerolog.Nop())
	g, err := l.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock over dead owner: %v", err)
	}
	g.Release()
}

func TestAssertLock_PanicsWhenNotHeld(t *testing.T) {
	l := lock.New(t.TempDir(), zerolog.Nop())

	assertPanics(t, func() { l.AssertLock("alice") })

	g, err := l.TryLock("alice")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer g.Release()

	l.AssertLock("alice")
	assertPanics(t, func() { l.AssertLock("bob") })
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
}

