//go:build unix

package lockfile

import (
	"errors"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func openTemp(t *testing.T) *os.File {
	t.Helper()

	f, err := os.Create(tempPath(t, "lock"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return f
}

func Test_ExclusiveLockProvider_Retries_When_Flock_Is_Interrupted(t *testing.T) {
	t.Parallel()

	calls := 0
	p := ExclusiveLockProvider{flock: func(int, int) error {
		calls++
		if calls < 4 {
			return unix.EINTR
		}

		return nil
	}}

	tok, err := p.Acquire(openTemp(t))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if calls != 4 {
		t.Fatalf("flock calls=%d, want 4", calls)
	}

	if err := tok.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func Test_ExclusiveLockProvider_Maps_WouldBlock_To_ErrLockUnavailable(t *testing.T) {
	t.Parallel()

	for _, errno := range []error{unix.EWOULDBLOCK, unix.EAGAIN} {
		p := ExclusiveLockProvider{flock: func(int, int) error { return errno }}

		_, err := p.Acquire(openTemp(t))
		if !errors.Is(err, ErrLockUnavailable) {
			t.Fatalf("%v: err=%v, want %v", errno, err, ErrLockUnavailable)
		}
	}
}

func Test_ExclusiveLockProvider_Wraps_Other_Flock_Errors(t *testing.T) {
	t.Parallel()

	p := ExclusiveLockProvider{flock: func(int, int) error { return unix.ENOLCK }}

	_, err := p.Acquire(openTemp(t))
	if !errors.Is(err, unix.ENOLCK) {
		t.Fatalf("err=%v, want it to wrap ENOLCK", err)
	}

	if errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("ENOLCK must not be reported as contention")
	}
}

func Test_ExclusiveLockProvider_Release_Unlocks_Once(t *testing.T) {
	t.Parallel()

	var hows []int
	p := ExclusiveLockProvider{flock: func(_ int, how int) error {
		hows = append(hows, how)
		return nil
	}}

	tok, err := p.Acquire(openTemp(t))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	for range 3 {
		if err := tok.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}

	want := []int{unix.LOCK_EX | unix.LOCK_NB, unix.LOCK_UN}
	if len(hows) != len(want) || hows[0] != want[0] || hows[1] != want[1] {
		t.Fatalf("flock calls=%v, want %v", hows, want)
	}
}

func Test_ExclusiveLockProvider_Excludes_Second_Descriptor_In_Same_Process(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "shared")

	a, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	b, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	p := ExclusiveLockProvider{}

	tok, err := p.Acquire(a)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}

	if _, err := p.Acquire(b); !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("Acquire b: err=%v, want %v", err, ErrLockUnavailable)
	}

	if err := tok.Release(); err != nil {
		t.Fatalf("Release a: %v", err)
	}

	tokB, err := p.Acquire(b)
	if err != nil {
		t.Fatalf("Acquire b after release: %v", err)
	}

	_ = tokB.Release()
}
