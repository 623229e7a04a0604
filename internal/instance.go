package internal

import (
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"io"
	"os"
	"strconv"
	"strings"
)

const PIDFileName = "tunnel.pid"

type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	if e.PID == 0 {
		return "another instance is already running"
	}
	return fmt.Sprintf("another instance is already running (pid %d)", e.PID)
}

// InstanceLock is an exclusive flock on a pid file. The file is left in
// place on release but emptied.
type InstanceLock struct {
	f *os.File
}

func AcquireInstanceLock(path string) (*InstanceLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening pid file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		defer f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &AlreadyRunningError{PID: readPID(f)}
		}
		return nil, fmt.Errorf("error locking pid file %s: %w", path, err)
	}

	if err := writePID(f, os.Getpid()); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("error writing pid file %s: %w", path, err)
	}

	return &InstanceLock{f: f}, nil
}

func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	defer func() { l.f = nil }()

	truncErr := l.f.Truncate(0)
	unlockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return errors.Join(truncErr, unlockErr, l.f.Close())
}

func readPID(f *os.File) int {
	bs, err := io.ReadAll(io.NewSectionReader(f, 0, 32))
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(bs)))
	return pid
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0)
	return err
}
