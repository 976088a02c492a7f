// Package lock serializes writers of the same download target across
// processes with a "<target>.lock" file holding the owner's PID.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	retryDelay = 100 * time.Millisecond
	waitDelay  = 200 * time.Millisecond
	// An unreadable lock younger than this is still being written.
	graceDelay = 2 * time.Second
)

// Path returns the lock file guarding target.
func Path(target string) string {
	return target + ".lock"
}

// Acquire locks target by creating its lock file exclusively.
// A lock held by a live process is waited on until ctx is done; a lock whose
// owner is gone is removed and taken over.
// The returned function releases the lock.
func Acquire(ctx context.Context, target string) (func() error, error) {
	lockFile := Path(target)

	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent dir for lock: %w", err)
	}

	for {
		f, err := os.OpenFile(lockFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), os.Getpid())
			if _, err := f.WriteString(content); err != nil {
				f.Close()
				os.Remove(lockFile)
				return nil, fmt.Errorf("failed to write to lock file: %w", err)
			}
			f.Close()

			return func() error {
				return os.Remove(lockFile)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		pid, err := readOwner(lockFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// released between our create and read
			continue
		case err != nil:
			if isFresh(lockFile) {
				// the owner may not have written its pid yet
				break
			}
			slog.Debug("removing unreadable lock", "path", lockFile, "error", err)
			os.Remove(lockFile)
			continue
		case !isPidAlive(pid):
			slog.Debug("removing stale lock", "path", lockFile, "pid", pid)
			os.Remove(lockFile)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitDelay):
		}
	}
}

// With runs fn while holding the lock on target.
func With(ctx context.Context, target string, fn func() error) error {
	unlock, err := Acquire(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func readOwner(lockFile string) (int, error) {
	content, err := os.ReadFile(lockFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		// transient access error, give the writer a moment
		time.Sleep(retryDelay)
		content, err = os.ReadFile(lockFile)
		if err != nil {
			return 0, err
		}
	}

	parts := strings.Fields(string(content))
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed lock file %q", string(content))
	}
	return strconv.Atoi(parts[len(parts)-1])
}

func isFresh(lockFile string) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < graceDelay
}

func isPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}

	// EPERM: the process exists but belongs to someone else.
	return true
}
