package roster

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	lockSuffix     = ".lock"
	defaultTimeout = 2 * time.Second
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 100 * time.Millisecond
)

// writeLocker serializes roster saves across processes with an OS file lock
// held on {roster}.lock. The lock dies with the process.
type writeLocker struct {
	lockPath string
	lockFile *os.File
}

func newWriteLocker(rosterPath string) *writeLocker {
	return &writeLocker{lockPath: rosterPath + lockSuffix}
}

// acquire takes the exclusive lock, retrying with backoff until timeout.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open roster lock: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			holder := l.readHolder()
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("roster write lock timeout after %v (holder: %s)", timeout, holder)
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func (l *writeLocker) release() error {
	if l.lockFile == nil {
		return nil
	}
	l.lockFile.Truncate(0)
	l.unlock()
	err := l.lockFile.Close()
	l.lockFile = nil
	return err
}

func (l *writeLocker) writeHolder() {
	l.lockFile.Truncate(0)
	l.lockFile.Seek(0, 0)
	fmt.Fprintf(l.lockFile, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.lockFile.Sync()
}

func (l *writeLocker) readHolder() string {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return "unknown"
	}

	var pid, since string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		switch {
		case strings.HasPrefix(line, "pid:"):
			pid = strings.TrimPrefix(line, "pid:")
		case strings.HasPrefix(line, "time:"):
			since = strings.TrimPrefix(line, "time:")
		}
	}
	if pid == "" {
		return "unknown"
	}
	if n, err := strconv.Atoi(pid); err == nil && !isProcessAlive(n) {
		return fmt.Sprintf("pid:%s since %s (stale)", pid, since)
	}
	return fmt.Sprintf("pid:%s since %s", pid, since)
}
