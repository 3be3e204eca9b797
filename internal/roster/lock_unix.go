//go:build unix

package roster

import (
	"os"

	"golang.org/x/sys/unix"
)

func (l *writeLocker) tryLock() error {
	return unix.Flock(int(l.lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func (l *writeLocker) unlock() {
	if l.lockFile != nil {
		unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
	}
}

func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(unix.Signal(0)) == nil
}
