//go:build unix

package roster

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteLocker_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	locker := newWriteLocker(path)

	if err := locker.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	data, err := os.ReadFile(path + lockSuffix)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if len(data) == 0 {
		t.Error("lock file should contain holder info")
	}
	if err := locker.release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestWriteLocker_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")

	holder := newWriteLocker(path)
	if err := holder.acquire(time.Second); err != nil {
		t.Fatal(err)
	}
	defer holder.release()

	waiter := newWriteLocker(path)
	start := time.Now()
	if err := waiter.acquire(50 * time.Millisecond); err == nil {
		waiter.release()
		t.Fatal("second acquire should time out")
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("acquire returned before timeout")
	}
}

func TestWriteLocker_Serializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				l := newWriteLocker(path)
				if err := l.acquire(5 * time.Second); err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				val := atomic.LoadInt64(&counter)
				time.Sleep(time.Millisecond)
				atomic.StoreInt64(&counter, val+1)
				l.release()
			}
		}()
	}
	wg.Wait()

	if counter != 20 {
		t.Errorf("counter = %d, want 20 (lost updates mean the lock did not serialize)", counter)
	}
}
