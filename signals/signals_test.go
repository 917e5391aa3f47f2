package signals

import (
	"sync/atomic"
	"testing"
)

func TestStop_RunsCleanupExactlyOnce(t *testing.T) {
	var calls int32
	h := Install(func() { atomic.AddInt32(&calls, 1) })
	h.Stop()
	h.Stop()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("cleanup ran %d times, want 1", got)
	}
}

func TestInstall_NilCleanupIsSafe(t *testing.T) {
	h := Install(nil)
	h.Stop()
}
