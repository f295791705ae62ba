package seek

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestCoordinator_SeekRuns(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New()
	var ran int32
	ok := c.Seek(context.Background(), "mac1", 30.0, func(target float64) error {
		atomic.AddInt32(&ran, 1)
		assert.Equal(t, 30.0, target)
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestCoordinator_SupersededSeekNeverExecutes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New()
	ctx := context.Background()
	var firstRan, secondRan int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The first call is issued, then immediately superseded before its
		// coalesce window elapses, so it must never run its executor.
		c.Seek(ctx, "mac1", 10.0, func(float64) error {
			atomic.AddInt32(&firstRan, 1)
			return nil
		})
	}()

	time.Sleep(2 * time.Millisecond)
	ok := c.Seek(ctx, "mac1", 20.0, func(target float64) error {
		atomic.AddInt32(&secondRan, 1)
		assert.Equal(t, 20.0, target)
		return nil
	})

	<-done
	assert.True(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&firstRan))
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondRan))
}

func TestCoordinator_ExecutorErrorReturnsFalse(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New()
	ok := c.Seek(context.Background(), "mac1", 5.0, func(float64) error {
		return assert.AnError
	})
	assert.False(t, ok)
}

func TestCoordinator_LockContentionDoesNotLeakSemaphore(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New()
	ctx := context.Background()
	holding := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Seek(ctx, "mac1", 1.0, func(float64) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding // the first seek now holds the executor semaphore

	// A second seek for the same player, arriving while the first still
	// holds the semaphore, must be dropped once lockTimeout elapses
	// rather than blocking forever.
	contended := c.Seek(ctx, "mac1", 2.0, func(float64) error {
		t.Fatal("contended seek must not run its executor")
		return nil
	})
	assert.False(t, contended)

	close(release)
	<-done

	// The semaphore must not have leaked: a later seek for the same
	// player must still be able to acquire it.
	var ran int32
	ok := c.Seek(ctx, "mac1", 3.0, func(target float64) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestCoordinator_CleanupPlayerCancelsPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New()
	ctx := context.Background()
	var ran int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Seek(ctx, "mac1", 10.0, func(float64) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}()

	time.Sleep(2 * time.Millisecond)
	c.CleanupPlayer("mac1")
	<-done

	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}
