package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndWaitReturnsResult(t *testing.T) {
	w := New()
	w.Start()
	defer w.Shutdown()

	result := w.EnqueueAndWait(func() interface{} { return 42 })
	assert.Equal(t, 42, result)
}

func TestJobsRunInSubmissionOrder(t *testing.T) {
	w := New()
	w.Start()
	defer w.Shutdown()

	var seq []int
	for i := 0; i < 5; i++ {
		i := i
		w.EnqueueAndWait(func() interface{} {
			seq = append(seq, i)
			return nil
		})
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seq)
}

func TestPanicInJobDoesNotHangCaller(t *testing.T) {
	w := New()
	w.Start()
	defer w.Shutdown()

	done := make(chan interface{}, 1)
	go func() {
		done <- w.EnqueueAndWait(func() interface{} {
			panic("boom")
		})
	}()

	select {
	case result := <-done:
		assert.Nil(t, result)
	case <-time.After(time.Second):
		t.Fatal("EnqueueAndWait hung after job panicked")
	}

	// worker must still be alive for subsequent jobs.
	result := w.EnqueueAndWait(func() interface{} { return "ok" })
	assert.Equal(t, "ok", result)
}

func TestShutdownDrainsPendingJobsWithNilResult(t *testing.T) {
	w := New()
	w.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	go w.EnqueueAndWait(func() interface{} {
		close(started)
		<-release
		return "first"
	})
	<-started

	pending := w.Submit(func() interface{} { return "never runs" })

	shutdownDone := make(chan struct{})
	go func() {
		w.Shutdown()
		close(shutdownDone)
	}()

	close(release)
	<-shutdownDone

	require.Eventually(t, func() bool {
		select {
		case v := <-pending:
			return v == nil
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	w := New()
	w.Start()
	w.Shutdown()
	w.Shutdown()
}

func TestSubmitAfterShutdownYieldsNil(t *testing.T) {
	w := New()
	w.Start()
	w.Shutdown()

	result := w.EnqueueAndWait(func() interface{} { return "unreachable" })
	assert.Nil(t, result)
}
