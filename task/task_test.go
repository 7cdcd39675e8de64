package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetTestTask(t *testing.T) {
	t1 := GetTestTask(t)
	t2 := GetTestTask(t)
	require.NotNil(t, t1)
	require.Equal(t, t1, t2)
}

func TestChildTaskCancellation(t *testing.T) {
	t.Cleanup(testCleanup)

	parent := RootTask("test", true)
	child := parent.Subtask("", true)

	go func() {
		defer child.Finish(nil)
		for {
			select {
			case <-child.Context().Done():
				return
			default:
				continue
			}
		}
	}()

	parent.Finish(nil) // should also cancel child

	select {
	case <-child.Context().Done():
		require.ErrorIs(t, child.Context().Err(), context.Canceled)
	default:
		t.Fatal("subTask context was not canceled as expected")
	}
}

func TestTaskStuck(t *testing.T) {
	t.Cleanup(testCleanup)
	task := RootTask("test", true)
	task.OnCancel("second", func() {
		time.Sleep(time.Second)
	})
	done := make(chan struct{})
	go func() {
		task.FinishAndWait(nil)
		close(done)
	}()
	time.Sleep(time.Millisecond * 100)
	select {
	case <-done:
		t.Fatal("task finished unexpectedly")
	default:
	}
	time.Sleep(time.Second)
	select {
	case <-done:
	default:
		t.Fatal("task did not finish")
	}
}

func TestTaskOnCancelOnFinished(t *testing.T) {
	t.Cleanup(testCleanup)
	task := RootTask("test", true)

	var shouldTrueOnCancel bool
	var shouldTrueOnFinish bool

	task.OnCancel("", func() {
		shouldTrueOnCancel = true
	})
	task.OnFinished("", func() {
		shouldTrueOnFinish = true
	})

	require.False(t, shouldTrueOnFinish)
	task.FinishAndWait(nil)
	require.True(t, shouldTrueOnCancel)
	require.True(t, shouldTrueOnFinish)
}

func TestCommonFlowWithGracefulShutdown(t *testing.T) {
	t.Cleanup(testCleanup)
	task := RootTask("test", true)

	finished := false

	task.OnFinished("", func() {
		finished = true
	})

	go func() {
		defer task.FinishAndWait(nil)
		for {
			select {
			case <-task.Context().Done():
				return
			default:
				continue
			}
		}
	}()

	require.NoError(t, gracefulShutdown(1*time.Second))
	require.True(t, finished)

	require.ErrorIs(t, context.Cause(task.Context()), ErrProgramExiting)
	require.ErrorIs(t, task.Context().Err(), context.Canceled)
	require.ErrorIs(t, task.FinishCause(), ErrProgramExiting)
}

func TestTimeoutOnGracefulShutdown(t *testing.T) {
	t.Cleanup(testCleanup)
	_ = RootTask("test", true)

	require.ErrorIs(t, gracefulShutdown(time.Millisecond), context.DeadlineExceeded)
}

func TestFinishMultipleCalls(t *testing.T) {
	t.Cleanup(testCleanup)
	task := RootTask("test", true)
	var wg sync.WaitGroup
	n := 20
	for range n {
		wg.Go(func() {
			task.Finish(nil)
		})
	}
	wg.Wait()
}

func BenchmarkTasksNoFinish(b *testing.B) {
	for b.Loop() {
		task := RootTask("", false)
		task.Subtask("", false).Finish(nil)
		task.Finish(nil)
	}
}

func BenchmarkTasksNeedFinish(b *testing.B) {
	for b.Loop() {
		task := RootTask("test", true)
		task.Subtask("", true).Finish(nil)
		task.Finish(nil)
	}
}

func BenchmarkContextWithCancel(b *testing.B) {
	for b.Loop() {
		task, taskCancel := context.WithCancelCause(b.Context())
		taskCancel(nil)
		<-task.Done()
	}
}
