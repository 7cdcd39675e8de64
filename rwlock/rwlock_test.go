package rwlock_test

import (
	"sync"
	"testing"
	"time"

	cerr "github.com/coriolis-labs/concord/errs"
	expect "github.com/coriolis-labs/concord/internal/expect"
	"github.com/coriolis-labs/concord/rwlock"
)

func TestWriterBlocksUntilReadersRelease(t *testing.T) {
	l := rwlock.New()
	l.AcquireReader()
	l.AcquireReader()

	writerAcquired := make(chan struct{})
	go func() {
		l.AcquireWriter()
		close(writerAcquired)
	}()

	select {
	case <-writerAcquired:
		t.Fatal("writer should not acquire while readers hold the lock")
	case <-time.After(50 * time.Millisecond):
	}

	l.ReleaseReader()
	select {
	case <-writerAcquired:
		t.Fatal("writer should not acquire with one reader still holding it")
	case <-time.After(50 * time.Millisecond):
	}

	l.ReleaseReader()
	select {
	case <-writerAcquired:
	case <-time.After(time.Second):
		t.Fatal("writer should acquire once all readers release")
	}
	l.ReleaseWriter()
}

func TestWriterExcludesEveryone(t *testing.T) {
	l := rwlock.New()
	l.AcquireWriter()

	blocked := make(chan string, 2)
	go func() {
		l.AcquireReader()
		blocked <- "reader"
		l.ReleaseReader()
	}()
	go func() {
		l.AcquireWriter()
		blocked <- "writer"
		l.ReleaseWriter()
	}()

	select {
	case <-blocked:
		t.Fatal("no acquirer should succeed while the writer holds the lock")
	case <-time.After(50 * time.Millisecond):
	}
	l.ReleaseWriter()

	received := map[string]bool{}
	for range 2 {
		received[<-blocked] = true
	}
	expect.True(t, received["reader"])
	expect.True(t, received["writer"])
}

func TestTimedAcquireTimesOut(t *testing.T) {
	l := rwlock.New()
	l.AcquireWriter()

	start := time.Now()
	err := l.TimedAcquireReader(100)
	elapsed := time.Since(start)

	expect.Equal(t, cerr.KindOf(err), cerr.KindTimeout)
	expect.True(t, elapsed >= 100*time.Millisecond)
}

func TestTimedAcquireSucceedsWithinDeadline(t *testing.T) {
	l := rwlock.New()
	l.AcquireWriter()

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.ReleaseWriter()
	}()

	expect.NoError(t, l.TimedAcquireWriter(1000))
	l.ReleaseWriter()
}

func TestManyReadersOneAtATime(t *testing.T) {
	l := rwlock.New()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AcquireReader()
			defer l.ReleaseReader()
			time.Sleep(time.Millisecond)
		}()
	}
	wg.Wait()
}

func TestInvalidTimeout(t *testing.T) {
	l := rwlock.New()
	expect.Equal(t, cerr.KindOf(l.TimedAcquireReader(0)), cerr.KindInvalidArgument)
	expect.Equal(t, cerr.KindOf(l.TimedAcquireWriter(-1)), cerr.KindInvalidArgument)
}
