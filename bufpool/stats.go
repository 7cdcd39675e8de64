package bufpool

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coriolis-labs/concord/strutils"
)

// Stats tracks buffer reuse so callers can judge whether their size classes
// are well tuned. It is always-on: the teacher's split pprof/prod build-tag
// pair disagreed on the addReusedRemaining signature, so rather than carry
// that bug forward this collapses into one cheap atomic-counter path.
type poolCounters struct {
	num  atomic.Uint64
	size atomic.Uint64
}

var (
	nonPooled poolCounters
	dropped   poolCounters
	reused    poolCounters
	gced      poolCounters
)

func addNonPooled(size int) {
	nonPooled.num.Add(1)
	nonPooled.size.Add(uint64(size))
}

func addReused(size int) {
	reused.num.Add(1)
	reused.size.Add(uint64(size))
}

func addReusedRemaining(size int) {
	reused.num.Add(1)
	reused.size.Add(uint64(size))
}

func addDropped(size int) {
	dropped.num.Add(1)
	dropped.size.Add(uint64(size))
}

func addGced(size int) {
	gced.num.Add(1)
	gced.size.Add(uint64(size))
}

var statsLogInterval = 5 * time.Second

func initPoolStats() {
	if statsLogInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(statsLogInterval)
		defer ticker.Stop()
		for range ticker.C {
			printPoolStats()
		}
	}()
}

func printPoolStats() {
	log.Debug().
		Uint64("numReused", reused.num.Load()).
		Str("sizeReused", strutils.FormatByteSize(reused.size.Load())).
		Uint64("numDropped", dropped.num.Load()).
		Str("sizeDropped", strutils.FormatByteSize(dropped.size.Load())).
		Uint64("numNonPooled", nonPooled.num.Load()).
		Str("sizeNonPooled", strutils.FormatByteSize(nonPooled.size.Load())).
		Uint64("numGced", gced.num.Load()).
		Str("sizeGced", strutils.FormatByteSize(gced.size.Load())).
		Msg("scratch buffer pool stats")
}
