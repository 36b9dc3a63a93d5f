package monitoring

import (
	"fmt"
	"time"

	"github.com/banshee-data/drivecoach/internal/timeutil"
)

// Progress is a snapshot of how far a batch job has advanced.
type Progress struct {
	Done    int
	Total   int // zero when the total is unknown
	Elapsed time.Duration
	// Final marks the single update sent once the job has finished.
	Final bool
}

// Percent returns Done as a percentage of Total, or 0 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// String renders the progress line printed by the command line tools.
func (p Progress) String() string {
	if p.Total <= 0 {
		return fmt.Sprintf("processing %d  %5.1fs", p.Done, p.Elapsed.Seconds())
	}
	return fmt.Sprintf("processing %d/%d  (%5.1f%%)  %5.1fs", p.Done, p.Total, p.Percent(), p.Elapsed.Seconds())
}

// ProgressFunc receives progress updates. Implementations must not block
// for long; they run on the caller's goroutine.
type ProgressFunc func(Progress)

// EveryN wraps fn so it is only invoked every n items and on the final
// update. A final update repeating the last reported count is dropped.
// A nil fn yields a nil ProgressFunc.
func EveryN(n int, fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return nil
	}
	if n < 1 {
		n = 1
	}
	last := -1
	return func(p Progress) {
		if p.Final && p.Done == last {
			return
		}
		if p.Done%n == 0 || p.Final {
			last = p.Done
			fn(p)
		}
	}
}

// Throttle wraps fn so it fires at most once per interval according to clock.
// The first and the final update always fire.
func Throttle(clock timeutil.Clock, interval time.Duration, fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return nil
	}
	var last time.Time
	return func(p Progress) {
		now := clock.Now()
		if !p.Final && !last.IsZero() && now.Sub(last) < interval {
			return
		}
		last = now
		fn(p)
	}
}
