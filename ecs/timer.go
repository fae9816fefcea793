package ecs

import (
	"fmt"
	"math"
	"time"
)

// maxTickSeconds keeps a seconds delta representable as a time.Duration.
const maxTickSeconds = float64(math.MaxInt64/int64(time.Second)) - 1

type TimerMode int

const (
	// TimerOnce finishes once and stays finished until Reset.
	TimerOnce TimerMode = iota
	// TimerRepeating wraps around every time the duration is reached.
	TimerRepeating
)

func (m TimerMode) String() string {
	if m == TimerRepeating {
		return "repeating"
	}
	return "once"
}

// Timer accumulates elapsed time towards a duration. It is a plain value and
// can live in a component or a resource.
//
// A repeating timer reports at most one completion per Tick even when the
// delta spans several periods; the surplus is kept modulo the duration.
// Callers that need to catch up must tick in smaller steps.
type Timer struct {
	elapsed      time.Duration
	duration     time.Duration
	mode         TimerMode
	paused       bool
	finished     bool
	justFinished bool
}

func NewTimer(duration time.Duration, mode TimerMode) Timer {
	if duration < 0 {
		duration = 0
	}
	return Timer{duration: duration, mode: mode}
}

func TimerFromSeconds(seconds float64, mode TimerMode) Timer {
	return NewTimer(time.Duration(seconds*float64(time.Second)), mode)
}

// Tick advances the timer and reports whether it completed during this call.
// A negative delta is rejected and leaves the timer unchanged.
func (t *Timer) Tick(delta time.Duration) (bool, error) {
	if delta < 0 {
		return false, fmt.Errorf("%w: %s", ErrInvalidDelta, delta)
	}
	t.justFinished = false
	if t.mode == TimerRepeating {
		t.finished = false
	}
	if t.paused || (t.mode == TimerOnce && t.finished) {
		return false, nil
	}

	// Compare against the remaining time instead of summing, so that a huge
	// delta cannot overflow elapsed.
	if delta < t.duration-t.elapsed {
		t.elapsed += delta
		return false, nil
	}

	t.justFinished = true
	t.finished = true
	switch {
	case t.mode == TimerOnce:
		t.elapsed = t.duration
	case t.duration == 0:
		t.elapsed = 0
	default:
		t.elapsed = wrapElapsed(t.elapsed%t.duration, delta%t.duration, t.duration)
	}
	return true, nil
}

// wrapElapsed returns (elapsed+surplus) mod d for elapsed, surplus in [0, d).
func wrapElapsed(elapsed, surplus, d time.Duration) time.Duration {
	if surplus >= d-elapsed {
		return surplus - (d - elapsed)
	}
	return elapsed + surplus
}

// TickSeconds is Tick for a delta in seconds. NaN and infinite deltas are rejected.
func (t *Timer) TickSeconds(seconds float64) (bool, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds > maxTickSeconds {
		return false, fmt.Errorf("%w: %v", ErrInvalidDelta, seconds)
	}
	return t.Tick(time.Duration(seconds * float64(time.Second)))
}

// Reset clears elapsed time and the finished flags.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.finished = false
	t.justFinished = false
}

// Finished reports whether a once timer has completed since the last Reset.
// For a repeating timer it is recomputed every Tick and equals JustFinished.
func (t *Timer) Finished() bool {
	return t.finished
}

// JustFinished reports whether the most recent Tick completed the timer.
func (t *Timer) JustFinished() bool {
	return t.justFinished
}

func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) Mode() TimerMode {
	return t.mode
}

// SetDuration changes the target duration without touching elapsed time.
func (t *Timer) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.duration = d
}

func (t *Timer) Remaining() time.Duration {
	if t.elapsed >= t.duration {
		return 0
	}
	return t.duration - t.elapsed
}

// Fraction is elapsed/duration in [0, 1]. A zero-length timer reports 1.
func (t *Timer) Fraction() float64 {
	if t.duration == 0 {
		return 1
	}
	return math.Min(1, float64(t.elapsed)/float64(t.duration))
}

func (t *Timer) Pause() {
	t.paused = true
}

func (t *Timer) Unpause() {
	t.paused = false
}

func (t *Timer) Paused() bool {
	return t.paused
}
