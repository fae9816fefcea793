package app

import "time"

// Time is the clock resource. The App updates it before the Update systems of
// every tick.
type Time struct {
	Delta   time.Duration
	Elapsed time.Duration
	Tick    uint64
}

func (t Time) DeltaSeconds() float64 {
	return t.Delta.Seconds()
}

func (t *Time) advance(delta time.Duration) {
	t.Delta = delta
	t.Elapsed += delta
	t.Tick++
}
