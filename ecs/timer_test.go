package ecs_test

import (
	"math"
	"testing"
	"time"

	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	t.Run("once fires a single time", func(t *testing.T) {
		timer := ecs.NewTimer(2*time.Second, ecs.TimerOnce)

		fired, err := timer.Tick(time.Second)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.Equal(t, time.Second, timer.Remaining())

		fired, err = timer.Tick(1500 * time.Millisecond)
		require.NoError(t, err)
		assert.True(t, fired)
		assert.True(t, timer.Finished())
		assert.True(t, timer.JustFinished())
		assert.Equal(t, 2*time.Second, timer.Elapsed())

		fired, err = timer.Tick(5 * time.Second)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.True(t, timer.Finished())
		assert.False(t, timer.JustFinished())
	})

	t.Run("repeating keeps the surplus", func(t *testing.T) {
		timer := ecs.NewTimer(2*time.Second, ecs.TimerRepeating)

		var fires int
		for i := 0; i < 9; i++ {
			fired, err := timer.Tick(500 * time.Millisecond)
			require.NoError(t, err)
			if fired {
				fires++
			}
		}
		assert.Equal(t, 2, fires)
		assert.Equal(t, 500*time.Millisecond, timer.Elapsed())
	})

	t.Run("repeating fires once for a long delta", func(t *testing.T) {
		timer := ecs.NewTimer(time.Second, ecs.TimerRepeating)

		fired, err := timer.Tick(3500 * time.Millisecond)
		require.NoError(t, err)
		assert.True(t, fired)
		assert.Equal(t, 500*time.Millisecond, timer.Elapsed())

		fired, err = timer.Tick(100 * time.Millisecond)
		require.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("repeating finished only on the firing tick", func(t *testing.T) {
		timer := ecs.NewTimer(time.Second, ecs.TimerRepeating)

		fired, err := timer.Tick(time.Second)
		require.NoError(t, err)
		assert.True(t, fired)
		assert.True(t, timer.Finished())

		fired, err = timer.Tick(100 * time.Millisecond)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.False(t, timer.Finished())
		assert.False(t, timer.JustFinished())

		_, err = timer.Tick(900 * time.Millisecond)
		require.NoError(t, err)
		require.True(t, timer.Finished())
		timer.Pause()
		_, err = timer.Tick(time.Second)
		require.NoError(t, err)
		assert.False(t, timer.Finished(), "a paused tick clears the flag")
	})

	t.Run("huge deltas fire without overflowing elapsed", func(t *testing.T) {
		repeating := ecs.NewTimer(2*time.Second, ecs.TimerRepeating)
		_, err := repeating.Tick(time.Second)
		require.NoError(t, err)

		fired, err := repeating.Tick(time.Duration(math.MaxInt64))
		require.NoError(t, err)
		assert.True(t, fired)
		surplus := time.Duration(math.MaxInt64) % (2 * time.Second)
		assert.Equal(t, (time.Second+surplus)%(2*time.Second), repeating.Elapsed())

		fired, err = repeating.Tick(2 * time.Second)
		require.NoError(t, err)
		assert.True(t, fired, "the timer keeps firing after the huge delta")

		near := ecs.NewTimer(2*time.Second, ecs.TimerRepeating)
		_, err = near.Tick(1900 * time.Millisecond)
		require.NoError(t, err)
		fired, err = near.TickSeconds(9223372035)
		require.NoError(t, err)
		assert.True(t, fired)
		assert.GreaterOrEqual(t, near.Elapsed(), time.Duration(0))
		assert.Less(t, near.Elapsed(), 2*time.Second)

		once := ecs.NewTimer(time.Hour, ecs.TimerOnce)
		_, err = once.Tick(time.Minute)
		require.NoError(t, err)
		fired, err = once.Tick(time.Duration(math.MaxInt64))
		require.NoError(t, err)
		assert.True(t, fired)
		assert.Equal(t, time.Hour, once.Elapsed())
	})

	t.Run("zero duration fires every tick", func(t *testing.T) {
		timer := ecs.NewTimer(0, ecs.TimerRepeating)
		for i := 0; i < 3; i++ {
			fired, err := timer.Tick(0)
			require.NoError(t, err)
			assert.True(t, fired)
			assert.Equal(t, time.Duration(0), timer.Elapsed())
		}
		assert.Equal(t, 1.0, timer.Fraction())
	})

	t.Run("invalid deltas leave the timer untouched", func(t *testing.T) {
		timer := ecs.TimerFromSeconds(1, ecs.TimerRepeating)
		_, err := timer.TickSeconds(0.25)
		require.NoError(t, err)

		_, err = timer.Tick(-time.Millisecond)
		assert.ErrorIs(t, err, ecs.ErrInvalidDelta)
		for _, bad := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1), math.MaxFloat64} {
			fired, err := timer.TickSeconds(bad)
			assert.ErrorIs(t, err, ecs.ErrInvalidDelta)
			assert.False(t, fired)
		}
		assert.Equal(t, 250*time.Millisecond, timer.Elapsed())
		assert.False(t, timer.Finished())
	})

	t.Run("pause stops accumulation", func(t *testing.T) {
		timer := ecs.NewTimer(time.Second, ecs.TimerOnce)
		timer.Pause()
		assert.True(t, timer.Paused())

		fired, err := timer.Tick(2 * time.Second)
		require.NoError(t, err)
		assert.False(t, fired)
		assert.Equal(t, time.Duration(0), timer.Elapsed())

		timer.Unpause()
		fired, err = timer.Tick(2 * time.Second)
		require.NoError(t, err)
		assert.True(t, fired)
	})

	t.Run("fraction and reset", func(t *testing.T) {
		timer := ecs.NewTimer(4*time.Second, ecs.TimerOnce)
		_, err := timer.Tick(time.Second)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, timer.Fraction(), 1e-9)

		_, err = timer.Tick(10 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1.0, timer.Fraction())

		timer.Reset()
		assert.False(t, timer.Finished())
		assert.Equal(t, time.Duration(0), timer.Elapsed())
		assert.Equal(t, ecs.TimerOnce, timer.Mode())
		assert.Equal(t, "once", timer.Mode().String())
	})
}
