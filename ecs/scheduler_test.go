package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrator struct {
	Bodies ecs.Query[struct {
		*Position
		*Velocity `ecs:"read"`
	}]
	runs   int
	deltas []time.Duration
	ticks  []uint64
}

func (s *integrator) Execute(frame *ecs.UpdateFrame) {
	s.runs++
	s.deltas = append(s.deltas, frame.Delta())
	s.ticks = append(s.ticks, frame.Tick)
	dt := float32(frame.DeltaTime)
	for body := range s.Bodies.Values() {
		body.Position.X += body.Velocity.DX * dt
		body.Position.Y += body.Velocity.DY * dt
	}
}

type healthTotal struct {
	Living ecs.Query[struct {
		*Health `ecs:"read"`
	}]
	total int
}

func (s *healthTotal) Execute(*ecs.UpdateFrame) {
	s.total = 0
	for row := range s.Living.Values() {
		s.total += row.Health.Current
	}
}

func TestSchedulerLoop(t *testing.T) {
	registry := newTestRegistry()

	t.Run("every update system runs once per tick", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		move := &integrator{}
		scheduler.Register(move)
		scheduler.Register(&healthTotal{})

		for range 3 {
			require.NoError(t, scheduler.Once(0.1))
		}
		assert.Equal(t, 3, move.runs)
		assert.Equal(t, []uint64{1, 2, 3}, move.ticks)
		assert.Equal(t, uint64(3), scheduler.Tick())
	})

	t.Run("unexported state survives between ticks", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		totals := &healthTotal{}
		scheduler.Register(totals)

		storage.Spawn(Health{Current: 40, Max: 100})
		storage.Spawn(Health{Current: 35, Max: 100})
		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 75, totals.total)

		storage.Spawn(Health{Current: 5, Max: 100})
		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 80, totals.total)
	})

	t.Run("delta is scaled into movement", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		body := storage.Spawn(Position{}, Velocity{DX: 4, DY: -8})
		move := &integrator{}
		scheduler.Register(move)

		require.NoError(t, scheduler.Once(0.25))

		row := move.Bodies.Get(body)
		require.NotNil(t, row)
		assert.Equal(t, Position{X: 1, Y: -2}, *row.Position)
		assert.Equal(t, []time.Duration{250 * time.Millisecond}, move.deltas)
	})

	t.Run("spawn commands are flushed at the end of the tick", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		spawner := &testSpawnSystem{}
		move := &integrator{}
		scheduler.Register(move)
		scheduler.Register(spawner)

		require.NoError(t, scheduler.Once(1))
		assert.True(t, spawner.executed)
		assert.Equal(t, 1, move.Bodies.Count())
		assert.Equal(t, 2, storage.EntityCount())

		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 2, move.Bodies.Count(), "each tick spawns one mover")
	})

	t.Run("run stops when the context is cancelled", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		move := &integrator{}
		scheduler.Register(move)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- scheduler.Run(ctx, time.Millisecond) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop after context cancellation")
		}
		assert.Positive(t, move.runs)
	})

	t.Run("run reports build errors without ticking", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		scheduler.Register(&integrator{}, ecs.Named("move"))
		scheduler.Register(&healthTotal{}, ecs.Named("move"))

		err := scheduler.Run(context.Background(), time.Millisecond)
		require.ErrorIs(t, err, ecs.ErrDuplicateSystem)
		assert.Zero(t, scheduler.Tick())
	})

	t.Run("run reports missing resources", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		scheduler.Register(&scoreKeeper{})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.ErrorIs(t, scheduler.Run(ctx, time.Millisecond), ecs.ErrResourceNotFound)
	})
}
