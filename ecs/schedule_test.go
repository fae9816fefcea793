package ecs_test

import (
	"errors"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	log *[]string
	tag string
}

func (r *recorder) Execute(frame *ecs.UpdateFrame) {
	*r.log = append(*r.log, r.tag)
}

type positionWriter struct {
	Items ecs.Query[struct{ *Position }]
}

func (s *positionWriter) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Items.Values() {
		item.Position.X++
	}
}

type positionReader struct {
	Items ecs.Query[struct {
		*Position `ecs:"read"`
	}]
	Sum float32
}

func (s *positionReader) Execute(frame *ecs.UpdateFrame) {
	s.Sum = 0
	for item := range s.Items.Values() {
		s.Sum += item.Position.X
	}
}

type velocityReader struct {
	Items ecs.Query[struct {
		*Velocity `ecs:"read"`
	}]
}

func (s *velocityReader) Execute(frame *ecs.UpdateFrame) {}

type scoreKeeper struct {
	Score ecs.Singleton[GreetTally]
}

func (s *scoreKeeper) Execute(frame *ecs.UpdateFrame) {
	s.Score.Get().Sent++
}

type optionalScoreReader struct {
	Score ecs.Singleton[GreetTally] `ecs:"optional,read"`
	Seen  bool
}

func (s *optionalScoreReader) Execute(frame *ecs.UpdateFrame) {
	s.Seen = s.Score.Exists()
}

func newRecorder(log *[]string, tag string) *recorder {
	return &recorder{log: log, tag: tag}
}

func TestSchedulerOrdering(t *testing.T) {
	registry := newTestRegistry()

	t.Run("registration order without dependencies", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "a"), ecs.Named("a"))
		scheduler.Register(newRecorder(&log, "b"), ecs.Named("b"))
		scheduler.Register(newRecorder(&log, "c"), ecs.Named("c"))

		require.NoError(t, scheduler.Once(0))
		assert.Equal(t, []string{"a", "b", "c"}, log)
	})

	t.Run("after moves a system behind its dependency", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "greet"), ecs.Named("greet"), ecs.After("update"))
		scheduler.Register(newRecorder(&log, "other"), ecs.Named("other"))
		scheduler.Register(newRecorder(&log, "update"), ecs.Named("update"))

		require.NoError(t, scheduler.Once(0))
		assert.Equal(t, []string{"other", "update", "greet"}, log)
	})

	t.Run("chain", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Chain(ecs.Update, &positionWriter{}, &positionReader{})
		scheduler.Register(newRecorder(&log, "x"), ecs.Named("x"))

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"positionWriter"}, {"positionReader", "x"}}, plan)
	})

	t.Run("startup runs once before update", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "tick"), ecs.Named("tick"))
		scheduler.Register(newRecorder(&log, "init"), ecs.Named("init"), ecs.InPhase(ecs.Startup))

		require.NoError(t, scheduler.Once(0))
		require.NoError(t, scheduler.Startup())
		require.NoError(t, scheduler.Once(0))
		assert.Equal(t, []string{"init", "tick", "tick"}, log)
		assert.Equal(t, uint64(2), scheduler.Tick())
	})

	t.Run("names are scoped per phase", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "s"), ecs.Named("same"), ecs.InPhase(ecs.Startup))
		scheduler.Register(newRecorder(&log, "u"), ecs.Named("same"))

		require.NoError(t, scheduler.Build())
	})
}

func TestSchedulerBuildErrors(t *testing.T) {
	registry := newTestRegistry()

	t.Run("cycle", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "a"), ecs.Named("a"), ecs.After("c"))
		scheduler.Register(newRecorder(&log, "b"), ecs.Named("b"), ecs.After("a"))
		scheduler.Register(newRecorder(&log, "c"), ecs.Named("c"), ecs.After("b"))

		err := scheduler.Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ecs.ErrDependencyCycle))
		assert.Contains(t, err.Error(), "a -> b -> c -> a")

		assert.ErrorIs(t, scheduler.Once(0), ecs.ErrDependencyCycle)
		assert.Empty(t, log, "no system may run when the schedule is invalid")
	})

	t.Run("self dependency", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "a"), ecs.Named("a"), ecs.After("a"))

		assert.ErrorIs(t, scheduler.Build(), ecs.ErrDependencyCycle)
	})

	t.Run("unknown dependency", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "a"), ecs.Named("a"), ecs.After("missing"))

		err := scheduler.Build()
		assert.ErrorIs(t, err, ecs.ErrUnknownDependency)
		assert.Contains(t, err.Error(), `"missing"`)
	})

	t.Run("dependency in another phase is unknown", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		var log []string
		scheduler.Register(newRecorder(&log, "init"), ecs.Named("init"), ecs.InPhase(ecs.Startup))
		scheduler.Register(newRecorder(&log, "a"), ecs.Named("a"), ecs.After("init"))

		assert.ErrorIs(t, scheduler.Build(), ecs.ErrUnknownDependency)
	})

	t.Run("duplicate name", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&positionWriter{})
		scheduler.Register(&positionWriter{})

		assert.ErrorIs(t, scheduler.Build(), ecs.ErrDuplicateSystem)
	})
}

type byValue struct {
	Items ecs.Query[struct{ *Position }]
}

func (byValue) Execute(*ecs.UpdateFrame) {}

type pointerQuery struct {
	Items *ecs.Query[struct{ *Position }]
}

func (*pointerQuery) Execute(*ecs.UpdateFrame) {}

type pointerSingleton struct {
	Tally *ecs.Singleton[GreetTally]
}

func (*pointerSingleton) Execute(*ecs.UpdateFrame) {}

type hiddenQuery struct {
	items ecs.Query[struct{ *Position }]
}

func (*hiddenQuery) Execute(*ecs.UpdateFrame) {}

func TestSchedulerRejectsUnbindableSystems(t *testing.T) {
	registry := newTestRegistry()

	cases := []struct {
		name    string
		system  ecs.System
		message string
	}{
		{"registered by value", byValue{}, "must be registered by pointer so field Items can be bound"},
		{"pointer query field", &pointerQuery{}, "field Items must hold"},
		{"pointer singleton field", &pointerSingleton{}, "field Tally must hold"},
		{"unexported query field", &hiddenQuery{}, "field items is unexported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
			defer func() {
				msg, ok := recover().(string)
				require.True(t, ok, "Register must panic")
				assert.Contains(t, msg, tc.message)
			}()
			scheduler.Register(tc.system)
		})
	}

	t.Run("plain state fields are left alone", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		assert.NotPanics(t, func() { scheduler.Register(&integrator{}) })
	})
}

func TestSchedulerBatches(t *testing.T) {
	registry := newTestRegistry()

	t.Run("conflicting access splits batches", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&positionWriter{})
		scheduler.Register(&velocityReader{})
		scheduler.Register(&positionReader{})

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"positionWriter", "velocityReader"}, {"positionReader"}}, plan)
	})

	t.Run("shared reads run together", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&positionReader{}, ecs.Named("r1"))
		scheduler.Register(&positionReader{}, ecs.Named("r2"))

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"r1", "r2"}}, plan)
	})

	t.Run("resource writers are exclusive", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&scoreKeeper{}, ecs.Named("k1"))
		scheduler.Register(&scoreKeeper{}, ecs.Named("k2"))
		scheduler.Register(&optionalScoreReader{})

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"k1"}, {"k2"}, {"optionalScoreReader"}}, plan)
	})

	t.Run("system funcs are exclusive", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&velocityReader{})
		scheduler.Register(ecs.SystemFunc(func(*ecs.UpdateFrame) {}), ecs.Named("fn"))
		scheduler.Register(&positionReader{})

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"velocityReader"}, {"fn"}, {"positionReader"}}, plan)
	})

	t.Run("dependencies never share a batch", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&velocityReader{})
		scheduler.Register(&positionReader{}, ecs.After("velocityReader"))

		plan, err := scheduler.Plan(ecs.Update)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"velocityReader"}, {"positionReader"}}, plan)
	})
}

func TestSchedulerResources(t *testing.T) {
	registry := newTestRegistry()

	t.Run("missing required resource fails before the first tick", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		keeper := &scoreKeeper{}
		scheduler.Register(keeper)

		err := scheduler.Once(1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ecs.ErrResourceNotFound)
		assert.Contains(t, err.Error(), "scoreKeeper")
		assert.Contains(t, err.Error(), "GreetTally")

		ecs.InsertResource(storage, GreetTally{})
		require.NoError(t, scheduler.Once(1))
		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 2, ecs.MustResource[GreetTally](storage).Sent)
	})

	t.Run("missing startup resource names the system", func(t *testing.T) {
		scheduler := ecs.NewScheduler(ecs.NewStorage(registry))
		scheduler.Register(&scoreKeeper{}, ecs.InPhase(ecs.Startup), ecs.Named("seed"))

		err := scheduler.Startup()
		assert.ErrorIs(t, err, ecs.ErrResourceNotFound)
		assert.Contains(t, err.Error(), `"seed"`)
	})

	t.Run("resource inserted by an earlier startup batch", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
			frame.Commands.InsertResource(GreetTally{Sent: 10})
		}), ecs.InPhase(ecs.Startup), ecs.Named("insert"))
		scheduler.Register(&scoreKeeper{}, ecs.InPhase(ecs.Startup), ecs.After("insert"))

		require.NoError(t, scheduler.Startup())
		assert.Equal(t, 11, ecs.MustResource[GreetTally](storage).Sent)
	})

	t.Run("optional resource", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		reader := &optionalScoreReader{}
		scheduler.Register(reader)

		require.NoError(t, scheduler.Once(1))
		assert.False(t, reader.Seen)

		ecs.InsertResource(storage, GreetTally{})
		require.NoError(t, scheduler.Once(1))
		assert.True(t, reader.Seen)
	})
}

func buildStressWorld(t *testing.T, pool *ants.Pool) *ecs.Storage {
	t.Helper()

	storage := ecs.NewStorage(newTestRegistry())
	for i := 0; i < 500; i++ {
		storage.Spawn(Position{X: float32(i)}, Velocity{DX: 1, DY: float32(i % 7)}, Health{Current: i, Max: 1000})
	}
	ecs.InsertResource(storage, GreetTally{})

	var opts []ecs.SchedulerOption
	if pool != nil {
		opts = append(opts, ecs.WithWorkerPool(pool))
	}
	scheduler := ecs.NewScheduler(storage, opts...)
	scheduler.Register(&integrator{})
	scheduler.Register(&healthTotal{})
	scheduler.Register(&positionReader{})
	scheduler.Register(&scoreKeeper{})
	scheduler.Register(&velocityReader{})

	for i := 0; i < 20; i++ {
		require.NoError(t, scheduler.Once(0.25))
	}
	return storage
}

func TestSchedulerParallelMatchesSequential(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	sequential := buildStressWorld(t, nil)
	parallel := buildStressWorld(t, pool)

	view := func(s *ecs.Storage) []Position {
		var out []Position
		for item := range ecs.NewView[struct{ *Position }](s).Values() {
			out = append(out, *item.Position)
		}
		return out
	}
	assert.Equal(t, view(sequential), view(parallel))
	assert.Equal(t, ecs.MustResource[GreetTally](sequential), ecs.MustResource[GreetTally](parallel))
}

func TestSchedulerPooledPanicIsReraised(t *testing.T) {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	storage := ecs.NewStorage(newTestRegistry())
	ecs.InsertResource(storage, GreetTally{})
	scheduler := ecs.NewScheduler(storage, ecs.WithWorkerPool(pool))
	scheduler.Register(&velocityReader{})
	scheduler.Register(&panicky{})

	assert.PanicsWithValue(t, "boom", func() {
		_ = scheduler.Once(1)
	})
}

type panicky struct {
	Items ecs.Query[struct {
		*Health `ecs:"read"`
	}]
}

func (p *panicky) Execute(frame *ecs.UpdateFrame) {
	panic("boom")
}

func TestSchedulerBatchStats(t *testing.T) {
	scheduler := ecs.NewScheduler(ecs.NewStorage(newTestRegistry()))
	scheduler.Register(&velocityReader{})
	scheduler.Register(&positionReader{}, ecs.After("velocityReader"))

	require.NoError(t, scheduler.Once(1))
	require.NoError(t, scheduler.Once(1))

	stats := scheduler.GetStats()
	assert.Equal(t, 2, stats.SystemCount)
	assert.Equal(t, int64(4), stats.TotalExecutions)
	assert.Equal(t, uint64(2), stats.Ticks)
	assert.Equal(t, "positionReader", stats.Systems[1].Name)
	assert.Equal(t, 1, stats.Systems[1].Batch)
	assert.Equal(t, ecs.Update, stats.Systems[1].Phase)
	assert.Equal(t, int64(2), stats.Systems[0].ExecutionCount)
}
