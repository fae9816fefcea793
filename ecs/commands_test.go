package ecs_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/plus3/hearth/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSpawnSystem struct {
	executed bool
}

func (s *testSpawnSystem) Execute(frame *ecs.UpdateFrame) {
	s.executed = true
	frame.Commands.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	frame.Commands.Spawn(Position{X: 3, Y: 4})
}

// issuer queues commands against a target entity. It declares no access, so
// several issuers share one batch and are flushed in registration order.
type issuer struct {
	target ecs.EntityId
	issue  func(c *ecs.Commands, target ecs.EntityId)
}

func (s *issuer) Execute(frame *ecs.UpdateFrame) {
	s.issue(frame.Commands, s.target)
}

func despawn(c *ecs.Commands, id ecs.EntityId) { c.Despawn(id) }

func add(component any) func(*ecs.Commands, ecs.EntityId) {
	return func(c *ecs.Commands, id ecs.EntityId) { c.AddComponent(id, component) }
}

func remove[C any]() func(*ecs.Commands, ecs.EntityId) {
	return func(c *ecs.Commands, id ecs.EntityId) { c.RemoveComponent(id, reflect.TypeFor[C]()) }
}

type unregistered struct{}

var (
	positionType = reflect.TypeFor[Position]()
	velocityType = reflect.TypeFor[Velocity]()
	healthType   = reflect.TypeFor[Health]()
)

func TestCommandsAgainstOneEntity(t *testing.T) {
	registry := newTestRegistry()

	cases := []struct {
		name    string
		initial []any
		systems []func(*ecs.Commands, ecs.EntityId)
		alive   bool
		types   []reflect.Type
		check   func(t *testing.T, storage *ecs.Storage, id ecs.EntityId)
		others  int
	}{
		{
			name:    "despawn",
			initial: []any{Position{X: 1, Y: 2}},
			systems: []func(*ecs.Commands, ecs.EntityId){despawn},
		},
		{
			name:    "add",
			initial: []any{Position{X: 1, Y: 2}},
			systems: []func(*ecs.Commands, ecs.EntityId){add(Velocity{DX: 5, DY: 10})},
			alive:   true,
			types:   []reflect.Type{positionType, velocityType},
			check: func(t *testing.T, storage *ecs.Storage, id ecs.EntityId) {
				assert.Equal(t, &Velocity{DX: 5, DY: 10}, storage.GetComponent(id, velocityType))
			},
		},
		{
			name:    "remove",
			initial: []any{Position{X: 1, Y: 2}, Velocity{DX: 5, DY: 10}},
			systems: []func(*ecs.Commands, ecs.EntityId){remove[Velocity]()},
			alive:   true,
			types:   []reflect.Type{positionType},
			check: func(t *testing.T, storage *ecs.Storage, id ecs.EntityId) {
				assert.Equal(t, &Position{X: 1, Y: 2}, storage.GetComponent(id, positionType))
			},
		},
		{
			name:    "remove in one system and add in another",
			initial: []any{Position{X: 1, Y: 2}, Velocity{DX: 5, DY: 10}},
			systems: []func(*ecs.Commands, ecs.EntityId){remove[Velocity](), add(Health{Current: 50, Max: 100})},
			alive:   true,
			types:   []reflect.Type{positionType, healthType},
		},
		{
			name:    "two systems add",
			initial: []any{Position{X: 3, Y: 4}},
			systems: []func(*ecs.Commands, ecs.EntityId){add(Velocity{DX: 1, DY: 2}), add(Health{Current: 50, Max: 100})},
			alive:   true,
			types:   []reflect.Type{positionType, velocityType, healthType},
		},
		{
			name:    "two systems remove",
			initial: []any{Position{X: 5, Y: 6}, Velocity{DX: 1, DY: 1}, Health{Current: 100, Max: 100}},
			systems: []func(*ecs.Commands, ecs.EntityId){remove[Velocity](), remove[Health]()},
			alive:   true,
			types:   []reflect.Type{positionType},
		},
		{
			name:    "removals apply before additions",
			initial: []any{Position{X: 1, Y: 2}},
			systems: []func(*ecs.Commands, ecs.EntityId){func(c *ecs.Commands, id ecs.EntityId) {
				c.AddComponent(id, Velocity{DX: 3})
				c.RemoveComponent(id, velocityType)
			}},
			alive: true,
			types: []reflect.Type{positionType, velocityType},
		},
		{
			name:    "add after despawn is ignored",
			initial: []any{Position{X: 7, Y: 8}},
			systems: []func(*ecs.Commands, ecs.EntityId){despawn, add(Health{Current: 50, Max: 100})},
		},
		{
			name:    "despawn wins within one buffer",
			initial: []any{Position{X: 1, Y: 2}},
			systems: []func(*ecs.Commands, ecs.EntityId){func(c *ecs.Commands, id ecs.EntityId) {
				c.Spawn(Position{X: 10, Y: 20})
				c.AddComponent(id, Velocity{DX: 1, DY: 1})
				c.Despawn(id)
				c.Spawn(Health{Current: 100, Max: 100})
			}},
			others: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storage := ecs.NewStorage(registry)
			id := storage.Spawn(tc.initial...)

			scheduler := ecs.NewScheduler(storage)
			for i, fn := range tc.systems {
				scheduler.Register(&issuer{target: id, issue: fn}, ecs.Named(string(rune('a'+i))))
			}
			plan, err := scheduler.Plan(ecs.Update)
			require.NoError(t, err)
			assert.Len(t, plan, 1, "issuers share a batch")

			require.True(t, storage.Alive(id), "nothing applies before the flush")
			require.NoError(t, scheduler.Once(1.0))

			assert.Equal(t, tc.alive, storage.Alive(id))
			if tc.alive {
				assert.Equal(t, tc.types, storage.ComponentTypes(id))
			}
			if tc.check != nil {
				tc.check(t, storage, id)
			}

			expected := tc.others
			if tc.alive {
				expected++
			}
			assert.Equal(t, expected, storage.EntityCount())
		})
	}
}

func TestCommandsFromSystems(t *testing.T) {
	registry := newTestRegistry()

	t.Run("spawns land at the end of the tick", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		system := &testSpawnSystem{}
		scheduler.Register(system)

		positions := ecs.NewView[struct{ *Position }](storage)
		assert.Zero(t, positions.Count())

		require.NoError(t, scheduler.Once(1.0))
		assert.True(t, system.executed)
		assert.Equal(t, 2, positions.Count())
	})

	t.Run("insert resource", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
			frame.Commands.InsertResource(GreetTally{Sent: int(frame.Tick)})
		}))

		assert.False(t, ecs.HasResource[GreetTally](storage))
		require.NoError(t, scheduler.Once(1.0))
		require.NoError(t, scheduler.Once(1.0))

		score, err := ecs.Resource[GreetTally](storage)
		require.NoError(t, err)
		assert.Equal(t, 2, score.Sent)
	})

	t.Run("flushed commands are visible to later systems in the same tick", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		spawner := &testSpawnSystem{}
		counter := &positionCounter{}
		scheduler.Register(spawner, ecs.Named("spawner"))
		scheduler.Register(counter, ecs.After("spawner"))

		require.NoError(t, scheduler.Once(1.0))
		assert.Equal(t, 2, counter.seen)
	})

	t.Run("invalid spawn bundle panics in the issuing system", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
			frame.Commands.Spawn(Position{}, Position{})
		}))

		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.True(t, errors.Is(err, ecs.ErrDuplicateComponent))
		}()
		_ = scheduler.Once(1.0)
	})

	t.Run("unregistered add panics in the issuing system", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		id := storage.Spawn(Position{})
		scheduler := ecs.NewScheduler(storage)
		var queued int
		scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
			defer func() { queued = frame.Commands.Len() }()
			frame.Commands.AddComponent(id, unregistered{})
		}))

		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.ErrorIs(t, err, ecs.ErrUnregisteredComponent)
			assert.Zero(t, queued, "the add is rejected before it is queued")
		}()
		_ = scheduler.Once(1.0)
	})

	t.Run("deferred functions run after structural changes", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)
		var countAtDefer int
		scheduler.Register(ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
			frame.Commands.Defer(func() { countAtDefer = storage.EntityCount() })
			frame.Commands.Spawn(Position{})
			assert.Equal(t, 2, frame.Commands.Len())
		}))

		require.NoError(t, scheduler.Once(1.0))
		assert.Equal(t, 1, countAtDefer)
	})
}

type positionCounter struct {
	Positions ecs.Query[struct {
		*Position `ecs:"read"`
	}]
	seen int
}

func (s *positionCounter) Execute(frame *ecs.UpdateFrame) {
	s.seen = s.Positions.Count()
}
