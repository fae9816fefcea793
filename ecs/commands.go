package ecs

import "reflect"

// Commands provides a buffer for deferred structural changes. Each system gets
// its own buffer; the scheduler flushes buffers after the system's batch has
// finished, so structural changes never happen while a query is iterating.
//
// A buffer is applied by kind, not in issue order: despawns, removals,
// additions, spawns, resources, then deferred functions. Adding and then
// removing the same component in one buffer leaves it attached; use Defer
// when the order of mixed operations matters.
type Commands struct {
	storage   *Storage
	spawns    []spawnCommand
	despawns  []EntityId
	adds      []addComponentCommand
	removes   []removeComponentCommand
	resources []any
	defers    []deferCommand
}

func newCommands(storage *Storage) *Commands {
	return &Commands{storage: storage}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function to run at flush, after all structural changes.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
// The bundle is validated immediately and panics like Storage.Spawn, so the
// error is reported by the system that built it.
func (c *Commands) Spawn(components ...any) {
	if c.storage != nil {
		if err := c.storage.ValidateBundle(components...); err != nil {
			panic(err)
		}
	}
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Despawn queues an entity removal.
func (c *Commands) Despawn(entity EntityId) {
	c.despawns = append(c.despawns, entity)
}

// AddComponent queues a component addition operation. Like Spawn, the
// component is validated immediately.
func (c *Commands) AddComponent(entity EntityId, component any) {
	if c.storage != nil {
		if err := c.storage.ValidateBundle(component); err != nil {
			panic(err)
		}
	}
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// InsertResource queues a resource insert or replacement.
func (c *Commands) InsertResource(value any) {
	c.resources = append(c.resources, value)
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.despawns) + len(c.adds) + len(c.removes) + len(c.resources) + len(c.defers)
}

// Flush flushes all commands to the provided storage, reseting the buffer state.
// Despawns apply first, then removals, additions, spawns, resources and
// finally deferred functions.
func (c *Commands) Flush(storage *Storage) {
	for _, id := range c.despawns {
		storage.Despawn(id)
	}

	for _, cmd := range c.removes {
		storage.RemoveComponent(cmd.entity, cmd.compType)
	}

	for _, cmd := range c.adds {
		storage.AddComponent(cmd.entity, cmd.component)
	}

	for _, cmd := range c.spawns {
		storage.Spawn(cmd.components...)
	}

	for _, res := range c.resources {
		storage.AddSingleton(res)
	}

	for _, df := range c.defers {
		df.fn()
	}

	clear(c.spawns)
	clear(c.adds)
	clear(c.resources)
	clear(c.defers)
	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.resources = c.resources[:0]
	c.defers = c.defers[:0]
}
