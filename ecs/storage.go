package ecs

import (
	"fmt"
	"iter"
	"reflect"
)

// Storage is the main ECS storage interface. It owns the entity pool, one
// component storage per registered type and the resource table.
type Storage struct {
	registry   *ComponentRegistry
	entities   *entityPool
	storages   []iComponentStorage
	singletons map[reflect.Type]*singletonEntry
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		registry:   registry,
		entities:   newEntityPool(),
		storages:   make([]iComponentStorage, maxComponentTypes),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// Spawn creates a new entity with the provided components. Every component is
// validated before anything is stored, so a bad bundle leaves the storage untouched.
// Panics if the bundle repeats a type or names an unregistered type.
func (s *Storage) Spawn(components ...any) EntityId {
	types, err := s.bundleTypes(components)
	if err != nil {
		panic(err)
	}

	id := s.entities.create()
	mask := s.entities.mask(id)
	for i, comp := range components {
		store, bit := s.storageFor(types[i])
		store.Insert(id, comp)
		mask.set(bit)
	}
	return id
}

// ValidateBundle reports whether components could be spawned together.
func (s *Storage) ValidateBundle(components ...any) error {
	_, err := s.bundleTypes(components)
	return err
}

func (s *Storage) bundleTypes(components []any) ([]reflect.Type, error) {
	types := make([]reflect.Type, len(components))
	for i, comp := range components {
		compType, err := s.componentType(comp)
		if err != nil {
			return nil, err
		}
		for _, seen := range types[:i] {
			if seen == compType {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateComponent, compType)
			}
		}
		types[i] = compType
	}
	return types, nil
}

// componentType resolves the stored type of a component value.
// If it's a pointer, the underlying type is used.
func (s *Storage) componentType(comp any) (reflect.Type, error) {
	if comp == nil {
		return nil, fmt.Errorf("%w: nil component", ErrInvalidComponent)
	}
	compType := reflect.TypeOf(comp)
	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}
	if err := checkComponentKind(compType); err != nil {
		return nil, err
	}
	if !s.registry.IsRegistered(compType) {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredComponent, compType)
	}
	return compType, nil
}

// storageFor returns the storage for a registered type, creating it on first use.
func (s *Storage) storageFor(t reflect.Type) (iComponentStorage, uint8) {
	bit, ok := s.registry.componentId(t)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrUnregisteredComponent, t))
	}
	store := s.storages[bit]
	if store == nil {
		store = s.registry.getFactory(t)()
		s.storages[bit] = store
	}
	return store, bit
}

// lookupStorage returns the storage for t without creating it.
func (s *Storage) lookupStorage(t reflect.Type) iComponentStorage {
	bit, ok := s.registry.componentId(t)
	if !ok {
		return nil
	}
	return s.storages[bit]
}

// Despawn removes the entity and all of its components. Despawning an entity
// that is not alive is a no-op and returns false.
func (s *Storage) Despawn(id EntityId) bool {
	mask := s.entities.mask(id)
	if mask == nil {
		return false
	}
	for bit, store := range s.storages {
		if store != nil && mask.has(uint8(bit)) {
			store.Delete(id)
		}
	}
	return s.entities.destroy(id)
}

// Alive reports whether id names a live entity.
func (s *Storage) Alive(id EntityId) bool {
	return s.entities.alive(id)
}

// EntityCount returns the number of live entities.
func (s *Storage) EntityCount() int {
	return s.entities.live
}

// Entities yields every live entity in ascending index order.
func (s *Storage) Entities() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		end := s.entities.capacity()
		for idx := 0; idx < end; idx++ {
			id, ok := s.entities.idAt(uint32(idx))
			if !ok {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// AddComponent attaches or replaces a component on a live entity.
// Returns false if the entity is not alive.
func (s *Storage) AddComponent(id EntityId, component any) bool {
	compType, err := s.componentType(component)
	if err != nil {
		panic(err)
	}
	mask := s.entities.mask(id)
	if mask == nil {
		return false
	}
	store, bit := s.storageFor(compType)
	store.Insert(id, component)
	mask.set(bit)
	return true
}

// RemoveComponent detaches a component. Returns false if the entity is not
// alive or does not carry the type. The entity stays alive even with no components.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) bool {
	mask := s.entities.mask(id)
	if mask == nil {
		return false
	}
	bit, ok := s.registry.componentId(compType)
	if !ok || !mask.has(bit) {
		return false
	}
	s.storages[bit].Delete(id)
	mask.unset(bit)
	return true
}

// GetComponent returns a pointer to the component for the given entity ID and
// component type, or nil.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	if !s.entities.alive(id) {
		return nil
	}
	store := s.lookupStorage(compType)
	if store == nil {
		return nil
	}
	return store.Get(id)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	mask := s.entities.mask(id)
	if mask == nil {
		return false
	}
	bit, ok := s.registry.componentId(compType)
	return ok && mask.has(bit)
}

// ComponentTypes lists the types attached to an entity in registration order.
func (s *Storage) ComponentTypes(id EntityId) []reflect.Type {
	mask := s.entities.mask(id)
	if mask == nil {
		return nil
	}
	var types []reflect.Type
	for bit, t := range s.registry.types {
		if mask.has(uint8(bit)) {
			types = append(types, t)
		}
	}
	return types
}

// Fragmentation is the share of component slots that are holes.
func (s *Storage) Fragmentation() float64 {
	slots, holes := 0, 0
	for _, store := range s.storages {
		if store == nil {
			continue
		}
		slots += store.Slots()
		holes += store.Holes()
	}
	if slots == 0 {
		return 0
	}
	return float64(holes) / float64(slots)
}

// Compact squeezes holes out of every component storage and returns how many
// values moved. Pointers obtained earlier may be invalidated, so Compact must
// only run between ticks.
func (s *Storage) Compact() int {
	moved := 0
	for _, store := range s.storages {
		if store != nil {
			moved += store.Compact()
		}
	}
	return moved
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns the entity's T, or nil.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	comp, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return comp
}

// Get returns the entity's T and whether it was present.
func Get[T any](s *Storage, id EntityId) (*T, bool) {
	comp := ReadComponent[T](s, id)
	return comp, comp != nil
}
