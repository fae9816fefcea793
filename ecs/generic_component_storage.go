package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage instance has its own ComponentRegistry, allowing multiple
// independent ECS worlds to coexist without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
	ids       map[reflect.Type]uint8
	types     []reflect.Type
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
		ids:       make(map[reflect.Type]uint8),
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Registering the same type twice is a no-op.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	if _, ok := r.ids[t]; ok {
		return
	}
	if err := checkComponentKind(t); err != nil {
		panic(err)
	}
	if len(r.types) >= maxComponentTypes {
		panic(fmt.Sprintf("ecs: cannot register %s: registry is full (%d types)", t, maxComponentTypes))
	}

	r.ids[t] = uint8(len(r.types))
	r.types = append(r.types, t)
	r.factories[t] = func() iComponentStorage {
		return newGenericComponentStorage[T](t)
	}
}

// IsRegistered reports whether t has been registered.
func (r *ComponentRegistry) IsRegistered(t reflect.Type) bool {
	_, ok := r.ids[t]
	return ok
}

// Types returns every registered component type in registration order.
func (r *ComponentRegistry) Types() []reflect.Type {
	return append([]reflect.Type(nil), r.types...)
}

// getFactory returns the factory function for a given component type.
// Returns nil if the type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

func (r *ComponentRegistry) componentId(t reflect.Type) (uint8, bool) {
	id, ok := r.ids[t]
	return id, ok
}

// Components can be structs or primitives (int, string, etc.)
// But not pointers, maps, channels, or functions (those aren't value types)
func checkComponentKind(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s is a %s", ErrInvalidComponent, t, t.Kind())
	}
	return nil
}

const (
	genericBlockSize = 64
)

// componentBlock holds one run of slots. Blocks are allocated individually and
// never move, so pointers into a block stay valid while the storage grows.
type componentBlock[T any] struct {
	values [genericBlockSize]T
	owners [genericBlockSize]EntityId
}

// genericComponentStorage is a generic implementation of iComponentStorage.
// It stores components of a specific type `T` in blocks. New values are
// appended, so slot order is insertion order; removal leaves a hole that
// Compact squeezes out.
type genericComponentStorage[T any] struct {
	typ      reflect.Type
	blocks   []*componentBlock[T]
	sparse   *intmap.Map[uint32, int32]
	nextSlot int
	count    int
}

func newGenericComponentStorage[T any](t reflect.Type) *genericComponentStorage[T] {
	return &genericComponentStorage[T]{
		typ:    t,
		sparse: intmap.New[uint32, int32](genericBlockSize),
	}
}

func (cs *genericComponentStorage[T]) Type() reflect.Type {
	return cs.typ
}

// Insert stores item for the entity, overwriting in place if it already has one.
// item may be a T or a *T.
func (cs *genericComponentStorage[T]) Insert(id EntityId, item any) unsafe.Pointer {
	var value T
	switch v := item.(type) {
	case T:
		value = v
	case *T:
		value = *v
	default:
		panic(fmt.Sprintf("ecs: %T stored as %s", item, cs.typ))
	}

	if slot, ok := cs.sparse.Get(id.Index()); ok {
		block := cs.blocks[int(slot)/genericBlockSize]
		block.values[int(slot)%genericBlockSize] = value
		block.owners[int(slot)%genericBlockSize] = id
		return unsafe.Pointer(&block.values[int(slot)%genericBlockSize])
	}

	slot := cs.nextSlot
	cs.nextSlot++
	blockIdx := slot / genericBlockSize
	if blockIdx >= len(cs.blocks) {
		cs.blocks = append(cs.blocks, new(componentBlock[T]))
	}

	block := cs.blocks[blockIdx]
	block.values[slot%genericBlockSize] = value
	block.owners[slot%genericBlockSize] = id
	cs.sparse.Put(id.Index(), int32(slot))
	cs.count++
	return unsafe.Pointer(&block.values[slot%genericBlockSize])
}

// Delete clears the entity's slot, leaving a hole.
func (cs *genericComponentStorage[T]) Delete(id EntityId) bool {
	slot, ok := cs.sparse.Get(id.Index())
	if !ok {
		return false
	}

	block := cs.blocks[int(slot)/genericBlockSize]
	var zero T
	block.values[int(slot)%genericBlockSize] = zero // Zero out the value
	block.owners[int(slot)%genericBlockSize] = 0
	cs.sparse.Del(id.Index())
	cs.count--
	return true
}

// Pointer returns the address of the entity's value, or nil.
func (cs *genericComponentStorage[T]) Pointer(id EntityId) unsafe.Pointer {
	slot, ok := cs.sparse.Get(id.Index())
	if !ok {
		return nil
	}
	block := cs.blocks[int(slot)/genericBlockSize]
	if block.owners[int(slot)%genericBlockSize] != id {
		return nil
	}
	return unsafe.Pointer(&block.values[int(slot)%genericBlockSize])
}

// Get returns a *T for the entity, or nil.
func (cs *genericComponentStorage[T]) Get(id EntityId) any {
	ptr := cs.Pointer(id)
	if ptr == nil {
		return nil
	}
	return (*T)(ptr)
}

func (cs *genericComponentStorage[T]) Has(id EntityId) bool {
	return cs.Pointer(id) != nil
}

func (cs *genericComponentStorage[T]) Len() int {
	return cs.count
}

// Slots is the high-water mark of used slots, holes included.
func (cs *genericComponentStorage[T]) Slots() int {
	return cs.nextSlot
}

func (cs *genericComponentStorage[T]) Holes() int {
	return cs.nextSlot - cs.count
}

// Owner returns the entity in a slot, or 0 for a hole.
func (cs *genericComponentStorage[T]) Owner(slot int) EntityId {
	if slot < 0 || slot >= cs.nextSlot {
		return 0
	}
	return cs.blocks[slot/genericBlockSize].owners[slot%genericBlockSize]
}

func (cs *genericComponentStorage[T]) SlotPointer(slot int) unsafe.Pointer {
	return unsafe.Pointer(&cs.blocks[slot/genericBlockSize].values[slot%genericBlockSize])
}

// Compact reorganizes component storage to remove empty slots, preserving
// order. It returns the number of values that moved.
func (cs *genericComponentStorage[T]) Compact() int {
	if cs.count == cs.nextSlot {
		return 0
	}

	moved := 0
	writePos := 0
	var zero T
	for readPos := 0; readPos < cs.nextSlot; readPos++ {
		readBlock := cs.blocks[readPos/genericBlockSize]
		owner := readBlock.owners[readPos%genericBlockSize]
		if owner == 0 {
			continue
		}

		if readPos != writePos {
			writeBlock := cs.blocks[writePos/genericBlockSize]
			writeBlock.values[writePos%genericBlockSize] = readBlock.values[readPos%genericBlockSize]
			writeBlock.owners[writePos%genericBlockSize] = owner
			readBlock.values[readPos%genericBlockSize] = zero
			readBlock.owners[readPos%genericBlockSize] = 0
			cs.sparse.Put(owner.Index(), int32(writePos))
			moved++
		}
		writePos++
	}

	cs.nextSlot = writePos
	used := (writePos + genericBlockSize - 1) / genericBlockSize
	for i := used; i < len(cs.blocks); i++ {
		cs.blocks[i] = nil
	}
	cs.blocks = cs.blocks[:used]
	return moved
}

// Iter yields the occupied slots in order. The slot range is fixed when
// iteration starts.
func (cs *genericComponentStorage[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		end := cs.nextSlot
		for i := 0; i < end; i++ {
			if cs.blocks[i/genericBlockSize].owners[i%genericBlockSize] == 0 {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}
