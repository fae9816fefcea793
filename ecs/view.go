package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

var entityIdType = reflect.TypeFor[EntityId]()

type viewField struct {
	typ      reflect.Type
	bit      uint8
	offset   uintptr
	optional bool
	read     bool
}

// View represents a query for entities with a specific combination of components.
// The type T should be a struct whose fields describe the match:
//
//   - pointer fields fetch a component; named or embedded
//   - `ecs:"optional"` fetches the component when present and leaves the field nil otherwise
//   - `ecs:"read"` declares shared access for scheduling; tags combine as `ecs:"optional,read"`
//   - an EntityId field receives the matched entity's id
//   - With[C] and Without[C] fields filter without fetching
//
// Malformed view structs panic in NewView.
type View[T any] struct {
	storage   *Storage
	fields    []viewField
	idOffsets []uintptr
	withTypes []reflect.Type
	required  componentMask
	excluded  componentMask
	driver    reflect.Type
}

// NewView creates a new view for the given struct type
func NewView[T any](storage *Storage) *View[T] {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{storage: storage}
	fetched := map[reflect.Type]bool{}
	var withouts []reflect.Type

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType == entityIdType {
			v.idOffsets = append(v.idOffsets, field.Offset)
			continue
		}

		if fieldType.Implements(viewFilterType) {
			compType, kind := reflect.Zero(fieldType).Interface().(viewFilter).viewFilter()
			bit := v.componentBit(compType)
			if kind == filterWith {
				v.required.set(bit)
				v.withTypes = append(v.withTypes, compType)
			} else {
				v.excluded.set(bit)
				withouts = append(withouts, compType)
			}
			continue
		}

		if fieldType.Kind() != reflect.Ptr {
			panic(fmt.Sprintf("View struct field %s must be a pointer, EntityId, With or Without", field.Name))
		}

		componentType := fieldType.Elem()
		if fetched[componentType] {
			panic(fmt.Sprintf("View struct fetches %s twice", componentType))
		}
		fetched[componentType] = true

		vf := viewField{
			typ:    componentType,
			bit:    v.componentBit(componentType),
			offset: field.Offset,
		}
		if tag := field.Tag.Get("ecs"); tag != "" {
			for _, opt := range strings.Split(tag, ",") {
				switch strings.TrimSpace(opt) {
				case "optional":
					vf.optional = true
				case "read":
					vf.read = true
				default:
					panic("invalid ecs tag value: \"" + tag + "\" (supported: \"optional\", \"read\")")
				}
			}
		}
		if !vf.optional {
			v.required.set(vf.bit)
			if v.driver == nil {
				v.driver = componentType
			}
		}
		v.fields = append(v.fields, vf)
	}

	for _, t := range withouts {
		if fetched[t] {
			panic(fmt.Sprintf("View struct both fetches and excludes %s", t))
		}
		for _, w := range v.withTypes {
			if w == t {
				panic(fmt.Sprintf("View struct both requires and excludes %s", t))
			}
		}
	}
	if v.driver == nil && len(v.withTypes) > 0 {
		v.driver = v.withTypes[0]
	}
	return v
}

func (v *View[T]) componentBit(t reflect.Type) uint8 {
	bit, ok := v.storage.registry.componentId(t)
	if !ok {
		panic(fmt.Errorf("%w: %s used in view %s", ErrUnregisteredComponent, t, reflect.TypeFor[T]()))
	}
	return bit
}

// Matches reports whether the entity is alive and passes the view's filters.
func (v *View[T]) Matches(id EntityId) bool {
	mask := v.storage.entities.mask(id)
	return mask != nil && v.matchMask(*mask)
}

func (v *View[T]) matchMask(mask componentMask) bool {
	return mask.contains(v.required) && !mask.intersects(v.excluded)
}

// Fill populates the provided struct pointer with component data for the given entity
// Returns false if the entity does not match the view
// Optional components are set to nil if not present
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	mask := v.storage.entities.mask(id)
	if mask == nil || !v.matchMask(*mask) {
		return false
	}
	v.populate(unsafe.Pointer(ptr), id, *mask)
	return true
}

// populate writes field pointers for an entity already known to match.
// Use unsafe.Pointer to directly access the struct's memory
// This avoids reflection overhead in the hot path
func (v *View[T]) populate(structPtr unsafe.Pointer, id EntityId, mask componentMask) {
	for i := range v.fields {
		f := &v.fields[i]
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + f.offset)
		if !mask.has(f.bit) {
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = v.storage.storages[f.bit].Pointer(id)
	}
	for _, off := range v.idOffsets {
		*(*EntityId)(unsafe.Pointer(uintptr(structPtr) + off)) = id
	}
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't match the view
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// Iter returns an iterator over all entities that match this view.
// The iterator yields (EntityId, T) pairs where T is the populated view struct.
//
// Iteration is live: pointers address storage directly and writes through them
// are seen by later systems immediately. Entities spawned during iteration are
// not visited; entities despawned during iteration are skipped.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		var result T
		resultPtr := unsafe.Pointer(&result)

		if v.driver == nil {
			for id := range v.storage.Entities() {
				mask := v.storage.entities.masks[id.Index()]
				if !v.matchMask(mask) {
					continue
				}
				v.populate(resultPtr, id, mask)
				if !yield(id, result) {
					return
				}
			}
			return
		}

		store := v.storage.lookupStorage(v.driver)
		if store == nil {
			return
		}
		for slot := range store.Iter() {
			id := store.Owner(slot)
			mask := v.storage.entities.mask(id)
			if mask == nil || !v.matchMask(*mask) {
				continue
			}
			v.populate(resultPtr, id, *mask)
			if !yield(id, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs (without entity IDs)
// This is useful when you only care about the component data, not which entity it belongs to
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Count returns the number of matching entities.
func (v *View[T]) Count() int {
	n := 0
	for range v.Iter() {
		n++
	}
	return n
}

// Single returns the only match. ok is false when there are zero or several matches.
func (v *View[T]) Single() (T, bool) {
	var (
		first T
		found int
	)
	for _, value := range v.Iter() {
		found++
		if found > 1 {
			var zero T
			return zero, false
		}
		first = value
	}
	return first, found == 1
}

// Spawn creates a new entity with components extracted from the view struct.
// Types named by With fields are added with their zero value so the new
// entity matches the view.
func (v *View[T]) Spawn(data T) EntityId {
	structPtr := unsafe.Pointer(&data)

	components := make([]any, 0, len(v.fields)+len(v.withTypes))
	for i := range v.fields {
		f := &v.fields[i]
		componentPtr := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(structPtr) + f.offset))
		if componentPtr == nil {
			if !f.optional {
				panic("required component is nil in View.Spawn")
			}
			continue
		}
		components = append(components, reflect.NewAt(f.typ, componentPtr).Elem().Interface())
	}
	for _, t := range v.withTypes {
		components = append(components, reflect.Zero(t).Interface())
	}
	return v.storage.Spawn(components...)
}

// declareAccess records the component types this view reads and writes.
// Filters only inspect entity masks, which change at command flush, so they
// declare nothing.
func (v *View[T]) declareAccess(a *systemAccess) {
	for _, f := range v.fields {
		if f.read {
			a.compRead.set(f.bit)
		} else {
			a.compWrite.set(f.bit)
		}
	}
}
