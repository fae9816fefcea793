package ecs

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"
)

// singletonEntry owns the allocation of one resource. The allocation is kept
// for the lifetime of the storage so that cached Singleton accessors survive
// replacement and removal.
type singletonEntry struct {
	typ     reflect.Type
	value   reflect.Value
	dataPtr unsafe.Pointer
	present bool
}

func (s *Storage) getSingletonEntry(t reflect.Type) *singletonEntry {
	entry := s.singletons[t]
	if entry == nil || !entry.present {
		return nil
	}
	return entry
}

// AddSingleton inserts a resource, replacing any existing value of the same
// type. The value is copied into storage; pointers are dereferenced.
func (s *Storage) AddSingleton(value any) {
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		panic(fmt.Errorf("%w: nil resource", ErrInvalidComponent))
	}
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()
	entry, ok := s.singletons[t]
	if !ok {
		ptr := reflect.New(t)
		entry = &singletonEntry{
			typ:     t,
			value:   ptr,
			dataPtr: ptr.UnsafePointer(),
		}
		s.singletons[t] = entry
	}
	entry.value.Elem().Set(val)
	entry.present = true
}

// RemoveSingleton removes the resource of type t. Returns false if absent.
func (s *Storage) RemoveSingleton(t reflect.Type) bool {
	entry := s.getSingletonEntry(t)
	if entry == nil {
		return false
	}
	entry.value.Elem().SetZero()
	entry.present = false
	return true
}

// ReadSingleton points *out at the stored resource, where out is a **T.
// Returns false if no resource of type T exists.
func (s *Storage) ReadSingleton(out any) bool {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Ptr {
		panic("ReadSingleton requires a pointer to a pointer")
	}
	entry := s.getSingletonEntry(rv.Type().Elem().Elem())
	if entry == nil {
		return false
	}
	rv.Elem().Set(entry.value)
	return true
}

// HasSingleton reports whether a resource of type t exists.
func (s *Storage) HasSingleton(t reflect.Type) bool {
	return s.getSingletonEntry(t) != nil
}

// SingletonTypes lists the present resource types sorted by name.
func (s *Storage) SingletonTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(s.singletons))
	for t, entry := range s.singletons {
		if entry.present {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	return types
}

// InsertResource stores value as the T resource, replacing any previous value.
func InsertResource[T any](s *Storage, value T) {
	s.AddSingleton(&value)
}

// Resource returns the T resource, or an error wrapping ErrResourceNotFound.
func Resource[T any](s *Storage) (*T, error) {
	entry := s.getSingletonEntry(reflect.TypeFor[T]())
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, reflect.TypeFor[T]())
	}
	return (*T)(entry.dataPtr), nil
}

// MustResource is like Resource but panics when the resource is missing.
func MustResource[T any](s *Storage) *T {
	res, err := Resource[T](s)
	if err != nil {
		panic(err)
	}
	return res
}

func HasResource[T any](s *Storage) bool {
	return s.HasSingleton(reflect.TypeFor[T]())
}

func RemoveResource[T any](s *Storage) bool {
	return s.RemoveSingleton(reflect.TypeFor[T]())
}
