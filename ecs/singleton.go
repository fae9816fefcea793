package ecs

import (
	"fmt"
	"reflect"
)

// Singleton provides efficient access to a single resource instance that is
// not associated with any entity. Use this for global state, configuration,
// timers or input.
//
// As a system field, a Singleton declares exclusive access unless tagged
// `ecs:"read"`, and is required unless tagged `ecs:"optional"`. The scheduler
// refuses to run a system whose required resources are missing.
type Singleton[T any] struct {
	storage *Storage
	entry   *singletonEntry
}

// NewSingleton creates a new Singleton accessor for the given storage.
// If initializer is provided and the singleton doesn't exist in storage,
// it will be created with the initializer value. Otherwise, a zero value is used.
// This guarantees the singleton exists in storage after the call.
func NewSingleton[T any](storage *Storage, initializer ...T) *Singleton[T] {
	componentType := reflect.TypeFor[T]()

	if storage.getSingletonEntry(componentType) == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		storage.AddSingleton(&value)
	}

	return &Singleton[T]{
		storage: storage,
		entry:   storage.singletons[componentType],
	}
}

// Init initializes the Singleton with a storage reference.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(storage *Storage) {
	s.storage = storage
	s.entry = nil
}

// Get returns a pointer to the resource, or nil if it is not in storage.
func (s *Singleton[T]) Get() *T {
	if s.entry == nil && s.storage != nil {
		s.entry = s.storage.singletons[reflect.TypeFor[T]()]
	}
	if s.entry == nil || !s.entry.present {
		return nil
	}
	return (*T)(s.entry.dataPtr)
}

// MustGet returns the resource or panics with ErrResourceNotFound.
func (s *Singleton[T]) MustGet() *T {
	if res := s.Get(); res != nil {
		return res
	}
	panic(fmt.Errorf("%w: %s", ErrResourceNotFound, reflect.TypeFor[T]()))
}

// Exists returns true if the resource has been added to storage
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}

func (s *Singleton[T]) resourceType() reflect.Type {
	return reflect.TypeFor[T]()
}
