package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// iComponentStorage is an interface for a type-erased component storage.
type iComponentStorage interface {
	Type() reflect.Type
	Insert(id EntityId, item any) unsafe.Pointer
	Delete(id EntityId) bool
	Get(id EntityId) any
	Pointer(id EntityId) unsafe.Pointer
	Has(id EntityId) bool
	Len() int
	Slots() int
	Holes() int
	Owner(slot int) EntityId
	SlotPointer(slot int) unsafe.Pointer
	Compact() int
	Iter() iter.Seq[int]
}
