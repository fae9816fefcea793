package ecs

import "reflect"

// With restricts a view to entities carrying C without fetching it.
// Declare it as a blank field of the view struct:
//
//	ecs.Query[struct {
//		*Name
//		_ ecs.With[Person]
//	}]
type With[C any] struct{}

// Without restricts a view to entities that do not carry C.
type Without[C any] struct{}

type filterKind int

const (
	filterWith filterKind = iota
	filterWithout
)

// viewFilter is implemented by the With and Without markers.
type viewFilter interface {
	viewFilter() (reflect.Type, filterKind)
}

func (With[C]) viewFilter() (reflect.Type, filterKind) {
	return reflect.TypeFor[C](), filterWith
}

func (Without[C]) viewFilter() (reflect.Type, filterKind) {
	return reflect.TypeFor[C](), filterWithout
}

var viewFilterType = reflect.TypeFor[viewFilter]()
