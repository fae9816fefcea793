package ecs

import (
	"fmt"
	"reflect"
	"strings"
)

// systemAccess is what a system declares through its Query and Singleton fields.
type systemAccess struct {
	opaque    bool
	compRead  componentMask
	compWrite componentMask
	resRead   []reflect.Type
	resWrite  []reflect.Type
	required  []reflect.Type
}

type storageBinder interface {
	Init(storage *Storage)
}

var storageBinderType = reflect.TypeFor[storageBinder]()

type accessDeclarer interface {
	declareAccess(a *systemAccess)
}

type resourceAccessor interface {
	resourceType() reflect.Type
}

// bindSystem initializes the Query and Singleton fields of a struct system and
// collects its access. Systems that are not structs are opaque. It panics when
// such a field cannot be bound: the system was passed by value, or the field
// is unexported or a pointer.
func bindSystem(system System, storage *Storage) *systemAccess {
	access := &systemAccess{}

	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}

	if systemValue.Kind() != reflect.Struct {
		access.opaque = true
		return access
	}

	systemType := systemValue.Type()

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		fieldType := systemType.Field(i)

		if fieldType.Type.Kind() == reflect.Ptr && fieldType.Type.Implements(storageBinderType) {
			panic(fmt.Sprintf("ecs: system %s: field %s must hold %s by value, not a pointer",
				systemType, fieldType.Name, fieldType.Type.Elem()))
		}
		if field.Kind() != reflect.Struct || !reflect.PointerTo(fieldType.Type).Implements(storageBinderType) {
			continue
		}
		if !field.CanAddr() {
			panic(fmt.Sprintf("ecs: system %s must be registered by pointer so field %s can be bound",
				systemType, fieldType.Name))
		}
		if !field.CanSet() {
			panic(fmt.Sprintf("ecs: system %s: field %s is unexported and cannot be bound",
				systemType, fieldType.Name))
		}

		binder, ok := field.Addr().Interface().(storageBinder)
		if !ok {
			continue
		}
		binder.Init(storage)

		if declarer, ok := binder.(accessDeclarer); ok {
			declarer.declareAccess(access)
			continue
		}

		if res, ok := binder.(resourceAccessor); ok {
			read, optional := parseResourceTag(fieldType)
			t := res.resourceType()
			if read {
				access.resRead = appendType(access.resRead, t)
			} else {
				access.resWrite = appendType(access.resWrite, t)
			}
			if !optional {
				access.required = appendType(access.required, t)
			}
		}
	}
	return access
}

func parseResourceTag(field reflect.StructField) (read, optional bool) {
	tag := field.Tag.Get("ecs")
	if tag == "" {
		return false, false
	}
	for _, opt := range strings.Split(tag, ",") {
		switch strings.TrimSpace(opt) {
		case "read":
			read = true
		case "optional":
			optional = true
		default:
			panic(fmt.Sprintf("invalid ecs tag value on %s: %q", field.Name, tag))
		}
	}
	return read, optional
}

func appendType(types []reflect.Type, t reflect.Type) []reflect.Type {
	for _, have := range types {
		if have == t {
			return types
		}
	}
	return append(types, t)
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, have := range types {
		if have == t {
			return true
		}
	}
	return false
}

// conflicts reports whether two systems may not run at the same time: either
// is opaque, or they share a component or resource that one of them writes.
func (a *systemAccess) conflicts(b *systemAccess) bool {
	if a.opaque || b.opaque {
		return true
	}
	if a.compWrite.intersects(b.compWrite) ||
		a.compWrite.intersects(b.compRead) ||
		a.compRead.intersects(b.compWrite) {
		return true
	}
	for _, t := range a.resWrite {
		if containsType(b.resWrite, t) || containsType(b.resRead, t) {
			return true
		}
	}
	for _, t := range a.resRead {
		if containsType(b.resWrite, t) {
			return true
		}
	}
	return false
}

// missingResource returns the first required resource absent from storage.
func (a *systemAccess) missingResource(storage *Storage) reflect.Type {
	for _, t := range a.required {
		if !storage.HasSingleton(t) {
			return t
		}
	}
	return nil
}
