package ecs

import "errors"

var (
	ErrUnregisteredComponent = errors.New("ecs: component type not registered")
	ErrDuplicateComponent    = errors.New("ecs: duplicate component type in bundle")
	ErrInvalidComponent      = errors.New("ecs: invalid component type")
	ErrResourceNotFound      = errors.New("ecs: resource not found")
	ErrDependencyCycle       = errors.New("ecs: system dependency cycle")
	ErrUnknownDependency     = errors.New("ecs: unknown system dependency")
	ErrDuplicateSystem       = errors.New("ecs: duplicate system name")
	ErrInvalidDelta          = errors.New("ecs: invalid timer delta")
)
