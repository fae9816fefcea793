package ecs_test

import (
	"fmt"
	"reflect"

	"github.com/plus3/hearth/ecs"
)

// Each component type lives in its own block store, so a pointer from
// ReadComponent keeps addressing the same guest while others come and go.
func ExampleStorage() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	storage := ecs.NewStorage(registry)

	ada := storage.Spawn(Name{Value: "Ada"})
	grace := storage.Spawn(Name{Value: "Grace"})

	name := ecs.ReadComponent[Name](storage, grace)
	storage.Despawn(ada)
	storage.Spawn(Name{Value: "Edsger"})
	name.Value = "Grace Hopper"

	fmt.Println("ada alive:", storage.Alive(ada))
	fmt.Println(ecs.ReadComponent[Name](storage, grace).Value)
	fmt.Println("guests:", storage.EntityCount())

	// Output:
	// ada alive: false
	// Grace Hopper
	// guests: 2
}

// Despawned guests leave holes behind; Compact closes them without changing
// any entity id.
func ExampleStorage_Compact() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	storage := ecs.NewStorage(registry)

	var guests []ecs.EntityId
	for _, n := range []string{"Ada", "Grace", "Edsger", "Barbara"} {
		guests = append(guests, storage.Spawn(Name{Value: n}))
	}
	storage.AddComponent(guests[3], Health{Current: 3, Max: 5})
	storage.Despawn(guests[0])
	storage.Despawn(guests[2])
	fmt.Printf("fragmented: %v\n", storage.Fragmentation() > 0)

	storage.Compact()
	fmt.Printf("fragmented: %v\n", storage.Fragmentation() > 0)

	barbara := guests[3]
	fmt.Println(ecs.ReadComponent[Name](storage, barbara).Value,
		storage.HasComponent(barbara, reflect.TypeFor[Health]()))
	storage.RemoveComponent(barbara, reflect.TypeFor[Health]())
	fmt.Println(storage.ComponentTypes(barbara))

	// Output:
	// fragmented: true
	// fragmented: false
	// Barbara true
	// [ecs_test.Name]
}
