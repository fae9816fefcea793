package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/plus3/hearth/ecs"
)

type (
	c0 float64
	c1 float64
	c2 float64
	c3 float64
	c4 float64
	c5 float64
	c6 float64
	c7 float64
)

const componentCount = 8

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[c0](registry)
	ecs.RegisterComponent[c1](registry)
	ecs.RegisterComponent[c2](registry)
	ecs.RegisterComponent[c3](registry)
	ecs.RegisterComponent[c4](registry)
	ecs.RegisterComponent[c5](registry)
	ecs.RegisterComponent[c6](registry)
	ecs.RegisterComponent[c7](registry)
}

func newComponent(i int, v float64) any {
	switch i {
	case 0:
		return c0(v)
	case 1:
		return c1(v)
	case 2:
		return c2(v)
	case 3:
		return c3(v)
	case 4:
		return c4(v)
	case 5:
		return c5(v)
	case 6:
		return c6(v)
	default:
		return c7(v)
	}
}

// randomBundle returns between one and five distinct components.
func randomBundle(rng *rand.Rand) []any {
	n := rng.IntN(5) + 1
	bundle := make([]any, 0, n)
	for _, i := range rng.Perm(componentCount)[:n] {
		bundle = append(bundle, newComponent(i, rng.Float64()))
	}
	return bundle
}

type number interface {
	~float64
}

// accumulate folds a fraction of Src into Dst on every entity carrying both.
type accumulate[D, S number] struct {
	Pairs ecs.Query[struct {
		Dst *D
		Src *S `ecs:"read"`
	}]
}

func (s *accumulate[D, S]) Execute(frame *ecs.UpdateFrame) {
	k := D(frame.DeltaTime)
	for p := range s.Pairs.Values() {
		*p.Dst += D(*p.Src) * k
	}
}

// decay is a write-only pass over a single component type.
type decay[C number] struct {
	Values ecs.Query[struct{ V *C }]
}

func (s *decay[C]) Execute(frame *ecs.UpdateFrame) {
	for p := range s.Values.Values() {
		*p.V *= 0.999
	}
}

// churn despawns a share of the c0 entities each tick and spawns as many
// replacements, leaving holes for compaction to reclaim.
type churn struct {
	rng  *rand.Rand
	rate float64

	Targets ecs.Query[struct {
		C0 *c0 `ecs:"read"`
	}]
}

func (s *churn) Execute(frame *ecs.UpdateFrame) {
	for id := range s.Targets.Iter() {
		if s.rng.Float64() >= s.rate {
			continue
		}
		frame.Commands.Despawn(id)
		frame.Commands.Spawn(randomBundle(s.rng)...)
	}
}

type systemFactory func() ecs.System

// pairFactories lists one accumulate per ordered pair of distinct component
// types; generics need the pairs spelled out.
var pairFactories = []systemFactory{
	func() ecs.System { return &accumulate[c0, c1]{} },
	func() ecs.System { return &accumulate[c1, c2]{} },
	func() ecs.System { return &accumulate[c2, c3]{} },
	func() ecs.System { return &accumulate[c3, c4]{} },
	func() ecs.System { return &accumulate[c4, c5]{} },
	func() ecs.System { return &accumulate[c5, c6]{} },
	func() ecs.System { return &accumulate[c6, c7]{} },
	func() ecs.System { return &accumulate[c7, c0]{} },
	func() ecs.System { return &accumulate[c0, c4]{} },
	func() ecs.System { return &accumulate[c2, c6]{} },
	func() ecs.System { return &accumulate[c5, c1]{} },
	func() ecs.System { return &accumulate[c3, c7]{} },
}

var decayFactories = []systemFactory{
	func() ecs.System { return &decay[c0]{} },
	func() ecs.System { return &decay[c3]{} },
	func() ecs.System { return &decay[c6]{} },
}

// registerSystems registers count random systems. Each may be ordered after an
// earlier one with probability chainRate.
func registerSystems(scheduler *ecs.Scheduler, rng *rand.Rand, count int, chainRate float64) []string {
	names := make([]string, 0, count)
	for i := range count {
		var sys ecs.System
		if rng.IntN(4) == 0 {
			sys = decayFactories[rng.IntN(len(decayFactories))]()
		} else {
			sys = pairFactories[rng.IntN(len(pairFactories))]()
		}

		name := fmt.Sprintf("system-%03d", i)
		opts := []ecs.SystemOption{ecs.Named(name)}
		if len(names) > 0 && rng.Float64() < chainRate {
			opts = append(opts, ecs.After(names[rng.IntN(len(names))]))
		}
		scheduler.Register(sys, opts...)
		names = append(names, name)
	}
	return names
}
