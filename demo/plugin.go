package demo

import (
	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/ecs"
)

// Plugin sets up the greeting, circle and mover demo.
type Plugin struct {
	Config app.DemoConfig
	// Scene overrides Config.Scene when set.
	Scene *Scene
}

func (p Plugin) Build(a *app.App) error {
	scene := p.Scene
	if scene == nil {
		var err error
		if scene, err = LoadScene(p.Config.Scene); err != nil {
			return err
		}
	}

	registerComponents(a.Registry())

	a.InsertResource(scene)
	a.InsertResource(NewGreetTimer(p.Config.GreetPeriod))
	a.InsertResource(GreetLog{})
	a.InsertResource(MoveSettings{Step: p.Config.MoveStep})
	palette := Palette{Colors: scene.Palette}
	if scene.Circle != nil {
		for i, c := range palette.Colors {
			if c == scene.Circle.Color {
				palette.Index = i
				break
			}
		}
	}
	a.InsertResource(palette)

	a.AddSystem(&AddPeople{}, ecs.InPhase(ecs.Startup))
	a.AddSystem(&AddCircle{}, ecs.InPhase(ecs.Startup))
	a.AddSystem(&AddMovers{}, ecs.InPhase(ecs.Startup))

	a.Chain(ecs.Update, &UpdatePeople{}, &GreetPeople{})
	a.Chain(ecs.Update, &Steer{}, &Move{})
	a.AddSystem(&Recolor{})
	a.AddSystem(&QuitOnEscape{})
	return nil
}
