package demo

import (
	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/ecs"
	"github.com/plus3/hearth/input"
)

type AddPeople struct {
	Scene ecs.Singleton[Scene] `ecs:"read"`
}

func (s *AddPeople) Execute(frame *ecs.UpdateFrame) {
	for _, name := range s.Scene.Get().People {
		frame.Commands.Spawn(Person{}, Name{Value: name})
	}
}

// AddCircle spawns the camera and the scene's circle.
type AddCircle struct {
	Scene ecs.Singleton[Scene] `ecs:"read"`
}

func (s *AddCircle) Execute(frame *ecs.UpdateFrame) {
	frame.Commands.Spawn(Camera2D{Zoom: 1}, Position{})

	c := s.Scene.Get().Circle
	if c == nil {
		return
	}
	frame.Commands.Spawn(
		Position{X: c.X, Y: c.Y},
		Circle{Radius: c.Radius},
		c.Color,
	)
}

type AddMovers struct {
	Scene ecs.Singleton[Scene] `ecs:"read"`
}

func (s *AddMovers) Execute(frame *ecs.UpdateFrame) {
	for _, m := range s.Scene.Get().Movers {
		frame.Commands.Spawn(
			Mover{},
			Name{Value: m.Name},
			Position{X: m.X, Y: m.Y},
			Circle{Radius: m.Radius},
			m.Color,
			m.Direction,
		)
	}
}

// UpdatePeople renames Marcus. GreetPeople runs after it and must see the
// new name in the same tick.
type UpdatePeople struct {
	People ecs.Query[struct {
		*Name
		_ ecs.With[Person]
	}]
}

func (s *UpdatePeople) Execute(frame *ecs.UpdateFrame) {
	for p := range s.People.Values() {
		if p.Name.Value == "Marcus" {
			p.Name.Value = "aiee"
		}
	}
}

// GreetPeople greets every person each time the greet timer completes.
type GreetPeople struct {
	Time   ecs.Singleton[app.Time] `ecs:"read"`
	Timer  ecs.Singleton[GreetTimer]
	Log    ecs.Singleton[GreetLog]
	People ecs.Query[struct {
		Name *Name `ecs:"read"`
		_    ecs.With[Person]
	}]
}

func (s *GreetPeople) Execute(frame *ecs.UpdateFrame) {
	fired, err := s.Timer.Get().Tick(s.Time.Get().Delta)
	if err != nil || !fired {
		return
	}
	log := s.Log.Get()
	for p := range s.People.Values() {
		log.Lines = append(log.Lines, "Hello, "+p.Name.Value)
	}
}

// Steer turns movers towards the arrow key pressed this tick.
type Steer struct {
	Buttons ecs.Singleton[input.ButtonInput] `ecs:"read"`
	Movers  ecs.Query[struct {
		*Direction
		_ ecs.With[Mover]
	}]
}

func (s *Steer) Execute(frame *ecs.UpdateFrame) {
	buttons := s.Buttons.Get()
	for m := range s.Movers.Values() {
		*m.Direction = m.Direction.Steer(buttons)
	}
}

var steerKeys = [...]struct {
	key input.Key
	dir Direction
}{
	{input.KeyUp, Up},
	{input.KeyDown, Down},
	{input.KeyLeft, Left},
	{input.KeyRight, Right},
}

// Steer returns the direction selected by a just-pressed arrow key, or d if
// none was pressed. When several are pressed at once the first of up, down,
// left, right wins.
func (d Direction) Steer(buttons *input.ButtonInput) Direction {
	for _, sk := range steerKeys {
		if buttons.JustPressed(sk.key) {
			return sk.dir
		}
	}
	return d
}

// Move advances every mover one step along its direction.
type Move struct {
	Settings ecs.Singleton[MoveSettings] `ecs:"read"`
	Movers   ecs.Query[struct {
		*Position
		Direction *Direction `ecs:"read"`
		_         ecs.With[Mover]
	}]
}

func (s *Move) Execute(frame *ecs.UpdateFrame) {
	step := s.Settings.Get().Step
	for m := range s.Movers.Values() {
		dx, dy := m.Direction.Offset()
		m.Position.X += dx * step
		m.Position.Y += dy * step
	}
}

// Recolor gives the first circle the next palette color when space is pressed.
type Recolor struct {
	Buttons ecs.Singleton[input.ButtonInput] `ecs:"read"`
	Palette ecs.Singleton[Palette]
	Circles ecs.Query[struct {
		*Color
		_ ecs.With[Circle]
	}]
}

func (s *Recolor) Execute(frame *ecs.UpdateFrame) {
	if !s.Buttons.Get().JustPressed(input.KeySpace) {
		return
	}
	next, ok := s.Palette.Get().Next()
	if !ok {
		return
	}
	for c := range s.Circles.Values() {
		*c.Color = next
		break
	}
}

// QuitOnEscape requests shutdown when escape is pressed.
type QuitOnEscape struct {
	Buttons ecs.Singleton[input.ButtonInput] `ecs:"read"`
	Exit    ecs.Singleton[app.Exit]
}

func (s *QuitOnEscape) Execute(frame *ecs.UpdateFrame) {
	if s.Buttons.Get().JustPressed(input.KeyEscape) {
		s.Exit.Get().Request("escape pressed")
	}
}
