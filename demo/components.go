package demo

import (
	"fmt"
	"strings"

	"github.com/plus3/hearth/ecs"
)

// Person tags entities that get greeted.
type Person struct{}

type Name struct {
	Value string
}

// Position is in world units with y pointing up; the origin is the center of
// the view.
type Position struct {
	X, Y float64
}

type Circle struct {
	Radius float64
}

type Color struct {
	R, G, B, A uint8
}

var (
	Red   = Color{R: 0xff, A: 0xff}
	Green = Color{G: 0xff, A: 0xff}
	Blue  = Color{B: 0xff, A: 0xff}
	White = Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func (c Color) String() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts #rrggbb, #rrggbbaa and the names red, green, blue
// and white.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	switch s {
	case "red":
		*c = Red
		return nil
	case "green":
		*c = Green
		return nil
	case "blue":
		*c = Blue
		return nil
	case "white":
		*c = White
		return nil
	}

	hex := strings.TrimPrefix(s, "#")
	var parsed Color
	switch len(hex) {
	case 6:
		parsed.A = 0xff
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &parsed.R, &parsed.G, &parsed.B); err != nil {
			return fmt.Errorf("invalid color %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &parsed.R, &parsed.G, &parsed.B, &parsed.A); err != nil {
			return fmt.Errorf("invalid color %q: %w", s, err)
		}
	default:
		return fmt.Errorf("invalid color %q", s)
	}
	*c = parsed
	return nil
}

// Camera2D marks the entity whose Position the view is centered on.
type Camera2D struct {
	Zoom float64
}

// Direction is the heading of a Mover. It changes only on a just-pressed
// arrow key and is applied every tick by Move.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "up":
		*d = Up
	case "down":
		*d = Down
	case "left":
		*d = Left
	case "right":
		*d = Right
	default:
		return fmt.Errorf("invalid direction %q", text)
	}
	return nil
}

// Offset is the unit step of d in world coordinates.
func (d Direction) Offset() (dx, dy float64) {
	switch d {
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Mover tags entities steered by the arrow keys.
type Mover struct{}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Person](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Circle](registry)
	ecs.RegisterComponent[Color](registry)
	ecs.RegisterComponent[Camera2D](registry)
	ecs.RegisterComponent[Direction](registry)
	ecs.RegisterComponent[Mover](registry)
}
