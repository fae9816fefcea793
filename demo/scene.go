package demo

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed scene.yaml
var defaultScene []byte

// Scene is the initial world, spawned by the Startup systems.
type Scene struct {
	People  []string    `yaml:"people"`
	Circle  *CircleSpec `yaml:"circle"`
	Movers  []MoverSpec `yaml:"movers"`
	Palette []Color     `yaml:"palette"`
}

type CircleSpec struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
	Color  Color   `yaml:"color"`
}

type MoverSpec struct {
	Name      string    `yaml:"name"`
	X         float64   `yaml:"x"`
	Y         float64   `yaml:"y"`
	Radius    float64   `yaml:"radius"`
	Color     Color     `yaml:"color"`
	Direction Direction `yaml:"direction"`
}

// DefaultScene is three people and a red circle of radius 50 at the origin.
func DefaultScene() (*Scene, error) {
	return ParseScene(defaultScene)
}

func ParseScene(data []byte) (*Scene, error) {
	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := scene.validate(); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &scene, nil
}

// LoadScene reads a scene file; an empty path loads the embedded scene.
func LoadScene(path string) (*Scene, error) {
	if path == "" {
		return DefaultScene()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	return ParseScene(data)
}

func (s *Scene) validate() error {
	var errs []error
	for i, name := range s.People {
		if name == "" {
			errs = append(errs, fmt.Errorf("people[%d]: empty name", i))
		}
	}
	if s.Circle != nil && s.Circle.Radius <= 0 {
		errs = append(errs, fmt.Errorf("circle: radius must be positive, got %v", s.Circle.Radius))
	}
	for i, m := range s.Movers {
		if m.Radius < 0 {
			errs = append(errs, fmt.Errorf("movers[%d]: radius must not be negative", i))
		}
	}
	return errors.Join(errs...)
}
