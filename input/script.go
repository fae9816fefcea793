package input

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScriptEvent presses and releases keys at the start of a tick. Ticks are
// 1-based, matching app.Time.Tick.
type ScriptEvent struct {
	Tick    uint64 `yaml:"tick"`
	Press   []Key  `yaml:"press,omitempty"`
	Release []Key  `yaml:"release,omitempty"`
	// Tap presses the keys on Tick and releases them on the following tick.
	Tap []Key `yaml:"tap,omitempty"`
}

type scriptFile struct {
	Events []ScriptEvent `yaml:"events"`
}

// Script is a Source replaying key events at fixed ticks. It drives headless
// runs and tests.
type Script struct {
	events map[uint64][]ScriptEvent
	last   uint64
}

func NewScript(events ...ScriptEvent) *Script {
	s := &Script{events: make(map[uint64][]ScriptEvent)}
	for _, ev := range events {
		s.Add(ev)
	}
	return s
}

// Add appends an event. Tap keys are expanded into a release on the next tick.
func (s *Script) Add(ev ScriptEvent) {
	if len(ev.Tap) > 0 {
		ev.Press = append(ev.Press, ev.Tap...)
		s.Add(ScriptEvent{Tick: ev.Tick + 1, Release: ev.Tap})
		ev.Tap = nil
	}
	s.events[ev.Tick] = append(s.events[ev.Tick], ev)
	if ev.Tick > s.last {
		s.last = ev.Tick
	}
}

// Poll applies the releases and then the presses scheduled for tick.
func (s *Script) Poll(tick uint64, buttons *ButtonInput) {
	for _, ev := range s.events[tick] {
		for _, k := range ev.Release {
			buttons.Release(k)
		}
	}
	for _, ev := range s.events[tick] {
		for _, k := range ev.Press {
			buttons.Press(k)
		}
	}
}

// LastTick is the tick of the final scripted event.
func (s *Script) LastTick() uint64 {
	return s.last
}

// Ticks returns the ticks with events in ascending order.
func (s *Script) Ticks() []uint64 {
	ticks := make([]uint64, 0, len(s.events))
	for t := range s.events {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

func ParseScript(data []byte) (*Script, error) {
	var file scriptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse input script: %w", err)
	}
	for i, ev := range file.Events {
		if ev.Tick == 0 {
			return nil, fmt.Errorf("parse input script: event %d: tick must be >= 1", i)
		}
	}
	return NewScript(file.Events...), nil
}

func ReadScript(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input script: %w", err)
	}
	return ParseScript(data)
}

func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input script: %w", err)
	}
	defer f.Close()
	return ReadScript(f)
}
