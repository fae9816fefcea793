package demo

import (
	"time"

	"github.com/plus3/hearth/ecs"
)

// GreetTimer paces GreetPeople.
type GreetTimer struct {
	ecs.Timer
}

func NewGreetTimer(period time.Duration) GreetTimer {
	return GreetTimer{Timer: ecs.NewTimer(period, ecs.TimerRepeating)}
}

// GreetLog collects every greeting in the order it was made.
type GreetLog struct {
	Lines []string
}

// Since returns the lines after the first n.
func (l *GreetLog) Since(n int) []string {
	if n >= len(l.Lines) {
		return nil
	}
	return l.Lines[n:]
}

type MoveSettings struct {
	// Step is the distance a mover travels per tick.
	Step float64
}

// Palette is the color cycle used by Recolor.
type Palette struct {
	Colors []Color
	Index  int
}

// Next advances the palette and returns the new current color.
func (p *Palette) Next() (Color, bool) {
	if len(p.Colors) == 0 {
		return Color{}, false
	}
	p.Index = (p.Index + 1) % len(p.Colors)
	return p.Colors[p.Index], true
}
