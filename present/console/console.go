// Package console is the headless presenter. It prints new greetings and logs
// a periodic world summary.
package console

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/demo"
	"github.com/plus3/hearth/ecs"
)

type Presenter struct {
	out   io.Writer
	log   *zap.Logger
	every uint64

	printed int
	movers  *ecs.View[moverRow]
}

type moverRow struct {
	Name      *demo.Name
	Position  *demo.Position
	Direction *demo.Direction
	_         ecs.With[demo.Mover]
}

// New returns a presenter writing greetings to out. A summary is logged at
// debug level every `every` ticks; 0 disables it.
func New(out io.Writer, log *zap.Logger, every uint64) *Presenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Presenter{out: out, log: log, every: every}
}

func (p *Presenter) Present(storage *ecs.Storage, t app.Time) error {
	if greetings, err := ecs.Resource[demo.GreetLog](storage); err == nil {
		for _, line := range greetings.Since(p.printed) {
			if _, err := fmt.Fprintln(p.out, line); err != nil {
				return err
			}
		}
		p.printed = len(greetings.Lines)
	}

	if p.every == 0 || t.Tick%p.every != 0 {
		return nil
	}
	if p.movers == nil {
		p.movers = ecs.NewView[moverRow](storage)
	}
	fields := []zap.Field{
		zap.Uint64("tick", t.Tick),
		zap.Duration("elapsed", t.Elapsed),
		zap.Int("entities", storage.EntityCount()),
		zap.Float64("fragmentation", storage.Fragmentation()),
	}
	for m := range p.movers.Values() {
		fields = append(fields, zap.String(m.Name.Value,
			fmt.Sprintf("(%.0f, %.0f) %s", m.Position.X, m.Position.Y, *m.Direction)))
	}
	p.log.Debug("world", fields...)
	return nil
}
