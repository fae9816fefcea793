package app

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/plus3/hearth/ecs"
	"github.com/plus3/hearth/input"
)

// Presenter consumes the world after every Update system of a tick has run.
// It must treat storage as read-only.
type Presenter interface {
	Present(storage *ecs.Storage, t Time) error
}

// App owns the world and drives the Startup and Update phases.
type App struct {
	cfg       *Config
	log       *zap.Logger
	registry  *ecs.ComponentRegistry
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	pool      *ants.Pool

	presenters []Presenter
	source     input.Source

	time    *ecs.Singleton[Time]
	buttons *ecs.Singleton[input.ButtonInput]
	exit    *ecs.Singleton[Exit]

	started bool
}

// New creates an App with the Time, ButtonInput and Exit resources in place.
// When cfg.App.Workers is above one, non-conflicting systems run on a worker
// pool of that size.
func New(cfg *Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		registry: ecs.NewComponentRegistry(),
	}
	a.storage = ecs.NewStorage(a.registry)

	opts := []ecs.SchedulerOption{ecs.WithLogger(log.Named("scheduler"))}
	if cfg.App.Workers > 1 {
		pool, err := ants.NewPool(cfg.App.Workers)
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		a.pool = pool
		opts = append(opts, ecs.WithWorkerPool(pool))
	}
	a.scheduler = ecs.NewScheduler(a.storage, opts...)

	a.time = ecs.NewSingleton[Time](a.storage)
	a.buttons = ecs.NewSingleton[input.ButtonInput](a.storage)
	a.exit = ecs.NewSingleton[Exit](a.storage)
	return a, nil
}

func (a *App) Config() *Config                  { return a.cfg }
func (a *App) Logger() *zap.Logger              { return a.log }
func (a *App) Registry() *ecs.ComponentRegistry { return a.registry }
func (a *App) Storage() *ecs.Storage            { return a.storage }
func (a *App) Scheduler() *ecs.Scheduler        { return a.scheduler }

// AddPlugin builds each plugin in order and stops at the first error.
func (a *App) AddPlugin(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Build(a); err != nil {
			return fmt.Errorf("plugin %T: %w", p, err)
		}
	}
	return nil
}

// AddSystem registers a system, in the Update phase unless ecs.InPhase says
// otherwise.
func (a *App) AddSystem(system ecs.System, opts ...ecs.SystemOption) {
	if a.started {
		a.log.Warn("system added after startup; its startup phase will not run",
			zap.String("system", fmt.Sprintf("%T", system)))
	}
	a.scheduler.Register(system, opts...)
}

// Chain registers systems in phase so that each runs after the previous one.
func (a *App) Chain(phase ecs.Phase, systems ...ecs.System) {
	a.scheduler.Chain(phase, systems...)
}

// InsertResource stores value as a resource, replacing any previous value of
// the same type.
func (a *App) InsertResource(value any) {
	a.storage.AddSingleton(value)
}

func (a *App) AddPresenter(p Presenter) {
	a.presenters = append(a.presenters, p)
}

// SetInputSource replaces the source polled at the start of every tick.
func (a *App) SetInputSource(src input.Source) {
	a.source = src
}

// Startup resolves the schedule and runs the Startup phase. Registration and
// missing-resource errors surface here. Later calls are no-ops.
func (a *App) Startup() error {
	if a.started {
		return nil
	}
	if err := a.scheduler.Startup(); err != nil {
		return err
	}
	a.started = true

	plan, err := a.scheduler.Plan(ecs.Update)
	if err != nil {
		return err
	}
	a.log.Info("startup complete",
		zap.String("app", a.cfg.App.Name),
		zap.Int("entities", a.storage.EntityCount()),
		zap.Int("update_batches", len(plan)),
		zap.Bool("parallel", a.pool != nil))
	return nil
}

// Tick advances the world by dt: update Time, poll input, run the Update
// systems, present, then clear input edges and compact storage if needed.
func (a *App) Tick(dt time.Duration) error {
	if dt < 0 {
		return fmt.Errorf("%w: %s", ecs.ErrInvalidDelta, dt)
	}
	if err := a.Startup(); err != nil {
		return err
	}

	clock := a.time.MustGet()
	before := *clock
	clock.advance(dt)
	buttons := a.buttons.MustGet()
	if a.source != nil {
		a.source.Poll(clock.Tick, buttons)
	}

	// Systems read Time during the tick, so it advances first and is restored
	// when the tick does not run.
	if err := a.scheduler.Once(dt.Seconds()); err != nil {
		*clock = before
		return err
	}

	for _, p := range a.presenters {
		if err := p.Present(a.storage, *clock); err != nil {
			return fmt.Errorf("present %T: %w", p, err)
		}
	}

	buttons.ClearJust()
	if t := a.cfg.App.CompactThreshold; t > 0 && a.storage.Fragmentation() > t {
		moved := a.storage.Compact()
		a.log.Debug("storage compacted", zap.Int("moved", moved), zap.Uint64("tick", clock.Tick))
	}
	return nil
}

// Ticks is the number of completed ticks.
func (a *App) Ticks() uint64 {
	return a.time.MustGet().Tick
}

// ExitRequested reports whether a system asked the App to stop.
func (a *App) ExitRequested() bool {
	e := a.exit.Get()
	return e != nil && e.Requested
}

// Run runs Startup and then ticks every cfg.App.TickRate with a fixed delta
// until ctx is cancelled, Exit is requested or cfg.App.MaxTicks is reached.
// Cancellation is observed between ticks only.
func (a *App) Run(ctx context.Context) error {
	if err := a.Startup(); err != nil {
		return err
	}

	rate := a.cfg.App.TickRate
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		if reason, done := a.shouldStop(); done {
			a.log.Info("shutting down", zap.String("reason", reason), zap.Uint64("ticks", a.Ticks()))
			return nil
		}
		select {
		case <-ctx.Done():
			a.log.Info("shutting down", zap.String("reason", "context cancelled"), zap.Uint64("ticks", a.Ticks()))
			return nil
		case <-ticker.C:
			if err := a.Tick(rate); err != nil {
				return err
			}
		}
	}
}

func (a *App) shouldStop() (string, bool) {
	if e := a.exit.Get(); e != nil && e.Requested {
		return "exit requested: " + e.Reason, true
	}
	if limit := a.cfg.App.MaxTicks; limit > 0 && a.Ticks() >= limit {
		return "max ticks reached", true
	}
	return "", false
}

// Close releases the worker pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Release()
		a.pool = nil
	}
}
