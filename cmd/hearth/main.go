package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/demo"
	"github.com/plus3/hearth/input"
	"github.com/plus3/hearth/present/console"
	"github.com/plus3/hearth/present/ebitenview"
)

type options struct {
	config   string
	scene    string
	script   string
	headless bool
	ticks    uint64
	summary  uint64
	profile  string
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", os.Getenv("HEARTH_CONFIG"), "TOML config file; defaults apply when empty.")
	flag.StringVar(&opts.scene, "scene", "", "YAML scene file; overrides demo.scene.")
	flag.StringVar(&opts.script, "script", "", "YAML input script replayed in headless mode.")
	flag.BoolVar(&opts.headless, "headless", false, "Run without a window, printing greetings to stdout.")
	flag.Uint64Var(&opts.ticks, "ticks", 0, "Stop after this many ticks; overrides app.max_ticks.")
	flag.Uint64Var(&opts.summary, "summary", 60, "Log a world summary every n ticks in headless mode; 0 disables.")
	flag.StringVar(&opts.profile, "profile", "", "Write a cpu or mem profile to the working directory.")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := app.Load(opts.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.scene != "" {
		cfg.Demo.Scene = opts.scene
	}
	if opts.ticks > 0 {
		cfg.App.MaxTicks = opts.ticks
	}

	log, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", opts.profile)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.AddPlugin(demo.Plugin{Config: cfg.Demo}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.Duration("tick_rate", cfg.App.TickRate),
		zap.Uint64("max_ticks", cfg.App.MaxTicks),
		zap.Bool("headless", opts.headless))

	if opts.headless {
		return runHeadless(ctx, a, opts)
	}
	if opts.script != "" {
		return errors.New("-script requires -headless")
	}
	return ebitenview.New(a).Run(ctx)
}

func runHeadless(ctx context.Context, a *app.App, opts options) error {
	if opts.script != "" {
		script, err := input.LoadScript(opts.script)
		if err != nil {
			return err
		}
		a.SetInputSource(script)
		a.Logger().Info("replaying input script",
			zap.String("path", opts.script),
			zap.Uint64("last_tick", script.LastTick()))
	}
	a.AddPresenter(console.New(os.Stdout, a.Logger().Named("console"), opts.summary))
	return a.Run(ctx)
}
