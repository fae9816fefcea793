package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	systemCount := flag.Int("systems", 50, "The number of generated systems.")
	chainRate := flag.Float64("chain", 0.2, "Probability that a system is ordered after an earlier one.")
	churnRate := flag.Float64("churn", 0.01, "Share of c0 entities respawned every tick.")
	workers := flag.Int("workers", runtime.NumCPU(), "Worker pool size; 1 or less runs sequentially.")
	compact := flag.Float64("compact", 0.5, "Compact storage when fragmentation exceeds this; 0 disables.")
	seed := flag.Uint64("seed", 1, "Random seed.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	format := flag.String("format", "markdown", "Report format: markdown or json.")
	profileMode := flag.String("profile", "", "Write a cpu, mem or trace profile to the working directory.")
	flag.Parse()

	log, err := app.NewLogger(app.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *profileMode != "" {
		mode, err := profileOption(*profileMode)
		if err != nil {
			log.Fatal("invalid profile mode", zap.Error(err))
		}
		defer profile.Start(mode, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	log.Info("starting ECS stress test",
		zap.Int("entities", *entityCount),
		zap.Int("systems", *systemCount),
		zap.Int("workers", *workers))

	rng := rand.New(rand.NewPCG(*seed, *seed))

	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	storage := ecs.NewStorage(registry)

	opts := []ecs.SchedulerOption{ecs.WithLogger(log.Named("scheduler"))}
	if *workers > 1 {
		pool, err := ants.NewPool(*workers)
		if err != nil {
			log.Fatal("create worker pool", zap.Error(err))
		}
		defer pool.Release()
		opts = append(opts, ecs.WithWorkerPool(pool))
	}
	scheduler := ecs.NewScheduler(storage, opts...)
	registerSystems(scheduler, rng, *systemCount, *chainRate)
	if *churnRate > 0 {
		scheduler.Register(&churn{rng: rand.New(rand.NewPCG(*seed+1, *seed)), rate: *churnRate}, ecs.Named("churn"))
	}

	for range *entityCount {
		storage.Spawn(randomBundle(rng)...)
	}
	log.Info("population complete", zap.Int("entities", storage.EntityCount()))

	if err := scheduler.Startup(); err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	plan, err := scheduler.Plan(ecs.Update)
	if err != nil {
		log.Fatal("plan failed", zap.Error(err))
	}

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     componentCount,
		Systems:        *systemCount,
		Workers:        *workers,
		Batches:        len(plan),
		GCPauseMetrics: *gcPauseMetrics,
	}
	report.ProcessStart = sampleProcess()
	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running simulation", zap.Duration("duration", *duration), zap.Int("batches", len(plan)))
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := startTime

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			if err := scheduler.Once(deltaTime.Seconds()); err != nil {
				log.Fatal("tick failed", zap.Error(err))
			}
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))

			if *compact > 0 && storage.Fragmentation() > *compact {
				report.Compactions++
				report.Moved += storage.Compact()
			}
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = int64(len(report.UpdateTime.Samples))
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.ProcessEnd = sampleProcess()
	report.FinalEntities = storage.EntityCount()
	report.Scheduler = scheduler.GetStats()

	log.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	if err := report.Generate(os.Stdout, *format); err != nil {
		log.Fatal("failed to generate report", zap.Error(err))
	}
}

func profileOption(mode string) (func(*profile.Profile), error) {
	switch mode {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfileAllocs, nil
	case "trace":
		return profile.TraceProfile, nil
	}
	return nil, fmt.Errorf("unknown profile mode %q", mode)
}
