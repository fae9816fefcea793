package ecs

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Ticks           uint64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Phase          Phase
	Batch          int
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

type systemNode struct {
	name   string
	system System
	phase  Phase
	after  []string
	index  int
	batch  int
	access *systemAccess
	frame  *UpdateFrame
	stats  systemStatsInternal
}

// SystemOption configures a system at registration.
type SystemOption func(n *systemNode)

// InPhase selects the phase a system runs in. The default is Update.
func InPhase(phase Phase) SystemOption {
	return func(n *systemNode) {
		n.phase = phase
	}
}

// After makes the system run after the named systems of the same phase.
// Their writes and flushed commands are visible to it in the same tick.
func After(names ...string) SystemOption {
	return func(n *systemNode) {
		n.after = append(n.after, names...)
	}
}

// Named overrides the system name, which defaults to its type name.
func Named(name string) SystemOption {
	return func(n *systemNode) {
		n.name = name
	}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(s *Scheduler)

// WithWorkerPool runs the members of each batch concurrently on pool.
// Without a pool, batches run sequentially.
func WithWorkerPool(pool *ants.Pool) SchedulerOption {
	return func(s *Scheduler) {
		s.pool = pool
	}
}

func WithLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// Scheduler orders and executes systems per phase.
type Scheduler struct {
	storage *Storage
	log     *zap.Logger
	pool    *ants.Pool

	nodes []*systemNode
	plans map[Phase]*phasePlan

	startupDone    bool
	updateVerified bool
	tick           uint64
}

// NewScheduler creates a new scheduler for the given storage.
func NewScheduler(storage *Storage, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		storage: storage,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a system to the scheduler and initializes its Query and
// Singleton fields.
func (s *Scheduler) Register(system System, opts ...SystemOption) {
	node := &systemNode{
		name:   systemName(system),
		system: system,
		phase:  Update,
		index:  len(s.nodes),
		access: bindSystem(system, s.storage),
		stats:  systemStatsInternal{minDuration: time.Duration(1<<63 - 1)},
	}
	for _, opt := range opts {
		opt(node)
	}
	node.frame = newUpdateFrame(node.phase, s.storage)

	s.nodes = append(s.nodes, node)
	s.plans = nil
	s.updateVerified = false
}

// Chain registers systems in phase so that each runs after the previous one.
func (s *Scheduler) Chain(phase Phase, systems ...System) {
	prev := ""
	for _, system := range systems {
		opts := []SystemOption{InPhase(phase)}
		if prev != "" {
			opts = append(opts, After(prev))
		}
		s.Register(system, opts...)
		prev = s.nodes[len(s.nodes)-1].name
	}
}

func systemName(system System) string {
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	if systemType.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(reflect.ValueOf(system).Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return systemType.Name()
}

// Build resolves the execution plan of every phase. It is called implicitly
// by Startup and Once, and reports registration errors: duplicate names,
// unknown After targets and dependency cycles.
func (s *Scheduler) Build() error {
	if s.plans != nil {
		return nil
	}

	plans := make(map[Phase]*phasePlan, len(phases))
	for _, phase := range phases {
		var nodes []*systemNode
		for _, n := range s.nodes {
			if n.phase == phase {
				nodes = append(nodes, n)
			}
		}
		plan, err := buildPhase(nodes)
		if err != nil {
			return err
		}
		plans[phase] = plan

		for i, batch := range plan.batches {
			s.log.Debug("schedule batch",
				zap.Stringer("phase", phase),
				zap.Int("batch", i),
				zap.Strings("systems", nodeNames(batch)))
		}
	}
	s.plans = plans
	return nil
}

// Plan returns the system names of each batch of a phase, in execution order.
func (s *Scheduler) Plan(phase Phase) ([][]string, error) {
	if err := s.Build(); err != nil {
		return nil, err
	}
	var out [][]string
	for _, batch := range s.plans[phase].batches {
		out = append(out, nodeNames(batch))
	}
	return out, nil
}

func nodeNames(nodes []*systemNode) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.name
	}
	return names
}

// Startup runs the Startup phase. Later calls are no-ops. Each system's
// required resources are checked right before its batch runs, so resources
// inserted by an earlier batch's commands are visible.
func (s *Scheduler) Startup() error {
	if err := s.Build(); err != nil {
		return err
	}
	if s.startupDone {
		return nil
	}
	for _, batch := range s.plans[Startup].batches {
		if err := s.verifyResources(batch); err != nil {
			return err
		}
		s.runBatch(batch, 0)
	}
	s.startupDone = true
	return nil
}

// Once executes every Update system once with the given delta time in
// seconds, running Startup first if it has not run yet.
func (s *Scheduler) Once(dt float64) error {
	if err := s.Startup(); err != nil {
		return err
	}
	plan := s.plans[Update]
	if !s.updateVerified {
		if err := s.verifyResources(plan.order); err != nil {
			return err
		}
		s.updateVerified = true
	}

	s.tick++
	for _, batch := range plan.batches {
		s.runBatch(batch, dt)
	}
	return nil
}

// Run executes all systems repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if err := s.Startup(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := s.Once(dt); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) verifyResources(nodes []*systemNode) error {
	for _, n := range nodes {
		if missing := n.access.missingResource(s.storage); missing != nil {
			return fmt.Errorf("system %q: %w: %s", n.name, ErrResourceNotFound, missing)
		}
	}
	return nil
}

// runBatch executes the batch and then flushes each member's commands in
// plan order. A panic in a pooled system is re-raised here once the whole
// batch has finished.
func (s *Scheduler) runBatch(batch []*systemNode, dt float64) {
	if s.pool == nil || len(batch) == 1 {
		for _, n := range batch {
			s.execute(n, dt)
		}
	} else {
		var wg sync.WaitGroup
		panics := make([]any, len(batch))
		for i, n := range batch {
			wg.Add(1)
			task := func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panics[i] = r
					}
				}()
				s.execute(n, dt)
			}
			if err := s.pool.Submit(task); err != nil {
				s.log.Warn("worker pool rejected system, running inline",
					zap.String("system", n.name), zap.Error(err))
				task()
			}
		}
		wg.Wait()
		for i, p := range panics {
			if p != nil {
				s.log.Error("system panicked", zap.String("system", batch[i].name), zap.Any("panic", p))
				panic(p)
			}
		}
	}

	for _, n := range batch {
		n.frame.Commands.Flush(s.storage)
	}
}

func (s *Scheduler) execute(n *systemNode, dt float64) {
	n.frame.DeltaTime = dt
	n.frame.Tick = s.tick

	start := time.Now()
	n.system.Execute(n.frame)
	duration := time.Since(start)

	stats := &n.stats
	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration

	if duration < stats.minDuration {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
}

// Tick returns the number of completed Update ticks.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.nodes),
		Ticks:       s.tick,
		Systems:     make([]SystemStats, len(s.nodes)),
	}

	var totalExecs int64
	for i, n := range s.nodes {
		internal := n.stats
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		} else {
			minDuration = 0
		}

		stats.Systems[i] = SystemStats{
			Name:           n.name,
			Phase:          n.phase,
			Batch:          n.batch,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}

// String summarizes the plan, one batch per line.
func (s *Scheduler) String() string {
	var b strings.Builder
	for _, phase := range phases {
		batches, err := s.Plan(phase)
		if err != nil {
			return err.Error()
		}
		for i, names := range batches {
			fmt.Fprintf(&b, "%s[%d]: %s\n", phase, i, strings.Join(names, ", "))
		}
	}
	return b.String()
}
