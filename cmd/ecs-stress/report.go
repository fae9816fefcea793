package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"text/template"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/plus3/hearth/ecs"
)

var json = jsoniter.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
}.Froze()

type Report struct {
	// Configuration
	Duration   time.Duration
	Entities   int
	Components int
	Systems    int
	Workers    int
	Batches    int

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	Compactions    int
	Moved          int
	FinalEntities  int
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats `json:"-"`
	MemStatsEnd    runtime.MemStats `json:"-"`
	ProcessStart   ProcessSample
	ProcessEnd     ProcessSample
	Scheduler      *ecs.SchedulerStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration `json:"-"`
}

// ProcessSample is a best-effort snapshot from the OS; fields stay zero when
// the platform does not report them.
type ProcessSample struct {
	RSS           uint64
	CPUPercent    float64
	Threads       int32
	SystemUsedPct float64
}

func sampleProcess() ProcessSample {
	var s ProcessSample
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			s.RSS = info.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			s.CPUPercent = pct
		}
		if n, err := p.NumThreads(); err == nil {
			s.Threads = n
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.SystemUsedPct = vm.UsedPercent
	}
	return s
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	sorted := append([]time.Duration(nil), s.Samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, sample := range sorted {
		total += sample
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Avg = total / time.Duration(len(sorted))
	s.P99 = sorted[(len(sorted)-1)*99/100]
}

// Generate writes the report as markdown or json.
func (r *Report) Generate(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "markdown", "":
	default:
		return fmt.Errorf("unknown report format %q", format)
	}

	const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Component Types:** {{.Components}}
- **Generated Systems:** {{.Systems}} in {{.Batches}} batches
- **Workers:** {{.Workers}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}
  - **P99:** {{.UpdateTime.P99}}
- **Compactions:** {{.Compactions}} ({{.Moved}} values moved)
- **Final Entities:** {{.FinalEntities}}
{{with .Scheduler}}
## Slowest Systems
| System | Batch | Runs | Avg | Max |
|---|---|---|---|---|
{{range slowest .Systems 10}}| {{.Name}} | {{.Batch}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MaxDuration}} |
{{end}}{{end}}
## Memory Usage (MiB)
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} (start) -> {{mb .MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc | mb}}
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} (start) -> {{mb .MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc | mb}}
- Sys Memory:     {{mb .MemStatsStart.Sys}} (start) -> {{mb .MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys | mb}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

## Process
- RSS:            {{mb .ProcessStart.RSS}} (start) -> {{mb .ProcessEnd.RSS}} (end)
- CPU:            {{printf "%.1f" .ProcessEnd.CPUPercent}}%
- Threads:        {{.ProcessEnd.Threads}}
- System Memory:  {{printf "%.1f" .ProcessEnd.SystemUsedPct}}% used
{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
		"slowest": slowestSystems,
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}

func slowestSystems(systems []ecs.SystemStats, n int) []ecs.SystemStats {
	sorted := append([]ecs.SystemStats(nil), systems...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AvgDuration > sorted[j].AvgDuration })
	return sorted[:min(n, len(sorted))]
}
