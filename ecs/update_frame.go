package ecs

import "time"

// Phase selects when a system runs.
type Phase int

const (
	// Startup systems run once, before the first Update tick.
	Startup Phase = iota
	// Update systems run on every tick.
	Update
)

var phases = []Phase{Startup, Update}

func (p Phase) String() string {
	switch p {
	case Startup:
		return "startup"
	case Update:
		return "update"
	}
	return "unknown"
}

// UpdateFrame is handed to a system on every execution.
type UpdateFrame struct {
	DeltaTime float64
	Tick      uint64
	Phase     Phase
	Commands  *Commands
}

// Delta returns DeltaTime as a time.Duration.
func (f *UpdateFrame) Delta() time.Duration {
	return time.Duration(f.DeltaTime * float64(time.Second))
}

func newUpdateFrame(phase Phase, storage *Storage) *UpdateFrame {
	return &UpdateFrame{
		Phase:    phase,
		Commands: newCommands(storage),
	}
}
