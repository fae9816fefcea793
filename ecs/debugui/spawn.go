package debugui

import "github.com/plus3/hearth/ecs"

// SpawnDebugUI spawns one entity per debug window. The windows are drawn by an
// Overlay over the same storage.
func SpawnDebugUI(storage *ecs.Storage) {
	storage.Spawn(NewEntityBrowserComponent(100))
	storage.Spawn(NewComponentInspectorComponent())
	storage.Spawn(NewStorageViewerComponent())
	storage.Spawn(NewPerformanceStatsComponent(120))
	storage.Spawn(NewQueryDebuggerComponent())
}

func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[ImguiInputState](registry)
	ecs.RegisterComponent[EntityBrowserComponent](registry)
	ecs.RegisterComponent[ComponentInspectorComponent](registry)
	ecs.RegisterComponent[StorageViewerComponent](registry)
	ecs.RegisterComponent[PerformanceStatsComponent](registry)
	ecs.RegisterComponent[QueryDebuggerComponent](registry)
}

// Overlay draws the debug windows spawned by SpawnDebugUI. Render must be
// called between the ImGui backend's BeginFrame and EndFrame, outside of a
// scheduler tick.
type Overlay struct {
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	timer     *FrameTimer

	browsers   *ecs.View[struct{ Browser *EntityBrowserComponent }]
	inspectors *ecs.View[struct{ Inspector *ComponentInspectorComponent }]
	viewers    *ecs.View[struct{ Viewer *StorageViewerComponent }]
	stats      *ecs.View[struct{ Stats *PerformanceStatsComponent }]
	debuggers  *ecs.View[struct{ Debugger *QueryDebuggerComponent }]
}

func NewOverlay(storage *ecs.Storage, scheduler *ecs.Scheduler) *Overlay {
	return &Overlay{
		storage:    storage,
		scheduler:  scheduler,
		timer:      NewFrameTimer(),
		browsers:   ecs.NewView[struct{ Browser *EntityBrowserComponent }](storage),
		inspectors: ecs.NewView[struct{ Inspector *ComponentInspectorComponent }](storage),
		viewers:    ecs.NewView[struct{ Viewer *StorageViewerComponent }](storage),
		stats:      ecs.NewView[struct{ Stats *PerformanceStatsComponent }](storage),
		debuggers:  ecs.NewView[struct{ Debugger *QueryDebuggerComponent }](storage),
	}
}

func (o *Overlay) Render() {
	dt := o.timer.GetDeltaTime()

	var selected ecs.EntityId
	for row := range o.browsers.Values() {
		row.Browser.Render(o.storage)
		if id := row.Browser.GetSelectedEntity(); id != 0 {
			selected = id
		}
	}

	for row := range o.inspectors.Values() {
		row.Inspector.Render(o.storage, selected)
	}

	var filter string
	compact := false
	for row := range o.viewers.Values() {
		if clicked := row.Viewer.Render(o.storage); clicked != "" {
			filter = clicked
		}
		compact = row.Viewer.TakeCompactRequest() || compact
	}
	if filter != "" {
		for row := range o.browsers.Values() {
			row.Browser.FilterByComponent(filter)
		}
	}

	for row := range o.stats.Values() {
		row.Stats.Render(o.storage, o.scheduler, dt)
	}

	for row := range o.debuggers.Values() {
		row.Debugger.Render(o.storage)
	}

	if compact {
		o.storage.Compact()
	}
}
