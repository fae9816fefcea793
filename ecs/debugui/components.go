package debugui

import (
	"github.com/plus3/hearth/ecs"
)

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selectedEntityId   ecs.EntityId
	filterText         string
	filterType         string
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	selectedEntityId ecs.EntityId
}

type StorageViewerComponent struct {
	selectedType     string
	sortColumn       int
	sortAscending    bool
	compactRequested bool
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}

type QueryDebuggerComponent struct {
	included map[string]bool
	excluded map[string]bool
	cache    *QueryDebuggerCache
}
