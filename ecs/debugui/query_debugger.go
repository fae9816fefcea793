package debugui

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

type QueryDebuggerCache struct {
	types     []reflect.Type
	lastCount int
}

func NewQueryDebuggerComponent() QueryDebuggerComponent {
	return QueryDebuggerComponent{
		included: make(map[string]bool),
		excluded: make(map[string]bool),
		cache: &QueryDebuggerCache{
			lastCount: -1,
		},
	}
}

func (qd *QueryDebuggerComponent) Render(storage *ecs.Storage) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	qd.rebuildCacheIfNeeded(storage)

	if imgui.Button("Clear All") {
		qd.included = make(map[string]bool)
		qd.excluded = make(map[string]bool)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSizingFixedFit
	if imgui.BeginTableV("QueryTermsTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("With")
		imgui.TableSetupColumn("Without")
		imgui.TableHeadersRow()

		for _, t := range qd.cache.types {
			name := t.String()
			imgui.TableNextRow()

			imgui.TableNextColumn()
			imgui.Text(name)

			imgui.TableNextColumn()
			with := qd.included[name]
			if imgui.Checkbox("##with"+name, &with) {
				toggle(qd.included, qd.excluded, name, with)
			}

			imgui.TableNextColumn()
			without := qd.excluded[name]
			if imgui.Checkbox("##without"+name, &without) {
				toggle(qd.excluded, qd.included, name, without)
			}
		}

		imgui.EndTable()
	}

	imgui.Separator()

	include := selectTypes(qd.cache.types, qd.included)
	exclude := selectTypes(qd.cache.types, qd.excluded)
	if len(include) == 0 {
		imgui.Text("No required component types selected")
		imgui.End()
		return
	}

	matches := matchEntities(storage, include, exclude)
	imgui.Text(fmt.Sprintf("Matching Entities: %d", len(matches)))

	if imgui.TreeNodeStr("Entities") {
		for _, id := range matches {
			imgui.BulletText(id.String())
		}
		imgui.TreePop()
	}

	imgui.End()
}

func (qd *QueryDebuggerComponent) rebuildCacheIfNeeded(storage *ecs.Storage) {
	types := storage.Registry().Types()
	if len(types) == qd.cache.lastCount {
		return
	}

	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	qd.cache.types = types
	qd.cache.lastCount = len(types)
}

// toggle sets name in set and clears it from other, since a type cannot be
// both required and excluded.
func toggle(set, other map[string]bool, name string, on bool) {
	if !on {
		delete(set, name)
		return
	}
	set[name] = true
	delete(other, name)
}

func selectTypes(types []reflect.Type, names map[string]bool) []reflect.Type {
	var selected []reflect.Type
	for _, t := range types {
		if names[t.String()] {
			selected = append(selected, t)
		}
	}
	return selected
}

// matchEntities returns live entities that carry every include type and none of
// the exclude types, ordered by index.
func matchEntities(storage *ecs.Storage, include, exclude []reflect.Type) []ecs.EntityId {
	var matches []ecs.EntityId

entities:
	for id := range storage.Entities() {
		for _, t := range include {
			if !storage.HasComponent(id, t) {
				continue entities
			}
		}
		for _, t := range exclude {
			if storage.HasComponent(id, t) {
				continue entities
			}
		}
		matches = append(matches, id)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Index() < matches[j].Index() })
	return matches
}
