package debugui

import (
	"fmt"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/hearth/ecs"
)

func NewStorageViewerComponent() StorageViewerComponent {
	return StorageViewerComponent{
		sortColumn:    1,
		sortAscending: false,
	}
}

// Render lists every component store with its live values and holes. It
// returns the type name of a row clicked this frame, or "".
func (sv *StorageViewerComponent) Render(storage *ecs.Storage) string {
	if !imgui.BeginV("Component Storage", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return ""
	}

	stats := storage.CollectStats()
	rows := stats.ComponentBreakdown
	sortComponentStats(rows, sv.sortColumn, sv.sortAscending)

	maxCount := 0
	for _, row := range rows {
		maxCount = max(maxCount, row.Count)
	}

	imgui.Text(fmt.Sprintf("Fragmentation: %.1f%%", stats.Fragmentation*100))
	if imgui.Button("Compact") {
		sv.compactRequested = true
	}

	var clicked string
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("StorageTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Count")
		imgui.TableSetupColumn("Slots")
		imgui.TableSetupColumn("Holes")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			sv.sortColumn = int(spec.ColumnIndex())
			sv.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortComponentStats(rows, sv.sortColumn, sv.sortAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		for _, row := range rows {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(row.TypeName, sv.selectedType == row.TypeName, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				sv.selectedType = row.TypeName
				clicked = row.TypeName
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Count))
			if maxCount > 0 {
				barWidth := float32(row.Count) / float32(maxCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Slots))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Holes))
		}

		imgui.EndTable()
	}

	imgui.End()
	return clicked
}

// TakeCompactRequest reports whether the Compact button was pressed since the
// last call.
func (sv *StorageViewerComponent) TakeCompactRequest() bool {
	requested := sv.compactRequested
	sv.compactRequested = false
	return requested
}

func sortComponentStats(rows []ecs.ComponentStats, column int, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !ascending {
			a, b = b, a
		}
		var less bool

		switch column {
		case 0:
			less = a.TypeName < b.TypeName
		case 2:
			less = a.Slots < b.Slots
		case 3:
			less = a.Holes < b.Holes
		default:
			less = a.Count < b.Count
		}

		return less
	})
}
