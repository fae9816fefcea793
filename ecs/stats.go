package ecs

import "sort"

// StorageStats is a point-in-time summary of a Storage.
type StorageStats struct {
	TotalEntityCount   int
	ComponentTypeCount int
	SingletonCount     int
	Fragmentation      float64
	ComponentBreakdown []ComponentStats
	SingletonTypes     []string
}

// ComponentStats describes the storage of one component type.
type ComponentStats struct {
	TypeName string
	Count    int
	Slots    int
	Holes    int
}

// CollectStats gathers entity, component and resource counts. Component
// types that were never stored are left out.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{
		TotalEntityCount: s.EntityCount(),
		Fragmentation:    s.Fragmentation(),
	}

	for _, store := range s.storages {
		if store == nil {
			continue
		}
		stats.ComponentBreakdown = append(stats.ComponentBreakdown, ComponentStats{
			TypeName: store.Type().String(),
			Count:    store.Len(),
			Slots:    store.Slots(),
			Holes:    store.Holes(),
		})
	}
	sort.Slice(stats.ComponentBreakdown, func(i, j int) bool {
		return stats.ComponentBreakdown[i].TypeName < stats.ComponentBreakdown[j].TypeName
	})
	stats.ComponentTypeCount = len(stats.ComponentBreakdown)

	for _, t := range s.SingletonTypes() {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	stats.SingletonCount = len(stats.SingletonTypes)
	return stats
}
