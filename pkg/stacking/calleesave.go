package stacking

import (
	"sort"

	"github.com/raymyers/ralph-ra/pkg/target"
)

// CalleeSavedUsed returns the callee-saved registers of catalog that any
// of used overlaps, widest view first, in the catalog's declaration order.
func CalleeSavedUsed(catalog *target.Catalog, used []target.Reg) []target.Reg {
	var result []target.Reg
	seen := make(map[*target.Group]bool)
	for _, saved := range catalog.CalleeSaved {
		if seen[saved.Group] {
			continue
		}
		for _, r := range used {
			if saved.Intersects(r) {
				seen[saved.Group] = true
				result = append(result, saved.Group.Views[0])
				break
			}
		}
	}
	return result
}

// CallerSavedUsed returns the registers of used that a call may clobber,
// deduplicated by hardware and sorted by supplier preference.
func CallerSavedUsed(catalog *target.Catalog, used []target.Reg) []target.Reg {
	var result []target.Reg
	seen := make(map[*target.Group]bool)
	for _, r := range used {
		if !r.Valid() || seen[r.Group] || catalog.IsCalleeSaved(r) {
			continue
		}
		seen[r.Group] = true
		result = append(result, r.Group.Views[0])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return catalog.Priority(result[i]) < catalog.Priority(result[j])
	})
	return result
}
