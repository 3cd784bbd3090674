// Package ranges merges per-identifier byte statistics and maintains
// live per-identifier analyses from raw frame captures.
package ranges

import (
	"sort"

	"CANProbe/internal/domain/models"
)

// Merge folds the byte ranges of every selected identifier into one
// range set: per byte index, min over ids, max over ids, and unique
// widened to the max over ids (merging widens the allowed span, it does
// not imply higher true cardinality). Indices absent from all selected
// identifiers are omitted. The result is ordered ascending by index and
// depends only on the selection and the analyses, not input order.
func Merge(analyses []models.IDAnalysis, selected []string) []models.ByteRange {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[models.NormalizeCANID(id)] = true
	}

	merged := make(map[int]models.ByteRange)
	for _, a := range analyses {
		if !want[models.NormalizeCANID(a.CANID)] {
			continue
		}
		for _, br := range a.ByteRanges {
			m, ok := merged[br.Index]
			if !ok {
				merged[br.Index] = br
				continue
			}
			if br.Min < m.Min {
				m.Min = br.Min
			}
			if br.Max > m.Max {
				m.Max = br.Max
			}
			if br.Unique > m.Unique {
				m.Unique = br.Unique
			}
			merged[br.Index] = m
		}
	}

	out := make([]models.ByteRange, 0, len(merged))
	for _, br := range merged {
		out = append(out, br)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
