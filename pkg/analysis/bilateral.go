package analysis

import (
	"math"
	"strings"
)

// Bilateral structures arrive as separate _left and _right masks but are
// reported as one anatomical unit. Per-slice series merge with area weights;
// whole-structure summaries merge with pixel-count weights. The two
// weightings are intentionally different and must not be unified.

const (
	leftSuffix  = "_left"
	rightSuffix = "_right"
)

// MergeGroup names one reporting unit and the input structures that feed it.
type MergeGroup struct {
	// Name is the reported structure name.
	Name string

	// Members holds one structure name for a passthrough, or two for a
	// bilateral pair with the left side first.
	Members []string
}

// PairStructures groups structure names into bilateral pairs by the _left
// and _right naming convention. A name whose counterpart is present merges
// into a group named by the common base; a _left or _right name without its
// counterpart passes through under its full name, as does any name without a
// side suffix.
//
// Group order follows first appearance, with a pair appearing at the
// position of its _left member.
func PairStructures(names []string) []MergeGroup {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	groups := make([]MergeGroup, 0, len(names))
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, leftSuffix):
			base := strings.TrimSuffix(name, leftSuffix)
			if present[base+rightSuffix] {
				groups = append(groups, MergeGroup{Name: base, Members: []string{name, base + rightSuffix}})
			} else {
				groups = append(groups, MergeGroup{Name: name, Members: []string{name}})
			}
		case strings.HasSuffix(name, rightSuffix):
			base := strings.TrimSuffix(name, rightSuffix)
			if !present[base+leftSuffix] {
				groups = append(groups, MergeGroup{Name: name, Members: []string{name}})
			}
			// Otherwise the pair is emitted when the _left member is seen.
		default:
			groups = append(groups, MergeGroup{Name: name, Members: []string{name}})
		}
	}
	return groups
}

// MergeSliceStatistics combines the same-index slice records of a bilateral
// pair. Areas and pixel counts add; intensity statistics combine with area
// weights. When one side's area is zero the other side's statistics pass
// through unchanged, and when both are zero the merged statistics are NaN.
func MergeSliceStatistics(left, right SliceStatistics) BilateralStatistics {
	merged := BilateralStatistics{
		SliceIndex: left.SliceIndex,
		AreaCM2:    left.AreaCM2 + right.AreaCM2,
		PixelCount: left.PixelCount + right.PixelCount,
	}
	switch {
	case left.AreaCM2 > 0 && right.AreaCM2 > 0:
		total := left.AreaCM2 + right.AreaCM2
		merged.MeanIntensity = (left.MeanIntensity*left.AreaCM2 + right.MeanIntensity*right.AreaCM2) / total
		merged.StdIntensity = (left.StdIntensity*left.AreaCM2 + right.StdIntensity*right.AreaCM2) / total
	case left.AreaCM2 > 0:
		merged.MeanIntensity = left.MeanIntensity
		merged.StdIntensity = left.StdIntensity
	case right.AreaCM2 > 0:
		merged.MeanIntensity = right.MeanIntensity
		merged.StdIntensity = right.StdIntensity
	default:
		merged.MeanIntensity = math.NaN()
		merged.StdIntensity = math.NaN()
	}
	return merged
}

// sliceToBilateral passes a single structure's slice record through to the
// merged representation unchanged.
func sliceToBilateral(s SliceStatistics) BilateralStatistics {
	return BilateralStatistics{
		SliceIndex:    s.SliceIndex,
		AreaCM2:       s.AreaCM2,
		MeanIntensity: s.MeanIntensity,
		StdIntensity:  s.StdIntensity,
		PixelCount:    s.PixelCount,
	}
}

// MergeSummaryStatistics combines the whole-structure summaries of a
// bilateral pair. Pixel counts and volumes add; the mean intensity combines
// with pixel-count weights. When one side has no voxels the other side's
// mean passes through, and when both are empty the merged mean is NaN.
func MergeSummaryStatistics(left, right SummaryStatistics) SummaryStatistics {
	merged := SummaryStatistics{
		PixelCount: left.PixelCount + right.PixelCount,
		VolumeCM3:  left.VolumeCM3 + right.VolumeCM3,
	}
	switch {
	case left.PixelCount > 0 && right.PixelCount > 0:
		lw := float64(left.PixelCount)
		rw := float64(right.PixelCount)
		merged.MeanHU = (left.MeanHU*lw + right.MeanHU*rw) / (lw + rw)
	case left.PixelCount > 0:
		merged.MeanHU = left.MeanHU
	case right.PixelCount > 0:
		merged.MeanHU = right.MeanHU
	default:
		merged.MeanHU = math.NaN()
	}
	return merged
}
