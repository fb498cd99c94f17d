// Package analysis computes per-slice and whole-structure statistics for
// segmented muscle volumes: physical areas and volumes, erosion-adaptive
// intensity estimation, and bilateral left/right merging.
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"musclemetrics/pkg/geometry"
	"musclemetrics/pkg/measure"
	"musclemetrics/pkg/morphology"
)

// ErosionTier is one rung of the adaptive erosion ladder. A tier's eroded
// region is accepted when it still contains at least MinPixels pixels and at
// least MinFraction of the raw mask's pixel count.
type ErosionTier struct {
	// Iterations is the number of erosion passes this tier applies.
	Iterations int `yaml:"iterations"`

	// MinPixels is the minimum surviving pixel count for acceptance.
	MinPixels int `yaml:"minPixels"`

	// MinFraction is the minimum surviving fraction of the raw pixel count
	// for acceptance.
	MinFraction float64 `yaml:"minFraction"`
}

// DefaultErosionTiers returns the standard ladder: seven erosion passes for
// large regions, three for medium ones, and the raw mask for small regions
// where any erosion would leave too few pixels to sample.
func DefaultErosionTiers() []ErosionTier {
	return []ErosionTier{
		{Iterations: 7, MinPixels: 50, MinFraction: 0.2},
		{Iterations: 3, MinPixels: 20, MinFraction: 0},
		{Iterations: 0, MinPixels: 0, MinFraction: 0},
	}
}

// ComputeSliceStatistics computes the full per-slice record for one mask and
// its co-registered intensity slice.
//
// The physical area always reflects the raw mask. The intensity statistics
// are computed over an eroded region chosen by walking the tier ladder from
// first to last: each tier's erosion is applied to the raw mask and the
// result accepted if it satisfies the tier's thresholds. The final tier
// always accepts, so with the default ladder small regions fall back to the
// raw mask rather than losing their intensity estimate. Eroding away the
// mask boundary keeps partial-volume voxels at the muscle/fat interface out
// of the sample.
//
// An empty mask yields a record with zero area and NaN intensity statistics,
// not an error. A shape mismatch between mask and intensity slice is an
// error wrapping geometry.ErrShapeMismatch.
//
// Parameters:
//   - mask: the segmentation mask for one slice
//   - intensity: the co-registered intensity slice
//   - geom: the acquisition geometry supplying pixel spacing
//   - tiers: the erosion ladder, first tier tried first
//
// Returns:
//   - The populated per-slice record
//   - An error if the mask and intensity slice disagree on shape
func ComputeSliceStatistics(mask *geometry.MaskSlice, intensity *geometry.IntensitySlice, geom geometry.VoxelGeometry, tiers []ErosionTier) (SliceStatistics, error) {
	if !geometry.SameShape(mask, intensity) {
		return SliceStatistics{}, fmt.Errorf("slice %d: mask %dx%d vs intensity %dx%d: %w",
			mask.Index, mask.Width, mask.Height, intensity.Width, intensity.Height, geometry.ErrShapeMismatch)
	}

	rawCount := mask.TruePixelCount()
	stats := SliceStatistics{
		SliceIndex: mask.Index,
		AreaCM2:    measure.SliceAreaCM2(rawCount, geom),
	}
	if rawCount == 0 {
		stats.MeanIntensity = math.NaN()
		stats.StdIntensity = math.NaN()
		return stats, nil
	}

	region, iterations := selectSampleRegion(mask, rawCount, tiers)
	stats.ErosionIterationsUsed = iterations

	values := make([]float64, 0, region.TruePixelCount())
	for i, fg := range region.Pixels {
		if fg {
			values = append(values, intensity.Values[i])
		}
	}
	stats.PixelCount = len(values)
	if len(values) == 0 {
		stats.MeanIntensity = math.NaN()
		stats.StdIntensity = math.NaN()
		return stats, nil
	}

	stats.MeanIntensity = stat.Mean(values, nil)
	stats.StdIntensity = stat.PopStdDev(values, nil)
	return stats, nil
}

// selectSampleRegion walks the tier ladder and returns the first accepted
// eroded region together with the iteration count that produced it. The last
// tier is accepted unconditionally.
func selectSampleRegion(mask *geometry.MaskSlice, rawCount int, tiers []ErosionTier) (*geometry.MaskSlice, int) {
	if len(tiers) == 0 {
		return mask.Clone(), 0
	}
	for i, tier := range tiers {
		region := morphology.Erode(mask, tier.Iterations)
		if i == len(tiers)-1 || tierAccepts(tier, region.TruePixelCount(), rawCount) {
			return region, tier.Iterations
		}
	}
	// Unreachable: the loop always returns on the last tier.
	return mask.Clone(), 0
}

func tierAccepts(tier ErosionTier, erodedCount, rawCount int) bool {
	if erodedCount < tier.MinPixels {
		return false
	}
	return float64(erodedCount) >= tier.MinFraction*float64(rawCount)
}
