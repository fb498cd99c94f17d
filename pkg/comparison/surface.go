package comparison

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"musclemetrics/pkg/geometry"
	"musclemetrics/pkg/morphology"
)

// SurfaceMetrics holds the contour distance measurements between two masks,
// all in physical millimeters.
type SurfaceMetrics struct {
	// HausdorffMM is the maximum of both directed contour distances.
	HausdorffMM float64

	// Hausdorff95MM is the 95th percentile of all contour distances, which
	// is robust against single outlier pixels.
	Hausdorff95MM float64

	// ASSDMM is the average symmetric surface distance.
	ASSDMM float64
}

type point struct {
	x, y int
}

// SurfaceDistances computes Hausdorff, 95th-percentile Hausdorff and average
// symmetric surface distance between the contours of two masks. Pixel
// offsets are scaled by the in-plane spacing, so the results are in mm.
//
// Two empty masks yield all zeros; exactly one empty mask yields +Inf for
// all three metrics, since no finite distance describes a missing surface.
func SurfaceDistances(manual, ai *geometry.MaskSlice, geom geometry.VoxelGeometry) (SurfaceMetrics, error) {
	if _, _, _, err := overlapCounts(manual, ai); err != nil {
		return SurfaceMetrics{}, err
	}

	manualEmpty := manual.Empty()
	aiEmpty := ai.Empty()
	if manualEmpty && aiEmpty {
		return SurfaceMetrics{}, nil
	}
	if manualEmpty || aiEmpty {
		inf := math.Inf(1)
		return SurfaceMetrics{HausdorffMM: inf, Hausdorff95MM: inf, ASSDMM: inf}, nil
	}

	manualContour := contourPoints(manual)
	aiContour := contourPoints(ai)

	manualToAI := directedDistances(manualContour, aiContour, geom)
	aiToManual := directedDistances(aiContour, manualContour, geom)

	combined := make([]float64, 0, len(manualToAI)+len(aiToManual))
	combined = append(combined, manualToAI...)
	combined = append(combined, aiToManual...)

	return SurfaceMetrics{
		HausdorffMM:   math.Max(floats.Max(manualToAI), floats.Max(aiToManual)),
		Hausdorff95MM: percentile(combined, 95),
		ASSDMM:        stat.Mean(combined, nil),
	}, nil
}

// contourPoints returns the coordinates of the mask's boundary pixels.
func contourPoints(mask *geometry.MaskSlice) []point {
	contour := morphology.Contour(mask)
	points := make([]point, 0, contour.TruePixelCount())
	for y := 0; y < contour.Height; y++ {
		for x := 0; x < contour.Width; x++ {
			if contour.At(x, y) {
				points = append(points, point{x: x, y: y})
			}
		}
	}
	return points
}

// directedDistances returns, for every point in from, the distance to its
// nearest point in to, scaled to physical mm.
func directedDistances(from, to []point, geom geometry.VoxelGeometry) []float64 {
	distances := make([]float64, len(from))
	for i, p := range from {
		best := math.Inf(1)
		for _, q := range to {
			dx := float64(p.x-q.x) * geom.SpacingX
			dy := float64(p.y-q.y) * geom.SpacingY
			if d := dx*dx + dy*dy; d < best {
				best = d
			}
		}
		distances[i] = math.Sqrt(best)
	}
	return distances
}

// percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
