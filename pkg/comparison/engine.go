package comparison

import (
	"fmt"
	"math"

	"musclemetrics/pkg/geometry"
	"musclemetrics/pkg/measure"
)

// DefaultSpacingTolerance is the relative voxel spacing difference above
// which the manual and AI grids are flagged as mismatched.
const DefaultSpacingTolerance = 0.10

// Params holds the inputs for one comparison run. All configuration is
// explicit so concurrent runs cannot influence each other.
type Params struct {
	// Manual is the annotation volume drawn by a reader. It must contain at
	// least one annotated slice.
	Manual *geometry.MaskVolume

	// AI is the automatic segmentation volume to evaluate.
	AI *geometry.MaskVolume

	// SpacingTolerance is the relative spacing difference tolerated before
	// warning. Zero selects DefaultSpacingTolerance.
	SpacingTolerance float64

	// Extended additionally computes Jaccard, precision/recall and surface
	// distance metrics.
	Extended bool
}

// ExtendedMetrics holds the optional agreement metrics beyond Dice.
type ExtendedMetrics struct {
	// Jaccard is the intersection-over-union score.
	Jaccard float64

	// Precision and Recall treat the AI mask as the prediction.
	Precision, Recall float64

	// Surface holds the contour distance metrics in mm.
	Surface SurfaceMetrics
}

// Result is the outcome of one comparison run. Warnings travel inside the
// result so that callers always see them alongside the scores.
type Result struct {
	// SliceNumber is the compared slice position on the AI grid.
	SliceNumber int

	// ManualSliceIndex is the annotated slice position on the native manual
	// grid. It differs from SliceNumber only when the slice spacings differ.
	ManualSliceIndex int

	// Resampled reports whether the manual volume was mapped onto the AI
	// grid before comparing.
	Resampled bool

	// ManualAreaCM2 is the annotated area measured on the native manual
	// grid, before any resampling.
	ManualAreaCM2 float64

	// AIAreaCM2 is the AI segmentation area on the compared slice.
	AIAreaCM2 float64

	// AreaDiffCM2 is AIAreaCM2 minus ManualAreaCM2.
	AreaDiffCM2 float64

	// AreaDiffPct is the area difference relative to the manual area in
	// percent, NaN when the manual area is zero.
	AreaDiffPct float64

	// Dice is the Dice score of the compared slice pair.
	Dice float64

	// Extended is populated only when Params.Extended is set.
	Extended *ExtendedMetrics

	// Warnings lists every non-fatal condition detected during the run.
	Warnings []Warning
}

// Compare evaluates an AI segmentation against a manual annotation.
//
// The annotated slice is located on the native manual volume. When the two
// volumes disagree on grid shape or on voxel spacing beyond the tolerance,
// the manual volume is resampled onto the AI grid at its physical position
// and the annotated slice mapped by the slice spacing ratio; the manual area
// is always measured on the native grid so resampling cannot distort it. The
// Dice score and any extended metrics are then computed on the compared
// slice pair.
//
// Spacing differences beyond the tolerance, multiple annotated slices and a
// fully empty compared pair are warnings in the result. A missing input, an
// annotation-free manual volume and an annotated slice that maps outside the
// AI grid are errors.
//
// Parameters:
//   - params: the volumes and options for the run
//
// Returns:
//   - The comparison result with any warnings attached
//   - An error for conditions that make the comparison meaningless
func Compare(params *Params) (*Result, error) {
	if params.Manual == nil {
		return nil, fmt.Errorf("manual annotation volume: %w", geometry.ErrMissingInput)
	}
	if params.AI == nil {
		return nil, fmt.Errorf("ai segmentation volume: %w", geometry.ErrMissingInput)
	}
	tolerance := params.SpacingTolerance
	if tolerance <= 0 {
		tolerance = DefaultSpacingTolerance
	}

	manualGeom := params.Manual.Geometry
	aiGeom := params.AI.Geometry
	result := &Result{}

	mismatch := spacingExceeds(manualGeom, aiGeom, tolerance)
	if mismatch {
		result.Warnings = append(result.Warnings, Warning{
			Kind: SpacingMismatch,
			Detail: fmt.Sprintf("voxel spacing differs beyond %.0f%%: manual (%.2f x %.2f x %.2f) mm, ai (%.2f x %.2f x %.2f) mm",
				tolerance*100,
				manualGeom.SpacingX, manualGeom.SpacingY, manualGeom.SpacingZ,
				aiGeom.SpacingX, aiGeom.SpacingY, aiGeom.SpacingZ),
		})
	}

	annotated := params.Manual.AnnotatedSlices()
	if len(annotated) == 0 {
		return nil, fmt.Errorf("manual volume has no annotated slice: %w", geometry.ErrMissingInput)
	}
	if len(annotated) > 1 {
		result.Warnings = append(result.Warnings, Warning{
			Kind:   MultiSliceAnnotation,
			Detail: fmt.Sprintf("manual volume has %d annotated slices, comparing slice %d", len(annotated), annotated[0]),
		})
	}
	manualIndex := annotated[0]
	result.ManualSliceIndex = manualIndex

	nativeSlice, err := params.Manual.Slice(manualIndex)
	if err != nil {
		return nil, err
	}
	result.ManualAreaCM2 = measure.SliceAreaCM2(nativeSlice.TruePixelCount(), manualGeom)

	manual := params.Manual
	compareIndex := manualIndex
	if mismatch || !sameShape(manualGeom, aiGeom) {
		manual, err = ResampleToGrid(params.Manual, aiGeom)
		if err != nil {
			return nil, err
		}
		compareIndex = MapSliceIndex(manualIndex, manualGeom.SpacingZ, aiGeom.SpacingZ)
		if compareIndex >= aiGeom.Depth {
			return nil, fmt.Errorf("annotated slice %d maps past the ai grid depth %d: %w",
				manualIndex, aiGeom.Depth, geometry.ErrShapeMismatch)
		}
		result.Resampled = true
	}
	result.SliceNumber = compareIndex

	manualSlice, err := manual.Slice(compareIndex)
	if err != nil {
		return nil, err
	}
	aiSlice, err := params.AI.Slice(compareIndex)
	if err != nil {
		return nil, err
	}

	result.AIAreaCM2 = measure.SliceAreaCM2(aiSlice.TruePixelCount(), aiGeom)
	result.AreaDiffCM2 = result.AIAreaCM2 - result.ManualAreaCM2
	if result.ManualAreaCM2 > 0 {
		result.AreaDiffPct = result.AreaDiffCM2 / result.ManualAreaCM2 * 100
	} else {
		result.AreaDiffPct = math.NaN()
	}

	if manualSlice.Empty() && aiSlice.Empty() {
		result.Warnings = append(result.Warnings, Warning{
			Kind:   NoOverlapDetected,
			Detail: fmt.Sprintf("neither mask has foreground on compared slice %d", compareIndex),
		})
	}

	result.Dice, err = DiceScore(manualSlice, aiSlice)
	if err != nil {
		return nil, err
	}

	if params.Extended {
		ext := &ExtendedMetrics{}
		if ext.Jaccard, err = JaccardIndex(manualSlice, aiSlice); err != nil {
			return nil, err
		}
		if ext.Precision, ext.Recall, err = PrecisionRecall(manualSlice, aiSlice); err != nil {
			return nil, err
		}
		if ext.Surface, err = SurfaceDistances(manualSlice, aiSlice, aiGeom); err != nil {
			return nil, err
		}
		result.Extended = ext
	}

	return result, nil
}

// spacingExceeds reports whether any axis spacing differs relatively by more
// than the tolerance, measured against the AI grid.
func spacingExceeds(manual, ai geometry.VoxelGeometry, tolerance float64) bool {
	pairs := [][2]float64{
		{manual.SpacingX, ai.SpacingX},
		{manual.SpacingY, ai.SpacingY},
		{manual.SpacingZ, ai.SpacingZ},
	}
	for _, p := range pairs {
		if math.Abs(p[1]-p[0])/p[1] > tolerance {
			return true
		}
	}
	return false
}

// sameShape reports whether two grids agree on voxel counts per axis.
func sameShape(a, b geometry.VoxelGeometry) bool {
	return a.Width == b.Width && a.Height == b.Height && a.Depth == b.Depth
}
