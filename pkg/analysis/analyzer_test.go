package analysis

import (
	"errors"
	"math"
	"testing"

	"musclemetrics/pkg/geometry"
)

// testVolumes builds an 8x8x3 case with two bilateral masks on a
// 0.5 x 0.5 x 2.0 mm grid. The left structure covers a 3x3 square on slices
// 0 and 1; the right structure covers a 2x2 square on slice 1 only. The
// intensity volume is constant per slice: 40 on slice 0, 60 on slice 1.
func testVolumes(t *testing.T) (*geometry.IntensityVolume, []NamedMask) {
	t.Helper()
	geom, err := geometry.NewVoxelGeometry(0.5, 0.5, 2.0, 8, 8, 3)
	if err != nil {
		t.Fatalf("Failed to build geometry: %v", err)
	}

	page := geom.Width * geom.Height
	leftData := make([]bool, page*geom.Depth)
	rightData := make([]bool, page*geom.Depth)
	intensityData := make([]float64, page*geom.Depth)

	for z := 0; z < geom.Depth; z++ {
		for y := 0; y < geom.Height; y++ {
			for x := 0; x < geom.Width; x++ {
				i := z*page + y*geom.Width + x
				if z < 2 && x >= 1 && x <= 3 && y >= 1 && y <= 3 {
					leftData[i] = true
				}
				if z == 1 && x >= 5 && x <= 6 && y >= 5 && y <= 6 {
					rightData[i] = true
				}
				intensityData[i] = float64(40 + 20*z)
			}
		}
	}

	intensity, err := geometry.NewIntensityVolume(intensityData, geom)
	if err != nil {
		t.Fatalf("Failed to build intensity volume: %v", err)
	}
	leftMask, err := geometry.NewMaskVolume(leftData, geom)
	if err != nil {
		t.Fatalf("Failed to build left mask: %v", err)
	}
	rightMask, err := geometry.NewMaskVolume(rightData, geom)
	if err != nil {
		t.Fatalf("Failed to build right mask: %v", err)
	}

	return intensity, []NamedMask{
		{Name: "iliopsoas_left", Mask: leftMask},
		{Name: "iliopsoas_right", Mask: rightMask},
	}
}

// TestAnalyzerProcess verifies the full pipeline over a small bilateral case
func TestAnalyzerProcess(t *testing.T) {
	intensity, masks := testVolumes(t)
	analyzer := NewAnalyzer(&Params{Intensity: intensity, Masks: masks})

	if err := analyzer.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	result := analyzer.Result()
	if result == nil {
		t.Fatal("Expected a result after Process")
	}

	if len(result.Structures) != 2 {
		t.Fatalf("Expected 2 structures, got %d", len(result.Structures))
	}

	left := result.Structures[0]
	if left.Name != "iliopsoas_left" {
		t.Errorf("Expected input order preserved, got %q first", left.Name)
	}
	if len(left.Slices) != 3 {
		t.Fatalf("Expected 3 slice records, got %d", len(left.Slices))
	}
	if len(left.Failures) != 0 {
		t.Errorf("Expected no failures, got %d", len(left.Failures))
	}

	// Slice 0: nine 0.25 mm^2 pixels at intensity 40.
	s0 := left.Slices[0]
	if math.Abs(s0.AreaCM2-0.0225) > 1e-12 {
		t.Errorf("Expected area 0.0225 cm2, got %f", s0.AreaCM2)
	}
	if s0.MeanIntensity != 40.0 {
		t.Errorf("Expected mean 40.0, got %f", s0.MeanIntensity)
	}
	// Slice 2 is empty: zero area, NaN statistics, still a record.
	s2 := left.Slices[2]
	if s2.AreaCM2 != 0 || !math.IsNaN(s2.MeanIntensity) {
		t.Errorf("Expected empty-slice record, got %+v", s2)
	}

	// Left summary: 18 voxels of 0.5 mm^3, intensity 40 and 60 in equal
	// nine-pixel shares.
	if left.Summary.PixelCount != 18 {
		t.Errorf("Expected 18 voxels, got %d", left.Summary.PixelCount)
	}
	if math.Abs(left.Summary.VolumeCM3-0.009) > 1e-12 {
		t.Errorf("Expected volume 0.009 cm3, got %f", left.Summary.VolumeCM3)
	}
	if math.Abs(left.Summary.MeanHU-50.0) > 1e-12 {
		t.Errorf("Expected mean HU 50.0, got %f", left.Summary.MeanHU)
	}

	right := result.Structures[1]
	if right.Summary.PixelCount != 4 {
		t.Errorf("Expected 4 voxels, got %d", right.Summary.PixelCount)
	}
	if math.Abs(right.Summary.MeanHU-60.0) > 1e-12 {
		t.Errorf("Expected mean HU 60.0, got %f", right.Summary.MeanHU)
	}
}

// TestAnalyzerBilateralMerge verifies the merged reporting series
func TestAnalyzerBilateralMerge(t *testing.T) {
	intensity, masks := testVolumes(t)
	analyzer := NewAnalyzer(&Params{Intensity: intensity, Masks: masks})
	if err := analyzer.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	result := analyzer.Result()

	if len(result.Merged) != 1 {
		t.Fatalf("Expected 1 merged structure, got %d", len(result.Merged))
	}
	merged := result.Merged[0]
	if merged.Name != "iliopsoas" {
		t.Errorf("Expected merged name iliopsoas, got %q", merged.Name)
	}
	if len(merged.Members) != 2 || merged.Members[0] != "iliopsoas_left" {
		t.Errorf("Expected left-first members, got %v", merged.Members)
	}
	if len(merged.Slices) != 3 {
		t.Fatalf("Expected 3 merged slices, got %d", len(merged.Slices))
	}

	// Slice 0: right side empty, left passes through.
	if math.Abs(merged.Slices[0].AreaCM2-0.0225) > 1e-12 {
		t.Errorf("Expected passthrough area 0.0225, got %f", merged.Slices[0].AreaCM2)
	}
	if merged.Slices[0].MeanIntensity != 40.0 {
		t.Errorf("Expected passthrough mean 40.0, got %f", merged.Slices[0].MeanIntensity)
	}

	// Slice 1: both sides present, areas add.
	if math.Abs(merged.Slices[1].AreaCM2-0.0325) > 1e-12 {
		t.Errorf("Expected merged area 0.0325, got %f", merged.Slices[1].AreaCM2)
	}
	if math.Abs(merged.Slices[1].MeanIntensity-60.0) > 1e-12 {
		t.Errorf("Expected merged mean 60.0, got %f", merged.Slices[1].MeanIntensity)
	}

	// Slice 2: both sides empty.
	if !math.IsNaN(merged.Slices[2].MeanIntensity) {
		t.Errorf("Expected NaN mean for empty merged slice, got %f", merged.Slices[2].MeanIntensity)
	}

	// Summary: 22 voxels, pixel-count-weighted mean of 50 and 60.
	if merged.Summary.PixelCount != 22 {
		t.Errorf("Expected 22 voxels, got %d", merged.Summary.PixelCount)
	}
	if math.Abs(merged.Summary.VolumeCM3-0.011) > 1e-12 {
		t.Errorf("Expected volume 0.011 cm3, got %f", merged.Summary.VolumeCM3)
	}
	expectedHU := (50.0*18 + 60.0*4) / 22.0
	if math.Abs(merged.Summary.MeanHU-expectedHU) > 1e-12 {
		t.Errorf("Expected mean HU %f, got %f", expectedHU, merged.Summary.MeanHU)
	}
}

// TestAnalyzerValidation verifies the fatal input checks
func TestAnalyzerValidation(t *testing.T) {
	intensity, masks := testVolumes(t)

	analyzer := NewAnalyzer(&Params{Masks: masks})
	if err := analyzer.Process(); !errors.Is(err, geometry.ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput without intensity volume, got %v", err)
	}

	analyzer = NewAnalyzer(&Params{Intensity: intensity})
	if err := analyzer.Process(); !errors.Is(err, geometry.ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput without masks, got %v", err)
	}

	analyzer = NewAnalyzer(&Params{Intensity: intensity, Masks: []NamedMask{{Name: "broken", Mask: nil}}})
	if err := analyzer.Process(); !errors.Is(err, geometry.ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput for nil mask volume, got %v", err)
	}
}

// TestAnalyzerGridMismatch verifies that a mask on a different grid is fatal
func TestAnalyzerGridMismatch(t *testing.T) {
	intensity, _ := testVolumes(t)

	otherGeom, err := geometry.NewVoxelGeometry(1.0, 1.0, 2.0, 8, 8, 3)
	if err != nil {
		t.Fatalf("Failed to build geometry: %v", err)
	}
	mask, err := geometry.NewMaskVolume(make([]bool, 8*8*3), otherGeom)
	if err != nil {
		t.Fatalf("Failed to build mask: %v", err)
	}

	analyzer := NewAnalyzer(&Params{
		Intensity: intensity,
		Masks:     []NamedMask{{Name: "offgrid", Mask: mask}},
	})
	if err := analyzer.Process(); !errors.Is(err, geometry.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for differing grids, got %v", err)
	}
}

// TestMergeSliceSeriesAlignment verifies index-based alignment when records
// are missing from one or both sides
func TestMergeSliceSeriesAlignment(t *testing.T) {
	left := []SliceStatistics{
		{SliceIndex: 0, AreaCM2: 1.0, MeanIntensity: 10.0, PixelCount: 100},
		{SliceIndex: 2, AreaCM2: 2.0, MeanIntensity: 20.0, PixelCount: 200},
	}
	right := []SliceStatistics{
		{SliceIndex: 1, AreaCM2: 3.0, MeanIntensity: 30.0, PixelCount: 300},
		{SliceIndex: 2, AreaCM2: 2.0, MeanIntensity: 40.0, PixelCount: 200},
	}

	merged := mergeSliceSeries(left, right, 4)

	if len(merged) != 3 {
		t.Fatalf("Expected 3 merged records, got %d", len(merged))
	}
	if merged[0].SliceIndex != 0 || merged[0].MeanIntensity != 10.0 {
		t.Errorf("Expected left passthrough at index 0, got %+v", merged[0])
	}
	if merged[1].SliceIndex != 1 || merged[1].MeanIntensity != 30.0 {
		t.Errorf("Expected right passthrough at index 1, got %+v", merged[1])
	}
	// Index 2 present on both sides: equal areas give the midpoint mean.
	if merged[2].SliceIndex != 2 || math.Abs(merged[2].MeanIntensity-30.0) > 1e-12 {
		t.Errorf("Expected merged record at index 2 with mean 30.0, got %+v", merged[2])
	}
	// Index 3 exists on neither side and is skipped.
}
