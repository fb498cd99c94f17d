package analysis

import (
	"math"
	"reflect"
	"testing"
)

// TestPairStructures verifies left/right grouping and first-appearance order
func TestPairStructures(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []MergeGroup
	}{
		{
			name:  "left right pair with standalone",
			input: []string{"psoas_left", "psoas_right", "rectus_abdominis"},
			expected: []MergeGroup{
				{Name: "psoas", Members: []string{"psoas_left", "psoas_right"}},
				{Name: "rectus_abdominis", Members: []string{"rectus_abdominis"}},
			},
		},
		{
			name:  "pair emitted at left member position",
			input: []string{"multifidus_right", "erector_spinae", "multifidus_left"},
			expected: []MergeGroup{
				{Name: "erector_spinae", Members: []string{"erector_spinae"}},
				{Name: "multifidus", Members: []string{"multifidus_left", "multifidus_right"}},
			},
		},
		{
			name:  "unpaired left keeps its full name",
			input: []string{"quadratus_left"},
			expected: []MergeGroup{
				{Name: "quadratus_left", Members: []string{"quadratus_left"}},
			},
		},
		{
			name:  "unpaired right keeps its full name",
			input: []string{"quadratus_right"},
			expected: []MergeGroup{
				{Name: "quadratus_right", Members: []string{"quadratus_right"}},
			},
		},
		{
			name:     "empty input",
			input:    []string{},
			expected: []MergeGroup{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := PairStructures(tt.input)
			if !reflect.DeepEqual(groups, tt.expected) {
				t.Errorf("Expected %+v, got %+v", tt.expected, groups)
			}
		})
	}
}

// TestMergeSliceStatistics verifies the area-weighted per-slice merge
func TestMergeSliceStatistics(t *testing.T) {
	left := SliceStatistics{SliceIndex: 4, AreaCM2: 2.0, MeanIntensity: 50.0, StdIntensity: 10.0, PixelCount: 200}
	right := SliceStatistics{SliceIndex: 4, AreaCM2: 6.0, MeanIntensity: 30.0, StdIntensity: 2.0, PixelCount: 600}

	merged := MergeSliceStatistics(left, right)

	if merged.SliceIndex != 4 {
		t.Errorf("Expected slice index 4, got %d", merged.SliceIndex)
	}
	if merged.AreaCM2 != 8.0 {
		t.Errorf("Expected area 8.0, got %f", merged.AreaCM2)
	}
	if merged.PixelCount != 800 {
		t.Errorf("Expected pixel count 800, got %d", merged.PixelCount)
	}
	// (50*2 + 30*6) / 8 = 35
	if math.Abs(merged.MeanIntensity-35.0) > 1e-12 {
		t.Errorf("Expected mean 35.0, got %f", merged.MeanIntensity)
	}
	// (10*2 + 2*6) / 8 = 4
	if math.Abs(merged.StdIntensity-4.0) > 1e-12 {
		t.Errorf("Expected std 4.0, got %f", merged.StdIntensity)
	}
}

// TestMergeSliceStatisticsOneSideEmpty verifies that an empty side passes the
// other side through without disturbing it
func TestMergeSliceStatisticsOneSideEmpty(t *testing.T) {
	populated := SliceStatistics{SliceIndex: 2, AreaCM2: 3.5, MeanIntensity: 42.0, StdIntensity: 7.0, PixelCount: 350}
	empty := SliceStatistics{SliceIndex: 2, MeanIntensity: math.NaN(), StdIntensity: math.NaN()}

	for _, merged := range []BilateralStatistics{
		MergeSliceStatistics(populated, empty),
		MergeSliceStatistics(empty, populated),
	} {
		if merged.AreaCM2 != 3.5 {
			t.Errorf("Expected area 3.5, got %f", merged.AreaCM2)
		}
		if merged.MeanIntensity != 42.0 {
			t.Errorf("Expected mean 42.0, got %f", merged.MeanIntensity)
		}
		if merged.StdIntensity != 7.0 {
			t.Errorf("Expected std 7.0, got %f", merged.StdIntensity)
		}
		if merged.PixelCount != 350 {
			t.Errorf("Expected pixel count 350, got %d", merged.PixelCount)
		}
	}
}

// TestMergeSliceStatisticsBothEmpty verifies the NaN outcome when neither
// side has any area
func TestMergeSliceStatisticsBothEmpty(t *testing.T) {
	empty := SliceStatistics{SliceIndex: 9, MeanIntensity: math.NaN(), StdIntensity: math.NaN()}

	merged := MergeSliceStatistics(empty, empty)

	if merged.AreaCM2 != 0 {
		t.Errorf("Expected zero area, got %f", merged.AreaCM2)
	}
	if !math.IsNaN(merged.MeanIntensity) || !math.IsNaN(merged.StdIntensity) {
		t.Errorf("Expected NaN statistics, got mean=%f std=%f", merged.MeanIntensity, merged.StdIntensity)
	}
}

// TestMergeSummaryStatistics verifies the pixel-count-weighted summary merge
func TestMergeSummaryStatistics(t *testing.T) {
	left := SummaryStatistics{PixelCount: 100, VolumeCM3: 10.0, MeanHU: 60.0}
	right := SummaryStatistics{PixelCount: 300, VolumeCM3: 30.0, MeanHU: 40.0}

	merged := MergeSummaryStatistics(left, right)

	if merged.PixelCount != 400 {
		t.Errorf("Expected pixel count 400, got %d", merged.PixelCount)
	}
	if math.Abs(merged.VolumeCM3-40.0) > 1e-12 {
		t.Errorf("Expected volume 40.0, got %f", merged.VolumeCM3)
	}
	// (60*100 + 40*300) / 400 = 45
	if math.Abs(merged.MeanHU-45.0) > 1e-12 {
		t.Errorf("Expected mean HU 45.0, got %f", merged.MeanHU)
	}
}

// TestMergeSummaryStatisticsWeightingDiffersFromSliceMerge verifies that the
// summary merge uses pixel counts even when area weights would give a
// different answer
func TestMergeSummaryStatisticsWeightingDiffersFromSliceMerge(t *testing.T) {
	// Equal volumes but unequal voxel counts: an area-weighted merge of the
	// same sides would land elsewhere than the pixel-count-weighted 75.
	left := SummaryStatistics{PixelCount: 900, VolumeCM3: 5.0, MeanHU: 80.0}
	right := SummaryStatistics{PixelCount: 100, VolumeCM3: 5.0, MeanHU: 30.0}

	merged := MergeSummaryStatistics(left, right)

	if math.Abs(merged.MeanHU-75.0) > 1e-12 {
		t.Errorf("Expected mean HU 75.0, got %f", merged.MeanHU)
	}
}

// TestMergeSummaryStatisticsEmptySides verifies passthrough and NaN handling
// for empty sides at the summary level
func TestMergeSummaryStatisticsEmptySides(t *testing.T) {
	populated := SummaryStatistics{PixelCount: 50, VolumeCM3: 2.0, MeanHU: 33.0}
	empty := SummaryStatistics{MeanHU: math.NaN()}

	merged := MergeSummaryStatistics(populated, empty)
	if merged.MeanHU != 33.0 {
		t.Errorf("Expected mean HU 33.0, got %f", merged.MeanHU)
	}

	merged = MergeSummaryStatistics(empty, empty)
	if !math.IsNaN(merged.MeanHU) {
		t.Errorf("Expected NaN mean HU, got %f", merged.MeanHU)
	}
	if merged.PixelCount != 0 || merged.VolumeCM3 != 0 {
		t.Errorf("Expected zero totals, got %+v", merged)
	}
}
