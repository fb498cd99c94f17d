package measure

import (
	"math"
	"testing"

	"musclemetrics/pkg/geometry"
)

func mustGeometry(t *testing.T, sx, sy, sz float64) geometry.VoxelGeometry {
	t.Helper()
	g, err := geometry.NewVoxelGeometry(sx, sy, sz, 512, 512, 10)
	if err != nil {
		t.Fatalf("Failed to create geometry: %v", err)
	}
	return g
}

// TestSliceAreaCM2 verifies the mm² to cm² conversion against known values
func TestSliceAreaCM2(t *testing.T) {
	testCases := []struct {
		name       string
		pixelCount int
		sx, sy     float64
		expected   float64
	}{
		{"100 pixels at 1mm", 100, 1.0, 1.0, 1.0},
		{"100 pixels at 2mm", 100, 2.0, 2.0, 4.0},
		{"9 pixels at 1mm", 9, 1.0, 1.0, 0.09},
		{"400 pixels at 0.5mm", 400, 0.5, 0.5, 1.0},
		{"empty mask", 0, 0.7, 0.7, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustGeometry(t, tc.sx, tc.sy, 3.0)
			area := SliceAreaCM2(tc.pixelCount, g)
			if math.Abs(area-tc.expected) > 1e-9 {
				t.Errorf("SliceAreaCM2(%d): expected %f, got %f", tc.pixelCount, tc.expected, area)
			}
		})
	}
}

// TestSliceAreaLinearPerAxis verifies that area scales linearly with each
// spacing axis independently: doubling one axis doubles the area, it does
// not quadruple it
func TestSliceAreaLinearPerAxis(t *testing.T) {
	const pixelCount = 250

	base := SliceAreaCM2(pixelCount, mustGeometry(t, 0.8, 0.6, 3.0))
	doubledX := SliceAreaCM2(pixelCount, mustGeometry(t, 1.6, 0.6, 3.0))
	doubledY := SliceAreaCM2(pixelCount, mustGeometry(t, 0.8, 1.2, 3.0))

	if math.Abs(doubledX-2*base) > 1e-9 {
		t.Errorf("Doubling spacing x: expected %f, got %f", 2*base, doubledX)
	}
	if math.Abs(doubledY-2*base) > 1e-9 {
		t.Errorf("Doubling spacing y: expected %f, got %f", 2*base, doubledY)
	}
}

// TestTotalVolumeCM3 verifies the mm³ to cm³ conversion against known values
func TestTotalVolumeCM3(t *testing.T) {
	testCases := []struct {
		name       string
		pixelCount int
		sx, sy, sz float64
		expected   float64
	}{
		{"unit voxels", 1000, 1.0, 1.0, 1.0, 1.0},
		{"ten identical slices", 4000, 0.5, 0.5, 3.0, 3.0},
		{"anisotropic", 100, 0.7, 0.7, 5.0, 0.245},
		{"empty", 0, 0.5, 0.5, 3.0, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustGeometry(t, tc.sx, tc.sy, tc.sz)
			volume := TotalVolumeCM3(tc.pixelCount, g)
			if math.Abs(volume-tc.expected) > 1e-9 {
				t.Errorf("TotalVolumeCM3(%d): expected %f, got %f", tc.pixelCount, tc.expected, volume)
			}
		})
	}
}

// TestVolumeLinearPerAxis verifies per-axis linearity of the volume
// conversion, including the slice spacing
func TestVolumeLinearPerAxis(t *testing.T) {
	const pixelCount = 1200

	base := TotalVolumeCM3(pixelCount, mustGeometry(t, 0.5, 0.5, 2.0))
	doubledZ := TotalVolumeCM3(pixelCount, mustGeometry(t, 0.5, 0.5, 4.0))

	if math.Abs(doubledZ-2*base) > 1e-9 {
		t.Errorf("Doubling spacing z: expected %f, got %f", 2*base, doubledZ)
	}
}
