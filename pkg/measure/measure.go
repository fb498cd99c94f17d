// Package measure converts voxel counts into physical area and volume using
// the grid spacing. Both functions are pure and exact under IEEE double
// precision; they are shared by the statistics path and the comparison
// engine, which apply them to each source's native geometry.
package measure

import "musclemetrics/pkg/geometry"

// SliceAreaCM2 returns the physical area covered by pixelCount in-plane
// voxels, converted from mm² to cm².
func SliceAreaCM2(pixelCount int, geom geometry.VoxelGeometry) float64 {
	return float64(pixelCount) * geom.VoxelArea() / 100.0
}

// TotalVolumeCM3 returns the physical volume covered by totalPixelCount
// voxels, converted from mm³ to cm³.
func TotalVolumeCM3(totalPixelCount int, geom geometry.VoxelGeometry) float64 {
	return float64(totalPixelCount) * geom.VoxelVolume() / 1000.0
}
