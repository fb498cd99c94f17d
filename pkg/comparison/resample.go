package comparison

import (
	"math"

	"musclemetrics/pkg/geometry"
)

// ResampleToGrid maps a mask volume onto a target grid by nearest-neighbor
// lookup at each target voxel's physical position, with the two grid origins
// treated as coincident. Positions past the source extent become background,
// so the result has exactly the target shape and the mask stays binary.
func ResampleToGrid(src *geometry.MaskVolume, target geometry.VoxelGeometry) (*geometry.MaskVolume, error) {
	data := make([]bool, target.Width*target.Height*target.Depth)

	srcGeom := src.Geometry
	srcPage := srcGeom.Width * srcGeom.Height
	targetPage := target.Width * target.Height
	for z := 0; z < target.Depth; z++ {
		sz := nearestIndex(z, target.SpacingZ, srcGeom.SpacingZ)
		if sz >= srcGeom.Depth {
			continue
		}
		for y := 0; y < target.Height; y++ {
			sy := nearestIndex(y, target.SpacingY, srcGeom.SpacingY)
			if sy >= srcGeom.Height {
				continue
			}
			for x := 0; x < target.Width; x++ {
				sx := nearestIndex(x, target.SpacingX, srcGeom.SpacingX)
				if sx >= srcGeom.Width {
					continue
				}
				data[z*targetPage+y*target.Width+x] = src.Data[sz*srcPage+sy*srcGeom.Width+sx]
			}
		}
	}

	return geometry.NewMaskVolume(data, target)
}

// nearestIndex expresses index i of a grid with spacing from as the nearest
// index on a grid with spacing to, with both origins coincident. The result
// can lie past either grid; callers bounds-check.
func nearestIndex(i int, from, to float64) int {
	if from == to {
		return i
	}
	return int(math.Round(float64(i) * from / to))
}

// MapSliceIndex converts a slice index from a grid with slice spacing
// fromSpacingZ to the index at the same physical position on a grid with
// slice spacing toSpacingZ. The result may lie past the destination grid
// when the source extends further; callers must bounds-check against the
// destination depth.
func MapSliceIndex(index int, fromSpacingZ, toSpacingZ float64) int {
	return nearestIndex(index, fromSpacingZ, toSpacingZ)
}
