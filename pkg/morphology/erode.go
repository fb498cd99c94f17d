// Package morphology implements the binary erosion primitive used by the
// intensity estimator to shrink a mask away from its boundary before
// sampling.
package morphology

import "musclemetrics/pkg/geometry"

// Erode applies binary erosion to a mask slice with a full 3x3 structuring
// element (8-connected) for the given number of iterations and returns the
// result as a new slice. The input is never modified; zero iterations
// returns a plain copy.
//
// Pixels outside the image bounds count as foreground, so regions touching
// the image border erode inward only. The structuring element is fixed:
// a pixel survives one pass only when every in-bounds neighbor in its 3x3
// neighborhood is foreground.
func Erode(mask *geometry.MaskSlice, iterations int) *geometry.MaskSlice {
	current := mask.Clone()
	if iterations <= 0 {
		return current
	}

	width := mask.Width
	height := mask.Height
	next := make([]bool, width*height)

	for iter := 0; iter < iterations; iter++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				if !current.Pixels[idx] {
					next[idx] = false
					continue
				}
				next[idx] = neighborhoodSolid(current.Pixels, width, height, x, y)
			}
		}
		current.Pixels, next = next, current.Pixels
	}

	return current
}

// neighborhoodSolid reports whether every in-bounds pixel of the 3x3
// neighborhood around (x, y) is foreground.
func neighborhoodSolid(pixels []bool, width, height, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= height {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if nx < 0 || nx >= width {
				continue
			}
			if !pixels[ny*width+nx] {
				return false
			}
		}
	}
	return true
}

// Contour returns the boundary of a mask: the foreground pixels removed by a
// single erosion pass. When erosion empties the mask completely (very small
// objects), the mask itself is returned so downstream distance computations
// still have points to work with.
func Contour(mask *geometry.MaskSlice) *geometry.MaskSlice {
	eroded := Erode(mask, 1)

	contour := mask.Clone()
	empty := true
	for i := range contour.Pixels {
		contour.Pixels[i] = mask.Pixels[i] && !eroded.Pixels[i]
		if contour.Pixels[i] {
			empty = false
		}
	}

	if empty && !mask.Empty() {
		return mask.Clone()
	}
	return contour
}
