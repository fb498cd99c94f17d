// Package geometry provides the value types shared by the statistics and
// comparison engines: a voxel grid description plus binary mask and intensity
// data in slice and volume form. These types carry no behavior beyond their
// construction invariants; all numeric processing lives in the consuming
// packages.
package geometry

import (
	"fmt"
	"math"
)

// VoxelGeometry describes a 3D voxel grid: physical spacing per axis and the
// grid extent in voxels. It is immutable after construction.
type VoxelGeometry struct {
	// SpacingX, SpacingY, SpacingZ are the physical distances between
	// adjacent voxel centers along each axis, in mm. Always finite and
	// strictly positive.
	SpacingX, SpacingY, SpacingZ float64

	// Width, Height, Depth are the voxel counts per axis. Always >= 1.
	Width, Height, Depth int
}

// NewVoxelGeometry validates spacing and shape and returns the geometry.
// Non-positive or non-finite spacing and dimensions below 1 fail with
// ErrInvalidGeometry.
func NewVoxelGeometry(spacingX, spacingY, spacingZ float64, width, height, depth int) (VoxelGeometry, error) {
	spacings := []struct {
		axis  string
		value float64
	}{{"x", spacingX}, {"y", spacingY}, {"z", spacingZ}}
	for _, s := range spacings {
		if math.IsNaN(s.value) || math.IsInf(s.value, 0) || s.value <= 0 {
			return VoxelGeometry{}, fmt.Errorf("spacing %s = %v: %w", s.axis, s.value, ErrInvalidGeometry)
		}
	}
	if width < 1 || height < 1 || depth < 1 {
		return VoxelGeometry{}, fmt.Errorf("shape %dx%dx%d: %w", width, height, depth, ErrInvalidGeometry)
	}

	return VoxelGeometry{
		SpacingX: spacingX,
		SpacingY: spacingY,
		SpacingZ: spacingZ,
		Width:    width,
		Height:   height,
		Depth:    depth,
	}, nil
}

// VoxelArea returns the in-plane area of a single voxel in mm².
func (g VoxelGeometry) VoxelArea() float64 {
	return g.SpacingX * g.SpacingY
}

// VoxelVolume returns the volume of a single voxel in mm³.
func (g VoxelGeometry) VoxelVolume() float64 {
	return g.SpacingX * g.SpacingY * g.SpacingZ
}

// MaskSlice is a single 2D binary layer of a segmentation mask.
type MaskSlice struct {
	// Pixels is the binary grid in row-major order (y*Width + x).
	Pixels []bool

	// Width and Height are the slice dimensions in pixels.
	Width, Height int

	// Index is the position of this slice within its parent volume.
	Index int
}

// NewMaskSlice validates that pixel data matches the stated dimensions.
func NewMaskSlice(pixels []bool, width, height, index int) (*MaskSlice, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("mask slice shape %dx%d: %w", width, height, ErrInvalidGeometry)
	}
	if len(pixels) != width*height {
		return nil, fmt.Errorf("mask slice data length %d for shape %dx%d: %w",
			len(pixels), width, height, ErrShapeMismatch)
	}
	return &MaskSlice{Pixels: pixels, Width: width, Height: height, Index: index}, nil
}

// At reports whether the pixel at (x, y) is foreground.
func (m *MaskSlice) At(x, y int) bool {
	return m.Pixels[y*m.Width+x]
}

// TruePixelCount returns the number of foreground pixels.
func (m *MaskSlice) TruePixelCount() int {
	count := 0
	for _, p := range m.Pixels {
		if p {
			count++
		}
	}
	return count
}

// Empty reports whether the slice has no foreground pixels.
func (m *MaskSlice) Empty() bool {
	for _, p := range m.Pixels {
		if p {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the slice.
func (m *MaskSlice) Clone() *MaskSlice {
	pixels := make([]bool, len(m.Pixels))
	copy(pixels, m.Pixels)
	return &MaskSlice{Pixels: pixels, Width: m.Width, Height: m.Height, Index: m.Index}
}

// IntensitySlice is a 2D grid of signed intensity values (HU for CT data)
// co-registered 1:1 with a MaskSlice of the same shape.
type IntensitySlice struct {
	// Values is the intensity grid in row-major order (y*Width + x).
	Values []float64

	// Width and Height are the slice dimensions in pixels.
	Width, Height int

	// Index is the position of this slice within its parent volume.
	Index int
}

// NewIntensitySlice validates that value data matches the stated dimensions.
func NewIntensitySlice(values []float64, width, height, index int) (*IntensitySlice, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("intensity slice shape %dx%d: %w", width, height, ErrInvalidGeometry)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("intensity slice data length %d for shape %dx%d: %w",
			len(values), width, height, ErrShapeMismatch)
	}
	return &IntensitySlice{Values: values, Width: width, Height: height, Index: index}, nil
}

// At returns the intensity value at (x, y).
func (s *IntensitySlice) At(x, y int) float64 {
	return s.Values[y*s.Width+x]
}

// MaskVolume is a 3D binary mask with its voxel geometry. Data is stored as
// a flat array in row-major order: z*Width*Height + y*Width + x.
type MaskVolume struct {
	// Data is the binary volume as a flat array.
	Data []bool

	// Geometry describes the voxel grid the data lives on.
	Geometry VoxelGeometry
}

// NewMaskVolume validates that the data length matches the geometry.
func NewMaskVolume(data []bool, geom VoxelGeometry) (*MaskVolume, error) {
	if expected := geom.Width * geom.Height * geom.Depth; len(data) != expected {
		return nil, fmt.Errorf("mask volume data length %d for shape %dx%dx%d: %w",
			len(data), geom.Width, geom.Height, geom.Depth, ErrShapeMismatch)
	}
	return &MaskVolume{Data: data, Geometry: geom}, nil
}

// Slice extracts the 2D layer at position z as an owned copy.
func (v *MaskVolume) Slice(z int) (*MaskSlice, error) {
	if z < 0 || z >= v.Geometry.Depth {
		return nil, fmt.Errorf("slice %d exceeds depth %d: %w", z, v.Geometry.Depth, ErrShapeMismatch)
	}

	width := v.Geometry.Width
	height := v.Geometry.Height
	pixels := make([]bool, width*height)
	offset := z * width * height
	copy(pixels, v.Data[offset:offset+width*height])

	return &MaskSlice{Pixels: pixels, Width: width, Height: height, Index: z}, nil
}

// TrueVoxelCount returns the number of foreground voxels in the whole volume.
func (v *MaskVolume) TrueVoxelCount() int {
	count := 0
	for _, p := range v.Data {
		if p {
			count++
		}
	}
	return count
}

// AnnotatedSlices returns the indices of all slices containing at least one
// foreground voxel, in ascending order.
func (v *MaskVolume) AnnotatedSlices() []int {
	var annotated []int
	pageSize := v.Geometry.Width * v.Geometry.Height
	for z := 0; z < v.Geometry.Depth; z++ {
		page := v.Data[z*pageSize : (z+1)*pageSize]
		for _, p := range page {
			if p {
				annotated = append(annotated, z)
				break
			}
		}
	}
	return annotated
}

// IntensityVolume is a 3D intensity array with its voxel geometry, stored
// like MaskVolume in flat row-major order.
type IntensityVolume struct {
	// Data is the intensity volume as a flat array.
	Data []float64

	// Geometry describes the voxel grid the data lives on.
	Geometry VoxelGeometry
}

// NewIntensityVolume validates that the data length matches the geometry.
func NewIntensityVolume(data []float64, geom VoxelGeometry) (*IntensityVolume, error) {
	if expected := geom.Width * geom.Height * geom.Depth; len(data) != expected {
		return nil, fmt.Errorf("intensity volume data length %d for shape %dx%dx%d: %w",
			len(data), geom.Width, geom.Height, geom.Depth, ErrShapeMismatch)
	}
	return &IntensityVolume{Data: data, Geometry: geom}, nil
}

// Slice extracts the 2D layer at position z as an owned copy.
func (v *IntensityVolume) Slice(z int) (*IntensitySlice, error) {
	if z < 0 || z >= v.Geometry.Depth {
		return nil, fmt.Errorf("slice %d exceeds depth %d: %w", z, v.Geometry.Depth, ErrShapeMismatch)
	}

	width := v.Geometry.Width
	height := v.Geometry.Height
	values := make([]float64, width*height)
	offset := z * width * height
	copy(values, v.Data[offset:offset+width*height])

	return &IntensitySlice{Values: values, Width: width, Height: height, Index: z}, nil
}

// SameShape reports whether a mask and intensity slice have identical
// dimensions.
func SameShape(m *MaskSlice, s *IntensitySlice) bool {
	return m.Width == s.Width && m.Height == s.Height
}
