// Package caseio loads analysis cases from disk: a geometry sidecar, a CT
// intensity series and one mask series per segmented structure. Images are
// grayscale PNG files numbered in slice order.
package caseio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"musclemetrics/pkg/analysis"
	"musclemetrics/pkg/geometry"
)

// GeometryFile is the sidecar filename that marks a directory as a case and
// carries its voxel geometry.
const GeometryFile = "geometry.yaml"

// CTDir and MasksDir are the fixed subdirectory names of a case.
const (
	CTDir    = "ct"
	MasksDir = "masks"
)

// Params holds the rescale defaults applied when the sidecar does not
// specify its own.
type Params struct {
	// HUSlope is the factor applied to raw pixel values.
	HUSlope float64

	// HUIntercept is the offset added after scaling.
	HUIntercept float64
}

// Case is a fully loaded analysis input.
type Case struct {
	// Name is the case directory's base name.
	Name string

	// Dir is the directory the case was loaded from.
	Dir string

	// Intensity is the CT volume in Hounsfield units.
	Intensity *geometry.IntensityVolume

	// Masks holds one segmentation volume per structure, in lexical
	// directory order.
	Masks []analysis.NamedMask
}

// sidecar mirrors the geometry.yaml layout. The rescale fields are pointers
// so an absent key can fall back to the configured defaults.
type sidecar struct {
	SpacingX         float64  `yaml:"spacingX"`
	SpacingY         float64  `yaml:"spacingY"`
	SpacingZ         float64  `yaml:"spacingZ"`
	RescaleSlope     *float64 `yaml:"rescaleSlope"`
	RescaleIntercept *float64 `yaml:"rescaleIntercept"`
}

// IsCase reports whether dir carries a geometry sidecar and a CT series
// directory, which is the marker the batch scanner looks for.
func IsCase(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, GeometryFile)); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, CTDir))
	return err == nil && info.IsDir()
}

// LoadCase loads the full case at dir: sidecar geometry, the CT series
// converted to HU, and every structure mask under masks/.
//
// A missing sidecar, CT series or masks directory fails with
// geometry.ErrMissingInput; a mask series that disagrees with the CT grid
// fails with geometry.ErrShapeMismatch.
//
// Parameters:
//   - dir: the case directory
//   - params: rescale defaults, or nil for CT defaults (slope 1, intercept -1024)
//
// Returns:
//   - The loaded case
//   - An error if any part of the case is missing or inconsistent
func LoadCase(dir string, params *Params) (*Case, error) {
	if params == nil {
		params = &Params{HUSlope: 1.0, HUIntercept: -1024.0}
	}

	sc, err := loadSidecar(dir)
	if err != nil {
		return nil, err
	}

	raw, width, height, err := readSeries(filepath.Join(dir, CTDir))
	if err != nil {
		return nil, fmt.Errorf("ct series: %w", err)
	}

	geom, err := geometry.NewVoxelGeometry(sc.SpacingX, sc.SpacingY, sc.SpacingZ, width, height, len(raw))
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", filepath.Join(dir, GeometryFile), err)
	}

	slope := params.HUSlope
	if sc.RescaleSlope != nil {
		slope = *sc.RescaleSlope
	}
	intercept := params.HUIntercept
	if sc.RescaleIntercept != nil {
		intercept = *sc.RescaleIntercept
	}

	page := width * height
	data := make([]float64, page*len(raw))
	for z, slice := range raw {
		for i, v := range slice {
			data[z*page+i] = slope*float64(v) + intercept
		}
	}
	intensity, err := geometry.NewIntensityVolume(data, geom)
	if err != nil {
		return nil, err
	}

	masks, err := loadMasks(filepath.Join(dir, MasksDir), geom)
	if err != nil {
		return nil, err
	}

	return &Case{
		Name:      filepath.Base(dir),
		Dir:       dir,
		Intensity: intensity,
		Masks:     masks,
	}, nil
}

// LoadAnnotation loads a standalone mask volume whose directory carries its
// own geometry sidecar and PNG series, as used for comparison inputs.
func LoadAnnotation(dir string) (*geometry.MaskVolume, error) {
	sc, err := loadSidecar(dir)
	if err != nil {
		return nil, err
	}

	raw, width, height, err := readSeries(dir)
	if err != nil {
		return nil, fmt.Errorf("annotation series: %w", err)
	}

	geom, err := geometry.NewVoxelGeometry(sc.SpacingX, sc.SpacingY, sc.SpacingZ, width, height, len(raw))
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", filepath.Join(dir, GeometryFile), err)
	}

	return maskFromRaw(raw, geom)
}

// loadMasks loads every structure subdirectory of masksDir on the given
// grid.
func loadMasks(masksDir string, geom geometry.VoxelGeometry) ([]analysis.NamedMask, error) {
	entries, err := os.ReadDir(masksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("masks directory %s: %w", masksDir, geometry.ErrMissingInput)
		}
		return nil, err
	}

	var masks []analysis.NamedMask
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		raw, width, height, err := readSeries(filepath.Join(masksDir, name))
		if err != nil {
			return nil, fmt.Errorf("structure %s: %w", name, err)
		}
		if width != geom.Width || height != geom.Height || len(raw) != geom.Depth {
			return nil, fmt.Errorf("structure %s: mask grid %dx%dx%d does not match ct grid %dx%dx%d: %w",
				name, width, height, len(raw), geom.Width, geom.Height, geom.Depth, geometry.ErrShapeMismatch)
		}
		volume, err := maskFromRaw(raw, geom)
		if err != nil {
			return nil, fmt.Errorf("structure %s: %v", name, err)
		}
		masks = append(masks, analysis.NamedMask{Name: name, Mask: volume})
	}

	if len(masks) == 0 {
		return nil, fmt.Errorf("no structure masks in %s: %w", masksDir, geometry.ErrMissingInput)
	}
	return masks, nil
}

// maskFromRaw binarizes a raw series: any nonzero pixel is foreground.
func maskFromRaw(raw [][]uint16, geom geometry.VoxelGeometry) (*geometry.MaskVolume, error) {
	page := geom.Width * geom.Height
	data := make([]bool, page*len(raw))
	for z, slice := range raw {
		for i, v := range slice {
			data[z*page+i] = v > 0
		}
	}
	return geometry.NewMaskVolume(data, geom)
}

// loadSidecar reads and parses the geometry sidecar of dir.
func loadSidecar(dir string) (*sidecar, error) {
	path := filepath.Join(dir, GeometryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("sidecar %s: %w", path, geometry.ErrMissingInput)
		}
		return nil, fmt.Errorf("error reading sidecar %s: %w", path, err)
	}

	sc := &sidecar{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("error parsing sidecar %s: %w", path, err)
	}
	return sc, nil
}

// readSeries loads the numbered PNG files of dir in slice order and returns
// the raw 16-bit values per slice plus the common dimensions.
func readSeries(dir string) ([][]uint16, int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, 0, fmt.Errorf("series directory %s: %w", dir, geometry.ErrMissingInput)
		}
		return nil, 0, 0, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".png" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, 0, 0, fmt.Errorf("no PNG images in %s: %w", dir, geometry.ErrMissingInput)
	}

	// Sort by the numeric part of the filename so slice order survives
	// inconsistent zero padding.
	sort.Slice(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var width, height int
	raw := make([][]uint16, 0, len(names))
	for _, name := range names {
		values, w, h, err := decodeGrayscale(filepath.Join(dir, name))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to load image %s: %v", name, err)
		}
		if len(raw) == 0 {
			width, height = w, h
		} else if w != width || h != height {
			return nil, 0, 0, fmt.Errorf("image %s is %dx%d, series is %dx%d: %w",
				name, w, h, width, height, geometry.ErrShapeMismatch)
		}
		raw = append(raw, values)
	}

	return raw, width, height, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// decodeGrayscale reads one PNG and returns its raw values in row-major
// order. 16-bit and 8-bit grayscale keep their stored values; any other
// color model falls back to the 8-bit red channel.
func decodeGrayscale(path string) ([]uint16, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	values := make([]uint16, width*height)

	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				values[y*width+x] = im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				values[y*width+x] = uint16(im.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				values[y*width+x] = uint16(r >> 8)
			}
		}
	}

	return values, width, height, nil
}
