package analysis

import (
	"fmt"
	"math"

	"musclemetrics/pkg/geometry"
	"musclemetrics/pkg/measure"
)

// NamedMask pairs a structure name with its segmentation volume.
type NamedMask struct {
	// Name is the structure name, including any _left/_right suffix.
	Name string

	// Mask is the segmentation volume on the same grid as the intensity
	// volume.
	Mask *geometry.MaskVolume
}

// Params holds the input parameters for one statistics run.
type Params struct {
	// Intensity is the CT intensity volume in Hounsfield units.
	Intensity *geometry.IntensityVolume

	// Masks lists the segmentation volumes to analyze, one per structure.
	Masks []NamedMask

	// Tiers is the erosion ladder used for intensity sampling. Leave empty
	// for DefaultErosionTiers.
	Tiers []ErosionTier

	// Verbose enables progress output on stdout.
	Verbose bool
}

// Analyzer runs the statistics pipeline over one case: per-slice records for
// every structure, whole-structure summaries, then bilateral merging.
type Analyzer struct {
	params *Params
	tiers  []ErosionTier
	result *Result
}

// NewAnalyzer creates a new Analyzer with the given parameters.
//
// Parameters:
//   - params: input volumes and options for the run
//
// Returns:
//   - A pointer to the initialized Analyzer
func NewAnalyzer(params *Params) *Analyzer {
	tiers := params.Tiers
	if len(tiers) == 0 {
		tiers = DefaultErosionTiers()
	}
	return &Analyzer{params: params, tiers: tiers}
}

// Process executes the statistics pipeline. A slice whose statistics cannot
// be computed is recorded under its structure's Failures and does not stop
// the run; missing inputs and grid mismatches between a mask volume and the
// intensity volume are fatal.
//
// Returns:
//   - An error if validation fails, nil on success
func (a *Analyzer) Process() error {
	if a.params.Intensity == nil {
		return fmt.Errorf("intensity volume: %w", geometry.ErrMissingInput)
	}
	if len(a.params.Masks) == 0 {
		return fmt.Errorf("segmentation masks: %w", geometry.ErrMissingInput)
	}
	for _, nm := range a.params.Masks {
		if nm.Mask == nil {
			return fmt.Errorf("structure %q: %w", nm.Name, geometry.ErrMissingInput)
		}
		if nm.Mask.Geometry != a.params.Intensity.Geometry {
			return fmt.Errorf("structure %q: mask grid %+v does not match intensity grid %+v: %w",
				nm.Name, nm.Mask.Geometry, a.params.Intensity.Geometry, geometry.ErrShapeMismatch)
		}
	}

	// Full capacity up front so the byName pointers below stay valid
	// across appends.
	result := &Result{Structures: make([]StructureStatistics, 0, len(a.params.Masks))}

	if a.params.Verbose {
		fmt.Println("Step 1: Computing per-slice statistics...")
	}
	byName := make(map[string]*StructureStatistics, len(a.params.Masks))
	names := make([]string, 0, len(a.params.Masks))
	for _, nm := range a.params.Masks {
		stats := a.analyzeStructure(nm)
		result.Structures = append(result.Structures, stats)
		byName[nm.Name] = &result.Structures[len(result.Structures)-1]
		names = append(names, nm.Name)
		if a.params.Verbose {
			fmt.Printf("  %s: %d slices analyzed, %d failed\n", nm.Name, len(stats.Slices), len(stats.Failures))
		}
	}

	if a.params.Verbose {
		fmt.Println("Step 2: Merging bilateral structures...")
	}
	depth := a.params.Intensity.Geometry.Depth
	for _, group := range PairStructures(names) {
		merged := MergedStructure{Name: group.Name, Members: group.Members}
		if len(group.Members) == 2 {
			left := byName[group.Members[0]]
			right := byName[group.Members[1]]
			merged.Slices = mergeSliceSeries(left.Slices, right.Slices, depth)
			merged.Summary = MergeSummaryStatistics(left.Summary, right.Summary)
		} else {
			src := byName[group.Members[0]]
			merged.Slices = make([]BilateralStatistics, 0, len(src.Slices))
			for _, s := range src.Slices {
				merged.Slices = append(merged.Slices, sliceToBilateral(s))
			}
			merged.Summary = src.Summary
		}
		result.Merged = append(result.Merged, merged)
		if a.params.Verbose {
			fmt.Printf("  %s: %d member(s), volume %.2f cm3\n", merged.Name, len(merged.Members), merged.Summary.VolumeCM3)
		}
	}

	a.result = result
	return nil
}

// Result returns the output of the last successful Process call, or nil if
// Process has not run.
func (a *Analyzer) Result() *Result {
	return a.result
}

// analyzeStructure computes the per-slice series and summary for one mask
// volume. Failed slices are collected, not propagated.
func (a *Analyzer) analyzeStructure(nm NamedMask) StructureStatistics {
	out := StructureStatistics{Name: nm.Name}
	geom := nm.Mask.Geometry
	for z := 0; z < geom.Depth; z++ {
		mask, err := nm.Mask.Slice(z)
		if err != nil {
			out.Failures = append(out.Failures, SliceFailure{SliceIndex: z, Err: err})
			continue
		}
		intensity, err := a.params.Intensity.Slice(z)
		if err != nil {
			out.Failures = append(out.Failures, SliceFailure{SliceIndex: z, Err: err})
			continue
		}
		stats, err := ComputeSliceStatistics(mask, intensity, geom, a.tiers)
		if err != nil {
			out.Failures = append(out.Failures, SliceFailure{SliceIndex: z, Err: err})
			continue
		}
		out.Slices = append(out.Slices, stats)
	}
	out.Summary = summarizeStructure(nm.Mask, out.Slices)
	return out
}

// summarizeStructure derives the whole-structure scalars. The pixel count
// and volume come from the raw mask; the mean intensity is the
// sample-count-weighted mean of the per-slice means, so slices contribute in
// proportion to how many voxels they were sampled from.
func summarizeStructure(mask *geometry.MaskVolume, slices []SliceStatistics) SummaryStatistics {
	raw := mask.TrueVoxelCount()
	summary := SummaryStatistics{
		PixelCount: raw,
		VolumeCM3:  measure.TotalVolumeCM3(raw, mask.Geometry),
	}
	var weighted, weight float64
	for _, s := range slices {
		if s.PixelCount == 0 {
			continue
		}
		weighted += s.MeanIntensity * float64(s.PixelCount)
		weight += float64(s.PixelCount)
	}
	if weight > 0 {
		summary.MeanHU = weighted / weight
	} else {
		summary.MeanHU = math.NaN()
	}
	return summary
}

// mergeSliceSeries aligns two per-slice series by slice index and merges
// them position by position. A slice present on only one side passes through
// unchanged; a slice missing from both sides is skipped.
func mergeSliceSeries(left, right []SliceStatistics, depth int) []BilateralStatistics {
	leftAt := make(map[int]SliceStatistics, len(left))
	for _, s := range left {
		leftAt[s.SliceIndex] = s
	}
	rightAt := make(map[int]SliceStatistics, len(right))
	for _, s := range right {
		rightAt[s.SliceIndex] = s
	}

	merged := make([]BilateralStatistics, 0, depth)
	for z := 0; z < depth; z++ {
		l, haveLeft := leftAt[z]
		r, haveRight := rightAt[z]
		switch {
		case haveLeft && haveRight:
			merged = append(merged, MergeSliceStatistics(l, r))
		case haveLeft:
			merged = append(merged, sliceToBilateral(l))
		case haveRight:
			merged = append(merged, sliceToBilateral(r))
		}
	}
	return merged
}
