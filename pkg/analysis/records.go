package analysis

// SliceStatistics is the per-slice output record of the statistics path.
// It is derived data: once created it carries no reference to the arrays it
// was computed from and is never mutated.
type SliceStatistics struct {
	// SliceIndex is the position of the slice within the parent volume.
	SliceIndex int

	// AreaCM2 is the physical area of the raw (un-eroded) mask in cm².
	AreaCM2 float64

	// MeanIntensity is the mean intensity over the sampled region, NaN when
	// the slice mask is empty.
	MeanIntensity float64

	// StdIntensity is the population standard deviation over the sampled
	// region, NaN when the slice mask is empty.
	StdIntensity float64

	// PixelCount is the size of the sampled (eroded) region the intensity
	// statistics were computed over. It is zero for an empty mask and may be
	// smaller than the raw pixel count behind AreaCM2.
	PixelCount int

	// ErosionIterationsUsed records which erosion tier produced the sampled
	// region. Required for reproducing clinical discrepancies.
	ErosionIterationsUsed int
}

// BilateralStatistics is the per-slice record after merging a left/right
// structure pair: summed area, area-weighted intensity statistics.
type BilateralStatistics struct {
	// SliceIndex is the common slice position of the merged pair.
	SliceIndex int

	// AreaCM2 is the sum of both sides' areas in cm².
	AreaCM2 float64

	// MeanIntensity is the area-weighted mean, NaN when both sides are empty.
	MeanIntensity float64

	// StdIntensity is the area-weighted standard deviation. This mirrors the
	// mean weighting convention and is not a pooled standard deviation.
	StdIntensity float64

	// PixelCount is the sum of both sides' sampled pixel counts.
	PixelCount int
}

// SummaryStatistics holds the whole-structure scalars reported once per
// (merged) structure.
type SummaryStatistics struct {
	// PixelCount is the total raw foreground voxel count of the structure.
	PixelCount int

	// VolumeCM3 is the physical volume in cm³.
	VolumeCM3 float64

	// MeanHU is the mean intensity of the structure, NaN when no voxels were
	// sampled. Summary-level merging weights this by PixelCount, not by
	// area.
	MeanHU float64
}

// SliceFailure records a slice whose statistics could not be computed. The
// volume-level run continues past it.
type SliceFailure struct {
	// SliceIndex is the position of the failed slice.
	SliceIndex int

	// Err is the cause, wrapping one of the geometry sentinel errors.
	Err error
}

// StructureStatistics bundles the full statistics output for one input mask
// volume (one side of a bilateral pair, or a standalone structure).
type StructureStatistics struct {
	// Name is the structure name as supplied by the caller, including any
	// _left/_right suffix.
	Name string

	// Slices holds the per-slice records for every slice that computed
	// successfully, in slice order.
	Slices []SliceStatistics

	// Summary holds the whole-structure scalars.
	Summary SummaryStatistics

	// Failures lists slices whose statistics failed, in slice order.
	Failures []SliceFailure
}

// MergedStructure is the reporting unit after bilateral pairing: either a
// combined left/right pair or a single structure passed through.
type MergedStructure struct {
	// Name is the reported name: the common base name for a merged pair,
	// otherwise the source structure name.
	Name string

	// Members lists the contributing structure names, left before right for
	// pairs.
	Members []string

	// Slices holds the merged per-slice records.
	Slices []BilateralStatistics

	// Summary holds the merged whole-structure scalars.
	Summary SummaryStatistics
}

// Result is the complete output of one statistics run.
type Result struct {
	// Structures holds per-side statistics in input order.
	Structures []StructureStatistics

	// Merged holds the bilateral-combined reporting series in
	// first-appearance order.
	Merged []MergedStructure
}
