package comparison

// WarningKind identifies a non-fatal condition detected during a comparison.
// Warnings are part of the result value, never just logged, so callers and
// batch reports can act on them.
type WarningKind int

const (
	// SpacingMismatch flags voxel spacing differing beyond the configured
	// tolerance between the manual and AI grids.
	SpacingMismatch WarningKind = iota

	// MultiSliceAnnotation flags a manual volume with more than one
	// annotated slice where a single-slice annotation was expected.
	MultiSliceAnnotation

	// NoOverlapDetected flags a compared slice pair on which neither mask
	// has any foreground.
	NoOverlapDetected
)

// String returns the warning kind name used in reports and logs.
func (k WarningKind) String() string {
	switch k {
	case SpacingMismatch:
		return "SpacingMismatch"
	case MultiSliceAnnotation:
		return "MultiSliceAnnotation"
	case NoOverlapDetected:
		return "NoOverlapDetected"
	default:
		return "UnknownWarning"
	}
}

// Warning couples a kind with its human-readable detail.
type Warning struct {
	// Kind identifies the condition.
	Kind WarningKind

	// Detail describes the specific occurrence, including the offending
	// values.
	Detail string
}
