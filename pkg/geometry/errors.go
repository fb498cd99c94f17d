package geometry

import "errors"

// ErrInvalidGeometry indicates non-positive spacing or an empty shape.
var ErrInvalidGeometry = errors.New("invalid geometry")

// ErrShapeMismatch indicates that co-registered arrays disagree on dimensions.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrMissingInput indicates absent or unreadable source data.
var ErrMissingInput = errors.New("missing input")
