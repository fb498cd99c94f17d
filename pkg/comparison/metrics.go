// Package comparison measures agreement between a manual segmentation and an
// AI-generated one: overlap metrics, surface distances, grid alignment, and
// the engine that orchestrates a full case comparison.
package comparison

import (
	"fmt"

	"musclemetrics/pkg/geometry"
)

// overlapCounts returns the foreground counts of both masks and of their
// intersection. Masks must share a shape.
func overlapCounts(a, b *geometry.MaskSlice) (countA, countB, intersection int, err error) {
	if a.Width != b.Width || a.Height != b.Height {
		return 0, 0, 0, fmt.Errorf("mask %dx%d vs mask %dx%d: %w",
			a.Width, a.Height, b.Width, b.Height, geometry.ErrShapeMismatch)
	}
	for i, fg := range a.Pixels {
		if fg {
			countA++
			if b.Pixels[i] {
				intersection++
			}
		}
		if b.Pixels[i] {
			countB++
		}
	}
	return countA, countB, intersection, nil
}

// DiceScore returns the Dice similarity coefficient of two masks: twice the
// intersection count over the sum of both foreground counts. Two empty masks
// score 0.
func DiceScore(a, b *geometry.MaskSlice) (float64, error) {
	countA, countB, intersection, err := overlapCounts(a, b)
	if err != nil {
		return 0, err
	}
	total := countA + countB
	if total == 0 {
		return 0, nil
	}
	return 2 * float64(intersection) / float64(total), nil
}

// JaccardIndex returns the intersection-over-union of two masks. Two empty
// masks score 0.
func JaccardIndex(a, b *geometry.MaskSlice) (float64, error) {
	countA, countB, intersection, err := overlapCounts(a, b)
	if err != nil {
		return 0, err
	}
	union := countA + countB - intersection
	if union == 0 {
		return 0, nil
	}
	return float64(intersection) / float64(union), nil
}

// PrecisionRecall treats the AI mask as the prediction and the manual mask
// as ground truth and returns pixel-level precision and recall. Either value
// is 0 when its denominator is empty.
func PrecisionRecall(manual, ai *geometry.MaskSlice) (precision, recall float64, err error) {
	manualCount, aiCount, truePositives, err := overlapCounts(manual, ai)
	if err != nil {
		return 0, 0, err
	}
	if aiCount > 0 {
		precision = float64(truePositives) / float64(aiCount)
	}
	if manualCount > 0 {
		recall = float64(truePositives) / float64(manualCount)
	}
	return precision, recall, nil
}
