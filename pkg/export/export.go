// Package export renders analysis and comparison results as CSV reports.
// The layouts follow the established clinical worksheets: a three-section
// statistics sheet and a single-row comparison sheet, with a wider variant
// carrying the full metric set.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"musclemetrics/pkg/analysis"
	"musclemetrics/pkg/comparison"
	"musclemetrics/pkg/geometry"
)

// WriteStatisticsCSV writes the per-slice area section, the per-slice
// intensity section and the structure summary section, separated by blank
// rows. The area section lists every input structure separately, sides
// included; the intensity and summary sections use the merged reporting
// series.
//
// Slice numbering in the output is reversed: row 1 holds the highest slice
// index, so the sheet reads in the anatomical direction the worksheets use.
// Empty and missing values print as 0.00.
func WriteStatisticsCSV(w io.Writer, result *analysis.Result) error {
	if result == nil {
		return fmt.Errorf("statistics result: %w", geometry.ErrMissingInput)
	}

	cw := csv.NewWriter(w)

	sideNames := make([]string, len(result.Structures))
	sideMax := 0
	for i, s := range result.Structures {
		sideNames[i] = s.Name
		for _, sl := range s.Slices {
			if sl.SliceIndex+1 > sideMax {
				sideMax = sl.SliceIndex + 1
			}
		}
	}
	writeSliceSection(cw, sideNames, areaSeries(result.Structures, sideMax), sideMax)

	cw.Write([]string{""})

	mergedNames := make([]string, len(result.Merged))
	mergedMax := 0
	for i, m := range result.Merged {
		mergedNames[i] = m.Name
		for _, s := range m.Slices {
			if s.SliceIndex+1 > mergedMax {
				mergedMax = s.SliceIndex + 1
			}
		}
	}
	intensities := denseSeries(result.Merged, mergedMax, func(b analysis.BilateralStatistics) float64 {
		return b.MeanIntensity
	})
	writeSliceSection(cw, mergedNames, intensities, mergedMax)

	cw.Write([]string{""})

	cw.Write([]string{"structure", "pixelcount", "volume_cm3", "mean_hu"})
	for _, m := range result.Merged {
		cw.Write([]string{
			m.Name,
			strconv.Itoa(m.Summary.PixelCount),
			formatFixed(m.Summary.VolumeCM3),
			formatFixed(m.Summary.MeanHU),
		})
	}

	cw.Flush()
	return cw.Error()
}

// SaveStatisticsCSV writes the statistics report to a file.
func SaveStatisticsCSV(path string, result *analysis.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating csv file: %w", err)
	}
	if err := WriteStatisticsCSV(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteComparisonCSV writes the standard four-column comparison report: one
// header row and one data row for the compared slice.
func WriteComparisonCSV(w io.Writer, result *comparison.Result) error {
	if result == nil {
		return fmt.Errorf("comparison result: %w", geometry.ErrMissingInput)
	}

	cw := csv.NewWriter(w)
	cw.Write([]string{"slice_number", "manual_area_cm2", "ai_area_cm2", "dice_score"})
	cw.Write([]string{
		strconv.Itoa(result.SliceNumber),
		fmt.Sprintf("%.2f", result.ManualAreaCM2),
		fmt.Sprintf("%.2f", result.AIAreaCM2),
		fmt.Sprintf("%.4f", result.Dice),
	})
	cw.Flush()
	return cw.Error()
}

// SaveComparisonCSV writes the standard comparison report to a file.
func SaveComparisonCSV(path string, result *comparison.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating csv file: %w", err)
	}
	if err := WriteComparisonCSV(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteExtendedComparisonCSV writes the thirteen-column comparison report
// including area differences, overlap metrics and surface distances. The
// result must have been computed with extended metrics enabled.
func WriteExtendedComparisonCSV(w io.Writer, result *comparison.Result) error {
	if result == nil {
		return fmt.Errorf("comparison result: %w", geometry.ErrMissingInput)
	}
	if result.Extended == nil {
		return fmt.Errorf("extended metrics not computed: %w", geometry.ErrMissingInput)
	}

	pct := "N/A"
	if !math.IsNaN(result.AreaDiffPct) {
		pct = fmt.Sprintf("%+.2f%%", result.AreaDiffPct)
	}

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"slice_number", "manual_area_cm2", "ai_area_cm2",
		"area_diff_cm2", "area_diff_abs_cm2", "area_diff_pct",
		"dice_score", "jaccard_score", "precision", "recall",
		"hd_mm", "hd95_mm", "assd_mm",
	})
	cw.Write([]string{
		strconv.Itoa(result.SliceNumber),
		fmt.Sprintf("%.2f", result.ManualAreaCM2),
		fmt.Sprintf("%.2f", result.AIAreaCM2),
		fmt.Sprintf("%+.2f", result.AreaDiffCM2),
		fmt.Sprintf("%.2f", math.Abs(result.AreaDiffCM2)),
		pct,
		fmt.Sprintf("%.4f", result.Dice),
		fmt.Sprintf("%.4f", result.Extended.Jaccard),
		fmt.Sprintf("%.4f", result.Extended.Precision),
		fmt.Sprintf("%.4f", result.Extended.Recall),
		formatMM(result.Extended.Surface.HausdorffMM),
		formatMM(result.Extended.Surface.Hausdorff95MM),
		formatMM(result.Extended.Surface.ASSDMM),
	})
	cw.Flush()
	return cw.Error()
}

// SaveExtendedComparisonCSV writes the extended comparison report to a file.
func SaveExtendedComparisonCSV(path string, result *comparison.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating csv file: %w", err)
	}
	if err := WriteExtendedComparisonCSV(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSliceSection writes one header plus the reversed per-slice rows.
func writeSliceSection(cw *csv.Writer, names []string, series [][]float64, maxSlices int) {
	cw.Write(append([]string{"slicenumber"}, names...))
	for i := maxSlices; i >= 1; i-- {
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.Itoa(maxSlices-i+1))
		for _, s := range series {
			row = append(row, formatFixed(s[i-1]))
		}
		cw.Write(row)
	}
}

// areaSeries projects each structure's per-slice areas onto a dense
// per-index array, NaN where no record exists.
func areaSeries(structures []analysis.StructureStatistics, n int) [][]float64 {
	out := make([][]float64, len(structures))
	for i, s := range structures {
		series := make([]float64, n)
		for j := range series {
			series[j] = math.NaN()
		}
		for _, sl := range s.Slices {
			if sl.SliceIndex < n {
				series[sl.SliceIndex] = sl.AreaCM2
			}
		}
		out[i] = series
	}
	return out
}

// denseSeries projects each merged structure's slice records onto a dense
// per-index array, NaN where no record exists.
func denseSeries(merged []analysis.MergedStructure, n int, pick func(analysis.BilateralStatistics) float64) [][]float64 {
	out := make([][]float64, len(merged))
	for i, m := range merged {
		series := make([]float64, n)
		for j := range series {
			series[j] = math.NaN()
		}
		for _, s := range m.Slices {
			if s.SliceIndex < n {
				series[s.SliceIndex] = pick(s)
			}
		}
		out[i] = series
	}
	return out
}

// formatFixed renders a value with two decimals, with NaN as the sheet's
// zero placeholder.
func formatFixed(v float64) string {
	if math.IsNaN(v) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatMM renders a surface distance, preserving the lowercase inf the
// established reports use for undefined distances.
func formatMM(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
