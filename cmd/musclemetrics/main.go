package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"musclemetrics/internal/caseio"
	"musclemetrics/pkg/analysis"
	"musclemetrics/pkg/batch"
	"musclemetrics/pkg/comparison"
	"musclemetrics/pkg/config"
	"musclemetrics/pkg/export"
)

func main() {
	// Parse command line arguments
	mode := flag.String("mode", "stats", "Processing mode: stats, compare or batch")
	inputDir := flag.String("input", "", "Case directory (stats mode) or root directory to scan (batch mode)")
	manualDir := flag.String("manual", "", "Directory containing the manual annotation slices (compare mode)")
	aiDir := flag.String("ai", "", "Directory containing the AI segmentation slices (compare mode)")
	outputPath := flag.String("output", "", "Output CSV file (stats/compare modes) or output directory (batch mode)")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the -config path and exit")
	numWorkers := flag.Int("workers", 0, "Number of concurrent case workers in batch mode (default: from configuration)")
	extended := flag.Bool("extended", false, "Compute extended comparison metrics in addition to the Dice score")
	flag.Parse()

	if *writeConfig {
		if *configPath == "" {
			log.Fatalf("-write-config requires a -config path")
		}
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration file: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Load configuration and apply command line overrides
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *numWorkers > 0 {
		cfg.Batch.Workers = *numWorkers
	}
	if *extended {
		cfg.Comparison.ExtendedMetrics = true
	}

	fmt.Println("================================")
	fmt.Println("MUSCLE CT STATISTICS AND COMPARISON ENGINE")
	fmt.Println("Volumetric muscle measurements from segmented CT series")
	fmt.Println("================================")

	switch *mode {
	case "stats":
		runStats(cfg, *inputDir, *outputPath)
	case "compare":
		runCompare(cfg, *manualDir, *aiDir, *outputPath)
	case "batch":
		runBatch(cfg, *inputDir, *outputPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runStats analyzes a single case directory and writes the statistics CSV.
func runStats(cfg *config.Config, inputDir, outputPath string) {
	if inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("Starting statistical analysis...")
	startTime := time.Now()

	c, err := caseio.LoadCase(inputDir, &caseio.Params{
		HUSlope:     cfg.Analysis.HUSlope,
		HUIntercept: cfg.Analysis.HUIntercept,
	})
	if err != nil {
		log.Fatalf("Failed to load case: %v", err)
	}

	analyzer := analysis.NewAnalyzer(&analysis.Params{
		Intensity: c.Intensity,
		Masks:     c.Masks,
		Tiers:     cfg.Analysis.ErosionTiers,
		Verbose:   cfg.Output.Verbose,
	})
	if err := analyzer.Process(); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	result := analyzer.Result()

	if outputPath == "" {
		outputPath = filepath.Join(c.Dir+"_output", "statistics.csv")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := export.SaveStatisticsCSV(outputPath, result); err != nil {
		log.Fatalf("Failed to save statistics: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nAnalysis completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Statistics saved to: %s\n\n", outputPath)

	fmt.Printf("Structure summary:\n")
	fmt.Printf("==================\n")
	for _, s := range result.Structures {
		printSummaryLine(s.Name, len(s.Slices), s.Summary)
		for _, f := range s.Failures {
			fmt.Printf("  skipped slice %d: %v\n", f.SliceIndex, f.Err)
		}
	}
	for _, m := range result.Merged {
		printSummaryLine(m.Name+" (merged)", len(m.Slices), m.Summary)
	}
}

// printSummaryLine prints a one line overview of a structure summary.
func printSummaryLine(name string, slices int, s analysis.SummaryStatistics) {
	fmt.Printf("- %s: %d slices, %d voxels, %.2f cm3, mean %.1f HU\n",
		name, slices, s.PixelCount, s.VolumeCM3, s.MeanHU)
}

// runCompare compares a manual annotation against an AI segmentation and
// writes the comparison CSV.
func runCompare(cfg *config.Config, manualDir, aiDir, outputPath string) {
	if manualDir == "" || aiDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("Starting manual vs AI comparison...")
	startTime := time.Now()

	manual, err := caseio.LoadAnnotation(manualDir)
	if err != nil {
		log.Fatalf("Failed to load manual annotation: %v", err)
	}
	ai, err := caseio.LoadAnnotation(aiDir)
	if err != nil {
		log.Fatalf("Failed to load AI segmentation: %v", err)
	}

	result, err := comparison.Compare(&comparison.Params{
		Manual:           manual,
		AI:               ai,
		SpacingTolerance: cfg.Comparison.SpacingTolerance,
		Extended:         cfg.Comparison.ExtendedMetrics,
	})
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning [%s]: %s\n", w.Kind, w.Detail)
	}

	if outputPath == "" {
		outputPath = "comparison.csv"
	}
	if cfg.Comparison.ExtendedMetrics {
		err = export.SaveExtendedComparisonCSV(outputPath, result)
	} else {
		err = export.SaveComparisonCSV(outputPath, result)
	}
	if err != nil {
		log.Fatalf("Failed to save comparison: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nComparison completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Results saved to: %s\n\n", outputPath)

	fmt.Printf("Comparison results (slice %d):\n", result.SliceNumber)
	fmt.Printf("==============================\n")
	if result.Resampled {
		fmt.Printf("Manual annotation resampled onto the AI grid (annotated slice %d)\n", result.ManualSliceIndex)
	}
	fmt.Printf("Manual area: %.2f cm2\n", result.ManualAreaCM2)
	fmt.Printf("AI area: %.2f cm2\n", result.AIAreaCM2)
	if math.IsNaN(result.AreaDiffPct) {
		fmt.Printf("Area difference: %+.2f cm2\n", result.AreaDiffCM2)
	} else {
		fmt.Printf("Area difference: %+.2f cm2 (%+.2f%%)\n", result.AreaDiffCM2, result.AreaDiffPct)
	}
	fmt.Printf("Dice score: %.4f\n", result.Dice)
	if ext := result.Extended; ext != nil {
		fmt.Printf("Jaccard index: %.4f\n", ext.Jaccard)
		fmt.Printf("Precision: %.4f\n", ext.Precision)
		fmt.Printf("Recall: %.4f\n", ext.Recall)
		fmt.Printf("Hausdorff distance: %.2f mm (95th percentile: %.2f mm)\n",
			ext.Surface.HausdorffMM, ext.Surface.Hausdorff95MM)
		fmt.Printf("Average symmetric surface distance: %.2f mm\n", ext.Surface.ASSDMM)
	}
}

// runBatch scans a root directory for cases and processes them concurrently.
func runBatch(cfg *config.Config, inputDir, outputDir string) {
	if inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("Starting batch processing...")
	startTime := time.Now()

	runner := batch.NewRunner(&batch.Params{
		Root:         inputDir,
		OutputDir:    outputDir,
		Workers:      cfg.Batch.Workers,
		MaxScanDepth: cfg.Batch.MaxScanDepth,
		Tiers:        cfg.Analysis.ErosionTiers,
		HUSlope:      cfg.Analysis.HUSlope,
		HUIntercept:  cfg.Analysis.HUIntercept,
	})
	if err := runner.Process(); err != nil {
		log.Fatalf("Batch processing failed: %v", err)
	}
	processingTime := time.Since(startTime)

	summary := runner.Summary()
	fmt.Printf("\nBatch processing completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Batch results:\n")
	fmt.Printf("==============\n")
	fmt.Printf("Total cases: %d\n", summary.Total)
	fmt.Printf("Succeeded: %d\n", summary.Success)
	fmt.Printf("Failed: %d\n", summary.Failed)
	for _, d := range summary.Details {
		status := "ok"
		if !d.Success {
			status = "FAILED"
		}
		fmt.Printf("- %s [%s]: %s (%.2f s)\n", d.Name, status, d.Message, d.ElapsedSec)
	}
}
