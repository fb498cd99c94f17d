package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"musclemetrics/internal/caseio"
	"musclemetrics/pkg/geometry"
)

// DefaultMaxScanDepth bounds how far below the batch root the case scanner
// descends.
const DefaultMaxScanDepth = 10

// FindCases walks root and returns every case directory it can find, in
// deterministic lexical order. A directory recognized as a case is not
// descended into further, and output directories and hidden directories are
// skipped entirely.
//
// Parameters:
//   - root: the directory to scan
//   - maxDepth: how many levels below root to descend, or 0 for the default
//
// Returns:
//   - The case directories found
//   - An error if root is not a readable directory
func FindCases(root string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxScanDepth
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("batch root %s: %w", root, geometry.ErrMissingInput)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch root %s is not a directory: %w", root, geometry.ErrMissingInput)
	}

	var cases []string
	var scan func(dir string, depth int) error
	scan = func(dir string, depth int) error {
		if caseio.IsCase(dir) {
			cases = append(cases, dir)
			return nil
		}
		if depth >= maxDepth {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "_output") {
				continue
			}
			if err := scan(filepath.Join(dir, name), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := scan(root, 0); err != nil {
		return nil, err
	}
	return cases, nil
}
