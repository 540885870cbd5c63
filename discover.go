package gistool

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GranuleDir is the fixed layout convention for raw granules of one year.
func GranuleDir(inputDir, variable string, year int) string {
	return filepath.Join(inputDir, variable, fmt.Sprintf("%d.01.01", year))
}

// Granules lists the raw raster files for one (variable, year). The direct
// pattern <inputDir>/<variable>/<year>.01.01/*.hdf is tried first; when it
// yields nothing, the variable directory is searched recursively for .hdf
// files under a directory named after the year. An empty result is not an
// error: the caller skips the year.
func Granules(inputDir, variable string, year int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(GranuleDir(inputDir, variable, year), "*.hdf"))
	if err != nil {
		return nil, fmt.Errorf("list granules for %s %d: %w", variable, year, err)
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches, nil
	}

	root := filepath.Join(inputDir, variable)
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}
	prefix := fmt.Sprintf("%d.", year)
	var found []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".hdf") {
			return nil
		}
		if strings.HasPrefix(filepath.Base(filepath.Dir(p)), prefix) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", root, err)
	}
	sort.Strings(found)
	return found, nil
}
