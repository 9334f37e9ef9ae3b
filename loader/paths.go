package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolvePaths expands glob patterns to RDF files.
// Supports both single-level wildcards (*) and recursive wildcards (**).
//
// Examples:
//   - "./shapes/*.ttl" → ["/abs/shapes/person.ttl", ...]
//   - "./ontology/**" → every RDF file below ./ontology
//   - "./data.ttl" → ["/abs/data.ttl"]
//
// A plain directory expands to the RDF files directly inside it. Matches
// without a known RDF extension are skipped.
func ResolvePaths(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := resolvePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}

		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	return resolved, nil
}

// resolvePattern expands a single glob pattern to files.
func resolvePattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			return rdfFilesIn(absPath)
		}
		if _, err := FormatFromPath(absPath); err != nil {
			return nil, err
		}
		return []string{absPath}, nil
	}

	absPattern, err := makeAbsolutePattern(pattern)
	if err != nil {
		return nil, err
	}

	// doublestar gives us ** support
	matches, err := doublestar.FilepathGlob(absPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		if _, err := FormatFromPath(match); err == nil {
			files = append(files, match)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no RDF files match pattern: %s", pattern)
	}

	sort.Strings(files)
	return files, nil
}

func rdfFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if _, err := FormatFromPath(p); err == nil {
			files = append(files, p)
		}
	}
	return files, nil
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// makeAbsolutePattern converts a relative pattern to absolute.
// Preserves glob characters in the pattern.
func makeAbsolutePattern(pattern string) (string, error) {
	globIdx := strings.IndexAny(pattern, "*?[{")
	if globIdx == -1 {
		return filepath.Abs(pattern)
	}

	// Split at the last separator before the first glob character
	dirPart, globPart := ".", string(filepath.Separator)+pattern
	if lastSep := strings.LastIndexAny(pattern[:globIdx], string(filepath.Separator)+"/"); lastSep >= 0 {
		dirPart, globPart = pattern[:lastSep], pattern[lastSep:]
		if dirPart == "" {
			// Pattern rooted at the filesystem root
			return filepath.FromSlash(pattern), nil
		}
	}

	absDir, err := filepath.Abs(dirPart)
	if err != nil {
		return "", err
	}

	return absDir + filepath.FromSlash(globPart), nil
}
