package core

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Round2 rounds f to 2 decimal places (half away from zero).
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// StringsContain reports whether s is in slice.
func StringsContain(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// UniqueStrings returns the non-empty strings of slice without duplicates, in their original order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	uniq := make([]string, 0, len(slice))
	for _, s := range slice {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		uniq = append(uniq, s)
	}
	return uniq
}

// Getwd returns the project root: the closest parent directory holding a go.mod file.
// go test runs each package from its own directory, so the current working directory cannot be trusted.
// Falls back to the working directory for binaries deployed without sources.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
