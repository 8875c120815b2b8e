// Package geoobjects is the public entry point for the geo-objects
// generation core (spec.md §6.5), wrapping the internal passes behind a
// single Generate call the way pkg/s57 wraps its internal parser/index
// packages behind ChartManager/Chart.
package geoobjects

import (
	"runtime"

	"github.com/omaps/geoobjectsgen/internal/collab"
)

// Options configures a generation run (spec.md §6.5's parameters plus
// tuning knobs), grounded on pkg/s57's ParseOptions/ChartManagerOptions
// options-struct-plus-Default idiom.
type Options struct {
	// RegionsIndexPath and RegionsKVPath locate the externally produced
	// regions hierarchy (spec.md §6.2).
	RegionsIndexPath string
	RegionsKVPath    string

	// FeaturesPath is the geo-objects intermediate feature file, read by
	// passes 1/2/4 and rewritten in place by passes 3/5 (spec.md §6.1).
	FeaturesPath string

	// OutPOIIDsPath and OutKVPath are the two output files (spec.md §6.5).
	OutPOIIDsPath string
	OutKVPath     string

	// Classifier supplies is_building/has_house/is_poi (spec.md §6.4). If
	// nil, collab.DefaultClassifier is used.
	Classifier collab.Classifier

	// Threads is the worker count for every pass's fork-join scan. Zero
	// means runtime.NumCPU().
	Threads int

	// Verbose makes Generate log through a Debug-level text logger on
	// stderr instead of slog.Default(); the default logger is not changed.
	Verbose bool

	// ProgressEvery overrides the progress-logging interval (spec.md §9's
	// "every 100,000 items"). Zero means 100,000.
	ProgressEvery int
}

// DefaultOptions returns an Options with every tuning knob at its default;
// the five path fields are always caller-supplied.
func DefaultOptions() Options {
	return Options{
		Threads:       runtime.NumCPU(),
		ProgressEvery: 100000,
	}
}
