// Package pipeline implements the five enrichment passes (C6-C10,
// spec.md §4.6-§4.10) over the geo-objects feature file, driven by
// internal/feature's fork-join reader/writer (grounded on
// pkg/v1/parallel.go's LoadCellsParallel) and coordinating the shared
// internal/kvstore, internal/pairing, and internal/spatialindex state
// spec.md §5 describes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omaps/geoobjectsgen/internal/collab"
	"github.com/omaps/geoobjectsgen/internal/kvstore"
	"github.com/omaps/geoobjectsgen/internal/pairing"
	"github.com/omaps/geoobjectsgen/internal/spatialindex"
)

// Deps bundles every collaborator a pass needs. Passes never construct
// their own collaborators; Run wires them once and threads the same
// instances through all five passes, matching spec.md §3's Lifecycle
// note that P, G, and the index outlive the pass that built them.
type Deps struct {
	Classifier    collab.Classifier
	Regions       collab.RegionsLookup
	Index         *spatialindex.Index
	KV            *kvstore.Store
	Pairing       *pairing.Map
	Geometry      *pairing.Geometry
	Log           *slog.Logger
	Threads       int
	ProgressEvery int
}

func (d *Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// Run executes passes 1-5 in order against featuresPath, building the
// spatial index concurrently with pass 1 (spec.md §5's "concurrent
// construction of C4 with C6"), and writes one decimal object id per line
// to poiIDsPath for every POI pass 4 enriches (spec.md §6.7). ctx is
// checked between passes only; spec.md §5 has no mid-pass cancellation
// points.
func Run(ctx context.Context, featuresPath, poiIDsPath string, deps *Deps) error {
	log := deps.logger()

	indexCh := make(chan indexResult, 1)
	go func() {
		idx, err := spatialindex.Build(featuresPath, deps.Threads)
		indexCh <- indexResult{idx: idx, err: err}
	}()

	if err := runPass1(featuresPath, deps); err != nil {
		<-indexCh // drain so the goroutine doesn't leak
		return fmt.Errorf("pass 1 (addressed writer): %w", err)
	}

	res := <-indexCh
	if res.err != nil {
		return fmt.Errorf("build spatial index: %w", res.err)
	}
	deps.Index = res.idx
	log.Info("spatial index built")

	if err := ctxErr(ctx); err != nil {
		return err
	}

	if err := runPass2(featuresPath, deps); err != nil {
		return fmt.Errorf("pass 2 (building-point pairing): %w", err)
	}
	log.Info("pass 2 complete", slog.Int("pairs", deps.Pairing.Len()), slog.Int("geometries", deps.Geometry.Len()))

	if err := ctxErr(ctx); err != nil {
		return err
	}

	if err := runPass3(featuresPath, deps); err != nil {
		return fmt.Errorf("pass 3 (geometry graft): %w", err)
	}

	if err := ctxErr(ctx); err != nil {
		return err
	}

	if err := runPass4(featuresPath, poiIDsPath, deps); err != nil {
		return fmt.Errorf("pass 4 (poi enrichment): %w", err)
	}

	if err := ctxErr(ctx); err != nil {
		return err
	}

	if err := runPass5(featuresPath, deps); err != nil {
		return fmt.Errorf("pass 5 (dedup filter): %w", err)
	}

	return nil
}

type indexResult struct {
	idx *spatialindex.Index
	err error
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
