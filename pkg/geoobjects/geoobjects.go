package geoobjects

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/omaps/geoobjectsgen/internal/collab"
	"github.com/omaps/geoobjectsgen/internal/kvstore"
	"github.com/omaps/geoobjectsgen/internal/pairing"
	"github.com/omaps/geoobjectsgen/internal/pipeline"
	"github.com/omaps/geoobjectsgen/internal/regions"
)

// Generate runs the five-pass geo-objects enrichment pipeline (spec.md
// §6.5), returning true iff every pass completed without a fatal
// condition. A false return with a nil error never happens; callers can
// treat a non-nil error as the only failure signal, the bool is kept only
// to mirror spec.md §6.5's literal signature.
func Generate(ctx context.Context, opts Options) (bool, error) {
	log := slog.Default()
	if opts.Verbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	regionsLookup, err := regions.Open(opts.RegionsIndexPath, opts.RegionsKVPath)
	if err != nil {
		return false, fmt.Errorf("open regions lookup: %w", err)
	}

	kv, err := kvstore.Open(opts.OutKVPath)
	if err != nil {
		return false, fmt.Errorf("open kv store: %w", err)
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = collab.DefaultClassifier()
	}

	deps := &pipeline.Deps{
		Classifier:    classifier,
		Regions:       regionsLookup,
		KV:            kv,
		Pairing:       pairing.NewMap(),
		Geometry:      pairing.NewGeometry(log),
		Log:           log,
		Threads:       opts.Threads,
		ProgressEvery: opts.ProgressEvery,
	}

	runErr := pipeline.Run(ctx, opts.FeaturesPath, opts.OutPOIIDsPath, deps)
	if flushErr := kv.Flush(); flushErr != nil && runErr == nil {
		runErr = fmt.Errorf("flush kv store: %w", flushErr)
	}
	if runErr != nil {
		log.Error("generation failed", slog.String("error", runErr.Error()))
		return false, runErr
	}

	log.Info("generation complete", slog.Int("kv entries", kv.Size()))
	return true, nil
}
