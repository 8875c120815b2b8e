// Command geoobjectsgen runs the geo-objects generation core over a
// features intermediate file and an externally produced regions
// hierarchy, producing an addressed key-value store and a poi-ids side
// stream.
//
// Usage:
//
//	go run ./cmd/geoobjectsgen \
//	  -features data/features.bin \
//	  -regions-index data/regions.bin \
//	  -regions-kv data/regions.kv \
//	  -out-kv out/geo_objects.kv \
//	  -out-poi-ids out/poi_ids.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/omaps/geoobjectsgen/pkg/geoobjects"
)

func main() {
	featuresPath := flag.String("features", "", "path to the geo-objects intermediate feature file")
	regionsIndex := flag.String("regions-index", "", "path to the regions spatial index")
	regionsKV := flag.String("regions-kv", "", "path to the regions key-value store")
	outKV := flag.String("out-kv", "", "path to write the addressed key-value store")
	outPOIIDs := flag.String("out-poi-ids", "", "path to write the poi-ids side stream")
	threads := flag.Int("threads", 0, "worker count per pass (0 means runtime.NumCPU)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *featuresPath == "" || *regionsIndex == "" || *regionsKV == "" || *outKV == "" || *outPOIIDs == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := geoobjects.DefaultOptions()
	opts.FeaturesPath = *featuresPath
	opts.RegionsIndexPath = *regionsIndex
	opts.RegionsKVPath = *regionsKV
	opts.OutKVPath = *outKV
	opts.OutPOIIDsPath = *outPOIIDs
	opts.Verbose = *verbose
	if *threads > 0 {
		opts.Threads = *threads
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := geoobjects.Generate(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "geoobjectsgen: %v\n", err)
		slog.Error("generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
