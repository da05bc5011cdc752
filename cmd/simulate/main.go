// Command simulate replays a master CSV held in Cloud Storage as a stream of
// single-order JSON objects, one per interval, so the load pipeline can be
// exercised without live traffic.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/ecomstream/orderpipe"
)

var (
	sourceBucket = flag.String("source-bucket", "", "bucket holding the master CSV (required)")
	sourceObject = flag.String("source-object", "data/df_pubsub.csv", "object name of the master CSV")
	destBucket   = flag.String("dest-bucket", "", "bucket receiving the JSON order objects (required)")
	interval     = flag.Duration("interval", 5*time.Minute, "time between published orders")
	once         = flag.Bool("once", false, "publish a single order and exit")
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	flag.Parse()

	if *sourceBucket == "" || *destBucket == "" {
		log.Fatal().Msg("-source-bucket and -dest-bucket are required")
	}

	ctx := log.WithContext(context.Background())

	client, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build storage client")
	}
	defer client.Close()

	sim := orderpipe.NewSimulator(client, *sourceBucket, *sourceObject, *destBucket)

	if *once {
		if _, err := sim.Step(ctx); err != nil {
			log.Fatal().Err(err).Msg("simulation step failed")
		}

		return
	}

	if err := sim.Run(ctx, *interval); err != nil {
		log.Fatal().Err(err).Msg("simulation stopped")
	}
}
