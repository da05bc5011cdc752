// Command dataset ensures or deletes a BigQuery dataset.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/ecomstream/orderpipe"
)

var (
	project  = flag.String("project", "", "GCP project ID (required)")
	dataset  = flag.String("dataset", "", "BigQuery dataset ID (required)")
	location = flag.String("location", "EU", "BigQuery location for dataset creation")
	del      = flag.Bool("delete", false, "delete the dataset and its contents instead of creating it")
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	flag.Parse()

	if *project == "" || *dataset == "" {
		log.Fatal().Msg("-project and -dataset are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = log.WithContext(ctx)

	client, err := bigquery.NewClient(ctx, *project)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build bigquery client")
	}
	defer client.Close()

	admin := orderpipe.NewDatasetAdmin(client, *location)

	if *del {
		if err := admin.Delete(ctx, *dataset); err != nil {
			log.Fatal().Err(err).Msg("failed to delete dataset")
		}

		log.Info().Str("dataset", *dataset).Msg("dataset deleted")

		return
	}

	if err := admin.Ensure(ctx, *dataset); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure dataset")
	}

	log.Info().Str("dataset", *dataset).Str("location", *location).Msg("dataset ensured")
}
