/*
Package orderpipe is a small ETL pipeline running on Cloud Functions to load
order-record files (CSV or newline-delimited JSON) from Cloud Storage into
BigQuery and archive the processed objects.

Two trigger shapes are supported. A storage trigger delivers the Event
directly; a Pub/Sub trigger delivers a PubSubMessage whose data field wraps
the same event, either as a JSON object or base64-encoded JSON. Malformed
payloads are acknowledged without retry so a broken message cannot be
redelivered forever; every other failure propagates to the host's retry
policy.

With STAGING_DATASET_ID and STAGING_TABLE_ID set, each load truncates the
staging table and a MERGE keyed on order id upserts the rows into the
canonical table. Without them, loads append to the canonical table directly.

	package bqload

	import (
		"context"
		"os"

		"github.com/ecomstream/orderpipe"
	)

	var pipe orderpipe.Pipeline

	func init() {
		cfg, err := orderpipe.ConfigFromEnv()
		if err != nil {
			panic(err)
		}

		pipe, err = orderpipe.New(context.Background(), cfg,
			orderpipe.WithLogLevel("info"),
			orderpipe.WithNotifier(&orderpipe.SlackNotifier{
				Token:   os.Getenv("SLACK_TOKEN"),
				Channel: os.Getenv("SLACK_CHANNEL"),
			}),
		)
		if err != nil {
			panic(err)
		}
	}

	// LoadOrders is the entrypoint for a Pub/Sub-triggered Cloud Function.
	func LoadOrders(ctx context.Context, m orderpipe.PubSubMessage) error {
		return pipe.HandlePubSub(ctx, m)
	}

	// LoadOrdersFromStorage is the entrypoint for a storage-triggered one.
	func LoadOrdersFromStorage(ctx context.Context, e orderpipe.Event) error {
		return pipe.Handle(ctx, e)
	}
*/
package orderpipe
