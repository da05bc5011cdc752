package orderpipe

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
	"google.golang.org/api/googleapi"
)

// DatasetAdmin performs catalog operations against BigQuery datasets.
type DatasetAdmin struct {
	client   *bigquery.Client
	location string
}

// NewDatasetAdmin builds a DatasetAdmin creating datasets at the given
// location.
func NewDatasetAdmin(client *bigquery.Client, location string) *DatasetAdmin {
	if location == "" {
		location = defaultLocation
	}

	return &DatasetAdmin{client: client, location: location}
}

// Ensure verifies the dataset exists and creates it when it does not. The
// create tolerates a concurrent "already exists"; any other failure is fatal
// because the pipeline must not proceed with an unconfirmed dataset.
func (a *DatasetAdmin) Ensure(ctx context.Context, datasetID string) error {
	l := zerolog.Ctx(ctx)
	ds := a.client.Dataset(datasetID)

	_, err := ds.Metadata(ctx)
	if err == nil {
		l.Debug().Str("dataset", datasetID).Msg("dataset already exists")
		return nil
	}

	if !isNotFound(err) {
		return xerrors.Errorf("failed to check dataset %s: %w", datasetID, err)
	}

	l.Info().Str("dataset", datasetID).Str("location", a.location).Msg("creating dataset")

	err = ds.Create(ctx, &bigquery.DatasetMetadata{Location: a.location})
	if err != nil && !isAlreadyExists(err) {
		return xerrors.Errorf("failed to create dataset %s: %w", datasetID, err)
	}

	return nil
}

// Delete drops the dataset and its contents. A missing dataset is not an
// error.
func (a *DatasetAdmin) Delete(ctx context.Context, datasetID string) error {
	if err := a.client.Dataset(datasetID).DeleteWithContents(ctx); err != nil && !isNotFound(err) {
		return xerrors.Errorf("failed to delete dataset %s: %w", datasetID, err)
	}

	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
