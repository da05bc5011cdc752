package orderpipe

import (
	"os"

	"golang.org/x/xerrors"
)

// defaultLocation is where datasets are created when BIGQUERY_LOCATION is
// unset.
const defaultLocation = "EU"

// Config describes one pipeline deployment. Values usually come from the
// environment via ConfigFromEnv.
type Config struct {
	// Project is the GCP project owning the destination tables.
	Project string

	// Dataset and Table identify the canonical destination.
	Dataset string
	Table   string

	// StagingDataset and StagingTable, when both set, switch the pipeline
	// into staging mode: loads truncate the staging table and a MERGE moves
	// rows into the canonical table keyed by order id.
	StagingDataset string
	StagingTable   string

	// Location is the BigQuery location used when creating datasets.
	Location string

	// ArchiveBucket receives processed source objects. Empty disables
	// archiving.
	ArchiveBucket string

	// StagingBucket is where the stream simulator publishes JSON objects.
	StagingBucket string
}

// ConfigFromEnv reads the deployment configuration from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Project:        os.Getenv("PROJECT_ID"),
		Dataset:        os.Getenv("DATASET_ID"),
		Table:          os.Getenv("TABLE_ID"),
		StagingDataset: os.Getenv("STAGING_DATASET_ID"),
		StagingTable:   os.Getenv("STAGING_TABLE_ID"),
		Location:       os.Getenv("BIGQUERY_LOCATION"),
		ArchiveBucket:  os.Getenv("ARCHIVE_BUCKET_NAME"),
		StagingBucket:  os.Getenv("STAGING_BUCKET_NAME"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Location == "" {
		c.Location = defaultLocation
	}

	return c
}

func (c Config) validate() error {
	if c.Project == "" || c.Dataset == "" || c.Table == "" {
		return xerrors.New("PROJECT_ID, DATASET_ID and TABLE_ID are required")
	}

	if (c.StagingDataset == "") != (c.StagingTable == "") {
		return xerrors.New("STAGING_DATASET_ID and STAGING_TABLE_ID must be set together")
	}

	return nil
}

// staging reports whether the pipeline routes loads through a staging table.
func (c Config) staging() bool {
	return c.StagingDataset != "" && c.StagingTable != ""
}

// target is the canonical destination table.
func (c Config) target() Target {
	return Target{Project: c.Project, Dataset: c.Dataset, Table: c.Table}
}

// stagingTarget is the transient landing table in staging mode.
func (c Config) stagingTarget() Target {
	return Target{Project: c.Project, Dataset: c.StagingDataset, Table: c.StagingTable}
}

// Target identifies a BigQuery table.
type Target struct {
	Project string
	Dataset string
	Table   string
}

func (t Target) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}
