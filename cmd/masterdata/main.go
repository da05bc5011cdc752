// Command masterdata bulk-loads a local order CSV into the canonical
// BigQuery table, creating the dataset first when needed.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/ecomstream/orderpipe"
)

type config struct {
	MasterDataLoading struct {
		CSVFilePath      string `yaml:"csv_file_path"`
		ProjectID        string `yaml:"project_id"`
		DatasetID        string `yaml:"dataset_id"`
		TableID          string `yaml:"table_id"`
		BigQueryLocation string `yaml:"bigquery_location"`
		Encoding         string `yaml:"encoding"`
	} `yaml:"master_data_loading"`
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = log.WithContext(ctx)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("master data load failed")
	}
}

func loadConfig(path string) (*config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", path, err)
	}

	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, xerrors.Errorf("failed to parse %s: %w", path, err)
	}

	m := cfg.MasterDataLoading
	if m.CSVFilePath == "" || m.ProjectID == "" || m.DatasetID == "" || m.TableID == "" {
		return nil, xerrors.New("csv_file_path, project_id, dataset_id and table_id are required")
	}

	return &cfg, nil
}

func run(ctx context.Context, cfg *config) error {
	log := zerolog.Ctx(ctx)
	m := cfg.MasterDataLoading

	client, err := bigquery.NewClient(ctx, m.ProjectID)
	if err != nil {
		return xerrors.Errorf("failed to build bigquery client: %w", err)
	}
	defer client.Close()

	admin := orderpipe.NewDatasetAdmin(client, m.BigQueryLocation)
	if err := admin.Ensure(ctx, m.DatasetID); err != nil {
		return err
	}

	loader := orderpipe.NewBulkLoader(client)

	if m.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(m.Encoding)
		if err != nil {
			return xerrors.Errorf("unknown encoding %q: %w", m.Encoding, err)
		}
		if enc == nil {
			return xerrors.Errorf("unsupported encoding %q", m.Encoding)
		}

		loader.Encoding = enc
	}

	f, err := os.Open(m.CSVFilePath)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", m.CSVFilePath, err)
	}
	defer f.Close()

	dst := orderpipe.Target{Project: m.ProjectID, Dataset: m.DatasetID, Table: m.TableID}

	rows, err := loader.LoadReader(ctx, f, dst, bigquery.WriteAppend, 1)
	if err != nil {
		return err
	}

	log.Info().Int64("rows", rows).Stringer("table", dst).Msg("master data loaded")

	return nil
}
