package orderpipe

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// upsertMerger is the merge stage seen by the pipeline.
type upsertMerger interface {
	Merge(ctx context.Context) error
}

// Merger moves rows from the staging table into the canonical table with a
// single warehouse-side MERGE keyed on order id: matched rows are overwritten
// column by column (last write wins), unmatched rows are inserted whole.
type Merger struct {
	client   *bigquery.Client
	staging  Target
	dest     Target
	location string
}

// NewMerger builds a Merger from staging into dest.
func NewMerger(client *bigquery.Client, staging, dest Target, location string) *Merger {
	return &Merger{client: client, staging: staging, dest: dest, location: location}
}

// Merge runs the MERGE statement and blocks until the warehouse confirms
// completion. Any reported error aborts the caller's pipeline before
// archiving.
func (m *Merger) Merge(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	q := m.client.Query(mergeQuery(m.staging, m.dest))
	q.Location = m.location

	job, err := q.Run(ctx)
	if err != nil {
		return xerrors.Errorf("failed to start merge from %s into %s: %w", m.staging, m.dest, err)
	}

	l.Info().Str("job_id", job.ID()).Stringer("staging", m.staging).Stringer("table", m.dest).Msg("merge started")

	status, err := job.Wait(ctx)
	if err != nil {
		return xerrors.Errorf("failed to wait for merge job %s: %w", job.ID(), err)
	}

	if err := status.Err(); err != nil {
		l.Error().Str("job_id", job.ID()).Errs("job_errors", asErrs(status.Errors)).Msg("merge failed")
		return xerrors.Errorf("merge job %s reported errors: %w", job.ID(), err)
	}

	l.Info().Str("job_id", job.ID()).Msg("merge completed")

	return nil
}

// mergeQuery generates the MERGE statement from the shared schema, so the
// column lists cannot drift from the loaders.
func mergeQuery(staging, dest Target) string {
	cols := OrderColumns()

	updates := make([]string, 0, len(cols)-1)
	sourceCols := make([]string, len(cols))

	for i, c := range cols {
		sourceCols[i] = "source." + c
		if c == orderKeyColumn {
			continue
		}

		updates = append(updates, fmt.Sprintf("target.%s = source.%s", c, c))
	}

	return fmt.Sprintf(`MERGE %s AS target
USING %s AS source
ON target.%s = source.%s
WHEN MATCHED THEN
  UPDATE SET %s
WHEN NOT MATCHED THEN
  INSERT (%s)
  VALUES (%s)`,
		quote(dest), quote(staging),
		orderKeyColumn, orderKeyColumn,
		strings.Join(updates, ", "),
		strings.Join(cols, ", "),
		strings.Join(sourceCols, ", "))
}

func quote(t Target) string {
	return "`" + t.String() + "`"
}
