package orderpipe

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// bulkLoader is the load stage seen by the pipeline.
type bulkLoader interface {
	LoadURI(ctx context.Context, uri string, dst Target, write bigquery.TableWriteDisposition) (int64, error)
}

// BulkLoader submits BigQuery load jobs carrying the shared order schema and
// waits for them synchronously. Typing is always explicit, never inferred.
type BulkLoader struct {
	client *bigquery.Client

	// Encoding optionally decodes non-UTF-8 reader sources, e.g. Shift-JIS
	// exports. Only LoadReader honors it; URI loads are read by BigQuery
	// itself.
	Encoding encoding.Encoding
}

// NewBulkLoader builds a loader on the given client.
func NewBulkLoader(client *bigquery.Client) *BulkLoader {
	return &BulkLoader{client: client}
}

// LoadURI loads a storage object into dst and returns the number of rows the
// job reported. The source format follows the object name: .csv loads as CSV
// with a header row, everything else as newline-delimited JSON. Any
// job-level error fails the load so later stages never run on unverified
// data.
func (b *BulkLoader) LoadURI(ctx context.Context, uri string, dst Target, write bigquery.TableWriteDisposition) (int64, error) {
	ref := bigquery.NewGCSReference(uri)
	ref.Schema = OrderSchema
	ref.SourceFormat = formatFor(uri)
	if ref.SourceFormat == bigquery.CSV {
		ref.SkipLeadingRows = 1
	}

	return b.run(ctx, b.loaderFor(ref, dst, write), uri, dst)
}

// LoadReader loads CSV content from r into dst, skipping skipRows leading
// rows.
func (b *BulkLoader) LoadReader(ctx context.Context, r io.Reader, dst Target, write bigquery.TableWriteDisposition, skipRows int64) (int64, error) {
	if b.Encoding != nil {
		r = transform.NewReader(r, b.Encoding.NewDecoder())
	}

	src := bigquery.NewReaderSource(r)
	src.Schema = OrderSchema
	src.SourceFormat = bigquery.CSV
	src.SkipLeadingRows = skipRows

	return b.run(ctx, b.loaderFor(src, dst, write), "reader", dst)
}

func (b *BulkLoader) loaderFor(src bigquery.LoadSource, dst Target, write bigquery.TableWriteDisposition) *bigquery.Loader {
	loader := b.client.DatasetInProject(dst.Project, dst.Dataset).Table(dst.Table).LoaderFrom(src)
	loader.WriteDisposition = write
	loader.CreateDisposition = bigquery.CreateIfNeeded

	return loader
}

func (b *BulkLoader) run(ctx context.Context, loader *bigquery.Loader, source string, dst Target) (int64, error) {
	l := zerolog.Ctx(ctx)

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, xerrors.Errorf("failed to start load job for %s into %s: %w", source, dst, err)
	}

	l.Info().Str("job_id", job.ID()).Str("source", source).Stringer("table", dst).Msg("load job started")

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, xerrors.Errorf("failed to wait for load job %s: %w", job.ID(), err)
	}

	if err := status.Err(); err != nil {
		l.Error().Str("job_id", job.ID()).Errs("job_errors", asErrs(status.Errors)).Msg("load job failed")
		return 0, xerrors.Errorf("load job %s reported errors: %w", job.ID(), err)
	}

	return outputRows(status), nil
}

func outputRows(status *bigquery.JobStatus) int64 {
	if status.Statistics == nil {
		return 0
	}

	if details, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		return details.OutputRows
	}

	return 0
}

func formatFor(name string) bigquery.DataFormat {
	if strings.HasSuffix(strings.ToLower(name), ".csv") {
		return bigquery.CSV
	}

	return bigquery.JSON
}

func asErrs(errs []*bigquery.Error) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}

	return out
}
