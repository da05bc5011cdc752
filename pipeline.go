package orderpipe

import (
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// Pipeline loads order files landing in Cloud Storage into BigQuery and
// archives the processed objects. Each invocation runs the stages in order,
// each gated by the previous one succeeding: ensure datasets, load,
// merge (staging mode only), archive.
type Pipeline interface {
	// Handle processes one storage event.
	Handle(ctx context.Context, e Event) error

	// HandlePubSub decodes a Pub/Sub envelope and processes the wrapped
	// storage event.
	HandlePubSub(ctx context.Context, m PubSubMessage) error
}

// New builds a Pipeline for the given deployment configuration.
func New(ctx context.Context, cfg Config, opts ...Option) (Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	p := &pipeline{cfg: cfg, logLevel: "info"}
	for _, o := range opts {
		if err := o.apply(p); err != nil {
			return nil, err
		}
	}

	if err := p.setupLogger(); err != nil {
		return nil, err
	}

	if p.concurrency > 0 {
		p.sem = semaphore.NewWeighted(p.concurrency)
	}

	bq, err := bigquery.NewClient(ctx, cfg.Project, p.clientOpts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", cfg.Project, err)
	}

	p.ensurer = NewDatasetAdmin(bq, cfg.Location)
	p.loader = NewBulkLoader(bq)

	if cfg.staging() {
		p.merger = NewMerger(bq, cfg.stagingTarget(), cfg.target(), cfg.Location)
	}

	if cfg.ArchiveBucket != "" {
		gcs, err := storage.NewClient(ctx, p.clientOpts...)
		if err != nil {
			return nil, xerrors.Errorf("failed to build storage client: %w", err)
		}

		p.archiver = NewArchiver(gcs, cfg.ArchiveBucket)
	}

	return p, nil
}

type pipeline struct {
	cfg Config

	ensurer  datasetEnsurer
	loader   bulkLoader
	merger   upsertMerger
	archiver objectArchiver
	notifier Notifier

	logger zerolog.Logger
	sem    *semaphore.Weighted

	prettyLogging bool
	logLevel      string
	concurrency   int64
	clientOpts    []option.ClientOption
}

// datasetEnsurer is the dataset setup stage seen by the pipeline.
type datasetEnsurer interface {
	Ensure(ctx context.Context, datasetID string) error
}

func (p *pipeline) setupLogger() error {
	level, err := zerolog.ParseLevel(p.logLevel)
	if err != nil {
		return xerrors.Errorf("invalid log level %q: %w", p.logLevel, err)
	}

	var w io.Writer = os.Stdout
	if p.prettyLogging {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	p.logger = zerolog.New(w).Level(level).With().Timestamp().Logger()

	return nil
}

func (p *pipeline) Handle(ctx context.Context, e Event) error {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return xerrors.Errorf("failed to acquire invocation slot: %w", err)
		}
		defer p.sem.Release(1)
	}

	ctx = withStartedTime(ctx)

	l := p.logger.With().
		Str("event_id", invocationID(ctx)).
		Str("bucket", e.Bucket).
		Str("object", e.Name).
		Logger()
	ctx = l.WithContext(ctx)

	l.Info().Msg("pipeline invocation started")

	if err := e.validate(); err != nil {
		l.Error().Err(err).Msg("rejecting malformed trigger")
		return nil
	}

	res := p.process(ctx, e)
	p.notify(ctx, res)

	if t, ok := startedTimeFrom(ctx); ok {
		l = l.With().Dur("elapsed", time.Since(t)).Logger()
	}

	if res.Error != nil {
		if IsNonRetryable(res.Error) {
			l.Error().Err(res.Error).Msg("invocation dropped without retry")
			return nil
		}

		l.Error().Err(res.Error).Msg("pipeline invocation failed")

		return res.Error
	}

	l.Info().Int64("rows", res.Rows).Msg("pipeline invocation completed")

	return nil
}

func (p *pipeline) HandlePubSub(ctx context.Context, m PubSubMessage) error {
	e, err := m.Event()
	if err != nil {
		if IsNonRetryable(err) {
			p.logger.Error().Err(err).
				Str("event_id", invocationID(ctx)).
				Msg("rejecting malformed pub/sub trigger")
			return nil
		}

		return err
	}

	return p.Handle(ctx, e)
}

// process runs load, merge and archive. The returned Result always carries
// the event and destination; Rows and Error reflect how far the invocation
// got.
func (p *pipeline) process(ctx context.Context, e Event) *Result {
	l := zerolog.Ctx(ctx)

	dst := p.cfg.target()
	write := bigquery.WriteAppend

	if p.cfg.staging() {
		dst = p.cfg.stagingTarget()
		write = bigquery.WriteTruncate
	}

	res := &Result{Event: e, Table: dst.String()}

	if p.cfg.staging() {
		if err := p.ensurer.Ensure(ctx, p.cfg.StagingDataset); err != nil {
			res.Error = xerrors.Errorf("staging dataset setup failed: %w", err)
			return res
		}
	}

	if err := p.ensurer.Ensure(ctx, p.cfg.Dataset); err != nil {
		res.Error = xerrors.Errorf("dataset setup failed: %w", err)
		return res
	}

	rows, err := p.loader.LoadURI(ctx, e.FullPath(), dst, write)
	if err != nil {
		res.Error = xerrors.Errorf("load failed: %w", err)
		return res
	}

	res.Rows = rows
	l.Info().Int64("rows", rows).Stringer("table", dst).Msg("load completed")

	if p.cfg.staging() {
		if err := p.merger.Merge(ctx); err != nil {
			res.Error = xerrors.Errorf("merge failed: %w", err)
			return res
		}
	}

	if p.archiver == nil {
		l.Info().Msg("archive bucket not configured, skipping archival")
		return res
	}

	if err := p.archiver.Archive(ctx, e.Bucket, e.Name); err != nil {
		// The load is already committed; only the archival is retried.
		res.Error = xerrors.Errorf("archive failed: %w", err)
	}

	return res
}

func (p *pipeline) notify(ctx context.Context, res *Result) {
	if p.notifier == nil {
		return
	}

	if err := p.notifier.Notify(ctx, res); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to notify result")
	}
}
