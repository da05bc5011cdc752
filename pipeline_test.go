package orderpipe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
)

var errTest = errors.New("test error")

type fakeEnsurer struct {
	datasets []string
	err      error
}

func (f *fakeEnsurer) Ensure(_ context.Context, datasetID string) error {
	f.datasets = append(f.datasets, datasetID)
	return f.err
}

type fakeLoader struct {
	uris    []string
	targets []Target
	writes  []bigquery.TableWriteDisposition
	rows    int64
	err     error
}

func (f *fakeLoader) LoadURI(_ context.Context, uri string, dst Target, write bigquery.TableWriteDisposition) (int64, error) {
	f.uris = append(f.uris, uri)
	f.targets = append(f.targets, dst)
	f.writes = append(f.writes, write)

	if f.err != nil {
		return 0, f.err
	}

	return f.rows, nil
}

type fakeMerger struct {
	calls int
	err   error
}

func (f *fakeMerger) Merge(_ context.Context) error {
	f.calls++
	return f.err
}

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, _, _ string) error {
	f.calls++
	return f.err
}

type fakeNotifier struct {
	results []*Result
}

func (f *fakeNotifier) Notify(_ context.Context, r *Result) error {
	f.results = append(f.results, r)
	return nil
}

func singleTableConfig() Config {
	return Config{
		Project:       "proj",
		Dataset:       "orders",
		Table:         "orders",
		Location:      "EU",
		ArchiveBucket: "archive",
	}
}

func stagingConfig() Config {
	cfg := singleTableConfig()
	cfg.StagingDataset = "staging"
	cfg.StagingTable = "orders_staging"

	return cfg
}

func newTestPipeline(cfg Config) (*pipeline, *fakeEnsurer, *fakeLoader, *fakeMerger, *fakeArchiver, *fakeNotifier) {
	fe := &fakeEnsurer{}
	fl := &fakeLoader{rows: 1}
	fm := &fakeMerger{}
	fa := &fakeArchiver{}
	fn := &fakeNotifier{}

	p := &pipeline{
		cfg:      cfg,
		ensurer:  fe,
		loader:   fl,
		merger:   fm,
		archiver: fa,
		notifier: fn,
		logger:   zerolog.Nop(),
	}

	return p, fe, fl, fm, fa, fn
}

func TestPipeline_Handle(t *testing.T) {
	p, fe, fl, fm, fa, _ := newTestPipeline(singleTableConfig())

	e := Event{Bucket: "b", Name: "f.json"}

	if err := p.Handle(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fe.datasets) != 1 || fe.datasets[0] != "orders" {
		t.Errorf("ensured datasets should be [orders], but %v", fe.datasets)
	}

	if len(fl.uris) != 1 || fl.uris[0] != "gs://b/f.json" {
		t.Errorf("loaded URIs should be [gs://b/f.json], but %v", fl.uris)
	}

	if fl.writes[0] != bigquery.WriteAppend {
		t.Errorf("single-table load should append, but %v", fl.writes[0])
	}

	if fl.targets[0].String() != "proj.orders.orders" {
		t.Errorf("load target should be proj.orders.orders, but %s", fl.targets[0])
	}

	if fm.calls != 0 {
		t.Errorf("merge should not run in single-table mode, ran %d times", fm.calls)
	}

	if fa.calls != 1 {
		t.Errorf("archive should run once, ran %d times", fa.calls)
	}
}

func TestPipeline_Handle_staging(t *testing.T) {
	p, fe, fl, fm, fa, _ := newTestPipeline(stagingConfig())

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fe.datasets) != 2 || fe.datasets[0] != "staging" || fe.datasets[1] != "orders" {
		t.Errorf("ensured datasets should be [staging orders], but %v", fe.datasets)
	}

	if fl.writes[0] != bigquery.WriteTruncate {
		t.Errorf("staging load should truncate, but %v", fl.writes[0])
	}

	if fl.targets[0].String() != "proj.staging.orders_staging" {
		t.Errorf("load target should be proj.staging.orders_staging, but %s", fl.targets[0])
	}

	if fm.calls != 1 {
		t.Errorf("merge should run once, ran %d times", fm.calls)
	}

	if fa.calls != 1 {
		t.Errorf("archive should run once, ran %d times", fa.calls)
	}
}

func TestPipeline_Handle_rowCount(t *testing.T) {
	p, _, fl, _, _, fn := newTestPipeline(singleTableConfig())
	fl.rows = 123

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fn.results) != 1 {
		t.Fatalf("expected one notification, got %d", len(fn.results))
	}

	if fn.results[0].Rows != 123 {
		t.Errorf("notified row count should be 123, but %d", fn.results[0].Rows)
	}

	if fn.results[0].Error != nil {
		t.Errorf("notified error should be nil, but %v", fn.results[0].Error)
	}
}

func TestPipeline_Handle_loadFailure(t *testing.T) {
	p, _, fl, fm, fa, fn := newTestPipeline(stagingConfig())
	fl.err = errTest

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err == nil {
		t.Error("expected error but no error occurred")
	}

	if fm.calls != 0 {
		t.Errorf("merge should be skipped after a failed load, ran %d times", fm.calls)
	}

	if fa.calls != 0 {
		t.Errorf("archive should be skipped after a failed load, ran %d times", fa.calls)
	}

	if len(fn.results) != 1 || fn.results[0].Error == nil {
		t.Error("failure should still be notified with its error")
	}
}

func TestPipeline_Handle_mergeFailure(t *testing.T) {
	p, _, _, fm, fa, _ := newTestPipeline(stagingConfig())
	fm.err = errTest

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err == nil {
		t.Error("expected error but no error occurred")
	}

	if fa.calls != 0 {
		t.Errorf("archive should be skipped after a failed merge, ran %d times", fa.calls)
	}
}

func TestPipeline_Handle_datasetFailure(t *testing.T) {
	p, fe, fl, _, _, _ := newTestPipeline(singleTableConfig())
	fe.err = errTest

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err == nil {
		t.Error("expected error but no error occurred")
	}

	if len(fl.uris) != 0 {
		t.Errorf("load should be skipped after a failed dataset check, saw %v", fl.uris)
	}
}

func TestPipeline_Handle_archiveFailure(t *testing.T) {
	p, _, _, _, fa, _ := newTestPipeline(singleTableConfig())
	fa.err = errTest

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err == nil {
		t.Error("archive failure after a successful load should surface as an error")
	}
}

func TestPipeline_Handle_malformedEvent(t *testing.T) {
	p, _, fl, _, _, _ := newTestPipeline(singleTableConfig())

	for _, e := range []Event{{Bucket: "b"}, {Name: "f.json"}, {}} {
		if err := p.Handle(context.Background(), e); err != nil {
			t.Errorf("malformed event %+v should be acknowledged, got %v", e, err)
		}
	}

	if len(fl.uris) != 0 {
		t.Errorf("loader should never run for malformed events, saw %v", fl.uris)
	}
}

func TestPipeline_Handle_noArchiveBucket(t *testing.T) {
	p, _, _, _, _, _ := newTestPipeline(singleTableConfig())
	p.cfg.ArchiveBucket = ""
	p.archiver = nil

	if err := p.Handle(context.Background(), Event{Bucket: "b", Name: "f.json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPipeline_HandlePubSub(t *testing.T) {
	p, _, fl, _, _, _ := newTestPipeline(singleTableConfig())

	enc := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b","name":"f.json"}`))
	data, _ := json.Marshal(enc)
	m := PubSubMessage{Data: data}

	if err := p.HandlePubSub(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fl.uris) != 1 || fl.uris[0] != "gs://b/f.json" {
		t.Errorf("loaded URIs should be [gs://b/f.json], but %v", fl.uris)
	}
}

func TestPipeline_HandlePubSub_malformed(t *testing.T) {
	p, _, fl, _, _, _ := newTestPipeline(singleTableConfig())

	m := PubSubMessage{Data: json.RawMessage(`42`)}

	if err := p.HandlePubSub(context.Background(), m); err != nil {
		t.Errorf("malformed message should be acknowledged, got %v", err)
	}

	if len(fl.uris) != 0 {
		t.Errorf("loader should never run for malformed messages, saw %v", fl.uris)
	}
}
